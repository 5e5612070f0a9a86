package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffdesk/internal/domain/auth"
	"staffdesk/internal/domain/employees"
	"staffdesk/internal/domain/wizard"
)

type fakeSubmitter struct {
	mu     sync.Mutex
	states []wizard.State
	failOn string
}

func (f *fakeSubmitter) Submit(_ context.Context, session auth.Session, state wizard.State) (employees.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := state.Check(); err != nil {
		return employees.Record{}, &wizard.SubmitError{Stage: wizard.StageDraft, Err: err}
	}
	if state.Draft.Email == f.failOn {
		return employees.Record{}, &wizard.SubmitError{Stage: wizard.StageProvision, Err: errors.New("email taken")}
	}
	f.states = append(f.states, state)
	return employees.Record{ID: "id-" + state.Draft.FirstName, CreatedBy: session.AccountID}, nil
}

const header = "firstName,lastName,displayName,gender,dateOfBirth,workEmail,email,mobileNumber,password," +
	"jobTitle,department,reportingManager,jobType,location,startDate," +
	"startTime,endTime,workStatus,shift," +
	"baseSalary,bonusIncentives,salaryFrequency,insuranceCoverage\n"

func row(first, email, mobile string) string {
	return first + ",Doe," + first + ",female,1990-01-02,work-" + email + "," + email + "," + mobile + ",longenough," +
		"Engineer,R&D,Boss,full-time,Remote,2024-01-01," +
		"09:00,17:00,active,morning," +
		"1000,0,monthly,Basic\n"
}

var session = auth.Session{AccountID: "admin-1"}

func TestRunReportsPerRowOutcome(t *testing.T) {
	input := header +
		row("Ada", "ada@example.com", "0123456789") +
		row("Bad", "bad@example.com", "123") +
		row("Taken", "taken@example.com", "0123456789") +
		row("Blank", "blank@example.com", "0123456789")
	input = strings.Replace(input, "Blank,Doe,Blank", ",Doe,Blank", 1)

	sub := &fakeSubmitter{failOn: "taken@example.com"}
	var errOut bytes.Buffer
	report, err := New(sub, 3, nil).Run(context.Background(), session, strings.NewReader(input), &errOut)
	require.NoError(t, err)

	require.Len(t, report.Rows, 4)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 3, report.Failed)

	assert.Equal(t, OutcomeCreated, report.Rows[0].Outcome)
	assert.Equal(t, "id-Ada", report.Rows[0].EmployeeID)
	assert.Equal(t, 2, report.Rows[0].Row)

	assert.Equal(t, OutcomeRejected, report.Rows[1].Outcome)
	assert.Equal(t, []string{"Invalid Mobile Number (10 digits required)."}, report.Rows[1].Reasons)

	assert.Equal(t, OutcomeFailed, report.Rows[2].Outcome)

	assert.Equal(t, OutcomeRejected, report.Rows[3].Outcome)
	assert.Equal(t, []string{"Please fill out all required fields in Step 1."}, report.Rows[3].Reasons)

	records, err := csv.NewReader(&errOut).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "error", records[0][len(records[0])-1])

	require.Len(t, sub.states, 1)
	assert.Equal(t, wizard.ModeCreate, sub.states[0].Mode)
	assert.Equal(t, wizard.LastStep, sub.states[0].Step)
}

func TestRunRejectsBadHeader(t *testing.T) {
	_, err := New(&fakeSubmitter{}, 1, nil).Run(context.Background(), session, strings.NewReader("firstName,salary\n"), nil)
	assert.ErrorIs(t, err, wizard.ErrUnknownField)

	_, err = New(&fakeSubmitter{}, 1, nil).Run(context.Background(), session, strings.NewReader("profilePhoto\n"), nil)
	assert.ErrorIs(t, err, wizard.ErrReadOnlyField)

	_, err = New(&fakeSubmitter{}, 1, nil).Run(context.Background(), session, strings.NewReader("email,email\n"), nil)
	assert.Error(t, err)

	_, err = New(&fakeSubmitter{}, 1, nil).Run(context.Background(), session, strings.NewReader(""), nil)
	assert.Error(t, err)
}

func TestRunRejectsShortRowAndContinues(t *testing.T) {
	input := header +
		row("Ada", "ada@example.com", "0123456789") +
		"Short,Doe\n" +
		row("Grace", "grace@example.com", "0123456789")

	sub := &fakeSubmitter{}
	var errOut bytes.Buffer
	report, err := New(sub, 2, nil).Run(context.Background(), session, strings.NewReader(input), &errOut)
	require.NoError(t, err)

	require.Len(t, report.Rows, 3)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 3, report.Rows[1].Row)
	assert.Equal(t, OutcomeRejected, report.Rows[1].Outcome)
	assert.Equal(t, []string{"expected 23 columns, got 2"}, report.Rows[1].Reasons)
	assert.Equal(t, OutcomeCreated, report.Rows[2].Outcome)

	errReader := csv.NewReader(&errOut)
	errReader.FieldsPerRecord = -1
	records, err := errReader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Short", "Doe", "expected 23 columns, got 2"}, records[1])
}

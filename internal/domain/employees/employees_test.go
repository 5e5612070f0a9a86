package employees

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffdesk/internal/domain/audit"
	"staffdesk/internal/domain/auth"
	"staffdesk/internal/platform/requestctx"
)

type memRepo struct {
	records   map[string]Record
	deleteErr error
	deleted   []string
}

func newMemRepo(records ...Record) *memRepo {
	repo := &memRepo{records: map[string]Record{}}
	for _, r := range records {
		repo.records[r.ID] = r
	}
	return repo
}

func (m *memRepo) ListByCreator(_ context.Context, createdBy string) ([]Record, error) {
	out := []Record{}
	for _, r := range m.records {
		if r.CreatedBy == createdBy {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id string) (Record, error) {
	r, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (m *memRepo) Insert(_ context.Context, r Record) error {
	if _, ok := m.records[r.ID]; ok {
		return ErrRecordExists
	}
	m.records[r.ID] = r
	return nil
}

func (m *memRepo) Replace(_ context.Context, r Record) error {
	if _, ok := m.records[r.ID]; !ok {
		return ErrNotFound
	}
	m.records[r.ID] = r
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func sampleRecord(id, createdBy string) Record {
	return Record{
		ID:              id,
		FirstName:       "Ada",
		LastName:        "Lovelace",
		DisplayName:     "Ada",
		Gender:          GenderFemale,
		DateOfBirth:     time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC),
		WorkEmail:       "ada@corp.example",
		PersonalEmail:   "ada@example.com",
		MobileNumber:    "5551234567",
		JobTitle:        "Engineer",
		Department:      "R&D",
		JobType:         JobTypeFullTime,
		Location:        "London",
		StartDate:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		WorkSchedule:    WorkSchedule{StartTime: "09:00", EndTime: "17:00"},
		WorkStatus:      WorkStatusActive,
		Shift:           ShiftMorning,
		BaseSalary:      1000,
		SalaryFrequency: SalaryMonthly,
		CreatedBy:       createdBy,
	}
}

func TestServiceScopesByRole(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo(
		sampleRecord("e1", "admin-1"),
		sampleRecord("e2", "admin-1"),
		sampleRecord("e3", "admin-2"),
	)
	svc := NewService(repo)

	admin := auth.Session{AccountID: "admin-1"}
	list, err := svc.List(ctx, admin, auth.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.Get(ctx, admin, auth.RoleAdmin, "e3")
	assert.ErrorIs(t, err, ErrNotFound, "records of another admin are invisible")

	employee := auth.Session{AccountID: "e2"}
	list, err = svc.List(ctx, employee, auth.RoleEmployee)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "e2", list[0].ID)

	_, err = svc.Get(ctx, employee, auth.RoleEmployee, "e1")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err = svc.List(ctx, auth.Session{AccountID: "nobody"}, auth.RoleEmployee)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestServiceDeleteRequiresOwnership(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo(sampleRecord("e1", "admin-1"), sampleRecord("e2", "admin-2"))
	svc := NewService(repo)

	err := svc.Delete(ctx, auth.Session{AccountID: "admin-1"}, "e2")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, repo.deleted)

	require.NoError(t, svc.Delete(ctx, auth.Session{AccountID: "admin-1"}, "e1"))
	assert.Equal(t, []string{"e1"}, repo.deleted)
}

type auditCall struct {
	actor, action, id, requestID string
	before, after                any
}

type fakeAuditor struct {
	calls []auditCall
	err   error
}

func (f *fakeAuditor) Record(_ context.Context, actorID, action, _, entityID, requestID string, before, after any) error {
	f.calls = append(f.calls, auditCall{actor: actorID, action: action, id: entityID, requestID: requestID, before: before, after: after})
	return f.err
}

func TestServiceAuditsWrites(t *testing.T) {
	ctx := requestctx.WithRequestID(context.Background(), "req-1")
	repo := newMemRepo()
	auditor := &fakeAuditor{}
	svc := NewService(repo)
	svc.Audit = auditor

	created := sampleRecord("e1", "admin-1")
	require.NoError(t, svc.Insert(ctx, created))

	updated := created
	updated.JobTitle = "Staff Engineer"
	require.NoError(t, svc.Replace(ctx, updated))

	require.NoError(t, svc.Delete(ctx, auth.Session{AccountID: "admin-1"}, "e1"))

	require.Len(t, auditor.calls, 3)
	assert.Equal(t, auditCall{actor: "admin-1", action: audit.ActionEmployeeCreate, id: "e1", requestID: "req-1", after: created}, auditor.calls[0])
	assert.Equal(t, audit.ActionEmployeeUpdate, auditor.calls[1].action)
	assert.Equal(t, created, auditor.calls[1].before)
	assert.Equal(t, updated, auditor.calls[1].after)
	assert.Equal(t, audit.ActionEmployeeDelete, auditor.calls[2].action)
	assert.Equal(t, updated, auditor.calls[2].before)
	assert.Nil(t, auditor.calls[2].after)
}

func TestServiceAuditFailureKeepsWrite(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	svc.Audit = &fakeAuditor{err: errors.New("audit table missing")}

	require.NoError(t, svc.Insert(context.Background(), sampleRecord("e1", "admin-1")))
	_, err := repo.Get(context.Background(), "e1")
	assert.NoError(t, err)
}

func TestRosterDeleteRemovesExactlyOneEntry(t *testing.T) {
	ctx := context.Background()
	entries := []Record{sampleRecord("e1", "a"), sampleRecord("e2", "a"), sampleRecord("e3", "a")}
	roster := NewRoster(entries)

	next, err := roster.Delete(ctx, newMemRepo(entries...), "e2")
	require.NoError(t, err)

	ids := func(r Roster) []string {
		out := []string{}
		for _, e := range r.Entries {
			out = append(out, e.ID)
		}
		return out
	}
	if diff := cmp.Diff([]string{"e1", "e3"}, ids(next)); diff != "" {
		t.Fatalf("unexpected roster after delete (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, roster.Len(), "original roster is not mutated")
}

func TestRosterDeleteFailureLeavesListUnchanged(t *testing.T) {
	entries := []Record{sampleRecord("e1", "a"), sampleRecord("e2", "a")}
	roster := NewRoster(entries)
	repo := newMemRepo(entries...)
	repo.deleteErr = errors.New("backend down")

	next, err := roster.Delete(context.Background(), repo, "e1")
	require.Error(t, err)
	if diff := cmp.Diff(roster, next); diff != "" {
		t.Fatalf("roster changed on failure (-want +got):\n%s", diff)
	}
}

func TestWriteProfilePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProfilePDF(&buf, sampleRecord("e1", "a")))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestRecordHelpers(t *testing.T) {
	r := sampleRecord("e1", "a")
	assert.Equal(t, "Ada Lovelace", r.FullName())
	assert.Equal(t, "", r.Avatar())
	url := "https://cdn.example/avatars/1-a.png"
	r.AvatarURL = &url
	assert.Equal(t, url, r.Avatar())
}

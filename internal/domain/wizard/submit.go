package wizard

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"staffdesk/internal/domain/auth"
	"staffdesk/internal/domain/employees"
	"staffdesk/internal/platform/metrics"
)

// Stage names the point of the submission sequence that failed.
type Stage string

const (
	StageSession   Stage = "session"
	StageDraft     Stage = "draft"
	StageProvision Stage = "provision"
	StageRecord    Stage = "record"
)

// SubmitError wraps a failure with the stage that produced it.
type SubmitError struct {
	Stage Stage
	Err   error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("wizard submit failed at %s: %v", e.Stage, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Message is the notification shown to the operator.
func (e *SubmitError) Message() string {
	switch e.Stage {
	case StageSession:
		return "Unable to fetch admin details. Please try again."
	case StageProvision:
		return "Signup failed. Please try again."
	case StageRecord:
		return "Employee creation failed. Please try again."
	case StageDraft:
		var gate *GateError
		if errors.As(e.Err, &gate) {
			return gate.Error()
		}
		return "Please correct the highlighted fields."
	}
	return "Something went wrong. Please try again."
}

const SuccessMessage = "Employee created successfully!"

type Accounts interface {
	SignUp(ctx context.Context, email, password string, role auth.Role) (string, error)
}

type Records interface {
	Insert(ctx context.Context, r employees.Record) error
	Replace(ctx context.Context, r employees.Record) error
}

// Submitter runs the write sequence: session, account, record. Each call
// depends on the previous one, so they run strictly in order and the first
// failure aborts the rest. An account provisioned before a failed record
// write is not removed here.
type Submitter struct {
	Accounts Accounts
	Records  Records
	Log      *zap.Logger
}

func NewSubmitter(accounts Accounts, records Records, log *zap.Logger) *Submitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Submitter{Accounts: accounts, Records: records, Log: log}
}

func (s *Submitter) Submit(ctx context.Context, session auth.Session, state State) (employees.Record, error) {
	record, err := s.submit(ctx, session, state)

	stage, outcome := "done", "success"
	var submitErr *SubmitError
	if errors.As(err, &submitErr) {
		stage, outcome = string(submitErr.Stage), "failure"
	}
	metrics.WizardSubmissions.WithLabelValues(string(state.Mode), stage, outcome).Inc()
	return record, err
}

func (s *Submitter) submit(ctx context.Context, session auth.Session, state State) (employees.Record, error) {
	if !session.Active() {
		return employees.Record{}, &SubmitError{Stage: StageSession, Err: auth.ErrNoSession}
	}
	if err := state.CanSubmit(); err != nil {
		return employees.Record{}, &SubmitError{Stage: StageDraft, Err: err}
	}
	if err := state.Check(); err != nil {
		return employees.Record{}, &SubmitError{Stage: StageDraft, Err: err}
	}

	record, err := state.Draft.ToRecord("", session.AccountID)
	if err != nil {
		return employees.Record{}, &SubmitError{Stage: StageDraft, Err: err}
	}

	identity := state.AccountID
	provisioned := false
	if state.Mode == ModeCreate {
		identity, err = s.Accounts.SignUp(ctx, record.PersonalEmail, state.Draft.Password, auth.RoleEmployee)
		if err != nil {
			return employees.Record{}, &SubmitError{Stage: StageProvision, Err: err}
		}
		provisioned = true
	} else if identity == "" {
		return employees.Record{}, &SubmitError{Stage: StageDraft, Err: errors.New("existing account identity required")}
	}
	record.ID = identity

	if state.Mode == ModeEdit {
		err = s.Records.Replace(ctx, record)
	} else {
		err = s.Records.Insert(ctx, record)
	}
	if err != nil {
		if provisioned {
			s.Log.Warn("record write failed after account provisioning; account left without record",
				zap.String("accountId", identity),
				zap.String("createdBy", session.AccountID),
				zap.Error(err),
			)
		}
		return employees.Record{}, &SubmitError{Stage: StageRecord, Err: err}
	}

	s.Log.Info("employee record written",
		zap.String("employeeId", identity),
		zap.String("mode", string(state.Mode)),
		zap.String("createdBy", session.AccountID),
	)
	return record, nil
}

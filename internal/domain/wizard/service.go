package wizard

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"staffdesk/internal/domain/auth"
	"staffdesk/internal/domain/employees"
)

// RecordSource loads the record an edit wizard starts from.
type RecordSource interface {
	Get(ctx context.Context, session auth.Session, role auth.Role, id string) (employees.Record, error)
}

// PhotoUploader stores an image and returns its public URL.
type PhotoUploader interface {
	Upload(ctx context.Context, name string, body io.Reader) (string, error)
}

type Service struct {
	Registry  *Registry
	Submitter *Submitter
	Records   RecordSource
	Photos    PhotoUploader
	Log       *zap.Logger
}

func NewService(registry *Registry, submitter *Submitter, records RecordSource, photos PhotoUploader, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Registry: registry, Submitter: submitter, Records: records, Photos: photos, Log: log}
}

type OpenRequest struct {
	Mode       Mode   `json:"mode"`
	AccountID  string `json:"accountId"`
	EmployeeID string `json:"employeeId"`
}

var ErrInvalidOpen = errors.New("invalid wizard request")

func (s *Service) Open(ctx context.Context, session auth.Session, req OpenRequest) (Instance, error) {
	var state State
	switch req.Mode {
	case ModeCreate, "":
		state = NewCreate()
	case ModeAssociate:
		if req.AccountID == "" {
			return Instance{}, ErrInvalidOpen
		}
		state = NewAssociate(req.AccountID)
	case ModeEdit:
		if req.EmployeeID == "" {
			return Instance{}, ErrInvalidOpen
		}
		record, err := s.Records.Get(ctx, session, auth.RoleAdmin, req.EmployeeID)
		if err != nil {
			return Instance{}, err
		}
		state = NewEdit(record)
	default:
		return Instance{}, ErrInvalidOpen
	}
	return s.Registry.Open(session.AccountID, state)
}

func (s *Service) Get(session auth.Session, id string) (Instance, error) {
	return s.Registry.Get(session.AccountID, id)
}

func (s *Service) Current(session auth.Session) (Instance, bool) {
	return s.Registry.Current(session.AccountID)
}

// Change applies field edits in order. Unknown or read-only fields abort the
// batch without storing any of it.
func (s *Service) Change(session auth.Session, id string, changes map[Field]string) (Instance, error) {
	return s.Registry.Update(session.AccountID, id, func(state State) (State, error) {
		next := state
		for f, value := range changes {
			var err error
			next, err = next.Apply(f, value)
			if err != nil {
				return state, err
			}
		}
		return next, nil
	})
}

func (s *Service) Touch(session auth.Session, id string, f Field) (Instance, error) {
	return s.Registry.Update(session.AccountID, id, func(state State) (State, error) {
		return state.Touch(f), nil
	})
}

func (s *Service) Next(session auth.Session, id string) (Instance, error) {
	return s.Registry.Update(session.AccountID, id, State.Next)
}

func (s *Service) Previous(session auth.Session, id string) (Instance, error) {
	return s.Registry.Update(session.AccountID, id, func(state State) (State, error) {
		return state.Previous(), nil
	})
}

// AttachPhoto uploads the image and stores its URL on the draft. A failed
// upload leaves the draft as it was.
func (s *Service) AttachPhoto(ctx context.Context, session auth.Session, id, name string, body io.Reader) (Instance, error) {
	if _, err := s.Registry.Get(session.AccountID, id); err != nil {
		return Instance{}, err
	}
	url, err := s.Photos.Upload(ctx, name, body)
	if err != nil {
		return Instance{}, err
	}
	return s.Registry.Update(session.AccountID, id, func(state State) (State, error) {
		return state.WithPhoto(url), nil
	})
}

// Submit runs the write sequence. On success the wizard is closed; on
// failure it stays open at its current step. Once started the sequence runs
// to completion even if the caller goes away.
func (s *Service) Submit(ctx context.Context, session auth.Session, id string) (employees.Record, error) {
	inst, err := s.Registry.BeginSubmit(session.AccountID, id)
	if err != nil {
		return employees.Record{}, err
	}
	record, err := s.Submitter.Submit(context.WithoutCancel(ctx), session, inst.State)
	s.Registry.EndSubmit(session.AccountID, id, err == nil)
	return record, err
}

func (s *Service) Cancel(session auth.Session, id string) error {
	return s.Registry.Close(session.AccountID, id)
}

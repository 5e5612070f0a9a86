package employees

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"staffdesk/internal/domain/audit"
	"staffdesk/internal/domain/auth"
	"staffdesk/internal/platform/requestctx"
)

type Repository interface {
	ListByCreator(ctx context.Context, createdBy string) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Insert(ctx context.Context, r Record) error
	Replace(ctx context.Context, r Record) error
	Delete(ctx context.Context, id string) error
}

// Auditor receives one event per record write.
type Auditor interface {
	Record(ctx context.Context, actorID, action, entityType, entityID, requestID string, before, after any) error
}

// Service applies caller scoping on top of the store: admins see the records
// they created, employees see only their own. Writes are reported to Audit
// when it is set; a failed audit write is logged and does not undo the
// change.
type Service struct {
	Store Repository
	Audit Auditor
	Log   *zap.Logger
}

func NewService(store Repository) *Service {
	return &Service{Store: store, Log: zap.NewNop()}
}

func (s *Service) List(ctx context.Context, session auth.Session, role auth.Role) ([]Record, error) {
	switch role {
	case auth.RoleAdmin:
		return s.Store.ListByCreator(ctx, session.AccountID)
	case auth.RoleEmployee:
		record, err := s.Store.Get(ctx, session.AccountID)
		if errors.Is(err, ErrNotFound) {
			return []Record{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []Record{record}, nil
	}
	return nil, ErrForbidden
}

func (s *Service) Get(ctx context.Context, session auth.Session, role auth.Role, id string) (Record, error) {
	record, err := s.Store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if !visible(session, role, record) {
		return Record{}, ErrNotFound
	}
	return record, nil
}

// Own returns the caller's own record.
func (s *Service) Own(ctx context.Context, session auth.Session) (Record, error) {
	return s.Store.Get(ctx, session.AccountID)
}

func (s *Service) Delete(ctx context.Context, session auth.Session, id string) error {
	before, err := s.Get(ctx, session, auth.RoleAdmin, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, session.AccountID, audit.ActionEmployeeDelete, id, before, nil)
	return nil
}

func (s *Service) Insert(ctx context.Context, r Record) error {
	if err := s.Store.Insert(ctx, r); err != nil {
		return err
	}
	s.audit(ctx, r.CreatedBy, audit.ActionEmployeeCreate, r.ID, nil, r)
	return nil
}

func (s *Service) Replace(ctx context.Context, r Record) error {
	var before any
	if s.Audit != nil {
		if existing, err := s.Store.Get(ctx, r.ID); err == nil {
			before = existing
		}
	}
	if err := s.Store.Replace(ctx, r); err != nil {
		return err
	}
	s.audit(ctx, r.CreatedBy, audit.ActionEmployeeUpdate, r.ID, before, r)
	return nil
}

func (s *Service) audit(ctx context.Context, actorID, action, id string, before, after any) {
	if s.Audit == nil {
		return
	}
	err := s.Audit.Record(ctx, actorID, action, audit.EntityEmployee, id, requestctx.GetRequestID(ctx), before, after)
	if err != nil && s.Log != nil {
		s.Log.Warn("audit write failed", zap.String("action", action), zap.String("employeeId", id), zap.Error(err))
	}
}

func visible(session auth.Session, role auth.Role, r Record) bool {
	switch role {
	case auth.RoleAdmin:
		return r.CreatedBy == session.AccountID
	case auth.RoleEmployee:
		return r.ID == session.AccountID
	}
	return false
}

package wizard

import (
	"fmt"
	"strings"

	"staffdesk/internal/domain/employees"
)

// Mode selects how the submission resolves the record identity.
type Mode string

const (
	// ModeCreate provisions a new account and inserts its record.
	ModeCreate Mode = "create"
	// ModeAssociate inserts a record for an account that already exists.
	ModeAssociate Mode = "associate"
	// ModeEdit rewrites an existing record.
	ModeEdit Mode = "edit"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeCreate:
		return ModeCreate, nil
	case ModeAssociate:
		return ModeAssociate, nil
	case ModeEdit:
		return ModeEdit, nil
	}
	return "", fmt.Errorf("unknown wizard mode %q", raw)
}

// State is one immutable snapshot of a wizard. Every transition returns a new
// value and leaves the receiver untouched.
type State struct {
	Step      Step        `json:"step"`
	Mode      Mode        `json:"mode"`
	AccountID string      `json:"accountId,omitempty"`
	Draft     Draft       `json:"draft"`
	Errors    FieldErrors `json:"errors"`
}

func NewCreate() State {
	return State{Step: FirstStep, Mode: ModeCreate, Errors: FieldErrors{}}
}

func NewAssociate(accountID string) State {
	return State{Step: FirstStep, Mode: ModeAssociate, AccountID: accountID, Errors: FieldErrors{}}
}

func NewEdit(r employees.Record) State {
	return State{Step: FirstStep, Mode: ModeEdit, AccountID: r.ID, Draft: FromRecord(r), Errors: FieldErrors{}}
}

// Apply records one field change and re-validates that field.
func (s State) Apply(f Field, value string) (State, error) {
	if f == FieldProfilePhoto {
		return s, ErrReadOnlyField
	}
	return s.set(f, value)
}

// Touch re-validates f against its current value, as on focus loss.
func (s State) Touch(f Field) State {
	if _, ok := fieldSpecs[f]; !ok || f == FieldProfilePhoto {
		return s
	}
	s.Errors = s.Errors.with(f, s.validate(f, s.Draft.Get(f)))
	return s
}

func (s State) set(f Field, value string) (State, error) {
	draft, err := s.Draft.With(f, value)
	if err != nil {
		return s, err
	}
	s.Draft = draft
	s.Errors = s.Errors.with(f, s.validate(f, value))
	return s, nil
}

// WithPhoto stores the public URL produced by an upload.
func (s State) WithPhoto(url string) State {
	next, _ := s.set(FieldProfilePhoto, url)
	return next
}

func (s State) validate(f Field, value string) string {
	if f == FieldPassword && s.Mode != ModeCreate {
		return ""
	}
	return ValidateField(f, value)
}

// Next advances one step when the current step's gate passes. At the last
// step it is a no-op.
func (s State) Next() (State, error) {
	if missing := s.Step.Missing(s.Draft, s.Mode); len(missing) > 0 {
		return s, &GateError{Step: s.Step, Missing: missing}
	}
	if s.Step >= LastStep {
		return s, nil
	}
	s.Step++
	return s, nil
}

// Previous moves back one step without validating.
func (s State) Previous() State {
	if s.Step > FirstStep {
		s.Step--
	}
	return s
}

// CanSubmit reports whether the wizard is at the last step with its gate
// satisfied.
func (s State) CanSubmit() error {
	if s.Step != LastStep {
		return fmt.Errorf("submit is only available at step %d", int(LastStep))
	}
	if missing := s.Step.Missing(s.Draft, s.Mode); len(missing) > 0 {
		return &GateError{Step: s.Step, Missing: missing}
	}
	return nil
}

// Check runs every field validator that applies to the mode and returns the
// resulting errors, or nil when the draft is clean.
func (s State) Check() error {
	problems := FieldErrors{}
	for _, step := range Steps {
		for _, f := range step.Fields() {
			if msg := s.validate(f, s.Draft.Get(f)); msg != "" {
				problems[f] = msg
			}
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// StepErrors filters the inline errors down to the fields of the current step.
func (s State) StepErrors() FieldErrors {
	out := FieldErrors{}
	for _, f := range s.Step.Fields() {
		if msg, ok := s.Errors[f]; ok {
			out[f] = msg
		}
	}
	return out
}

// View is the state as it may be returned to a caller.
func (s State) View() State {
	s.Draft = s.Draft.Redacted()
	return s
}

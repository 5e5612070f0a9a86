package wizard

import (
	"fmt"
	"strings"
)

type Step int

const (
	StepBasic Step = iota + 1
	StepJob
	StepWork
	StepCompensation
)

const (
	FirstStep = StepBasic
	LastStep  = StepCompensation
)

var Steps = []Step{StepBasic, StepJob, StepWork, StepCompensation}

var stepFields = map[Step][]Field{
	StepBasic: {
		FieldFirstName, FieldLastName, FieldDisplayName, FieldGender, FieldDateOfBirth,
		FieldWorkEmail, FieldEmail, FieldMobileNumber, FieldPassword,
	},
	StepJob: {
		FieldJobTitle, FieldDepartment, FieldReportingManager, FieldJobType, FieldLocation, FieldStartDate,
	},
	StepWork: {
		FieldStartTime, FieldEndTime, FieldWorkStatus, FieldShift,
	},
	StepCompensation: {
		FieldBaseSalary, FieldBonusIncentives, FieldSalaryFrequency, FieldInsuranceCoverage,
	},
}

func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

func (s Step) Label() string {
	switch s {
	case StepBasic:
		return "Basic Details"
	case StepJob:
		return "Job Details"
	case StepWork:
		return "Work Details"
	case StepCompensation:
		return "Compensation"
	}
	return ""
}

// Fields lists the form fields collected on step s.
func (s Step) Fields() []Field {
	return append([]Field(nil), stepFields[s]...)
}

// Required lists the fields the step gate checks. The password is only
// collected when a new account is provisioned.
func (s Step) Required(mode Mode) []Field {
	out := make([]Field, 0, len(stepFields[s]))
	for _, f := range stepFields[s] {
		if f == FieldPassword && mode != ModeCreate {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Missing is the presence-only step gate: it reports required fields that
// are empty and ignores format.
func (s Step) Missing(d Draft, mode Mode) []Field {
	var missing []Field
	for _, f := range s.Required(mode) {
		if strings.TrimSpace(d.Get(f)) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// StepOf reports the step that collects f, or 0 for fields outside the steps.
func StepOf(f Field) Step {
	for _, s := range Steps {
		for _, candidate := range stepFields[s] {
			if candidate == f {
				return s
			}
		}
	}
	return 0
}

// GateError is returned when forward navigation is blocked.
type GateError struct {
	Step    Step
	Missing []Field
}

func (e *GateError) Error() string {
	return fmt.Sprintf("Please fill out all required fields in Step %d.", int(e.Step))
}

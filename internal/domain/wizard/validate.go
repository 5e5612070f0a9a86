package wizard

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"staffdesk/internal/domain/auth"
	"staffdesk/internal/domain/employees"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern = regexp.MustCompile(`^\d{10}$`)
)

// FieldErrors maps a field to its inline error message.
type FieldErrors map[Field]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[Field(f)])
	}
	return strings.Join(parts, "; ")
}

// with returns a copy carrying msg for f, or without f when msg is empty.
func (e FieldErrors) with(f Field, msg string) FieldErrors {
	out := make(FieldErrors, len(e)+1)
	for k, v := range e {
		out[k] = v
	}
	if msg == "" {
		delete(out, f)
	} else {
		out[f] = msg
	}
	return out
}

// ValidateField returns the inline error for a single value, or "" when the
// value is acceptable. Unknown fields never produce an error.
func ValidateField(f Field, value string) string {
	switch StepOf(f) {
	case StepBasic:
		return validateBasic(f, value)
	case StepJob:
		return validateJob(f, value)
	case StepWork:
		return validateWork(f, value)
	case StepCompensation:
		return validateCompensation(f, value)
	}
	return ""
}

func validateBasic(f Field, value string) string {
	if msg := required(f, value); msg != "" {
		return msg
	}
	switch f {
	case FieldGender:
		return enum(f, value, employees.Genders)
	case FieldDateOfBirth:
		return date(f, value)
	case FieldWorkEmail:
		if !emailPattern.MatchString(value) {
			return "Invalid Work Email."
		}
	case FieldEmail:
		if !emailPattern.MatchString(value) {
			return "Invalid Email."
		}
	case FieldMobileNumber:
		if !mobilePattern.MatchString(value) {
			return "Invalid Mobile Number (10 digits required)."
		}
	case FieldPassword:
		if utf8.RuneCountInString(value) < auth.MinPasswordLength {
			return "Password must be at least 8 characters."
		}
	}
	return ""
}

func validateJob(f Field, value string) string {
	if msg := required(f, value); msg != "" {
		return msg
	}
	switch f {
	case FieldJobType:
		return enum(f, value, employees.JobTypes)
	case FieldStartDate:
		return date(f, value)
	}
	return ""
}

func validateWork(f Field, value string) string {
	if msg := required(f, value); msg != "" {
		return msg
	}
	switch f {
	case FieldStartTime, FieldEndTime:
		if _, err := time.Parse(employees.TimeLayout, strings.TrimSpace(value)); err != nil {
			return "Invalid " + f.Label() + "."
		}
	case FieldWorkStatus:
		return enum(f, value, employees.WorkStatuses)
	case FieldShift:
		return enum(f, value, employees.Shifts)
	}
	return ""
}

func validateCompensation(f Field, value string) string {
	if msg := required(f, value); msg != "" {
		return msg
	}
	switch f {
	case FieldBaseSalary, FieldBonusIncentives:
		if _, err := parseAmount(value); err != nil {
			return "Invalid " + f.Label() + "."
		}
	case FieldSalaryFrequency:
		return enum(f, value, employees.SalaryFrequencies)
	}
	return ""
}

func required(f Field, value string) string {
	if strings.TrimSpace(value) == "" {
		return f.Label() + " is required."
	}
	return ""
}

func enum[T ~string](f Field, value string, allowed []T) string {
	if _, err := oneOf(strings.TrimSpace(value), allowed); err != nil {
		return "Invalid " + f.Label() + "."
	}
	return ""
}

func date(f Field, value string) string {
	if _, err := time.Parse(employees.DateLayout, strings.TrimSpace(value)); err != nil {
		return "Invalid " + f.Label() + "."
	}
	return ""
}

var errNegativeAmount = errors.New("must not be negative")

// maxAmount is the first value the NUMERIC(14,2) salary columns cannot hold.
const maxAmount = 1e12

func parseAmount(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, errors.New("must be a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("must be a finite number")
	}
	if v < 0 {
		return 0, errNegativeAmount
	}
	if v >= maxAmount {
		return 0, errors.New("must be less than 1,000,000,000,000")
	}
	return v, nil
}

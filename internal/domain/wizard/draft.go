package wizard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"staffdesk/internal/domain/employees"
)

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrReadOnlyField = errors.New("field cannot be edited directly")
)

// Field is a draft form field, named as the console form posts it.
type Field string

const (
	FieldFirstName         Field = "firstName"
	FieldLastName          Field = "lastName"
	FieldDisplayName       Field = "displayName"
	FieldGender            Field = "gender"
	FieldDateOfBirth       Field = "dateOfBirth"
	FieldWorkEmail         Field = "workEmail"
	FieldEmail             Field = "email"
	FieldMobileNumber      Field = "mobileNumber"
	FieldPassword          Field = "password"
	FieldJobTitle          Field = "jobTitle"
	FieldDepartment        Field = "department"
	FieldReportingManager  Field = "reportingManager"
	FieldJobType           Field = "jobType"
	FieldLocation          Field = "location"
	FieldStartDate         Field = "startDate"
	FieldStartTime         Field = "startTime"
	FieldEndTime           Field = "endTime"
	FieldWorkStatus        Field = "workStatus"
	FieldShift             Field = "shift"
	FieldBaseSalary        Field = "baseSalary"
	FieldBonusIncentives   Field = "bonusIncentives"
	FieldSalaryFrequency   Field = "salaryFrequency"
	FieldInsuranceCoverage Field = "insuranceCoverage"
	FieldProfilePhoto      Field = "profilePhoto"
)

// Draft is the in-progress record. Every value is kept as typed so that
// partially filled steps can round-trip through the form.
type Draft struct {
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	DisplayName       string `json:"displayName"`
	Gender            string `json:"gender"`
	DateOfBirth       string `json:"dateOfBirth"`
	WorkEmail         string `json:"workEmail"`
	Email             string `json:"email"`
	MobileNumber      string `json:"mobileNumber"`
	Password          string `json:"password,omitempty"`
	JobTitle          string `json:"jobTitle"`
	Department        string `json:"department"`
	ReportingManager  string `json:"reportingManager"`
	JobType           string `json:"jobType"`
	Location          string `json:"location"`
	StartDate         string `json:"startDate"`
	StartTime         string `json:"startTime"`
	EndTime           string `json:"endTime"`
	WorkStatus        string `json:"workStatus"`
	Shift             string `json:"shift"`
	BaseSalary        string `json:"baseSalary"`
	BonusIncentives   string `json:"bonusIncentives"`
	SalaryFrequency   string `json:"salaryFrequency"`
	InsuranceCoverage string `json:"insuranceCoverage"`
	ProfilePhoto      string `json:"profilePhoto"`
}

type fieldSpec struct {
	label string
	ref   func(*Draft) *string
}

var fieldSpecs = map[Field]fieldSpec{
	FieldFirstName:         {"First Name", func(d *Draft) *string { return &d.FirstName }},
	FieldLastName:          {"Last Name", func(d *Draft) *string { return &d.LastName }},
	FieldDisplayName:       {"Display Name", func(d *Draft) *string { return &d.DisplayName }},
	FieldGender:            {"Gender", func(d *Draft) *string { return &d.Gender }},
	FieldDateOfBirth:       {"Date of Birth", func(d *Draft) *string { return &d.DateOfBirth }},
	FieldWorkEmail:         {"Work Email", func(d *Draft) *string { return &d.WorkEmail }},
	FieldEmail:             {"Email", func(d *Draft) *string { return &d.Email }},
	FieldMobileNumber:      {"Mobile Number", func(d *Draft) *string { return &d.MobileNumber }},
	FieldPassword:          {"Password", func(d *Draft) *string { return &d.Password }},
	FieldJobTitle:          {"Job Title", func(d *Draft) *string { return &d.JobTitle }},
	FieldDepartment:        {"Department", func(d *Draft) *string { return &d.Department }},
	FieldReportingManager:  {"Reporting Manager", func(d *Draft) *string { return &d.ReportingManager }},
	FieldJobType:           {"Job Type", func(d *Draft) *string { return &d.JobType }},
	FieldLocation:          {"Location", func(d *Draft) *string { return &d.Location }},
	FieldStartDate:         {"Start Date", func(d *Draft) *string { return &d.StartDate }},
	FieldStartTime:         {"Start Time", func(d *Draft) *string { return &d.StartTime }},
	FieldEndTime:           {"End Time", func(d *Draft) *string { return &d.EndTime }},
	FieldWorkStatus:        {"Work Status", func(d *Draft) *string { return &d.WorkStatus }},
	FieldShift:             {"Shift", func(d *Draft) *string { return &d.Shift }},
	FieldBaseSalary:        {"Base Salary", func(d *Draft) *string { return &d.BaseSalary }},
	FieldBonusIncentives:   {"Bonus/Incentives", func(d *Draft) *string { return &d.BonusIncentives }},
	FieldSalaryFrequency:   {"Salary Frequency", func(d *Draft) *string { return &d.SalaryFrequency }},
	FieldInsuranceCoverage: {"Insurance Coverage", func(d *Draft) *string { return &d.InsuranceCoverage }},
	FieldProfilePhoto:      {"Profile Photo", func(d *Draft) *string { return &d.ProfilePhoto }},
}

func ParseField(raw string) (Field, error) {
	f := Field(strings.TrimSpace(raw))
	if _, ok := fieldSpecs[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, raw)
	}
	return f, nil
}

func (f Field) Label() string {
	return fieldSpecs[f].label
}

// Get returns the current value of f, or "" for an unknown field.
func (d Draft) Get(f Field) string {
	spec, ok := fieldSpecs[f]
	if !ok {
		return ""
	}
	return *spec.ref(&d)
}

// With returns a copy of d with f set to value.
func (d Draft) With(f Field, value string) (Draft, error) {
	spec, ok := fieldSpecs[f]
	if !ok {
		return d, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	*spec.ref(&d) = value
	return d, nil
}

// Redacted is the draft as it may be shown back to a caller.
func (d Draft) Redacted() Draft {
	d.Password = ""
	return d
}

// FromRecord pre-fills a draft from a persisted record. The photo is always
// reset and the password is never known.
func FromRecord(r employees.Record) Draft {
	return Draft{
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		DisplayName:       r.DisplayName,
		Gender:            string(r.Gender),
		DateOfBirth:       formatDate(r.DateOfBirth),
		WorkEmail:         r.WorkEmail,
		Email:             r.PersonalEmail,
		MobileNumber:      r.MobileNumber,
		JobTitle:          r.JobTitle,
		Department:        r.Department,
		ReportingManager:  r.ReportingManager,
		JobType:           string(r.JobType),
		Location:          r.Location,
		StartDate:         formatDate(r.StartDate),
		StartTime:         r.WorkSchedule.StartTime,
		EndTime:           r.WorkSchedule.EndTime,
		WorkStatus:        string(r.WorkStatus),
		Shift:             string(r.Shift),
		BaseSalary:        strconv.FormatFloat(r.BaseSalary, 'f', -1, 64),
		BonusIncentives:   strconv.FormatFloat(r.BonusIncentives, 'f', -1, 64),
		SalaryFrequency:   string(r.SalaryFrequency),
		InsuranceCoverage: r.InsuranceCoverage,
	}
}

// ToRecord converts a complete draft into the row written under id.
func (d Draft) ToRecord(id, createdBy string) (employees.Record, error) {
	var problems FieldErrors
	parse := func(f Field, fn func(string) error) {
		if err := fn(strings.TrimSpace(d.Get(f))); err != nil {
			msg := ValidateField(f, d.Get(f))
			if msg == "" {
				msg = "Invalid " + f.Label() + "."
			}
			problems = problems.with(f, msg)
		}
	}

	r := employees.Record{
		ID:                id,
		FirstName:         strings.TrimSpace(d.FirstName),
		LastName:          strings.TrimSpace(d.LastName),
		DisplayName:       strings.TrimSpace(d.DisplayName),
		WorkEmail:         strings.TrimSpace(d.WorkEmail),
		PersonalEmail:     strings.TrimSpace(d.Email),
		MobileNumber:      strings.TrimSpace(d.MobileNumber),
		JobTitle:          strings.TrimSpace(d.JobTitle),
		Department:        strings.TrimSpace(d.Department),
		ReportingManager:  strings.TrimSpace(d.ReportingManager),
		Location:          strings.TrimSpace(d.Location),
		InsuranceCoverage: strings.TrimSpace(d.InsuranceCoverage),
		WorkSchedule: employees.WorkSchedule{
			StartTime: strings.TrimSpace(d.StartTime),
			EndTime:   strings.TrimSpace(d.EndTime),
		},
		CreatedBy: createdBy,
	}
	if photo := strings.TrimSpace(d.ProfilePhoto); photo != "" {
		r.AvatarURL = &photo
	}

	parse(FieldGender, func(v string) error {
		g, err := oneOf(v, employees.Genders)
		r.Gender = g
		return err
	})
	parse(FieldJobType, func(v string) error {
		jt, err := oneOf(v, employees.JobTypes)
		r.JobType = jt
		return err
	})
	parse(FieldWorkStatus, func(v string) error {
		ws, err := oneOf(v, employees.WorkStatuses)
		r.WorkStatus = ws
		return err
	})
	parse(FieldShift, func(v string) error {
		sh, err := oneOf(v, employees.Shifts)
		r.Shift = sh
		return err
	})
	parse(FieldSalaryFrequency, func(v string) error {
		sf, err := oneOf(v, employees.SalaryFrequencies)
		r.SalaryFrequency = sf
		return err
	})
	parse(FieldDateOfBirth, func(v string) (err error) {
		r.DateOfBirth, err = time.Parse(employees.DateLayout, v)
		return err
	})
	parse(FieldStartDate, func(v string) (err error) {
		r.StartDate, err = time.Parse(employees.DateLayout, v)
		return err
	})
	parse(FieldStartTime, func(v string) error {
		_, err := time.Parse(employees.TimeLayout, v)
		return err
	})
	parse(FieldEndTime, func(v string) error {
		_, err := time.Parse(employees.TimeLayout, v)
		return err
	})
	parse(FieldBaseSalary, func(v string) (err error) {
		r.BaseSalary, err = parseAmount(v)
		return err
	})
	parse(FieldBonusIncentives, func(v string) (err error) {
		r.BonusIncentives, err = parseAmount(v)
		return err
	})

	if len(problems) > 0 {
		return employees.Record{}, problems
	}
	return r, nil
}

func oneOf[T ~string](raw string, allowed []T) (T, error) {
	for _, candidate := range allowed {
		if strings.EqualFold(raw, string(candidate)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("must be one of %s", joinValues(allowed))
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(employees.DateLayout)
}

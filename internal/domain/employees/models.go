package employees

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("employee not found")
	ErrRecordExists = errors.New("employee record already exists for this account")
	ErrForbidden    = errors.New("not allowed to act on this employee")
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type JobType string

const (
	JobTypeFullTime JobType = "full-time"
	JobTypePartTime JobType = "part-time"
	JobTypeContract JobType = "contract"
)

type WorkStatus string

const (
	WorkStatusActive   WorkStatus = "active"
	WorkStatusInactive WorkStatus = "inactive"
	WorkStatusOnLeave  WorkStatus = "on-leave"
)

type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
	ShiftNight     Shift = "night"
)

type SalaryFrequency string

const (
	SalaryWeekly   SalaryFrequency = "weekly"
	SalaryBiWeekly SalaryFrequency = "bi-weekly"
	SalaryMonthly  SalaryFrequency = "monthly"
)

var (
	Genders           = []Gender{GenderMale, GenderFemale, GenderOther}
	JobTypes          = []JobType{JobTypeFullTime, JobTypePartTime, JobTypeContract}
	WorkStatuses      = []WorkStatus{WorkStatusActive, WorkStatusInactive, WorkStatusOnLeave}
	Shifts            = []Shift{ShiftMorning, ShiftAfternoon, ShiftNight}
	SalaryFrequencies = []SalaryFrequency{SalaryWeekly, SalaryBiWeekly, SalaryMonthly}
)

// Layouts used for the calendar and wall-clock fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// WorkSchedule is stored as a nested JSON pair.
type WorkSchedule struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Record is a persisted employee. ID is always the owning account's identity.
type Record struct {
	ID                string          `db:"id" json:"id"`
	AvatarURL         *string         `db:"avatar_url" json:"avatarUrl"`
	FirstName         string          `db:"first_name" json:"firstName"`
	LastName          string          `db:"last_name" json:"lastName"`
	DisplayName       string          `db:"display_name" json:"displayName"`
	Gender            Gender          `db:"gender" json:"gender"`
	DateOfBirth       time.Time       `db:"date_of_birth" json:"dateOfBirth"`
	WorkEmail         string          `db:"work_email" json:"workEmail"`
	PersonalEmail     string          `db:"personal_email" json:"personalEmail"`
	MobileNumber      string          `db:"mobile_number" json:"mobileNumber"`
	JobTitle          string          `db:"job_title" json:"jobTitle"`
	Department        string          `db:"department" json:"department"`
	ReportingManager  string          `db:"reporting_manager" json:"reportingManager"`
	JobType           JobType         `db:"job_type" json:"jobType"`
	Location          string          `db:"location" json:"location"`
	StartDate         time.Time       `db:"start_date" json:"startDate"`
	WorkSchedule      WorkSchedule    `db:"work_schedule" json:"workSchedule"`
	WorkStatus        WorkStatus      `db:"work_status" json:"workStatus"`
	Shift             Shift           `db:"shift" json:"shift"`
	BaseSalary        float64         `db:"base_salary" json:"baseSalary"`
	BonusIncentives   float64         `db:"bonus_incentives" json:"bonusIncentives"`
	SalaryFrequency   SalaryFrequency `db:"salary_frequency" json:"salaryFrequency"`
	InsuranceCoverage string          `db:"insurance_coverage" json:"insuranceCoverage"`
	CreatedBy         string          `db:"created_by" json:"createdBy"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updatedAt"`
}

func (r Record) FullName() string {
	switch {
	case r.FirstName == "":
		return r.LastName
	case r.LastName == "":
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

func (r Record) Avatar() string {
	if r.AvatarURL == nil {
		return ""
	}
	return *r.AvatarURL
}

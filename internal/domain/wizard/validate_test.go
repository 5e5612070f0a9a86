package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFieldRequired(t *testing.T) {
	for _, step := range Steps {
		for _, f := range step.Fields() {
			t.Run(string(f), func(t *testing.T) {
				assert.Equal(t, f.Label()+" is required.", ValidateField(f, ""))
				assert.Equal(t, f.Label()+" is required.", ValidateField(f, "   "))
			})
		}
	}
}

func TestValidateFieldFormats(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value string
		want  string
	}{
		{name: "work email ok", field: FieldWorkEmail, value: "jane@corp.example"},
		{name: "work email missing at", field: FieldWorkEmail, value: "jane.corp.example", want: "Invalid Work Email."},
		{name: "work email missing domain", field: FieldWorkEmail, value: "jane@corp", want: "Invalid Work Email."},
		{name: "email ok", field: FieldEmail, value: "jane@example.com"},
		{name: "email with space", field: FieldEmail, value: "ja ne@example.com", want: "Invalid Email."},
		{name: "email no local part", field: FieldEmail, value: "@example.com", want: "Invalid Email."},
		{name: "mobile ten digits", field: FieldMobileNumber, value: "0123456789"},
		{name: "mobile nine digits", field: FieldMobileNumber, value: "012345678", want: "Invalid Mobile Number (10 digits required)."},
		{name: "mobile eleven digits", field: FieldMobileNumber, value: "01234567890", want: "Invalid Mobile Number (10 digits required)."},
		{name: "mobile with letters", field: FieldMobileNumber, value: "01234a6789", want: "Invalid Mobile Number (10 digits required)."},
		{name: "mobile with dashes", field: FieldMobileNumber, value: "012-345-678", want: "Invalid Mobile Number (10 digits required)."},
		{name: "password seven", field: FieldPassword, value: "1234567", want: "Password must be at least 8 characters."},
		{name: "password eight", field: FieldPassword, value: "12345678"},
		{name: "password long", field: FieldPassword, value: "correct horse battery staple"},
		{name: "base salary zero", field: FieldBaseSalary, value: "0"},
		{name: "base salary positive", field: FieldBaseSalary, value: "52000.50"},
		{name: "base salary negative", field: FieldBaseSalary, value: "-1", want: "Invalid Base Salary."},
		{name: "base salary text", field: FieldBaseSalary, value: "lots", want: "Invalid Base Salary."},
		{name: "base salary nan", field: FieldBaseSalary, value: "NaN", want: "Invalid Base Salary."},
		{name: "base salary largest storable", field: FieldBaseSalary, value: "999999999999.99"},
		{name: "base salary too large", field: FieldBaseSalary, value: "1000000000000", want: "Invalid Base Salary."},
		{name: "base salary exponent too large", field: FieldBaseSalary, value: "1e15", want: "Invalid Base Salary."},
		{name: "base salary fifteen digits", field: FieldBaseSalary, value: "123456789012345.99", want: "Invalid Base Salary."},
		{name: "bonus zero", field: FieldBonusIncentives, value: "0"},
		{name: "bonus too large", field: FieldBonusIncentives, value: "1e12", want: "Invalid Bonus/Incentives."},
		{name: "bonus negative", field: FieldBonusIncentives, value: "-0.01", want: "Invalid Bonus/Incentives."},
		{name: "bonus text", field: FieldBonusIncentives, value: "ten", want: "Invalid Bonus/Incentives."},
		{name: "gender ok", field: FieldGender, value: "female"},
		{name: "gender unknown", field: FieldGender, value: "robot", want: "Invalid Gender."},
		{name: "job type ok", field: FieldJobType, value: "part-time"},
		{name: "job type unknown", field: FieldJobType, value: "intern", want: "Invalid Job Type."},
		{name: "work status ok", field: FieldWorkStatus, value: "on-leave"},
		{name: "shift unknown", field: FieldShift, value: "graveyard", want: "Invalid Shift."},
		{name: "salary frequency ok", field: FieldSalaryFrequency, value: "bi-weekly"},
		{name: "date of birth ok", field: FieldDateOfBirth, value: "1990-02-28"},
		{name: "date of birth bad", field: FieldDateOfBirth, value: "28/02/1990", want: "Invalid Date of Birth."},
		{name: "start time ok", field: FieldStartTime, value: "09:30"},
		{name: "end time bad", field: FieldEndTime, value: "25:00", want: "Invalid End Time."},
		{name: "free text", field: FieldInsuranceCoverage, value: "Family plan"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidateField(tc.field, tc.value))
		})
	}
}

func TestValidateFieldIgnoresUnknownFields(t *testing.T) {
	assert.Empty(t, ValidateField(Field("nickname"), ""))
	assert.Empty(t, ValidateField(FieldProfilePhoto, ""))
}

func TestStepOf(t *testing.T) {
	assert.Equal(t, StepBasic, StepOf(FieldPassword))
	assert.Equal(t, StepJob, StepOf(FieldStartDate))
	assert.Equal(t, StepWork, StepOf(FieldShift))
	assert.Equal(t, StepCompensation, StepOf(FieldInsuranceCoverage))
	assert.Equal(t, Step(0), StepOf(FieldProfilePhoto))
}

func TestStepLabels(t *testing.T) {
	want := []string{"Basic Details", "Job Details", "Work Details", "Compensation"}
	for i, step := range Steps {
		assert.Equal(t, want[i], step.Label())
	}
}

package employees

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// WriteProfilePDF renders the read-only detail view of a record.
func WriteProfilePDF(w io.Writer, r Record) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Employee profile: %s", r.FullName()), true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, r.FullName())
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	if r.DisplayName != "" {
		pdf.Cell(0, 7, r.DisplayName)
		pdf.Ln(10)
	}

	sections := []struct {
		title string
		rows  [][2]string
	}{
		{"Basic Details", [][2]string{
			{"Gender", string(r.Gender)},
			{"Date of Birth", formatDate(r.DateOfBirth)},
			{"Work Email", r.WorkEmail},
			{"Personal Email", r.PersonalEmail},
			{"Mobile Number", r.MobileNumber},
		}},
		{"Job Details", [][2]string{
			{"Job Title", r.JobTitle},
			{"Department", r.Department},
			{"Reporting Manager", r.ReportingManager},
			{"Job Type", string(r.JobType)},
			{"Location", r.Location},
			{"Start Date", formatDate(r.StartDate)},
		}},
		{"Work Details", [][2]string{
			{"Schedule", r.WorkSchedule.StartTime + " - " + r.WorkSchedule.EndTime},
			{"Work Status", string(r.WorkStatus)},
			{"Shift", string(r.Shift)},
		}},
		{"Compensation", [][2]string{
			{"Base Salary", fmt.Sprintf("%.2f", r.BaseSalary)},
			{"Bonus/Incentives", fmt.Sprintf("%.2f", r.BonusIncentives)},
			{"Salary Frequency", string(r.SalaryFrequency)},
			{"Insurance Coverage", r.InsuranceCoverage},
		}},
	}

	for _, section := range sections {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 9, section.title)
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 11)
		for _, row := range section.rows {
			pdf.CellFormat(55, 7, row[0], "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 7, row[1], "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}

	return pdf.Output(w)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"staffdesk/internal/domain/auth"
	"staffdesk/internal/domain/employees"
	"staffdesk/internal/domain/wizard"
)

type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Submitter writes one completed wizard.
type Submitter interface {
	Submit(ctx context.Context, session auth.Session, state wizard.State) (employees.Record, error)
}

type RowResult struct {
	Row        int      `json:"row"`
	Outcome    Outcome  `json:"outcome"`
	EmployeeID string   `json:"employeeId,omitempty"`
	Reasons    []string `json:"reasons,omitempty"`
	values     []string
}

type Report struct {
	Rows    []RowResult `json:"rows"`
	Created int         `json:"created"`
	Failed  int         `json:"failed"`
}

type Importer struct {
	Submitter Submitter
	Workers   int
	Comma     rune
	Log       *zap.Logger
}

func New(submitter Submitter, workers int, log *zap.Logger) *Importer {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{Submitter: submitter, Workers: workers, Comma: ',', Log: log}
}

type rowJob struct {
	num    int
	values []string
}

// Run reads a CSV whose header row names wizard fields and submits each row
// as a create-mode wizard under session. Rows are independent: a rejected
// or failed row does not stop the import. When errOut is set, every row
// that was not created is written to it with an extra error column.
func (im *Importer) Run(ctx context.Context, session auth.Session, in io.Reader, errOut io.Writer) (Report, error) {
	r := csv.NewReader(in)
	r.Comma = im.Comma
	r.TrimLeadingSpace = true
	// Column counts are checked per row in importRow.
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return Report{}, fmt.Errorf("read header: %w", err)
	}
	fields, err := parseHeader(header)
	if err != nil {
		return Report{}, err
	}

	jobs := make(chan rowJob)
	results := make(chan RowResult)

	var wg sync.WaitGroup
	for i := 0; i < im.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- im.importRow(ctx, session, fields, j)
			}
		}()
	}

	var readErr error
	go func() {
		defer close(jobs)
		num := 1
		for {
			row, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			num++
			if err != nil {
				readErr = fmt.Errorf("read row %d: %w", num, err)
				return
			}
			select {
			case jobs <- rowJob{num: num, values: row}:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var report Report
	for res := range results {
		report.Rows = append(report.Rows, res)
		if res.Outcome == OutcomeCreated {
			report.Created++
		} else {
			report.Failed++
		}
	}
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].Row < report.Rows[j].Row })

	if errOut != nil {
		if err := writeErrors(errOut, header, report.Rows); err != nil {
			return report, err
		}
	}
	if readErr != nil {
		return report, readErr
	}
	return report, ctx.Err()
}

func (im *Importer) importRow(ctx context.Context, session auth.Session, fields []wizard.Field, j rowJob) RowResult {
	res := RowResult{Row: j.num, values: j.values}
	if len(j.values) != len(fields) {
		res.Outcome = OutcomeRejected
		res.Reasons = []string{fmt.Sprintf("expected %d columns, got %d", len(fields), len(j.values))}
		return res
	}

	state := wizard.NewCreate()
	for i, f := range fields {
		var err error
		state, err = state.Apply(f, j.values[i])
		if err != nil {
			res.Outcome = OutcomeRejected
			res.Reasons = []string{err.Error()}
			return res
		}
	}

	for state.Step < wizard.LastStep {
		next, err := state.Next()
		if err != nil {
			res.Outcome = OutcomeRejected
			res.Reasons = []string{err.Error()}
			return res
		}
		state = next
	}

	record, err := im.Submitter.Submit(ctx, session, state)
	if err != nil {
		var problems wizard.FieldErrors
		var submitErr *wizard.SubmitError
		switch {
		case errors.As(err, &problems):
			res.Outcome = OutcomeRejected
			res.Reasons = fieldReasons(problems)
		case errors.As(err, &submitErr) && submitErr.Stage == wizard.StageDraft:
			res.Outcome = OutcomeRejected
			res.Reasons = []string{submitErr.Message()}
		default:
			res.Outcome = OutcomeFailed
			res.Reasons = []string{err.Error()}
			im.Log.Warn("import row failed", zap.Int("row", j.num), zap.Error(err))
		}
		return res
	}

	res.Outcome = OutcomeCreated
	res.EmployeeID = record.ID
	return res
}

func parseHeader(header []string) ([]wizard.Field, error) {
	fields := make([]wizard.Field, len(header))
	seen := map[wizard.Field]bool{}
	for i, name := range header {
		f, err := wizard.ParseField(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i+1, err)
		}
		if f == wizard.FieldProfilePhoto {
			return nil, fmt.Errorf("column %d: %w", i+1, wizard.ErrReadOnlyField)
		}
		if seen[f] {
			return nil, fmt.Errorf("column %d: duplicate field %s", i+1, f)
		}
		seen[f] = true
		fields[i] = f
	}
	return fields, nil
}

func fieldReasons(problems wizard.FieldErrors) []string {
	reasons := make([]string, 0, len(problems))
	for _, msg := range problems {
		reasons = append(reasons, msg)
	}
	sort.Strings(reasons)
	return reasons
}

func writeErrors(out io.Writer, header []string, rows []RowResult) error {
	w := csv.NewWriter(out)
	if err := w.Write(append(append([]string{}, header...), "error")); err != nil {
		return err
	}
	for _, row := range rows {
		if row.Outcome == OutcomeCreated {
			continue
		}
		record := append(append([]string{}, row.values...), strings.Join(row.Reasons, "; "))
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

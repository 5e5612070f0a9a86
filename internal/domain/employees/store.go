package employees

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const recordColumns = `id, avatar_url, first_name, last_name, display_name, gender, date_of_birth,
  work_email, personal_email, mobile_number, job_title, department, reporting_manager, job_type,
  location, start_date, work_schedule, work_status, shift, base_salary, bonus_incentives,
  salary_frequency, insurance_coverage, created_by, created_at, updated_at`

func (s *Store) ListByCreator(ctx context.Context, createdBy string) ([]Record, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+recordColumns+" FROM employees WHERE created_by = $1 ORDER BY created_at DESC", createdBy)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Record])
}

func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+recordColumns+" FROM employees WHERE id = $1", id)
	if err != nil {
		return Record{}, err
	}
	record, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Record])
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return record, err
}

// Insert writes a new row; an existing row under the same identity is an error.
func (s *Store) Insert(ctx context.Context, r Record) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO employees (
      id, avatar_url, first_name, last_name, display_name, gender, date_of_birth,
      work_email, personal_email, mobile_number, job_title, department, reporting_manager, job_type,
      location, start_date, work_schedule, work_status, shift, base_salary, bonus_incentives,
      salary_frequency, insurance_coverage, created_by
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
  `,
		r.ID, r.AvatarURL, r.FirstName, r.LastName, r.DisplayName, string(r.Gender), r.DateOfBirth,
		r.WorkEmail, r.PersonalEmail, r.MobileNumber, r.JobTitle, r.Department, r.ReportingManager, string(r.JobType),
		r.Location, r.StartDate, r.WorkSchedule, string(r.WorkStatus), string(r.Shift), r.BaseSalary, r.BonusIncentives,
		string(r.SalaryFrequency), r.InsuranceCoverage, r.CreatedBy,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrRecordExists
	}
	return err
}

// Replace overwrites every editable column of an existing row. created_by is
// left untouched.
func (s *Store) Replace(ctx context.Context, r Record) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees SET
      avatar_url = $2, first_name = $3, last_name = $4, display_name = $5, gender = $6, date_of_birth = $7,
      work_email = $8, personal_email = $9, mobile_number = $10, job_title = $11, department = $12,
      reporting_manager = $13, job_type = $14, location = $15, start_date = $16, work_schedule = $17,
      work_status = $18, shift = $19, base_salary = $20, bonus_incentives = $21, salary_frequency = $22,
      insurance_coverage = $23, updated_at = now()
    WHERE id = $1
  `,
		r.ID, r.AvatarURL, r.FirstName, r.LastName, r.DisplayName, string(r.Gender), r.DateOfBirth,
		r.WorkEmail, r.PersonalEmail, r.MobileNumber, r.JobTitle, r.Department,
		r.ReportingManager, string(r.JobType), r.Location, r.StartDate, r.WorkSchedule,
		string(r.WorkStatus), string(r.Shift), r.BaseSalary, r.BonusIncentives, string(r.SalaryFrequency),
		r.InsuranceCoverage,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM employees WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

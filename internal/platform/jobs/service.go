package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	JobOrphanSweep = "orphan_sweep"
	JobWizardSweep = "wizard_sweep"
)

// RunLog records job executions.
type RunLog interface {
	Start(ctx context.Context, jobType string) (string, error)
	Finish(ctx context.Context, runID, status string, details []byte) error
}

// Service runs queued jobs on a single worker and triggers scheduled ones
// from a cron table.
type Service struct {
	Runs  RunLog
	Log   *zap.Logger
	cron  *cron.Cron
	queue chan job
	wg    sync.WaitGroup
}

type job struct {
	Type   string
	Record bool
	Run    func(context.Context) (any, error)
}

func New(runs RunLog, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		Runs:  runs,
		Log:   log.With(zap.String("module", "jobs")),
		cron:  cron.New(),
		queue: make(chan job, 128),
	}
}

// Schedule enqueues run on every tick of spec. Runs of recorded jobs are
// written to the run log.
func (s *Service) Schedule(spec, jobType string, record bool, run func(context.Context) (any, error)) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.enqueue(job{Type: jobType, Record: record, Run: run})
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", jobType, err)
	}
	return nil
}

// Start launches the worker and the cron table. Both stop when ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(ctx)
	}()
	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}

// Wait blocks until the worker has exited.
func (s *Service) Wait() {
	s.wg.Wait()
}

// RunNow executes a job synchronously and records it.
func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Record: true, Run: run})
}

func (s *Service) enqueue(j job) {
	select {
	case s.queue <- j:
	default:
		s.Log.Warn("job queue full", zap.String("jobType", j.Type))
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				s.Log.Warn("job run failed", zap.String("jobType", j.Type), zap.Error(err))
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if j.Record && s.Runs != nil {
		id, err := s.Runs.Start(ctx, j.Type)
		if err != nil {
			s.Log.Warn("job run insert failed", zap.String("jobType", j.Type), zap.Error(err))
		}
		runID = id
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}

	if runID != "" {
		detailsJSON, marshalErr := json.Marshal(details)
		if marshalErr != nil {
			s.Log.Warn("job details marshal failed", zap.Error(marshalErr))
			detailsJSON = []byte("{}")
		}
		if updErr := s.Runs.Finish(ctx, runID, status, detailsJSON); updErr != nil {
			s.Log.Warn("job run update failed", zap.String("runId", runID), zap.Error(updErr))
		}
	}
	return details, err
}

// PGRunLog writes runs into the job_runs table.
type PGRunLog struct {
	DB *pgxpool.Pool
}

func (l PGRunLog) Start(ctx context.Context, jobType string) (string, error) {
	var runID string
	err := l.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, jobType, "running").Scan(&runID)
	return runID, err
}

func (l PGRunLog) Finish(ctx context.Context, runID, status string, details []byte) error {
	_, err := l.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, details, runID)
	return err
}

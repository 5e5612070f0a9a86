package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"staffdesk/internal/domain/auth"
	"staffdesk/internal/platform/metrics"
)

// OrphanStore finds employee-role accounts that never received a record.
type OrphanStore interface {
	ListOrphans(ctx context.Context, createdBefore time.Time) ([]auth.Orphan, error)
	DeleteAccount(ctx context.Context, accountID string) (bool, error)
}

type OrphanReport struct {
	Cutoff  time.Time     `json:"cutoff"`
	Found   []auth.Orphan `json:"found"`
	Deleted []string      `json:"deleted"`
	Failed  []string      `json:"failed,omitempty"`
}

// SweepOrphans lists accounts created before now-grace without an employee
// record. With remove set it deletes them; an account that gained a record
// in the meantime is skipped.
func SweepOrphans(ctx context.Context, store OrphanStore, now time.Time, grace time.Duration, remove bool, log *zap.Logger) (OrphanReport, error) {
	if log == nil {
		log = zap.NewNop()
	}
	report := OrphanReport{Cutoff: now.Add(-grace), Deleted: []string{}}
	orphans, err := store.ListOrphans(ctx, report.Cutoff)
	if err != nil {
		return report, err
	}
	report.Found = orphans

	for _, o := range orphans {
		if !remove {
			metrics.OrphanSweeps.WithLabelValues("reported").Inc()
			log.Warn("account has no employee record", zap.String("accountId", o.ID), zap.String("email", o.Email), zap.Time("createdAt", o.CreatedAt))
			continue
		}
		deleted, err := store.DeleteAccount(ctx, o.ID)
		if err != nil {
			metrics.OrphanSweeps.WithLabelValues("failed").Inc()
			log.Error("orphan delete failed", zap.String("accountId", o.ID), zap.Error(err))
			report.Failed = append(report.Failed, o.ID)
			continue
		}
		if deleted {
			metrics.OrphanSweeps.WithLabelValues("deleted").Inc()
			log.Info("orphan account deleted", zap.String("accountId", o.ID), zap.String("email", o.Email))
			report.Deleted = append(report.Deleted, o.ID)
		}
	}
	return report, nil
}

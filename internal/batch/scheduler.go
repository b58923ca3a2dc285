package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultDebtRefreshSchedule = "0 2 * * *"
	defaultJobTimeout          = time.Hour
)

type Job interface {
	Run(ctx context.Context) error
}

// Schedule registers job on c under spec. Each run gets its own context
// bounded by timeout; a non-positive timeout means one hour.
func Schedule(c *cron.Cron, name, spec string, timeout time.Duration, job Job, logger *slog.Logger) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultDebtRefreshSchedule
		logger.Warn("Batch schedule not configured, using default", "job_name", name, "schedule", spec)
	}
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}

	jobLogger := logger.With("job_name", name)
	id, err := c.AddJob(spec, cron.FuncJob(func() {
		jobLogger.Info("Cron triggered: running job.")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if runErr := job.Run(ctx); runErr != nil {
			jobLogger.Error("Job finished with error", slog.Any("error", runErr))
			return
		}
		jobLogger.Info("Job finished successfully.")
	}))
	if err != nil {
		return 0, fmt.Errorf("schedule %s with %q: %w", name, spec, err)
	}

	logger.Info("Scheduled batch job", "job_name", name, "schedule", spec, "job_id", id, "timeout", timeout)
	return id, nil
}

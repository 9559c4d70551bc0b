// Package tasks runs periodic background jobs.
package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/store/camps"
)

// Job is one periodic unit of work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner runs each job on its own ticker until Stop.
type Runner struct {
	log  *zap.Logger
	jobs []Job

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(logger *zap.Logger, jobs ...Job) *Runner {
	return &Runner{log: logger, jobs: jobs}
}

// Start launches every job. Each runs once immediately, then on its
// interval.
func (r *Runner) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	run := func() {
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			r.log.Error("job failed",
				zap.String("job", job.Name),
				zap.Error(err))
			return
		}
		r.log.Debug("job completed",
			zap.String("job", job.Name),
			zap.Duration("took", time.Since(start)))
	}

	run()
	t := time.NewTicker(job.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}

// Stop cancels all jobs and waits for them to return.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// CampStatusRefreshJob keeps stored camp statuses in line with their
// dates so listings stay correct without recomputing on every read.
func CampStatusRefreshJob(store *camps.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "camp-status-refresh",
		Interval: 15 * time.Minute,
		Run: func(ctx context.Context) error {
			n, err := store.RefreshStatuses(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("camp statuses refreshed", zap.Int64("updated", n))
			}
			return nil
		},
	}
}

package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Runner executes the scripts of one job. db.ScriptRunner satisfies it.
type Runner interface {
	Run(ctx context.Context, job string) (int, error)
}

// Recorder receives the outcome of every run. metrics.Metrics satisfies it.
type Recorder interface {
	RecordRefresh(job string, skipped bool, err error, at time.Time)
}

// Result describes one scheduled or manual run.
type Result struct {
	Job      Job           `json:"job"`
	Skipped  bool          `json:"skipped"`
	Scripts  int           `json:"scripts"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

type Scheduler struct {
	runner   Runner
	locker   Locker
	recorder Recorder
	logger   zerolog.Logger
	lockTTL  time.Duration
	jobs     []Job

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func NewScheduler(runner Runner, locker Locker, lockTTL time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		runner:  runner,
		locker:  locker,
		logger:  logger.With().Str("component", "refresh").Logger(),
		lockTTL: lockTTL,
		jobs:    Jobs,
		now:     time.Now,
		after:   time.After,
	}
}

func (s *Scheduler) SetRecorder(r Recorder) { s.recorder = r }

// RunOnce runs job under its lock. Losing the lock is not an error; the
// result is marked skipped.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) (Result, error) {
	res := Result{Job: job, Started: s.now().UTC()}

	lease, err := s.locker.Acquire(ctx, "refresh:"+string(job), s.lockTTL)
	if errors.Is(err, ErrLockHeld) {
		res.Skipped = true
		s.record(res, nil)
		s.logger.Info().Str("job", string(job)).Msg("refresh already running elsewhere, skipped")
		return res, nil
	}
	if err != nil {
		s.record(res, err)
		return res, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn().Err(err).Str("job", string(job)).Msg("failed to release refresh lock")
		}
	}()

	res.Scripts, err = s.runner.Run(ctx, string(job))
	res.Duration = s.now().UTC().Sub(res.Started)
	s.record(res, err)
	if err != nil {
		return res, err
	}
	s.logger.Info().Str("job", string(job)).Int("scripts", res.Scripts).Dur("duration", res.Duration).Msg("refresh completed")
	return res, nil
}

func (s *Scheduler) record(res Result, err error) {
	if s.recorder != nil {
		s.recorder.RecordRefresh(string(res.Job), res.Skipped, err, res.Started.Add(res.Duration))
	}
}

// Start fires the jobs on their schedule until ctx is cancelled. Failed runs
// are logged and retried at the next firing time.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		at, due := Due(s.jobs, s.now())
		s.logger.Debug().Time("next_run", at).Interface("jobs", due).Msg("refresh scheduled")

		select {
		case <-ctx.Done():
			return
		case <-s.after(at.Sub(s.now())):
		}

		for _, job := range due {
			if ctx.Err() != nil {
				return
			}
			if _, err := s.RunOnce(ctx, job); err != nil {
				s.logger.Error().Err(err).Str("job", string(job)).Msg("refresh failed")
			}
		}
	}
}

// Package scheduler runs the periodic evaluation pass over every enrolled user.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/pkg/action"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/metrics"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/pipeline"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/service"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/signal"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Evaluator runs the per-user pipeline. *pipeline.Manager implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, userID string, now time.Time) (*pipeline.Result, error)
	Preview(ctx context.Context, userID string, now time.Time) (*pipeline.Result, error)
	PendingDispatches(ctx context.Context, limit int64) ([]*action.DispatchRequest, error)
	Redeliver(ctx context.Context, req *action.DispatchRequest) error
}

// Report summarizes one pass.
type Report struct {
	CycleID      string        `json:"cycleId"`
	StartedAt    time.Time     `json:"startedAt"`
	DryRun       bool          `json:"dryRun,omitempty"`
	Users        int           `json:"users"`
	Evaluated    int           `json:"evaluated"`
	Transitioned int           `json:"transitioned"`
	Dispatched   int           `json:"dispatched"`
	Redelivered  int           `json:"redelivered"`
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	Duration     time.Duration `json:"duration"`
}

// CycleScheduler evaluates every enrolled user once per interval.
type CycleScheduler struct {
	evaluator Evaluator
	directory service.UserDirectory
	config    Config
	recorder  *metrics.Recorder
	now       func() time.Time
}

// Option customizes a CycleScheduler.
type Option func(*CycleScheduler)

// WithRecorder sets the metrics recorder.
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *CycleScheduler) { s.recorder = r }
}

// WithClock replaces the wall clock used as the evaluation time.
func WithClock(now func() time.Time) Option {
	return func(s *CycleScheduler) { s.now = now }
}

// NewCycleScheduler creates a new scheduler. Zero config fields take defaults.
func NewCycleScheduler(evaluator Evaluator, directory service.UserDirectory, config Config, opts ...Option) *CycleScheduler {
	s := &CycleScheduler{
		evaluator: evaluator,
		directory: directory,
		config:    config.withDefaults(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes a pass immediately and then once per interval until ctx is cancelled.
func (s *CycleScheduler) Run(ctx context.Context) error {
	logrus.Infof("cycle scheduler started: interval=%v, concurrency=%d", s.config.Interval, s.config.Concurrency)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			logrus.Errorf("evaluation pass failed: %v", err)
		}

		select {
		case <-ctx.Done():
			logrus.Info("cycle scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce executes one pass over every enrolled user.
//
// A failure of one user never aborts the pass. The returned error is set only
// when the user list cannot be read or ctx ends before the pass completes.
func (s *CycleScheduler) RunOnce(ctx context.Context) (Report, error) {
	start := s.now()
	report := Report{
		CycleID:   uuid.NewString(),
		StartedAt: start,
		DryRun:    s.config.DryRun,
	}
	log := logrus.WithField("cycle_id", report.CycleID)
	log.Info("evaluation pass started")

	if !s.config.DryRun {
		report.Redelivered = s.redeliver(ctx, log)
	}

	users, err := s.directory.ListUsers(ctx)
	if err != nil {
		return report, err
	}
	users = dedupe(users)
	report.Users = len(users)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.config.Concurrency)

	for _, userID := range users {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			result, err := s.evaluateUser(ctx, userID, start)
			outcome := s.classify(log, userID, result, err)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case metrics.OutcomeEvaluated, metrics.OutcomeTransitioned:
				report.Evaluated++
				if result.Transitioned() {
					report.Transitioned++
				}
				if result.Dispatch != nil {
					report.Dispatched++
				}
			case metrics.OutcomeFailed:
				report.Failed++
			default:
				report.Skipped++
			}
			return nil
		})
	}
	g.Wait()

	report.Duration = s.now().Sub(start)
	s.recorder.Cycle(report.Users, report.Duration)
	log.WithFields(logrus.Fields{
		"users":        report.Users,
		"evaluated":    report.Evaluated,
		"transitioned": report.Transitioned,
		"dispatched":   report.Dispatched,
		"redelivered":  report.Redelivered,
		"skipped":      report.Skipped,
		"failed":       report.Failed,
	}).Infof("evaluation pass finished in %v", report.Duration)

	return report, ctx.Err()
}

// redeliver retries outbox entries left by earlier passes.
func (s *CycleScheduler) redeliver(ctx context.Context, log *logrus.Entry) int {
	pending, err := s.evaluator.PendingDispatches(ctx, s.config.RedeliveryBatch)
	if err != nil {
		log.Warnf("failed to read pending dispatches: %v", err)
		return 0
	}

	delivered := 0
	for _, req := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := s.evaluator.Redeliver(ctx, req); err != nil {
			log.Warnf("redelivery of %s to user %s failed: %v", req.RequestID, req.UserID, err)
			continue
		}
		delivered++
	}
	if len(pending) > 0 {
		log.Infof("redelivered %d of %d pending dispatches", delivered, len(pending))
	}
	return delivered
}

// evaluateUser runs the pipeline, rerunning it once when another evaluation
// of the same user interfered.
func (s *CycleScheduler) evaluateUser(ctx context.Context, userID string, now time.Time) (*pipeline.Result, error) {
	result, err := s.evaluateWithDataRetry(ctx, userID, now)
	if errors.Is(err, service.ErrConcurrentModification) && ctx.Err() == nil {
		logrus.Debugf("concurrent modification of user %s, rerunning: %v", userID, err)
		result, err = s.evaluateWithDataRetry(ctx, userID, now)
	}
	return result, err
}

// evaluateWithDataRetry retries with exponential backoff while behavioral data is unavailable.
func (s *CycleScheduler) evaluateWithDataRetry(ctx context.Context, userID string, now time.Time) (*pipeline.Result, error) {
	run := s.evaluator.Evaluate
	if s.config.DryRun {
		run = s.evaluator.Preview
	}

	var result *pipeline.Result
	operation := func() error {
		uctx, cancel := context.WithTimeout(ctx, s.config.UserTimeout)
		defer cancel()

		r, err := run(uctx, userID, now)
		if err != nil {
			if errors.Is(err, signal.ErrDataUnavailable) && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}
		result = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logrus.Debugf("data unavailable for user %s, retrying in %v: %v", userID, wait, err)
	}

	if err := backoff.RetryNotify(operation, s.dataRetryPolicy(ctx), notify); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *CycleScheduler) dataRetryPolicy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.config.DataRetryInitial
	exp.MaxInterval = s.config.UserTimeout
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(s.config.DataRetryMax)), ctx)
}

// classify logs and records the outcome of one user's evaluation.
func (s *CycleScheduler) classify(log *logrus.Entry, userID string, result *pipeline.Result, err error) string {
	var outcome string
	switch {
	case err == nil && result.Transitioned():
		outcome = metrics.OutcomeTransitioned
	case err == nil:
		outcome = metrics.OutcomeEvaluated
	case errors.Is(err, state.ErrInvalidState):
		outcome = metrics.OutcomeInvalidState
		log.Errorf("skipping user %s with invalid lifecycle state: %v", userID, err)
	case errors.Is(err, signal.ErrDataUnavailable), errors.Is(err, service.ErrConcurrentModification):
		outcome = metrics.OutcomeSkipped
		log.Warnf("skipping user %s this cycle: %v", userID, err)
	default:
		outcome = metrics.OutcomeFailed
		log.Errorf("evaluation of user %s failed: %v", userID, err)
	}

	s.recorder.Evaluation(outcome)
	return outcome
}

// dedupe drops repeated ids keeping the first occurrence.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

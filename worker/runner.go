// Package worker executes a handler's planned job list. A Runner fans the
// jobs out one goroutine each, gates starts through the limit manager,
// wraps every execution in the middleware chain, and pairs each job with
// start and end plugin hooks regardless of outcome.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/reflexhq/reflex"
	"github.com/reflexhq/reflex/id"
	"github.com/reflexhq/reflex/job"
	"github.com/reflexhq/reflex/limit"
	"github.com/reflexhq/reflex/middleware"
	"github.com/reflexhq/reflex/plugin"
)

// Runner executes planned jobs concurrently. Job functions hold the
// cooperative end of the cancellation contract: a function that ignores
// its context keeps running, but the runner stops waiting for it and
// reports the timeout.
type Runner struct {
	plugins    *plugin.Manager
	limits     *limit.Manager
	logger     *slog.Logger
	mw         middleware.Middleware
	jobTimeout time.Duration
}

// NewRunner creates a runner. limits may be nil when no gating is
// configured. jobTimeout caps jobs that set no timeout of their own; zero
// applies no cap. Middleware runs in the order given, outermost first.
func NewRunner(
	plugins *plugin.Manager,
	limits *limit.Manager,
	logger *slog.Logger,
	jobTimeout time.Duration,
	mws ...middleware.Middleware,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if plugins == nil {
		plugins = plugin.NewManager(logger)
	}
	return &Runner{
		plugins:    plugins,
		limits:     limits,
		logger:     logger,
		mw:         middleware.Chain(mws...),
		jobTimeout: jobTimeout,
	}
}

// Run executes the jobs concurrently and returns their results indexed by
// position. A nil or empty list returns nil without touching any hooks.
func (r *Runner) Run(ctx context.Context, trigger string, n *reflex.Notification, jobs []*job.Job) []job.Result {
	if len(jobs) == 0 {
		return nil
	}

	results := make([]job.Result, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = r.runOne(ctx, trigger, n, j)
		}()
	}
	wg.Wait()
	return results
}

// runOne takes one job through its full lifecycle. Start and end hooks
// always fire as a pair, even when the job never executes.
func (r *Runner) runOne(ctx context.Context, trigger string, n *reflex.Notification, j *job.Job) job.Result {
	if j == nil {
		j = &job.Job{}
	}
	start := time.Now()

	info := &job.StartInfo{
		Name:    j.ResolvedName(),
		Trigger: trigger,
		RunID:   id.NewJobRunID().String(),
		Options: j.Options,
	}
	if t, ok := reflex.TrackingTokenFrom(ctx); ok {
		info.Token = t.String()
	}
	if info.Options.Timeout == 0 {
		info.Options.Timeout = r.jobTimeout
	}

	r.plugins.EmitJobStart(ctx, n, info)

	// Shared context already gone: report the timeout without running.
	if ctx.Err() != nil {
		res := abortedResult(info.Name, start, fmt.Sprintf("job %s cancelled before start", info.Name))
		r.plugins.EmitJobEnd(context.WithoutCancel(ctx), n, &res)
		return res
	}

	if r.limits != nil {
		if err := r.limits.Acquire(ctx, trigger, info.Name); err != nil {
			r.logger.Debug("job gate wait cancelled",
				slog.String("job", info.Name),
				slog.String("trigger", trigger),
				slog.String("error", err.Error()),
			)
			res := abortedResult(info.Name, start, fmt.Sprintf("job %s cancelled while rate limited", info.Name))
			r.plugins.EmitJobEnd(context.WithoutCancel(ctx), n, &res)
			return res
		}
		defer r.limits.Release(trigger, info.Name)
	}

	// Start-hook mutations are applied through a copy so the caller's
	// planned job is never touched.
	run := &job.Job{Name: info.Name, Fn: j.Fn, Options: info.Options}

	jobCtx := ctx
	if t, ok := reflex.TrackingTokenFrom(ctx); ok {
		jobCtx = reflex.WithTrackingToken(jobCtx, t.WithJobID(info.Name))
	}
	cancel := context.CancelFunc(func() {})
	if info.Options.Timeout > 0 {
		jobCtx, cancel = context.WithTimeout(jobCtx, info.Options.Timeout)
	}
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := r.mw(jobCtx, run, func(c context.Context) (any, error) {
			if run.Fn == nil {
				return nil, fmt.Errorf("job %s has no function", run.Name)
			}
			return run.Fn(c)
		})
		done <- outcome{value: v, err: err}
	}()

	var res job.Result
	select {
	case out := <-done:
		end := time.Now()
		res = job.Result{
			Name:      info.Name,
			StartedAt: start,
			EndedAt:   end,
			Duration:  end.Sub(start),
		}
		if out.err != nil {
			res.Error = out.err.Error()
		} else {
			res.Completed = true
			res.Value = out.value
		}
	case <-jobCtx.Done():
		if ctx.Err() != nil {
			r.logger.Debug("job cancelled before completion", slog.String("job", info.Name))
			res = abortedResult(info.Name, start, fmt.Sprintf("job %s cancelled before completion", info.Name))
		} else {
			r.logger.Warn("job timed out",
				slog.String("job", info.Name),
				slog.Duration("timeout", info.Options.Timeout),
			)
			res = abortedResult(info.Name, start,
				fmt.Sprintf("job %s timed out after %s", info.Name, info.Options.Timeout))
		}
	}

	r.plugins.EmitJobEnd(context.WithoutCancel(jobCtx), n, &res)
	return res
}

// abortedResult shapes the result of a job that was cut off rather than
// allowed to finish.
func abortedResult(name string, start time.Time, msg string) job.Result {
	end := time.Now()
	return job.Result{
		Name:      name,
		StartedAt: start,
		EndedAt:   end,
		Duration:  end.Sub(start),
		Error:     msg,
	}
}

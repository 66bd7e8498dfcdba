// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package job

import (
	"context"
	"time"
)

// Job runs a task at a fixed interval and on demand. Runs never overlap: a tick or trigger
// that arrives while the task is running is dropped.
type Job struct {
	interval  time.Duration
	task      func(context.Context)
	immediate bool
	trigger   chan struct{}
}

type Option func(*Job)

// WithImmediateRun makes the job run its task once right after Start, before the first tick.
func WithImmediateRun() Option {
	return func(j *Job) {
		j.immediate = true
	}
}

// New creates a new Job with the given interval and task.
func New(interval time.Duration, task func(context.Context), opts ...Option) *Job {
	job := &Job{
		interval: interval,
		task:     task,
		trigger:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(job)
	}
	return job
}

// Trigger requests an out-of-band run. Multiple triggers before the job picks them up
// collapse into one run. Trigger never blocks.
func (j *Job) Trigger() {
	select {
	case j.trigger <- struct{}{}:
	default:
	}
}

// Start executes the job until the context is cancelled.
func (j *Job) Start(ctx context.Context) {
	if j.task == nil || j.interval <= 0 {
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// sem is a 1-slot semaphore that guards "is a run in progress?"
	sem := make(chan struct{}, 1)
	run := func() {
		select {
		case sem <- struct{}{}:
			go func() {
				defer func() { <-sem }()
				runCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				j.task(runCtx)
			}()
		default:
		}
	}

	if j.immediate {
		run()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		case <-j.trigger:
			run()
		}
	}
}

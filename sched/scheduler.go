// Package sched runs the background jobs: the periodic refresh scan, the
// hourly reminder pass, and the weekly backup. Jobs are plain tick
// functions driven by a panic-safe ticker loop.
package sched

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ridhan354/xlreminder/core/logger"
)

// Runner drives one named job on a fixed interval until stopped.
type Runner struct {
	name     string
	interval time.Duration
	tickFn   func(context.Context)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewRunner builds a runner. The first tick fires one interval after Start.
func NewRunner(name string, interval time.Duration, tickFn func(context.Context)) *Runner {
	return &Runner{name: name, interval: interval, tickFn: tickFn}
}

// Start launches the ticker loop. A second Start is a no-op.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		logger.Sched.Info("job started",
			slog.String("event", "sched.start"),
			slog.String("job", r.name),
			slog.Duration("interval", r.interval),
		)
		for {
			select {
			case <-ctx.Done():
				logger.Sched.Info("job stopped",
					slog.String("event", "sched.stop"),
					slog.String("job", r.name),
				)
				return
			case <-ticker.C:
				r.safeTick(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for the current tick to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.cancel()
	<-r.done
	r.running = false
}

func (r *Runner) safeTick(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Sched.Error("job tick panicked",
				slog.String("event", "sched.panic"),
				slog.String("job", r.name),
				slog.Any("panic", rec),
			)
		}
	}()

	start := time.Now()
	r.tickFn(ctx)
	logger.Sched.Debug("job tick done",
		slog.String("event", "sched.tick"),
		slog.String("job", r.name),
		slog.Duration("duration", logger.Took(start)),
	)
}

package engine

import (
	"context"
	"errors"

	"ipmitree/internal/bridge"
	"ipmitree/internal/debug"
	appErrors "ipmitree/internal/errors"
	"ipmitree/internal/shutdown"
)

// Loop is the engine's single execution context. It applies events, runs
// scheduler steps on the refresh interval, arms the shutdown timeout and
// runs Exec calls, one at a time. It returns the shutdown result once a
// shutdown requested with RequestShutdown completes, or ctx's error.
func (e *Engine) Loop(ctx context.Context, events <-chan bridge.Event) (shutdown.Result, error) {
	var finished *shutdown.Result
	for finished == nil {
		select {
		case <-ctx.Done():
			return shutdown.Result{}, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := e.Apply(ev); err != nil {
				if errors.Is(err, appErrors.ErrInvariantViolation) {
					debug.Logf("engine: %s hit a counter invariant: %v", ev.Label(), err)
				} else {
					debug.Logf("engine: apply: %v", err)
				}
			}
		case <-e.runner.C():
			e.runner.Fire()
		case <-e.expireC:
			e.ExpireShutdown()
		case fn := <-e.calls:
			fn()
		case <-e.requests:
			ids := e.ShutdownTargets()
			debug.Logf("engine: shutdown requested, closing %v", ids)
			err := e.BeginShutdown(ids, func(res shutdown.Result) {
				finished = &res
			})
			if errors.Is(err, appErrors.ErrDoubleShutdown) {
				debug.Log("engine: shutdown already in progress")
			} else if err != nil {
				debug.Logf("engine: %v", err)
			}
		}
	}
	return *finished, nil
}

// RequestShutdown asks the loop to begin a graceful shutdown of every
// domain. It is safe to call from any goroutine and more than once.
func (e *Engine) RequestShutdown() {
	select {
	case e.requests <- struct{}{}:
	default:
	}
}

// Exec runs fn on the loop goroutine and waits for it to return.
func (e *Engine) Exec(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case e.calls <- wrapped:
	}
	<-done
	return nil
}

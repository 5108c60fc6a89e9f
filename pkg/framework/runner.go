// Package framework runs the long-lived parts of a program together.
package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

// ErrForcedExit is returned by Wait after a second stop signal.
var ErrForcedExit = errors.New("forced exit")

// Runner runs named functions sharing a context. The first failure
// cancels the context so the others stop too.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	names  []string
	doneCh chan result
	exitCh chan struct{}
}

type result struct {
	name string
	err  error
}

// NewRunner creates a Runner derived from ctx.
func NewRunner(ctx context.Context) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		ctx:    ctx,
		cancel: cancel,
		doneCh: make(chan result),
		exitCh: make(chan struct{}),
	}
}

// Context is canceled on stop signals, the first failure or when Wait
// returns.
func (r *Runner) Context() context.Context {
	return r.ctx
}

// Len returns the number of functions started.
func (r *Runner) Len() int {
	return len(r.names)
}

// HandleSignals stops the Runner on SIGINT or SIGTERM. Wait gives up
// with ErrForcedExit on a second signal.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
		case <-r.ctx.Done():
			return
		}
		glog.Info("stopping, signal again to force exit")
		r.cancel()
		<-sigCh
		close(r.exitCh)
	}()
	return r
}

// Go starts fn in the background. context.Canceled from fn is not a
// failure.
func (r *Runner) Go(name string, fn func(context.Context) error) *Runner {
	r.names = append(r.names, name)
	go func() {
		glog.V(4).Infof("%s started", name)
		err := fn(r.ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		r.doneCh <- result{name: name, err: err}
	}()
	return r
}

// Wait blocks until all functions return and joins their failures.
func (r *Runner) Wait() error {
	defer r.cancel()
	var errs []error
	for range r.names {
		select {
		case <-r.exitCh:
			return ErrForcedExit
		case res := <-r.doneCh:
			glog.V(4).Infof("%s stopped", res.name)
			if res.err != nil {
				glog.Errorf("%s failed: %v", res.name, res.err)
				errs = append(errs, fmt.Errorf("%s: %w", res.name, res.err))
				r.cancel()
			}
		}
	}
	return errors.Join(errs...)
}

// RunWithContextCancel runs fn which doesn't watch a context. If ctx is
// done first, stop is called to unblock fn, and ctx.Err() is returned once
// fn returns.
func RunWithContextCancel(ctx context.Context, stop func(), fn func() error) error {
	errCh := make(chan error, 1)
	go func() { errCh <- fn() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	if stop != nil {
		stop()
	}
	<-errCh
	return ctx.Err()
}

// RunWithContextCloser is RunWithContextCancel closing c either on cancel
// or after fn returns.
func RunWithContextCloser(ctx context.Context, c io.Closer, fn func() error) error {
	var once sync.Once
	closeOnce := func() { once.Do(func() { c.Close() }) }
	defer closeOnce()
	return RunWithContextCancel(ctx, closeOnce, fn)
}

package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerStopsOnFailure(t *testing.T) {
	failure := errors.New("port gone")
	stopped := make(chan struct{})
	r := NewRunner(context.Background()).
		Go("waiter", func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return ctx.Err()
		}).
		Go("serial", func(context.Context) error {
			return failure
		})
	err := r.Wait()
	require.ErrorIs(t, err, failure)
	require.Equal(t, "serial: port gone", err.Error())
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("waiter not stopped")
	}
}

func TestRunnerJoinsFailures(t *testing.T) {
	a, b := errors.New("a"), errors.New("b")
	gate := make(chan struct{})
	err := NewRunner(context.Background()).
		Go("first", func(context.Context) error { return a }).
		Go("second", func(ctx context.Context) error {
			<-ctx.Done()
			<-gate
			return b
		}).
		Go("closer", func(ctx context.Context) error {
			<-ctx.Done()
			close(gate)
			return nil
		}).
		Wait()
	require.ErrorIs(t, err, a)
	require.ErrorIs(t, err, b)
}

func TestRunnerAllSucceed(t *testing.T) {
	r := NewRunner(context.Background()).
		Go("a", func(context.Context) error { return nil }).
		Go("b", func(ctx context.Context) error { return context.Canceled })
	require.Equal(t, 2, r.Len())
	require.NoError(t, r.Wait())
	require.Error(t, r.Context().Err())
}

func TestRunnerParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(ctx).HandleSignals().Go("waiter", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	cancel()
	require.NoError(t, r.Wait())
}

type testCloser struct {
	closed chan struct{}
}

func (c *testCloser) Close() error {
	close(c.closed)
	return nil
}

func TestRunWithContextCloser(t *testing.T) {
	c := &testCloser{closed: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RunWithContextCloser(ctx, c, func() error {
		<-c.closed
		return nil
	})
	require.Equal(t, context.Canceled, err)

	c = &testCloser{closed: make(chan struct{})}
	require.NoError(t, RunWithContextCloser(context.Background(), c, func() error { return nil }))
	_, open := <-c.closed
	require.False(t, open)
}

func TestRunWithContextCancel(t *testing.T) {
	failure := errors.New("closed")
	require.Equal(t, failure, RunWithContextCancel(context.Background(), nil, func() error { return failure }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	unblock := make(chan struct{})
	err := RunWithContextCancel(ctx, func() { close(unblock) }, func() error {
		<-unblock
		return failure
	})
	require.Equal(t, context.DeadlineExceeded, err)
}

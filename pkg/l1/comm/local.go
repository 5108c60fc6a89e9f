package comm

import (
	"context"

	l0 "github.com/robotalks/servo2040/pkg/l0/comm"
)

// Local implements l1.Registers with a directly attached board.
// Requests failing on the link are retried according to Retry.
type Local struct {
	Client *l0.Client
	Retry  l0.RetryPolicy
}

// NewLocal creates a Local with default retry policy.
func NewLocal(c *l0.Client) *Local {
	return &Local{Client: c, Retry: l0.DefaultRetryPolicy}
}

// Set implements l1.Registers.
func (l *Local) Set(ctx context.Context, start byte, values ...uint16) error {
	return l.do(ctx, func() error {
		return l.Client.Set(start, values...)
	})
}

// Get implements l1.Registers.
func (l *Local) Get(ctx context.Context, start byte, count int) (values []uint16, err error) {
	err = l.do(ctx, func() (err error) {
		values, err = l.Client.Get(start, count)
		return
	})
	return
}

// SetThenVerify implements l1.Registers.
func (l *Local) SetThenVerify(ctx context.Context, start byte, values []uint16, tolerance uint16) error {
	return l.do(ctx, func() error {
		return l.Client.SetThenVerify(start, values, tolerance)
	})
}

func (l *Local) do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.Retry.Do(l.Client, fn)
}

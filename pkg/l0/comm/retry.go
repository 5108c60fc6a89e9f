package comm

import (
	"errors"
	"time"

	"github.com/golang/glog"
)

// RetryPolicy retries requests failing on the link. Local argument errors
// and verify mismatches are never retried. Between attempts the line is
// drained so a late response can't be mistaken for the next one.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy is used when no policy is configured.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 50 * time.Millisecond}

// Do runs fn until it succeeds, fails with a local error or attempts run out.
func (p RetryPolicy) Do(c *Client, fn func() error) (err error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff
	for i := 0; i < attempts; i++ {
		if i > 0 {
			glog.Warningf("attempt %d/%d after error: %v", i+1, attempts, err)
			if backoff > 0 {
				time.Sleep(backoff)
				backoff *= 2
			}
			if rerr := c.Resync(); rerr != nil {
				return rerr
			}
		}
		if err = fn(); err == nil || IsLocal(err) || errors.Is(err, ErrVerifyMismatch) {
			return
		}
	}
	return
}

package comm

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Defaults of Config.
const (
	DefaultTimeout    = time.Second
	DefaultMaxBatch   = 32
	DefaultDrainQuiet = 20 * time.Millisecond
)

// Config tunes a Client.
type Config struct {
	// Timeout bounds the wait for a complete GET response.
	Timeout time.Duration
	// Layout is the response layout of the firmware.
	Layout Layout
	// ScanWindow is the number of leading noise bytes (e.g. log text)
	// tolerated before a GET response. 0 enables strict parsing only.
	ScanWindow int
	// MaxBatch is the most registers sent in one frame, larger requests
	// are split into consecutive frames. Firmware accepts up to 32.
	MaxBatch int
	// DrainQuiet is the idle period ending Resync.
	DrainQuiet time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Timeout:    DefaultTimeout,
		MaxBatch:   DefaultMaxBatch,
		DrainQuiet: DefaultDrainQuiet,
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBatch <= 0 || c.MaxBatch > MaxCount {
		c.MaxBatch = DefaultMaxBatch
	}
	if c.DrainQuiet <= 0 {
		c.DrainQuiet = DefaultDrainQuiet
	}
	if c.ScanWindow < 0 {
		c.ScanWindow = 0
	}
	return c
}

// Observer is notified after each request on the wire.
type Observer interface {
	ObserveRequest(cmd Command, start byte, count int, err error, elapsed time.Duration)
}

// ObserveRequestFunc is func form of Observer.
type ObserveRequestFunc func(cmd Command, start byte, count int, err error, elapsed time.Duration)

// ObserveRequest implements Observer.
func (f ObserveRequestFunc) ObserveRequest(cmd Command, start byte, count int, err error, elapsed time.Duration) {
	f(cmd, start, count, err, elapsed)
}

// Client reads and writes registers over a Transport.
// Requests are serialized: there's a single request on the wire at a time.
type Client struct {
	Observer Observer

	transport Transport
	config    Config
	lock      sync.Mutex
}

// NewClient creates a client and wraps the transport.
func NewClient(t Transport, config Config) *Client {
	return &Client{transport: t, config: config.withDefaults()}
}

// Transport gets wrapped Transport.
func (c *Client) Transport() Transport {
	return c.transport
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Set writes values to consecutive registers from start.
// The firmware doesn't acknowledge SET, use SetThenVerify to confirm.
func (c *Client) Set(start byte, values ...uint16) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.set(start, values)
}

// Get reads count consecutive registers from start.
func (c *Client) Get(start byte, count int) ([]uint16, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.get(start, count)
}

// SetThenVerify writes values and reads them back. It fails with
// ErrVerifyMismatch if any register differs by more than tolerance.
func (c *Client) SetThenVerify(start byte, values []uint16, tolerance uint16) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.set(start, values); err != nil {
		return err
	}
	got, err := c.get(start, len(values))
	if err != nil {
		return err
	}
	for n, want := range values {
		if diff(got[n], want) > tolerance {
			return &VerifyError{Index: start + byte(n), Want: want, Got: got[n]}
		}
	}
	return nil
}

// Resync discards stale bytes left on the line, e.g. the tail of a
// response which arrived after timeout.
func (c *Client) Resync() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	drainer, ok := c.transport.(Drainer)
	if !ok {
		return nil
	}
	n, err := drainer.Drain(c.config.DrainQuiet)
	if n > 0 {
		glog.Warningf("resync: discarded %d stale bytes", n)
	}
	return err
}

func (c *Client) set(start byte, values []uint16) error {
	f := SetFrame(start, values...)
	if err := f.Validate(); err != nil {
		return err
	}
	for off := 0; off < len(values); off += c.config.MaxBatch {
		end := off + c.config.MaxBatch
		if end > len(values) {
			end = len(values)
		}
		chunk := SetFrame(start+byte(off), values[off:end]...)
		began := time.Now()
		err := c.send(chunk)
		c.observe(chunk, err, began)
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) get(start byte, count int) ([]uint16, error) {
	if err := ValidateRange(start, count); err != nil {
		return nil, err
	}
	values := make([]uint16, 0, count)
	for off := 0; off < count; off += c.config.MaxBatch {
		n := count - off
		if n > c.config.MaxBatch {
			n = c.config.MaxBatch
		}
		chunk := GetFrame(start+byte(off), n)
		began := time.Now()
		vals, err := c.roundTrip(chunk)
		c.observe(chunk, err, began)
		if err != nil {
			return nil, err
		}
		values = append(values, vals...)
	}
	return values, nil
}

func (c *Client) send(f *Frame) error {
	b := f.Bytes()
	glog.V(2).Infof("SEND %s % x", f.Command, b)
	if err := c.transport.WriteFrame(b); err != nil {
		return fmt.Errorf("write %s frame: %w", f.Command, err)
	}
	return nil
}

func (c *Client) roundTrip(f *Frame) ([]uint16, error) {
	if err := c.send(f); err != nil {
		return nil, err
	}
	layout := c.config.Layout
	buf, err := c.read(layout.ResponseLen(f.Count))
	if err != nil {
		return nil, err
	}
	values, err := ParseGetResponse(buf, f.Start, f.Count, layout)
	if err == nil || c.config.ScanWindow == 0 || !errors.Is(err, ErrUnexpectedEcho) {
		return values, err
	}
	return c.scan(buf, f.Start, f.Count, err)
}

// scan looks for the response signature behind at most ScanWindow bytes of
// noise, reading more bytes as needed, then parses strictly from there.
func (c *Client) scan(buf []byte, index byte, count int, strictErr error) ([]uint16, error) {
	layout := c.config.Layout
	want := layout.ResponseLen(count)
	for {
		if off := layout.locate(buf, index); off >= 0 && off <= c.config.ScanWindow {
			if avail := len(buf) - off; avail < want {
				more, err := c.read(want - avail)
				if err != nil {
					return nil, err
				}
				buf = append(buf, more...)
			}
			glog.V(2).Infof("skipped %d noise bytes before response", off)
			return ParseGetResponse(buf[off:], index, count, layout)
		}
		if len(buf) >= want+c.config.ScanWindow {
			return nil, strictErr
		}
		more, err := c.read(1)
		if err != nil {
			return nil, err
		}
		if len(more) == 0 {
			return nil, &ShortReadError{Want: want, Got: len(buf)}
		}
		buf = append(buf, more...)
	}
}

func (c *Client) read(n int) ([]byte, error) {
	buf, err := c.transport.ReadBytes(n, c.config.Timeout)
	if err != nil {
		return buf, fmt.Errorf("read response: %w", err)
	}
	glog.V(2).Infof("RECV % x", buf)
	return buf, nil
}

func (c *Client) observe(f *Frame, err error, began time.Time) {
	if o := c.Observer; o != nil {
		o.ObserveRequest(f.Command, f.Start, f.Count, err, time.Since(began))
	}
}

func diff(a, b uint16) uint16 {
	if a > b {
		return a - b
	}
	return b - a
}

package comm

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeDevice answers frames immediately with the bytes a firmware sends.
type fakeDevice struct {
	regs   [MaxIndex + 1]uint16
	layout Layout
	// noise is emitted before every GET response.
	noise []byte
	// truncate cuts every GET response to this many bytes if positive.
	truncate int
	// dropGets drops responses to this many GET frames.
	dropGets int
	// stuck registers ignore writes.
	stuck map[byte]bool

	lock   sync.Mutex
	frames [][]byte
	rx     []byte
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{stuck: make(map[byte]bool)}
}

func (d *fakeDevice) WriteFrame(b []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.frames = append(d.frames, append([]byte(nil), b...))
	start, count := b[1], int(b[2])
	switch Command(b[0]) {
	case CmdSet:
		for n := 0; n < count; n++ {
			if !d.stuck[start+byte(n)] {
				d.regs[int(start)+n] = DecodeValue(b[3+2*n], b[4+2*n])
			}
		}
	case CmdGet:
		if d.dropGets > 0 {
			d.dropGets--
			return nil
		}
		resp := ResponseBytes(start, d.regs[start:int(start)+count], d.layout)
		if d.truncate > 0 {
			resp = resp[:d.truncate]
		}
		d.rx = append(d.rx, d.noise...)
		d.rx = append(d.rx, resp...)
	}
	return nil
}

func (d *fakeDevice) ReadBytes(n int, timeout time.Duration) ([]byte, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if n > len(d.rx) {
		n = len(d.rx)
	}
	b := d.rx[:n]
	d.rx = d.rx[n:]
	return b, nil
}

func (d *fakeDevice) Drain(time.Duration) (int, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	n := len(d.rx)
	d.rx = nil
	return n, nil
}

func (d *fakeDevice) commands() (cmds []Command) {
	d.lock.Lock()
	defer d.lock.Unlock()
	for _, f := range d.frames {
		cmds = append(cmds, Command(f[0]))
	}
	return
}

func TestClientSetGet(t *testing.T) {
	dev := newFakeDevice()
	c := NewClient(dev, DefaultConfig())
	require.NoError(t, c.Set(5, 1234))
	values, err := c.Get(5, 1)
	require.NoError(t, err)
	require.Equal(t, []uint16{1234}, values)
	require.Equal(t, [][]byte{{0xd3, 5, 1, 0x52, 0x09}, {0xc7, 5, 1}}, dev.frames)
}

func TestClientLegacyLayout(t *testing.T) {
	dev := newFakeDevice()
	dev.layout = LayoutLegacy
	c := NewClient(dev, Config{Layout: LayoutLegacy})
	require.NoError(t, c.Set(32, 0xf00, 0x0f0))
	values, err := c.Get(32, 2)
	require.NoError(t, err)
	require.Equal(t, []uint16{0xf00, 0x0f0}, values)
}

func TestClientShortRead(t *testing.T) {
	dev := newFakeDevice()
	dev.truncate = 3
	c := NewClient(dev, DefaultConfig())
	values, err := c.Get(5, 1)
	require.ErrorIs(t, err, ErrShortRead)
	require.Nil(t, values)
}

func TestClientLocalErrors(t *testing.T) {
	dev := newFakeDevice()
	c := NewClient(dev, DefaultConfig())
	require.ErrorIs(t, c.Set(125, 0, 0, 0, 0), ErrInvalidRegisterRange)
	require.ErrorIs(t, c.Set(0, 1, 2, 16384), ErrValueOutOfRange)
	_, err := c.Get(0, 0)
	require.ErrorIs(t, err, ErrInvalidRegisterRange)
	require.Empty(t, dev.frames)
}

func TestClientBatching(t *testing.T) {
	dev := newFakeDevice()
	c := NewClient(dev, DefaultConfig())
	values := make([]uint16, 40)
	for n := range values {
		values[n] = uint16(n * 100)
	}
	require.NoError(t, c.Set(10, values...))
	require.Len(t, dev.frames, 2)
	require.Equal(t, []byte{0xd3, 10, 32}, dev.frames[0][:3])
	require.Equal(t, []byte{0xd3, 42, 8}, dev.frames[1][:3])

	got, err := c.Get(10, 40)
	require.NoError(t, err)
	require.Equal(t, values, got)
	require.Equal(t, []Command{CmdSet, CmdSet, CmdGet, CmdGet}, dev.commands())
}

func TestClientMaxBatchFallback(t *testing.T) {
	c := NewClient(newFakeDevice(), Config{MaxBatch: 200})
	require.Equal(t, DefaultMaxBatch, c.Config().MaxBatch)
	require.Equal(t, DefaultTimeout, c.Config().Timeout)
}

func TestClientSetThenVerify(t *testing.T) {
	dev := newFakeDevice()
	dev.stuck[33] = true
	c := NewClient(dev, DefaultConfig())
	require.NoError(t, c.SetThenVerify(0, []uint16{1500, 1600}, 0))

	err := c.SetThenVerify(32, []uint16{100, 200}, 0)
	require.ErrorIs(t, err, ErrVerifyMismatch)
	var verr *VerifyError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, byte(33), verr.Index)
	require.Equal(t, uint16(200), verr.Want)
	require.Equal(t, uint16(0), verr.Got)

	dev.regs[33] = 198
	require.NoError(t, c.SetThenVerify(32, []uint16{100, 200}, 2))
}

func TestClientScanWindow(t *testing.T) {
	dev := newFakeDevice()
	dev.noise = []byte("log\r\n")
	dev.regs[5] = 1234

	c := NewClient(dev, DefaultConfig())
	_, err := c.Get(5, 1)
	require.ErrorIs(t, err, ErrUnexpectedEcho)
	require.NoError(t, c.Resync())

	cfg := DefaultConfig()
	cfg.ScanWindow = 8
	c = NewClient(dev, cfg)
	values, err := c.Get(5, 1)
	require.NoError(t, err)
	require.Equal(t, []uint16{1234}, values)

	dev.noise = []byte("a much longer log line\r\n")
	_, err = c.Get(5, 1)
	require.ErrorIs(t, err, ErrUnexpectedEcho)
}

func TestClientScanShortRead(t *testing.T) {
	dev := newFakeDevice()
	dev.noise = []byte("hello")
	dev.truncate = 1
	cfg := DefaultConfig()
	cfg.ScanWindow = 8
	c := NewClient(dev, cfg)
	values, err := c.Get(5, 1)
	require.Nil(t, values)
	var short *ShortReadError
	require.ErrorAs(t, err, &short)
	require.Equal(t, 5, short.Want)
	require.Equal(t, 6, short.Got)
}

func TestClientObserver(t *testing.T) {
	dev := newFakeDevice()
	dev.truncate = 4
	c := NewClient(dev, Config{MaxBatch: 2})
	var cmds []Command
	var errs []error
	c.Observer = ObserveRequestFunc(func(cmd Command, start byte, count int, err error, elapsed time.Duration) {
		cmds = append(cmds, cmd)
		errs = append(errs, err)
	})
	require.NoError(t, c.Set(0, 1, 2, 3))
	_, err := c.Get(0, 1)
	require.Error(t, err)
	require.Equal(t, []Command{CmdSet, CmdSet, CmdGet}, cmds)
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.ErrorIs(t, errs[2], ErrShortRead)
}

func TestClientResync(t *testing.T) {
	dev := newFakeDevice()
	dev.rx = []byte{0xc7, 1, 1, 5, 0}
	dev.regs[1] = 7
	c := NewClient(dev, DefaultConfig())
	require.NoError(t, c.Resync())
	values, err := c.Get(1, 1)
	require.NoError(t, err)
	require.Equal(t, []uint16{7}, values)
}

func TestRetryPolicy(t *testing.T) {
	dev := newFakeDevice()
	dev.dropGets = 2
	dev.regs[29] = 3000
	c := NewClient(dev, DefaultConfig())
	policy := RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

	var values []uint16
	attempts := 0
	err := policy.Do(c, func() (err error) {
		attempts++
		values, err = c.Get(29, 1)
		return
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Equal(t, []uint16{3000}, values)

	attempts = 0
	err = policy.Do(c, func() error {
		attempts++
		return c.Set(127, 1, 2)
	})
	require.ErrorIs(t, err, ErrInvalidRegisterRange)
	require.Equal(t, 1, attempts)

	attempts = 0
	failure := errors.New("link down")
	err = policy.Do(c, func() error {
		attempts++
		return failure
	})
	require.Equal(t, failure, err)
	require.Equal(t, 3, attempts)
}

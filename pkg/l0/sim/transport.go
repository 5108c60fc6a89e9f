package sim

import (
	"io"
	"sync"
	"time"
)

// Transport connects a host to a Device in memory. The device answers
// synchronously in WriteFrame, so reads never wait for bytes.
type Transport struct {
	Device *Device

	lock   sync.Mutex
	rx     []byte
	closed bool
}

// NewTransport creates a Transport.
func NewTransport(dev *Device) *Transport {
	return &Transport{Device: dev}
}

// WriteFrame implements comm.Transport.
func (t *Transport) WriteFrame(frame []byte) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.closed {
		return io.ErrClosedPipe
	}
	t.rx = append(t.rx, t.Device.Receive(frame)...)
	return nil
}

// ReadBytes implements comm.Transport.
func (t *Transport) ReadBytes(n int, timeout time.Duration) ([]byte, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.closed {
		return nil, io.ErrClosedPipe
	}
	if n > len(t.rx) {
		n = len(t.rx)
	}
	b := append([]byte(nil), t.rx[:n]...)
	t.rx = t.rx[n:]
	return b, nil
}

// Inject queues bytes as if the device sent them unsolicited.
func (t *Transport) Inject(p []byte) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.rx = append(t.rx, p...)
}

// Drain implements comm.Drainer.
func (t *Transport) Drain(time.Duration) (int, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	n := len(t.rx)
	t.rx = nil
	return n, nil
}

// Close implements io.Closer.
func (t *Transport) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.closed = true
	return nil
}

package comm

import (
	"io"
	"os"
	"sync"
	"time"
)

// Transport is the duplex byte channel to the device.
type Transport interface {
	// WriteFrame submits a complete frame as a single write.
	WriteFrame([]byte) error
	// ReadBytes reads n bytes, or returns fewer when timeout expires first.
	// The error is only set on I/O failures, never on timeout.
	ReadBytes(n int, timeout time.Duration) ([]byte, error)
}

// Drainer is implemented by transports able to discard stale input.
type Drainer interface {
	// Drain discards input until the line stays quiet for the duration,
	// and returns the number of bytes discarded.
	Drain(quiet time.Duration) (int, error)
}

// Stream implements Transport over an io.ReadWriter such as a serial port.
type Stream struct {
	ReadWriter  io.ReadWriter
	ReadTimeout bool // set to true if ReadWriter already supports timeout with Read

	writeLock sync.Mutex
	readLock  sync.Mutex
	startOnce sync.Once
	doneOnce  sync.Once
	closeOnce sync.Once
	done      chan struct{}
	chunkCh   chan []byte
	errCh     chan error
	pending   []byte
	readErr   error
}

// NewStream creates a Stream.
func NewStream(rw io.ReadWriter) *Stream {
	return &Stream{ReadWriter: rw}
}

// WriteFrame implements Transport.
func (s *Stream) WriteFrame(frame []byte) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	n, err := s.ReadWriter.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return io.ErrShortWrite
	}
	return nil
}

// ReadBytes implements Transport.
func (s *Stream) ReadBytes(n int, timeout time.Duration) ([]byte, error) {
	s.readLock.Lock()
	defer s.readLock.Unlock()
	if s.ReadTimeout {
		return s.readWithTimeout(n, timeout)
	}
	return s.readFromLoop(n, timeout)
}

// Drain implements Drainer.
func (s *Stream) Drain(quiet time.Duration) (int, error) {
	var total int
	for {
		b, err := s.ReadBytes(64, quiet)
		total += len(b)
		if err != nil || len(b) == 0 {
			return total, err
		}
	}
}

// Close stops the read loop and closes the underlying ReadWriter if it's
// a Closer.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() { close(s.doneCh()) })
	if closer, ok := s.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (s *Stream) doneCh() chan struct{} {
	s.doneOnce.Do(func() { s.done = make(chan struct{}) })
	return s.done
}

func (s *Stream) readWithTimeout(n int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	deadline := time.Now().Add(timeout)
	for got < n {
		cnt, err := s.ReadWriter.Read(buf[got:])
		got += cnt
		if err != nil && err != io.EOF && !os.IsTimeout(err) {
			return buf[:got], err
		}
		if got < n && !time.Now().Before(deadline) {
			break
		}
	}
	return buf[:got], nil
}

func (s *Stream) readFromLoop(n int, timeout time.Duration) ([]byte, error) {
	s.startOnce.Do(func() {
		s.chunkCh, s.errCh = make(chan []byte, 16), make(chan error, 1)
		go s.readLoop()
	})
	buf := make([]byte, 0, n)
	buf = s.take(buf, n)
	if len(buf) >= n {
		return buf, nil
	}
	if s.readErr != nil {
		return buf, s.readErr
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for len(buf) < n {
		select {
		case chunk := <-s.chunkCh:
			s.pending = append(s.pending, chunk...)
			buf = s.take(buf, n)
		case err := <-s.errCh:
			s.readErr = err
			s.flushChunks()
			return s.take(buf, n), err
		case <-timer.C:
			return buf, nil
		}
	}
	return buf, nil
}

// flushChunks moves chunks already queued by readLoop into pending.
func (s *Stream) flushChunks() {
	for {
		select {
		case chunk := <-s.chunkCh:
			s.pending = append(s.pending, chunk...)
		default:
			return
		}
	}
}

// take moves up to n-len(buf) pending bytes into buf.
func (s *Stream) take(buf []byte, n int) []byte {
	cnt := n - len(buf)
	if cnt > len(s.pending) {
		cnt = len(s.pending)
	}
	buf = append(buf, s.pending[:cnt]...)
	s.pending = s.pending[cnt:]
	return buf
}

// readLoop exits on read errors or once the Stream is closed.
func (s *Stream) readLoop() {
	done := s.doneCh()
	buf := make([]byte, 64)
	for {
		n, err := s.ReadWriter.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunkCh <- chunk:
			case <-done:
				return
			}
		}
		if err != nil {
			select {
			case s.errCh <- err:
			case <-done:
			}
			return
		}
	}
}

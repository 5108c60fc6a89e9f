// Package serial opens USB-CDC serial ports as register protocol transports.
package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"

	"github.com/robotalks/servo2040/pkg/l0/comm"
)

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g. "/dev/ttyACM0", "COM3").
	Device string
	// Baud rate, ignored by USB CDC but required by the driver.
	Baud int
	// ReadTimeout bounds a single read, it's the polling granularity of
	// comm.Stream, not the response timeout.
	ReadTimeout time.Duration
}

// Defaults of Config.
const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 50 * time.Millisecond
)

// DefaultConfig returns a configuration for device.
func DefaultConfig(device string) Config {
	return Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
	}
}

// Port is an opened serial port.
type Port struct {
	*comm.Stream
	port *serial.Port
}

// Open opens a serial port.
func Open(cfg Config) (*Port, error) {
	if cfg.Baud <= 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return &Port{
		Stream: &comm.Stream{ReadWriter: port, ReadTimeout: true},
		port:   port,
	}, nil
}

// Close closes the port.
func (p *Port) Close() error {
	return p.port.Close()
}

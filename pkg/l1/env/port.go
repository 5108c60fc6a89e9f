package env

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	l0 "github.com/robotalks/servo2040/pkg/l0/comm"
	"github.com/robotalks/servo2040/pkg/l0/regmap"
	"github.com/robotalks/servo2040/pkg/l0/serial"
	"github.com/robotalks/servo2040/pkg/l0/sim"
)

// Transport is an opened link to a board.
type Transport interface {
	l0.Transport
	io.Closer
}

// SimPort is the port name of an emulated board. "sim" emulates a
// servo2040, "sim:<profile>" emulates the board of that register layout.
const SimPort = "sim"

// IsRemote tells whether port is the URL of a bridge rather than a
// local port.
func IsRemote(port string) bool {
	u, err := url.Parse(port)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "tcp", "ws", "wss", "mqtt":
		return true
	}
	return false
}

// OpenTransport opens a serial port or an emulated board.
// The emulated board responds in layout.
func OpenTransport(port string, baud int, readTimeout time.Duration, layout l0.Layout) (Transport, error) {
	if port == SimPort || strings.HasPrefix(port, SimPort+":") {
		regs, err := simRegisters(strings.TrimPrefix(strings.TrimPrefix(port, SimPort), ":"))
		if err != nil {
			return nil, err
		}
		dev := sim.NewDevice(regs)
		dev.Layout = layout
		return sim.NewTransport(dev), nil
	}
	p, err := serial.Open(serial.Config{Device: port, Baud: baud, ReadTimeout: readTimeout})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func simRegisters(profile string) (sim.Registers, error) {
	switch profile {
	case "", regmap.Servo2040.Name():
		return sim.NewServo2040(), nil
	case regmap.GPIOBoard.Name():
		return sim.NewGPIO(), nil
	}
	return nil, fmt.Errorf("no emulator for %q", profile)
}

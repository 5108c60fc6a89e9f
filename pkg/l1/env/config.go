package env

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	l0 "github.com/robotalks/servo2040/pkg/l0/comm"
	"github.com/robotalks/servo2040/pkg/l0/regmap"
	"github.com/robotalks/servo2040/pkg/l0/serial"
	"github.com/robotalks/servo2040/pkg/l1"
	"github.com/robotalks/servo2040/pkg/l1/comm"
	"github.com/robotalks/servo2040/pkg/servo2040"
)

// Config provides common options to reach a board, either on a local
// port or through a bridge.
type Config struct {
	// Port is a serial device, "sim[:profile]" or a bridge URL.
	Port string
	Baud int
	// Device selects the board behind an MQTT bridge.
	Device l1.DeviceRef
	// Profile is the name of the register layout.
	Profile string
	// Layout is the GET response layout, "echo" or "legacy".
	Layout     string
	Timeout    time.Duration
	ScanWindow int
	MaxBatch   int
}

var defaultConfig = Config{
	Port:     "/dev/ttyACM0",
	Baud:     serial.DefaultBaud,
	Device:   l1.DeviceRef{Type: "servo2040"},
	Profile:  regmap.Servo2040.Name(),
	Layout:   l0.LayoutEchoHeader.String(),
	Timeout:  l0.DefaultTimeout,
	MaxBatch: l0.DefaultMaxBatch,
}

func init() {
	if val := os.Getenv("S2_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val, err := strconv.Atoi(os.Getenv("S2_BAUD")); err == nil {
		defaultConfig.Baud = val
	}
	if val := os.Getenv("S2_DEVICE"); val != "" {
		if ref, ok := l1.ParseDeviceRef(val); ok {
			defaultConfig.Device = ref
		}
	}
	if val := os.Getenv("S2_PROFILE"); val != "" {
		defaultConfig.Profile = val
	}
	if val := os.Getenv("S2_LAYOUT"); val != "" {
		defaultConfig.Layout = val
	}
	if val, err := time.ParseDuration(os.Getenv("S2_TIMEOUT")); err == nil {
		defaultConfig.Timeout = val
	}
	if val, err := strconv.Atoi(os.Getenv("S2_SCAN_WINDOW")); err == nil {
		defaultConfig.ScanWindow = val
	}
	if val, err := strconv.Atoi(os.Getenv("S2_MAX_BATCH")); err == nil {
		defaultConfig.MaxBatch = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port, sim[:profile] or bridge URL (tcp://, ws://, mqtt://)")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial baud rate")
	flag.StringVar(&defaultConfig.Device.Type, "device-type", defaultConfig.Device.Type, "Device type behind MQTT bridge")
	flag.StringVar(&defaultConfig.Device.ID, "device-id", defaultConfig.Device.ID, "Device ID behind MQTT bridge")
	flag.StringVar(&defaultConfig.Profile, "profile", defaultConfig.Profile, "Register layout: servo2040 or gpio")
	flag.StringVar(&defaultConfig.Layout, "layout", defaultConfig.Layout, "GET response layout: echo or legacy")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Response timeout")
	flag.IntVar(&defaultConfig.ScanWindow, "scan-window", defaultConfig.ScanWindow, "Noise bytes tolerated before a response")
	flag.IntVar(&defaultConfig.MaxBatch, "max-batch", defaultConfig.MaxBatch, "Most registers in one frame")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// ClientConfig builds the register client configuration.
func (c *Config) ClientConfig() (l0.Config, error) {
	layout, err := l0.ParseLayout(c.Layout)
	if err != nil {
		return l0.Config{}, err
	}
	cfg := l0.DefaultConfig()
	cfg.Layout = layout
	cfg.ScanWindow = c.ScanWindow
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	if c.MaxBatch > 0 {
		cfg.MaxBatch = c.MaxBatch
	}
	return cfg, nil
}

// Map looks up the register layout.
func (c *Config) Map() (*regmap.Map, error) {
	m, ok := regmap.Profiles[c.Profile]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", c.Profile)
	}
	return m, nil
}

// Conn is an opened board.
type Conn struct {
	Registers l1.Registers
	// Board is only available on a local port.
	Board *servo2040.Board

	closer func() error
}

// Close implements io.Closer.
func (c *Conn) Close() error {
	return c.closer()
}

// Open opens the board on a local port or connects to a bridge.
func (c *Config) Open(ctx context.Context) (*Conn, error) {
	if IsRemote(c.Port) {
		remote, err := Dial(ctx, c.Port, c.Device)
		if err != nil {
			return nil, err
		}
		return &Conn{Registers: remote, closer: remote.Close}, nil
	}
	m, err := c.Map()
	if err != nil {
		return nil, err
	}
	clientConfig, err := c.ClientConfig()
	if err != nil {
		return nil, err
	}
	port := c.Port
	if port == SimPort {
		port = SimPort + ":" + m.Name()
	}
	t, err := OpenTransport(port, c.Baud, serial.DefaultReadTimeout, clientConfig.Layout)
	if err != nil {
		return nil, err
	}
	client := l0.NewClient(t, clientConfig)
	return &Conn{
		Registers: comm.NewLocal(client),
		Board:     servo2040.NewWithMap(client, m, servo2040.DefaultConfig()),
		closer:    t.Close,
	}, nil
}

// MustOpen opens the board and fails on error.
func (c *Config) MustOpen(ctx context.Context) *Conn {
	conn, err := c.Open(ctx)
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}

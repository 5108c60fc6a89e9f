package env

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	l0 "github.com/robotalks/servo2040/pkg/l0/comm"
	"github.com/robotalks/servo2040/pkg/l1"
)

// DeviceConfig describes the bridged board.
type DeviceConfig struct {
	Type        string            `mapstructure:"type"`
	ID          string            `mapstructure:"id"`
	Description string            `mapstructure:"description"`
	Labels      map[string]string `mapstructure:"labels"`
	Profile     string            `mapstructure:"profile"`
}

// SerialConfig selects the port of the board.
type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

// ClientConfig tunes the register client.
type ClientConfig struct {
	Layout     string        `mapstructure:"layout"`
	Timeout    time.Duration `mapstructure:"timeout"`
	ScanWindow int           `mapstructure:"scanWindow"`
	MaxBatch   int           `mapstructure:"maxBatch"`
	DrainQuiet time.Duration `mapstructure:"drainQuiet"`
}

// RetryConfig configures retries of failed requests.
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Backoff  time.Duration `mapstructure:"backoff"`
}

// ServerConfig configures request handling.
type ServerConfig struct {
	// RateLimit is requests per second, 0 for unlimited.
	RateLimit float64       `mapstructure:"rateLimit"`
	Burst     int           `mapstructure:"burst"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// MQTTConfig configures the MQTT bridge, disabled if URL is empty.
type MQTTConfig struct {
	URL string `mapstructure:"url"`
}

// HTTPConfig configures the HTTP server for metrics and websocket.
type HTTPConfig struct {
	Addr          string `mapstructure:"addr"`
	MetricsPath   string `mapstructure:"metricsPath"`
	WebsocketPath string `mapstructure:"websocketPath"`
}

// TCPConfig configures the stream endpoint, disabled if Addr is empty.
type TCPConfig struct {
	Addr string `mapstructure:"addr"`
}

// BridgeConfig is the configuration of the bridge daemon.
type BridgeConfig struct {
	Device DeviceConfig `mapstructure:"device"`
	Serial SerialConfig `mapstructure:"serial"`
	Client ClientConfig `mapstructure:"client"`
	Retry  RetryConfig  `mapstructure:"retry"`
	Server ServerConfig `mapstructure:"server"`
	MQTT   MQTTConfig   `mapstructure:"mqtt"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	TCP    TCPConfig    `mapstructure:"tcp"`
}

// LoadBridgeConfig loads configuration from a YAML/TOML/JSON file and
// S2_ prefixed environment variables, e.g. S2_MQTT_URL overrides mqtt.url.
// If path is empty, S2_CONFIG is used, otherwise s2bridge.yaml is looked
// up in the working directory and ./configs. A missing file is allowed.
func LoadBridgeConfig(path string) (*BridgeConfig, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv("S2_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("s2bridge")
		v.SetConfigType("yaml")
	}

	setBridgeDefaults(v)

	v.SetEnvPrefix("S2")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg BridgeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Device.ID == "" {
		cfg.Device.ID = MachineID()
	}
	return &cfg, nil
}

func setBridgeDefaults(v *viper.Viper) {
	v.SetDefault("device.type", "servo2040")
	v.SetDefault("device.id", "")
	v.SetDefault("device.description", "")
	v.SetDefault("device.profile", "servo2040")

	v.SetDefault("serial.port", "/dev/ttyACM0")
	v.SetDefault("serial.baud", 115200)
	v.SetDefault("serial.readTimeout", "50ms")

	v.SetDefault("client.layout", "echo")
	v.SetDefault("client.timeout", "1s")
	v.SetDefault("client.scanWindow", 0)
	v.SetDefault("client.maxBatch", 32)
	v.SetDefault("client.drainQuiet", "20ms")

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.backoff", "50ms")

	v.SetDefault("server.rateLimit", 0)
	v.SetDefault("server.burst", 1)
	v.SetDefault("server.timeout", "5s")

	v.SetDefault("mqtt.url", "mqtt://localhost:1883/")

	v.SetDefault("http.addr", ":9040")
	v.SetDefault("http.metricsPath", "/metrics")
	v.SetDefault("http.websocketPath", "/ws")

	v.SetDefault("tcp.addr", "")
}

// Ref is the reference of the bridged board.
func (c *BridgeConfig) Ref() l1.DeviceRef {
	return l1.DeviceRef{Type: c.Device.Type, ID: c.Device.ID}
}

// Info is the announced information of the bridged board.
func (c *BridgeConfig) Info() l1.DeviceInfo {
	return l1.DeviceInfo{
		Ref: c.Ref(),
		Meta: l1.DeviceMeta{
			Description: c.Device.Description,
			Labels:      c.Device.Labels,
			Layout:      c.Device.Profile,
		},
	}
}

// ClientConfig builds the register client configuration.
func (c *BridgeConfig) ClientConfig() (l0.Config, error) {
	layout, err := l0.ParseLayout(c.Client.Layout)
	if err != nil {
		return l0.Config{}, err
	}
	return l0.Config{
		Timeout:    c.Client.Timeout,
		Layout:     layout,
		ScanWindow: c.Client.ScanWindow,
		MaxBatch:   c.Client.MaxBatch,
		DrainQuiet: c.Client.DrainQuiet,
	}, nil
}

// RetryPolicy builds the retry policy.
func (c *BridgeConfig) RetryPolicy() l0.RetryPolicy {
	return l0.RetryPolicy{Attempts: c.Retry.Attempts, Backoff: c.Retry.Backoff}
}

package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"

	"github.com/golang/glog"

	fx "github.com/robotalks/servo2040/pkg/framework"
	l0 "github.com/robotalks/servo2040/pkg/l0/comm"
	"github.com/robotalks/servo2040/pkg/l0/regmap"
	"github.com/robotalks/servo2040/pkg/l1/comm"
	"github.com/robotalks/servo2040/pkg/l1/comm/mqtt"
	"github.com/robotalks/servo2040/pkg/l1/comm/stream"
	"github.com/robotalks/servo2040/pkg/l1/comm/websocket"
	"github.com/robotalks/servo2040/pkg/l1/env"
	"github.com/robotalks/servo2040/pkg/l1/metrics"
)

var configPath string

var errNothingToServe = errors.New("nothing to serve, configure mqtt.url, tcp.addr or http.addr")

func init() {
	flag.StringVar(&configPath, "config", configPath, "Config file, defaults to $S2_CONFIG or s2bridge.yaml")
}

func main() {
	flag.Parse()
	if err := run(configPath); err != nil {
		log.Fatalln(err)
	}
}

// run returns instead of exiting so deferred cleanup closes the port.
func run(configPath string) error {
	cfg, err := env.LoadBridgeConfig(configPath)
	if err != nil {
		return err
	}
	if _, ok := regmap.Profiles[cfg.Device.Profile]; !ok {
		return fmt.Errorf("unknown profile %q", cfg.Device.Profile)
	}
	if !cfg.Ref().IsValid() {
		return fmt.Errorf("invalid device %q", cfg.Ref().Name())
	}
	if cfg.MQTT.URL == "" && cfg.TCP.Addr == "" && cfg.HTTP.Addr == "" {
		return errNothingToServe
	}
	clientConfig, err := cfg.ClientConfig()
	if err != nil {
		return err
	}
	port := cfg.Serial.Port
	if port == env.SimPort {
		port += ":" + cfg.Device.Profile
	}
	transport, err := env.OpenTransport(port, cfg.Serial.Baud, cfg.Serial.ReadTimeout, clientConfig.Layout)
	if err != nil {
		return err
	}
	defer transport.Close()

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	client := l0.NewClient(transport, clientConfig)
	client.Observer = m
	local := comm.NewLocal(client)
	local.Retry = cfg.RetryPolicy()
	server := comm.NewServer(local).WithRateLimit(cfg.Server.RateLimit, cfg.Server.Burst)
	server.Timeout = cfg.Server.Timeout
	server.Observer = m

	var bridge *mqtt.Bridge
	if cfg.MQTT.URL != "" {
		if bridge, err = mqtt.NewBridge(cfg.MQTT.URL, cfg.Info(), server); err != nil {
			return err
		}
	}
	var ln net.Listener
	if cfg.TCP.Addr != "" {
		if ln, err = net.Listen("tcp", cfg.TCP.Addr); err != nil {
			return err
		}
	}

	runner := fx.NewRunner(context.Background()).HandleSignals()
	if bridge != nil {
		runner.Go("mqtt", bridge.Run)
	}
	if ln != nil {
		glog.Infof("serving stream on %s", ln.Addr())
		runner.Go("tcp", func(ctx context.Context) error {
			return stream.Serve(ctx, ln, server)
		})
	}
	if cfg.HTTP.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle(cfg.HTTP.MetricsPath, metrics.Handler(reg))
		mux.Handle(cfg.HTTP.WebsocketPath, websocket.Handler(runner.Context(), server))
		srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: mux}
		glog.Infof("serving http on %s", cfg.HTTP.Addr)
		runner.Go("http", func(ctx context.Context) error {
			return fx.RunWithContextCancel(ctx, func() { srv.Close() }, func() error {
				if err := srv.ListenAndServe(); err != http.ErrServerClosed {
					return err
				}
				return nil
			})
		})
	}
	return runner.Wait()
}

package env

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"

	"github.com/golang/glog"

	"github.com/robotalks/servo2040/pkg/l1"
	"github.com/robotalks/servo2040/pkg/l1/comm"
	"github.com/robotalks/servo2040/pkg/l1/comm/mqtt"
	"github.com/robotalks/servo2040/pkg/l1/comm/stream"
	"github.com/robotalks/servo2040/pkg/l1/comm/websocket"
)

// RemoteConn is the register access to a bridge.
type RemoteConn interface {
	l1.Registers
	io.Closer
}

// Dial connects to a bridge by URL:
//
//	tcp://host:port              length prefixed stream
//	ws://host:port/ws            websocket
//	mqtt://host:port/prefix      MQTT, ref selects the device
func Dial(ctx context.Context, rawURL string, ref l1.DeviceRef) (RemoteConn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid bridge URL: %w", err)
	}
	switch u.Scheme {
	case "tcp":
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return startRemote(stream.New(conn)), nil
	case "ws", "wss":
		origin := "http://" + u.Host
		if u.Scheme == "wss" {
			origin = "https://" + u.Host
		}
		rw, err := websocket.Dial(rawURL, origin)
		if err != nil {
			return nil, err
		}
		return startRemote(rw), nil
	case "mqtt":
		if !ref.IsValid() {
			return nil, fmt.Errorf("device type and id must be specified")
		}
		connector, err := mqtt.NewConnector(rawURL)
		if err != nil {
			return nil, err
		}
		conn, err := connector.Connect(ctx, ref)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return nil, fmt.Errorf("unknown bridge URL scheme: %q", u.Scheme)
}

type packetConn interface {
	comm.PacketReadWriter
	io.Closer
}

type remoteConn struct {
	*comm.Remote
	rw     packetConn
	doneCh chan struct{}
}

func startRemote(rw packetConn) *remoteConn {
	c := &remoteConn{Remote: comm.NewRemote(rw), rw: rw, doneCh: make(chan struct{})}
	go func() {
		defer close(c.doneCh)
		if err := c.Remote.Run(context.Background()); err != nil {
			glog.V(1).Infof("remote stopped: %v", err)
		}
	}()
	return c
}

func (c *remoteConn) Close() error {
	err := c.rw.Close()
	<-c.doneCh
	return err
}

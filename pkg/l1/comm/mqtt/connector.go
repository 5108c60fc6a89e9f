package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/servo2040/pkg/l1"
	"github.com/robotalks/servo2040/pkg/l1/comm"
)

// Connector finds and connects to bridged boards using MQTT.
type Connector struct {
	DiscoverTimeout time.Duration

	broker *Broker
}

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	broker, err := ParseBroker(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Connector{DiscoverTimeout: DefaultDiscoverTimeout, broker: broker}, nil
}

// ParseMeta parses a retained meta message. ok is false if the topic
// isn't a meta topic or the device has gone (empty payload).
func ParseMeta(topic string, payload []byte) (info l1.DeviceInfo, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[2] != TopicMeta || len(payload) == 0 {
		return
	}
	info.Ref = l1.DeviceRef{Type: items[0], ID: items[1]}
	if !info.Ref.IsValid() {
		return
	}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.Warningf("invalid meta of %s: %v", info.Ref.Name(), err)
	}
	return info, true
}

// Discover collects the devices announced within DiscoverTimeout.
func (c *Connector) Discover(ctx context.Context) (res []l1.DeviceInfo, err error) {
	q := c.broker.NewQueue(nil)
	if err = q.Connect(); err != nil {
		return
	}
	defer q.Close()
	resCh := make(chan l1.DeviceInfo, 1)
	sub := q.Sub("+/+/"+TopicMeta, Handler(func(topic string, payload []byte) {
		if info, ok := ParseMeta(topic, payload); ok {
			select {
			case resCh <- info:
			case <-time.After(time.Second):
			}
		}
	}))
	defer sub.Close()

	dur := c.DiscoverTimeout
	if dur == 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-timeout:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// Connect connects to a bridged device.
func (c *Connector) Connect(ctx context.Context, ref l1.DeviceRef) (*Conn, error) {
	q := c.broker.NewQueue(nil)
	if err := q.Connect(); err != nil {
		return nil, err
	}
	rw := NewPacketReadWriter(q).ForClient(ref)
	sub, err := rw.Subscribe()
	if err != nil {
		q.Close()
		return nil, err
	}
	conn := &Conn{
		Remote: comm.NewRemote(rw),
		Queue:  q,
		sub:    sub,
		rw:     rw,
		doneCh: make(chan struct{}),
	}
	go conn.run()
	return conn, nil
}

// Conn is the register access to a device over MQTT.
type Conn struct {
	*comm.Remote
	Queue *Queue

	sub    *Subscription
	rw     *ReadWriter
	doneCh chan struct{}
}

func (c *Conn) run() {
	defer close(c.doneCh)
	if err := c.Remote.Run(context.Background()); err != nil {
		glog.Errorf("receive error: %v", err)
	}
}

// Close implements io.Closer.
func (c *Conn) Close() error {
	c.rw.Close()
	<-c.doneCh
	c.sub.Close()
	return c.Queue.Close()
}

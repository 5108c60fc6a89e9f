package mqtt

import (
	"context"
	"encoding/json"

	"github.com/golang/glog"

	fx "github.com/robotalks/servo2040/pkg/framework"
	"github.com/robotalks/servo2040/pkg/l1"
	"github.com/robotalks/servo2040/pkg/l1/comm"
)

// Bridge exposes a comm.Server on MQTT. The retained meta message
// announces the device while the bridge is connected, the will clears
// it when the connection drops.
type Bridge struct {
	Queue  *Queue
	Info   l1.DeviceInfo
	Server *comm.Server

	metaJSON []byte
	rw       *ReadWriter
}

// ClientIDPrefix prefixes the default MQTT client ID of a bridge.
const ClientIDPrefix = "servo2040:"

// NewBridge creates a Bridge.
func NewBridge(brokerURL string, info l1.DeviceInfo, server *comm.Server) (*Bridge, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	broker, err := ParseBroker(brokerURL)
	if err != nil {
		return nil, err
	}
	broker.Options.SetBinaryWill(broker.Topic(MetaTopic(info.Ref)), nil, 1, true)
	if broker.Options.ClientID == "" {
		broker.Options.SetClientID(ClientIDPrefix + info.Ref.Name())
	}
	b := &Bridge{Info: info, Server: server, metaJSON: meta}
	b.Queue = broker.NewQueue(b.announce)
	b.rw = NewPacketReadWriter(b.Queue).ForBridge(info.Ref)
	return b, nil
}

// MetaTopic is the topic of retained meta of a device.
func MetaTopic(ref l1.DeviceRef) string {
	return ref.Name() + "/" + TopicMeta
}

// Run connects and serves requests until ctx is done or the connection
// fails, then withdraws the meta.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.Queue.Connect(); err != nil {
		return err
	}
	defer b.Queue.Close()
	glog.Infof("bridging %s", b.Info.Ref.Name())
	err := fx.NewRunner(ctx).
		Go("mqtt", b.rw.Run).
		Go("server", func(ctx context.Context) error {
			return b.Server.Serve(ctx, b.rw)
		}).
		Wait()
	if e := WaitToken(b.Queue.Retain(MetaTopic(b.Info.Ref), nil), b.rw.PublishTimeout); e != nil {
		glog.Warningf("clear meta error: %v", e)
	}
	return err
}

// announce publishes the meta on every connect, the retained message is
// gone with the will after a disconnect.
func (b *Bridge) announce(q *Queue) {
	q.Retain(MetaTopic(b.Info.Ref), b.metaJSON)
}

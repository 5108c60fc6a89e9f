package mqtt

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/robotalks/servo2040/pkg/l1"
)

// Topic suffixes under the device name.
const (
	TopicCmd  = "cmd"
	TopicMsg  = "msg"
	TopicMeta = "meta"
)

// DefaultPublishTimeout is the default time waiting for a publish.
const DefaultPublishTimeout = 2 * time.Second

// ReadWriter implements PacketReadWriter.
type ReadWriter struct {
	Queue          *Queue
	SubTopic       string
	PubTopic       string
	PublishTimeout time.Duration

	packetCh chan []byte
	done     chan struct{}
	once     sync.Once
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:          q,
		PublishTimeout: DefaultPublishTimeout,
		packetCh:       make(chan []byte, 16),
		done:           make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForClient sets topics using default convention for a client:
// SubTopic = prefix/msg
// PubTopic = prefix/cmd
func (p *ReadWriter) ForClient(ref l1.DeviceRef) *ReadWriter {
	prefix := ref.Name() + "/"
	return p.WithTopics(prefix+TopicMsg, prefix+TopicCmd)
}

// ForBridge sets topics using default convention for the bridge:
// SubTopic = prefix/cmd
// PubTopic = prefix/msg
func (p *ReadWriter) ForBridge(ref l1.DeviceRef) *ReadWriter {
	prefix := ref.Name() + "/"
	return p.WithTopics(prefix+TopicCmd, prefix+TopicMsg)
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.done:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	select {
	case <-p.done:
		return io.ErrClosedPipe
	default:
	}
	return WaitToken(p.Queue.Pub(p.PubTopic, pkt), p.PublishTimeout)
}

// Subscribe starts receiving packets from SubTopic.
func (p *ReadWriter) Subscribe() (*Subscription, error) {
	sub := p.Queue.Sub(p.SubTopic, Handler(p.handleMsg))
	if sub.Token != nil {
		if err := WaitToken(sub.Token, p.PublishTimeout); err != nil {
			sub.Close()
			return nil, err
		}
	}
	return sub, nil
}

// Run subscribes and stops reading when ctx is done.
func (p *ReadWriter) Run(ctx context.Context) error {
	defer p.Close()
	sub, err := p.Subscribe()
	if err != nil {
		return err
	}
	defer sub.Close()
	select {
	case <-ctx.Done():
	case <-p.done:
	}
	return nil
}

// Close unblocks ReadPacket with io.EOF.
func (p *ReadWriter) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.done:
	}
}

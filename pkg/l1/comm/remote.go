package comm

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	l0 "github.com/robotalks/servo2040/pkg/l0/comm"
	"github.com/robotalks/servo2040/pkg/l1/msgs"
)

// Remote implements l1.Registers by sending requests to a Server.
type Remote struct {
	// Timeout is the default expiration expecting a reply, used when
	// the context has no deadline.
	Timeout time.Duration

	rw       PacketReadWriter
	seq      uint32
	pending  map[uint32]chan *msgs.RegisterReply
	closed   bool
	lock     sync.Mutex
	sendLock sync.Mutex
}

// DefaultRequestTimeout is the default expiration expecting a reply.
const DefaultRequestTimeout = 3 * time.Second

// NewRemote creates a Remote. Run must be running to receive replies.
func NewRemote(rw PacketReadWriter) *Remote {
	return &Remote{
		Timeout: DefaultRequestTimeout,
		rw:      rw,
		pending: make(map[uint32]chan *msgs.RegisterReply),
	}
}

// Run implements Runnable, it dispatches replies until the packet
// reader fails.
func (r *Remote) Run(ctx context.Context) error {
	defer r.abort()
	for {
		pkt, err := r.rw.ReadPacket()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		reply, err := msgs.DecodeReply(pkt)
		if err != nil {
			glog.Warningf("drop undecodable reply: %v", err)
			continue
		}
		r.deliver(reply)
	}
}

// Do sends a request and waits for the reply. Seq is assigned.
func (r *Remote) Do(ctx context.Context, req *msgs.RegisterRequest) (*msgs.RegisterReply, error) {
	if _, ok := ctx.Deadline(); !ok && r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	ch := make(chan *msgs.RegisterReply, 1)
	r.lock.Lock()
	if r.closed {
		r.lock.Unlock()
		return nil, io.ErrClosedPipe
	}
	r.seq++
	if r.seq == 0 {
		r.seq++
	}
	req.Seq = r.seq
	r.pending[req.Seq] = ch
	r.lock.Unlock()

	pkt, err := req.Encode()
	if err == nil {
		r.sendLock.Lock()
		err = r.rw.WritePacket(pkt)
		r.sendLock.Unlock()
	}
	if err != nil {
		r.forget(req.Seq)
		return nil, err
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			return nil, io.ErrClosedPipe
		}
		return reply, reply.Err()
	case <-ctx.Done():
		r.forget(req.Seq)
		return nil, ctx.Err()
	}
}

// Set implements l1.Registers.
func (r *Remote) Set(ctx context.Context, start byte, values ...uint16) error {
	_, err := r.Do(ctx, &msgs.RegisterRequest{Op: msgs.OpSet, Index: uint32(start), Values: toUint32s(values)})
	return err
}

// Get implements l1.Registers.
func (r *Remote) Get(ctx context.Context, start byte, count int) ([]uint16, error) {
	if err := l0.ValidateRange(start, count); err != nil {
		return nil, err
	}
	reply, err := r.Do(ctx, &msgs.RegisterRequest{Op: msgs.OpGet, Index: uint32(start), Count: uint32(count)})
	if err != nil {
		return nil, err
	}
	if len(reply.Values) != count {
		return nil, fmt.Errorf("reply has %d values for %d registers: %w", len(reply.Values), count, l0.ErrCountMismatch)
	}
	return reply.Uint16s(), nil
}

// SetThenVerify implements l1.Registers.
func (r *Remote) SetThenVerify(ctx context.Context, start byte, values []uint16, tolerance uint16) error {
	_, err := r.Do(ctx, &msgs.RegisterRequest{
		Op:        msgs.OpVerify,
		Index:     uint32(start),
		Values:    toUint32s(values),
		Tolerance: uint32(tolerance),
	})
	return err
}

func (r *Remote) deliver(reply *msgs.RegisterReply) {
	r.lock.Lock()
	defer r.lock.Unlock()
	ch := r.pending[reply.Seq]
	if ch == nil {
		glog.V(2).Infof("drop reply #%d: no pending request", reply.Seq)
		return
	}
	delete(r.pending, reply.Seq)
	ch <- reply
}

func (r *Remote) forget(seq uint32) {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.pending, seq)
}

func (r *Remote) abort() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.closed = true
	for seq, ch := range r.pending {
		close(ch)
		delete(r.pending, seq)
	}
}

func toUint32s(values []uint16) []uint32 {
	out := make([]uint32, len(values))
	for n, v := range values {
		out[n] = uint32(v)
	}
	return out
}

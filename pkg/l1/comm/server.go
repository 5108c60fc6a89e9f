package comm

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"
	"golang.org/x/time/rate"

	l0 "github.com/robotalks/servo2040/pkg/l0/comm"
	"github.com/robotalks/servo2040/pkg/l1"
	"github.com/robotalks/servo2040/pkg/l1/msgs"
)

// Server executes RegisterRequests against Registers.
type Server struct {
	Registers l1.Registers
	// Limiter throttles requests when set, protecting the serial link from
	// flooding peers.
	Limiter *rate.Limiter
	// Timeout bounds the execution of a single request, 0 for no limit.
	Timeout time.Duration
	// Observer is notified after each handled request.
	Observer ServerObserver
}

// ServerObserver is notified after a request is handled.
type ServerObserver interface {
	ObserveReply(req *msgs.RegisterRequest, reply *msgs.RegisterReply, elapsed time.Duration)
}

// NewServer creates a Server.
func NewServer(regs l1.Registers) *Server {
	return &Server{Registers: regs}
}

// WithRateLimit limits requests per second with burst.
func (s *Server) WithRateLimit(perSec float64, burst int) *Server {
	if perSec > 0 {
		if burst < 1 {
			burst = 1
		}
		s.Limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
	return s
}

// Handle executes a request.
func (s *Server) Handle(ctx context.Context, req *msgs.RegisterRequest) *msgs.RegisterReply {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	began := time.Now()
	values, err := s.execute(ctx, req)
	if err != nil {
		glog.Errorf("request #%d %s %d: %v", req.Seq, req.Op, req.Index, err)
	}
	reply := msgs.NewReply(req, values, err)
	if o := s.Observer; o != nil {
		o.ObserveReply(req, reply, time.Since(began))
	}
	return reply
}

func (s *Server) execute(ctx context.Context, req *msgs.RegisterRequest) ([]uint16, error) {
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	start, err := req.Start()
	if err != nil {
		return nil, err
	}
	switch req.Op {
	case msgs.OpGet:
		return s.Registers.Get(ctx, start, int(req.Count))
	case msgs.OpSet, msgs.OpVerify:
		values, err := req.Uint16s()
		if err != nil {
			return nil, err
		}
		if req.Op == msgs.OpSet {
			return nil, s.Registers.Set(ctx, start, values...)
		}
		tolerance := l0.MaxValue
		if req.Tolerance < uint32(tolerance) {
			tolerance = uint16(req.Tolerance)
		}
		return nil, s.Registers.SetThenVerify(ctx, start, values, tolerance)
	}
	return nil, msgs.ErrUnsupportedOp
}

// Serve reads requests from rw and writes back replies until rw is
// closed or ctx is done. Requests are executed one at a time.
func (s *Server) Serve(ctx context.Context, rw PacketReadWriter) error {
	for {
		pkt, err := rw.ReadPacket()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err = ctx.Err(); err != nil {
			return err
		}
		req, err := msgs.DecodeRequest(pkt)
		if err != nil {
			glog.Warningf("drop undecodable request: %v", err)
			continue
		}
		glog.V(2).Infof("REQ %s", req)
		reply, err := s.Handle(ctx, req).Encode()
		if err != nil {
			return err
		}
		if err = rw.WritePacket(reply); err != nil {
			return err
		}
	}
}

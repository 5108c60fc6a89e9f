package comm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	l0 "github.com/robotalks/servo2040/pkg/l0/comm"
	"github.com/robotalks/servo2040/pkg/l0/regmap"
	"github.com/robotalks/servo2040/pkg/l0/sim"
	"github.com/robotalks/servo2040/pkg/l1/msgs"
)

func newSimLocal() (*Local, *sim.Servo2040, *sim.Device) {
	regs := sim.NewServo2040()
	dev := sim.NewDevice(regs)
	local := NewLocal(l0.NewClient(sim.NewTransport(dev), l0.DefaultConfig()))
	local.Retry.Backoff = time.Millisecond
	return local, regs, dev
}

func TestLocal(t *testing.T) {
	local, regs, dev := newSimLocal()
	ctx := context.Background()
	require.NoError(t, local.Set(ctx, 0, 1600))
	require.Equal(t, uint16(1600), regs.Pulse(0))

	dev.DropResponses = 1
	values, err := local.Get(ctx, 0, 2)
	require.NoError(t, err)
	require.Equal(t, []uint16{1600, 0}, values)

	require.ErrorIs(t, local.SetThenVerify(ctx, 1, []uint16{100}, 0), l0.ErrVerifyMismatch)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	require.Equal(t, context.Canceled, local.Set(canceled, 0, 1500))
}

func TestServerHandle(t *testing.T) {
	local, regs, _ := newSimLocal()
	s := NewServer(local)
	ctx := context.Background()

	reply := s.Handle(ctx, &msgs.RegisterRequest{Seq: 1, Op: msgs.OpSet, Index: uint32(regmap.OutputBase), Values: []uint32{1}})
	require.Equal(t, uint32(1), reply.Seq)
	require.NoError(t, reply.Err())
	require.True(t, regs.Output(0))

	reply = s.Handle(ctx, &msgs.RegisterRequest{Seq: 2, Op: msgs.OpGet, Index: uint32(regmap.OutputBase), Count: 3})
	require.NoError(t, reply.Err())
	require.Equal(t, []uint32{1, 0, 0}, reply.Values)

	reply = s.Handle(ctx, &msgs.RegisterRequest{Seq: 3, Op: msgs.OpVerify, Index: 2, Values: []uint32{1490}, Tolerance: 5})
	require.NoError(t, reply.Err())

	testCases := []struct {
		req  *msgs.RegisterRequest
		code string
	}{
		{&msgs.RegisterRequest{Op: msgs.OpGet, Index: 125, Count: 4}, msgs.CodeInvalidRange},
		{&msgs.RegisterRequest{Op: msgs.OpGet, Index: 200, Count: 1}, msgs.CodeInvalidRange},
		{&msgs.RegisterRequest{Op: msgs.OpSet, Index: 0, Values: []uint32{20000}}, msgs.CodeValueOutOfRange},
		{&msgs.RegisterRequest{Op: msgs.OpVerify, Index: 32, Values: []uint32{0xfff}}, msgs.CodeVerifyMismatch},
		{&msgs.RegisterRequest{Op: msgs.Op(9), Index: 0}, msgs.CodeUnsupportedOp},
	}
	for _, tc := range testCases {
		reply = s.Handle(ctx, tc.req)
		require.Error(t, reply.Err(), "%s", tc.req)
		require.Equal(t, tc.code, reply.Code, "%s", tc.req)
	}
}

func TestServerRateLimit(t *testing.T) {
	local, _, _ := newSimLocal()
	s := NewServer(local).WithRateLimit(1, 1)
	require.NotNil(t, s.Limiter)
	ctx := context.Background()
	req := &msgs.RegisterRequest{Op: msgs.OpGet, Index: 0, Count: 1}
	require.NoError(t, s.Handle(ctx, req).Err())

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	reply := s.Handle(ctx, req)
	require.Error(t, reply.Err())
	require.Equal(t, msgs.CodeError, reply.Code)
}

func TestRemoteOverPipe(t *testing.T) {
	local, regs, _ := newSimLocal()
	a, b := NewPipe()
	defer a.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewServer(local)
	go s.Serve(ctx, b)
	remote := NewRemote(a)
	go remote.Run(ctx)

	require.NoError(t, remote.Set(ctx, regmap.LEDBase, regmap.PackRGB(0xff, 0, 0)))
	r, _, _ := regs.LED(0)
	require.Equal(t, uint8(0xf0), r)

	regs.SetVoltageRaw(3000)
	values, err := remote.Get(ctx, regmap.VoltageReg, 1)
	require.NoError(t, err)
	require.Equal(t, []uint16{3000}, values)

	require.NoError(t, remote.SetThenVerify(ctx, 4, []uint16{1700}, 0))
	err = remote.SetThenVerify(ctx, regmap.LEDBase, []uint16{1}, 0)
	require.ErrorIs(t, err, l0.ErrVerifyMismatch)

	_, err = remote.Get(ctx, 127, 2)
	require.ErrorIs(t, err, l0.ErrInvalidRegisterRange)
	err = remote.Set(ctx, 127, 1, 2)
	require.ErrorIs(t, err, l0.ErrInvalidRegisterRange)
}

func TestRemoteTimeoutAndClose(t *testing.T) {
	a, b := NewPipe()
	remote := NewRemote(a)
	remote.Timeout = 20 * time.Millisecond
	done := make(chan error, 1)
	go func() { done <- remote.Run(context.Background()) }()

	_, err := remote.Get(context.Background(), 0, 1)
	require.Equal(t, context.DeadlineExceeded, err)
	pkt, err := b.ReadPacket()
	require.NoError(t, err)
	req, err := msgs.DecodeRequest(pkt)
	require.NoError(t, err)
	require.Equal(t, uint32(1), req.Seq)

	// late reply is dropped
	late, err := msgs.NewReply(req, []uint16{1}, nil).Encode()
	require.NoError(t, err)
	require.NoError(t, b.WritePacket(late))

	b.Close()
	require.NoError(t, <-done)
	_, err = remote.Get(context.Background(), 0, 1)
	require.Error(t, err)
}

package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	l0 "github.com/robotalks/servo2040/pkg/l0/comm"
	"github.com/robotalks/servo2040/pkg/l0/sim"
	"github.com/robotalks/servo2040/pkg/l1/comm"
	"github.com/robotalks/servo2040/pkg/l1/msgs"
)

func TestSerialMetrics(t *testing.T) {
	m := New(NewRegistry())
	dev := sim.NewDevice(sim.NewServo2040())
	client := l0.NewClient(sim.NewTransport(dev), l0.DefaultConfig())
	client.Observer = m

	require.NoError(t, client.Set(0, 1500, 1600, 1700))
	dev.DropResponses = 1
	_, err := client.Get(0, 2)
	require.ErrorIs(t, err, l0.ErrShortRead)
	values, err := client.Get(0, 2)
	require.NoError(t, err)
	require.Equal(t, []uint16{1500, 1600}, values)

	require.Equal(t, 1.0, testutil.ToFloat64(m.SerialRequests.WithLabelValues("SET", ResultOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SerialRequests.WithLabelValues("GET", ResultOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SerialRequests.WithLabelValues("GET", msgs.CodeShortRead)))
	require.Equal(t, 3.0, testutil.ToFloat64(m.SerialRegisters.WithLabelValues("SET")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.SerialRegisters.WithLabelValues("GET")))
}

func TestBridgeMetrics(t *testing.T) {
	m := New(NewRegistry())
	local := comm.NewLocal(l0.NewClient(sim.NewTransport(sim.NewDevice(sim.NewServo2040())), l0.DefaultConfig()))
	local.Retry.Backoff = time.Millisecond
	s := comm.NewServer(local)
	s.Observer = m

	ctx := context.Background()
	reply := s.Handle(ctx, &msgs.RegisterRequest{Seq: 1, Op: msgs.OpSet, Index: 0, Values: []uint32{1500}})
	require.NoError(t, reply.Err())
	reply = s.Handle(ctx, &msgs.RegisterRequest{Seq: 2, Op: msgs.OpGet, Index: 125, Count: 5})
	require.Error(t, reply.Err())

	require.Equal(t, 1.0, testutil.ToFloat64(m.BridgeRequests.WithLabelValues("SET", ResultOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.BridgeRequests.WithLabelValues("GET", msgs.CodeInvalidRange)))
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.ObserveRequest(l0.CmdSet, 0, 1, nil, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `servo2040_serial_requests_total{cmd="SET",result="ok"} 1`))
	require.True(t, strings.Contains(body, "go_goroutines"))
}

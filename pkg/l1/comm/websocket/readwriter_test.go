package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	l0 "github.com/robotalks/servo2040/pkg/l0/comm"
	"github.com/robotalks/servo2040/pkg/l0/sim"
	"github.com/robotalks/servo2040/pkg/l1/comm"
)

func TestHandler(t *testing.T) {
	regs := sim.NewServo2040()
	local := comm.NewLocal(l0.NewClient(sim.NewTransport(sim.NewDevice(regs)), l0.DefaultConfig()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(Handler(ctx, comm.NewServer(local)))
	defer srv.Close()

	rw, err := Dial("ws"+strings.TrimPrefix(srv.URL, "http"), srv.URL)
	require.NoError(t, err)
	defer rw.Close()
	remote := comm.NewRemote(rw)
	go remote.Run(ctx)

	require.NoError(t, remote.Set(ctx, 0, 2100, 900))
	require.Equal(t, uint16(2100), regs.Pulse(0))
	values, err := remote.Get(ctx, 0, 2)
	require.NoError(t, err)
	require.Equal(t, []uint16{2100, 900}, values)
}

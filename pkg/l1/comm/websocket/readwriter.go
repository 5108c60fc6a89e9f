// Package websocket carries packets as binary websocket messages.
package websocket

import (
	"context"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/servo2040/pkg/framework"
	"github.com/robotalks/servo2040/pkg/l1/comm"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects to a websocket endpoint.
func Dial(url, origin string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close closes the connection.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// Handler serves requests from websocket clients until ctx is done.
func Handler(ctx context.Context, s *comm.Server) websocket.Handler {
	return func(conn *websocket.Conn) {
		rw := New(conn)
		glog.Infof("websocket client %s connected", conn.Request().RemoteAddr)
		err := fx.RunWithContextCloser(ctx, rw, func() error {
			return s.Serve(ctx, rw)
		})
		glog.Infof("websocket client %s disconnected: %v", conn.Request().RemoteAddr, err)
	}
}

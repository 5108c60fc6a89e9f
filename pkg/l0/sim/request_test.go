package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/servo2040/pkg/l0/comm"
)

func parseAll(p *RequestParser, data []byte) (frames []*comm.Frame) {
	for _, b := range data {
		if f := p.Parse(b); f != nil {
			frames = append(frames, f)
		}
	}
	return
}

func TestParseRequests(t *testing.T) {
	var p RequestParser
	set, err := comm.BuildSet(3, []uint16{1500, 16383})
	require.NoError(t, err)
	get, err := comm.BuildGet(28, 2)
	require.NoError(t, err)
	frames := parseAll(&p, append(set, get...))
	require.Len(t, frames, 2)
	require.Equal(t, comm.SetFrame(3, 1500, 16383), frames[0])
	require.Equal(t, comm.CmdGet, frames[1].Command)
	require.Equal(t, byte(28), frames[1].Start)
	require.Equal(t, 2, frames[1].Count)
}

func TestParseResyncOnCommand(t *testing.T) {
	var p RequestParser
	// truncated SET followed by a complete GET
	data := []byte{0xd3, 0, 2, 0x5c, 0x0b, 0xc7, 5, 1}
	frames := parseAll(&p, data)
	require.Len(t, frames, 1)
	require.Equal(t, comm.CmdGet, frames[0].Command)
	require.Equal(t, byte(5), frames[0].Start)
}

func TestParseIgnoresGarbage(t *testing.T) {
	var p RequestParser
	frames := parseAll(&p, []byte("hello\r\n"))
	require.Empty(t, frames)
	// unknown command swallows its arguments
	frames = parseAll(&p, []byte{0xc1, 1, 1, 0xc7, 1, 1})
	require.Len(t, frames, 1)
	require.Equal(t, byte(1), frames[0].Start)
}

func TestParseZeroCountSet(t *testing.T) {
	var p RequestParser
	frames := parseAll(&p, []byte{0xd3, 4, 0})
	require.Len(t, frames, 1)
	require.Equal(t, 0, frames[0].Count)
	require.Empty(t, frames[0].Values)
}

func TestParseReset(t *testing.T) {
	var p RequestParser
	require.Nil(t, p.Parse(0xc7))
	require.Nil(t, p.Parse(1))
	p.Reset()
	require.Nil(t, p.Parse(1))
	require.Empty(t, parseAll(&p, []byte{2, 3}))
}

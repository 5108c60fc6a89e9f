// Package sim emulates boards speaking the L0 register protocol.
package sim

import "github.com/robotalks/servo2040/pkg/l0/comm"

// RequestParser parses request frames on the device side.
type RequestParser struct {
	state parseState
	frame *comm.Frame
	lo    byte
}

type parseState int

const (
	stateIdle    parseState = iota // waiting for command
	stateIndex                     // waiting for start index
	stateCount                     // waiting for count
	stateValueLo                   // waiting for low 7 bits of a value
	stateValueHi                   // waiting for high 7 bits of a value
)

// Parse consumes one byte and returns a frame once it's complete.
// A byte with the high bit set always starts over, so a truncated frame
// is dropped when the next command arrives.
func (p *RequestParser) Parse(b byte) *comm.Frame {
	if comm.IsCommand(b) {
		p.frame, p.state = nil, stateIdle
		switch cmd := comm.Command(b); cmd {
		case comm.CmdSet, comm.CmdGet:
			p.frame = &comm.Frame{Command: cmd}
			p.state = stateIndex
		}
		return nil
	}
	switch p.state {
	case stateIndex:
		p.frame.Start = b
		p.state = stateCount
	case stateCount:
		p.frame.Count = int(b)
		if p.frame.Command == comm.CmdGet || b == 0 {
			return p.frameReady()
		}
		p.frame.Values = make([]uint16, 0, b)
		p.state = stateValueLo
	case stateValueLo:
		p.lo, p.state = b, stateValueHi
	case stateValueHi:
		p.frame.Values = append(p.frame.Values, comm.DecodeValue(p.lo, b))
		if len(p.frame.Values) >= p.frame.Count {
			return p.frameReady()
		}
		p.state = stateValueLo
	}
	return nil
}

// Reset drops any partially received frame.
func (p *RequestParser) Reset() {
	p.frame, p.state = nil, stateIdle
}

func (p *RequestParser) frameReady() (f *comm.Frame) {
	f, p.frame, p.state = p.frame, nil, stateIdle
	return
}

package comm

import (
	"fmt"
	"io"
)

// Command is the first byte of a frame. The high bit is always set and
// distinguishes commands from data bytes and log text on the line.
type Command byte

// Commands.
const (
	CmdSet Command = 'S' | 0x80
	CmdGet Command = 'G' | 0x80
)

// IsCommand tells whether b starts a frame.
func IsCommand(b byte) bool {
	return b&0x80 != 0
}

func (c Command) String() string {
	switch c {
	case CmdSet:
		return "SET"
	case CmdGet:
		return "GET"
	}
	return fmt.Sprintf("CMD(0x%02x)", byte(c))
}

// Frame is a single request on the wire.
type Frame struct {
	Command Command
	Start   byte
	// Count is the number of registers, for SET it equals len(Values).
	Count  int
	Values []uint16
}

// SetFrame creates a SET frame.
func SetFrame(start byte, values ...uint16) *Frame {
	return &Frame{Command: CmdSet, Start: start, Count: len(values), Values: values}
}

// GetFrame creates a GET frame.
func GetFrame(start byte, count int) *Frame {
	return &Frame{Command: CmdGet, Start: start, Count: count}
}

// Validate checks the register block and values.
func (f *Frame) Validate() error {
	if err := ValidateRange(f.Start, f.Count); err != nil {
		return err
	}
	if f.Command == CmdSet {
		if len(f.Values) != f.Count {
			return &RangeError{Start: f.Start, Count: len(f.Values)}
		}
		for n, v := range f.Values {
			if v > MaxValue {
				return &ValueError{Pos: n, Value: v}
			}
		}
	}
	return nil
}

// Bytes returns encoded bytes for sending. The frame must be valid.
func (f *Frame) Bytes() []byte {
	b := make([]byte, 3, 3+2*len(f.Values))
	b[0], b[1], b[2] = byte(f.Command), f.Start, byte(f.Count)
	if f.Command == CmdSet {
		for _, v := range f.Values {
			lo, hi := EncodeValue(v)
			b = append(b, lo, hi)
		}
	}
	return b
}

// WriteTo writes encoded bytes in a single Write.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	return int64(n), err
}

// ValidateRange checks 1 <= count and start+count-1 <= MaxIndex.
func ValidateRange(start byte, count int) error {
	if count < 1 || count > MaxCount || int(start)+count-1 > MaxIndex {
		return &RangeError{Start: start, Count: count}
	}
	return nil
}

// BuildSet encodes a SET frame writing values to consecutive registers.
func BuildSet(start byte, values []uint16) ([]byte, error) {
	f := SetFrame(start, values...)
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f.Bytes(), nil
}

// BuildGet encodes a GET frame reading count consecutive registers.
func BuildGet(start byte, count int) ([]byte, error) {
	f := GetFrame(start, count)
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f.Bytes(), nil
}

package comm

import (
	"bytes"
	"fmt"
)

// Layout defines the shape of a GET response.
type Layout int

const (
	// LayoutEchoHeader echoes command, index and count before the values.
	LayoutEchoHeader Layout = iota
	// LayoutLegacy only echoes the command byte before the values.
	LayoutLegacy
)

func (l Layout) String() string {
	if l == LayoutLegacy {
		return "legacy"
	}
	return "echo"
}

// ParseLayout parses the name returned by Layout.String.
func ParseLayout(name string) (Layout, error) {
	switch name {
	case "echo", "":
		return LayoutEchoHeader, nil
	case "legacy":
		return LayoutLegacy, nil
	}
	return LayoutEchoHeader, fmt.Errorf("unknown layout %q", name)
}

// HeaderLen returns the number of bytes before the values.
func (l Layout) HeaderLen() int {
	if l == LayoutLegacy {
		return 1
	}
	return 3
}

// ResponseLen returns the length of a response carrying count values.
func (l Layout) ResponseLen(count int) int {
	return l.HeaderLen() + 2*count
}

// prefix is the leading signature of a response for index.
func (l Layout) prefix(index byte) []byte {
	if l == LayoutLegacy {
		return []byte{byte(CmdGet)}
	}
	return []byte{byte(CmdGet), index}
}

// locate returns the offset of the first response signature in buf or -1.
func (l Layout) locate(buf []byte, index byte) int {
	return bytes.Index(buf, l.prefix(index))
}

// ParseGetResponse validates a GET response and decodes the values.
// buf holds whatever the transport delivered before timeout, a shorter
// buffer fails with ErrShortRead. No values are returned on error.
func ParseGetResponse(buf []byte, index byte, count int, layout Layout) ([]uint16, error) {
	if err := ValidateRange(index, count); err != nil {
		return nil, err
	}
	want := layout.ResponseLen(count)
	if len(buf) < want {
		return nil, &ShortReadError{Want: want, Got: len(buf)}
	}
	if buf[0] != byte(CmdGet) {
		return nil, &EchoError{Field: EchoCommand, Want: byte(CmdGet), Got: buf[0]}
	}
	if layout == LayoutEchoHeader {
		if buf[1] != index {
			return nil, &EchoError{Field: EchoIndex, Want: index, Got: buf[1]}
		}
		if int(buf[2]) != count {
			return nil, &EchoError{Field: EchoCount, Want: byte(count), Got: buf[2]}
		}
	}
	payload := buf[layout.HeaderLen():want]
	values := make([]uint16, count)
	for n := range values {
		values[n] = DecodeValue(payload[2*n], payload[2*n+1])
	}
	return values, nil
}

// ResponseBytes encodes a GET response, used by device emulators.
func ResponseBytes(index byte, values []uint16, layout Layout) []byte {
	b := make([]byte, 0, layout.ResponseLen(len(values)))
	b = append(b, byte(CmdGet))
	if layout == LayoutEchoHeader {
		b = append(b, index, byte(len(values)))
	}
	for _, v := range values {
		lo, hi := EncodeValue(v)
		b = append(b, lo, hi)
	}
	return b
}

package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRegisterRange indicates the start index and count don't fit
	// in the register space.
	ErrInvalidRegisterRange = errors.New("invalid register range")
	// ErrValueOutOfRange indicates a value doesn't fit in 14 bits.
	ErrValueOutOfRange = errors.New("value out of range")
	// ErrShortRead indicates fewer bytes than expected arrived before timeout.
	ErrShortRead = errors.New("short read")
	// ErrUnexpectedEcho indicates the response doesn't echo the request
	// command or index.
	ErrUnexpectedEcho = errors.New("unexpected echo")
	// ErrCountMismatch indicates the response echoes a different count.
	ErrCountMismatch = errors.New("count mismatch")
	// ErrVerifyMismatch indicates a register doesn't hold the value written.
	ErrVerifyMismatch = errors.New("verify mismatch")
)

// RangeError reports an invalid register block.
type RangeError struct {
	Start byte
	Count int
}

// Error implements error.
func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid register range: start %d count %d", e.Start, e.Count)
}

// Is matches ErrInvalidRegisterRange.
func (e *RangeError) Is(target error) bool {
	return target == ErrInvalidRegisterRange
}

// ValueError reports a value exceeding MaxValue.
type ValueError struct {
	Pos   int
	Value uint16
}

// Error implements error.
func (e *ValueError) Error() string {
	return fmt.Sprintf("value out of range: values[%d] = %d (max %d)", e.Pos, e.Value, MaxValue)
}

// Is matches ErrValueOutOfRange.
func (e *ValueError) Is(target error) bool {
	return target == ErrValueOutOfRange
}

// ShortReadError reports a truncated response.
type ShortReadError struct {
	Want int
	Got  int
}

// Error implements error.
func (e *ShortReadError) Error() string {
	return fmt.Sprintf("short read: got %d of %d bytes", e.Got, e.Want)
}

// Is matches ErrShortRead.
func (e *ShortReadError) Is(target error) bool {
	return target == ErrShortRead
}

// EchoField names the response header field failing validation.
type EchoField int

// Echo fields.
const (
	EchoCommand EchoField = iota
	EchoIndex
	EchoCount
)

func (f EchoField) String() string {
	switch f {
	case EchoCommand:
		return "command"
	case EchoIndex:
		return "index"
	case EchoCount:
		return "count"
	}
	return "unknown"
}

// EchoError reports a response header not matching the request.
type EchoError struct {
	Field EchoField
	Want  byte
	Got   byte
}

// Error implements error.
func (e *EchoError) Error() string {
	if e.Field == EchoCount {
		return fmt.Sprintf("count mismatch: expected %d, got %d", e.Want, e.Got)
	}
	return fmt.Sprintf("unexpected echo: %s expected 0x%02x, got 0x%02x", e.Field, e.Want, e.Got)
}

// Is matches ErrCountMismatch for the count field and ErrUnexpectedEcho
// otherwise.
func (e *EchoError) Is(target error) bool {
	if e.Field == EchoCount {
		return target == ErrCountMismatch
	}
	return target == ErrUnexpectedEcho
}

// VerifyError reports a register read back with an unexpected value.
type VerifyError struct {
	Index byte
	Want  uint16
	Got   uint16
}

// Error implements error.
func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify mismatch: register %d expected %d, got %d", e.Index, e.Want, e.Got)
}

// Is matches ErrVerifyMismatch.
func (e *VerifyError) Is(target error) bool {
	return target == ErrVerifyMismatch
}

// IsLocal tells whether err is a local argument error which never reached
// the wire.
func IsLocal(err error) bool {
	return errors.Is(err, ErrInvalidRegisterRange) || errors.Is(err, ErrValueOutOfRange)
}

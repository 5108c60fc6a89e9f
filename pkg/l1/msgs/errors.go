package msgs

import (
	"errors"
	"fmt"

	"github.com/robotalks/servo2040/pkg/l0/comm"
)

// Error codes carried in RegisterReply.
const (
	CodeInvalidRange    = "invalid_range"
	CodeValueOutOfRange = "value_out_of_range"
	CodeShortRead       = "short_read"
	CodeUnexpectedEcho  = "unexpected_echo"
	CodeCountMismatch   = "count_mismatch"
	CodeVerifyMismatch  = "verify_mismatch"
	CodeUnsupportedOp   = "unsupported_op"
	CodeError           = "error"
)

var (
	// ErrUnsupportedOp indicates the op in request is unknown.
	ErrUnsupportedOp = errors.New("unsupported op")
	// ErrRemote is matched by errors reported by the bridge without a
	// more specific code.
	ErrRemote = errors.New("remote error")
)

var codeErrors = []struct {
	code string
	err  error
}{
	{CodeInvalidRange, comm.ErrInvalidRegisterRange},
	{CodeValueOutOfRange, comm.ErrValueOutOfRange},
	{CodeShortRead, comm.ErrShortRead},
	{CodeUnexpectedEcho, comm.ErrUnexpectedEcho},
	{CodeCountMismatch, comm.ErrCountMismatch},
	{CodeVerifyMismatch, comm.ErrVerifyMismatch},
	{CodeUnsupportedOp, ErrUnsupportedOp},
}

// ErrorCode classifies err into a reply code.
func ErrorCode(err error) string {
	for _, ce := range codeErrors {
		if errors.Is(err, ce.err) {
			return ce.code
		}
	}
	return CodeError
}

// NewReply creates a reply to req, with err recorded if not nil.
func NewReply(req *RegisterRequest, values []uint16, err error) *RegisterReply {
	reply := &RegisterReply{Seq: req.Seq}
	if err != nil {
		reply.Error, reply.Code = err.Error(), ErrorCode(err)
		return reply
	}
	if len(values) > 0 {
		reply.Values = make([]uint32, len(values))
		for n, v := range values {
			reply.Values[n] = uint32(v)
		}
	}
	return reply
}

// ReplyError is the error reported in a reply, matching the sentinel of
// its code with errors.Is.
type ReplyError struct {
	Code    string
	Message string
}

// Error implements error.
func (e *ReplyError) Error() string {
	return e.Message
}

// Is matches the sentinel of the code.
func (e *ReplyError) Is(target error) bool {
	for _, ce := range codeErrors {
		if ce.code == e.Code {
			return target == ce.err
		}
	}
	return target == ErrRemote
}

// Err returns the error in reply or nil.
func (m *RegisterReply) Err() error {
	if m.Error == "" && m.Code == "" {
		return nil
	}
	return &ReplyError{Code: m.Code, Message: m.Error}
}

// Uint16s returns Values as register values.
func (m *RegisterReply) Uint16s() []uint16 {
	values := make([]uint16, len(m.Values))
	for n, v := range m.Values {
		values[n] = uint16(v)
	}
	return values
}

// Uint16s converts request Values into register values.
func (m *RegisterRequest) Uint16s() ([]uint16, error) {
	values := make([]uint16, len(m.Values))
	for n, v := range m.Values {
		if v > uint32(comm.MaxValue) {
			return nil, fmt.Errorf("values[%d] = %d: %w", n, v, comm.ErrValueOutOfRange)
		}
		values[n] = uint16(v)
	}
	return values, nil
}

// Start converts Index into a register index.
func (m *RegisterRequest) Start() (byte, error) {
	if m.Index > comm.MaxIndex {
		return 0, fmt.Errorf("index %d: %w", m.Index, comm.ErrInvalidRegisterRange)
	}
	return byte(m.Index), nil
}

package msgs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/servo2040/pkg/l0/comm"
)

func TestRequestEncoding(t *testing.T) {
	req := &RegisterRequest{Seq: 7, Op: OpVerify, Index: 32, Values: []uint32{0xf00, 0}, Tolerance: 2}
	data, err := req.Encode()
	require.NoError(t, err)
	decoded, err := DecodeRequest(data)
	require.NoError(t, err)
	require.Equal(t, req, decoded)

	_, err = DecodeRequest([]byte{0xff, 0xff})
	require.Error(t, err)
}

func TestReplyEncoding(t *testing.T) {
	reply := NewReply(&RegisterRequest{Seq: 3}, []uint16{1500, 16383}, nil)
	data, err := reply.Encode()
	require.NoError(t, err)
	decoded, err := DecodeReply(data)
	require.NoError(t, err)
	require.Equal(t, uint32(3), decoded.Seq)
	require.Equal(t, []uint16{1500, 16383}, decoded.Uint16s())
	require.NoError(t, decoded.Err())
}

func TestErrorCodes(t *testing.T) {
	testCases := []struct {
		err  error
		code string
	}{
		{&comm.RangeError{Start: 125, Count: 4}, CodeInvalidRange},
		{&comm.ValueError{Pos: 0, Value: 16384}, CodeValueOutOfRange},
		{fmt.Errorf("get: %w", &comm.ShortReadError{Want: 5, Got: 3}), CodeShortRead},
		{&comm.EchoError{Field: comm.EchoIndex, Want: 1, Got: 2}, CodeUnexpectedEcho},
		{&comm.EchoError{Field: comm.EchoCount, Want: 1, Got: 2}, CodeCountMismatch},
		{&comm.VerifyError{Index: 1, Want: 2, Got: 3}, CodeVerifyMismatch},
		{ErrUnsupportedOp, CodeUnsupportedOp},
		{errors.New("port closed"), CodeError},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.code, ErrorCode(tc.err), "%v", tc.err)
		reply := NewReply(&RegisterRequest{Seq: 1}, []uint16{1}, tc.err)
		require.Empty(t, reply.Values)
		err := reply.Err()
		require.Error(t, err)
		require.Equal(t, tc.err.Error(), err.Error())
		require.Equal(t, tc.code, ErrorCode(err))
	}
	err := (&RegisterReply{Code: CodeError, Error: "boom"}).Err()
	require.ErrorIs(t, err, ErrRemote)
	require.ErrorIs(t, (&RegisterReply{Code: CodeShortRead}).Err(), comm.ErrShortRead)
}

func TestRequestConversion(t *testing.T) {
	req := &RegisterRequest{Index: 128}
	_, err := req.Start()
	require.ErrorIs(t, err, comm.ErrInvalidRegisterRange)
	req.Index = 5
	start, err := req.Start()
	require.NoError(t, err)
	require.Equal(t, byte(5), start)

	req.Values = []uint32{1, 16384}
	_, err = req.Uint16s()
	require.ErrorIs(t, err, comm.ErrValueOutOfRange)
	req.Values = []uint32{1, 16383}
	values, err := req.Uint16s()
	require.NoError(t, err)
	require.Equal(t, []uint16{1, 16383}, values)
	require.Equal(t, "VERIFY", OpVerify.String())
}

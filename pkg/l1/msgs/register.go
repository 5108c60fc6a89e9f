package msgs

import (
	"fmt"

	"github.com/golang/protobuf/proto"
)

// Op is the register operation requested.
type Op int32

// Ops.
const (
	OpGet    Op = 0
	OpSet    Op = 1
	OpVerify Op = 2
)

var opNames = map[Op]string{
	OpGet:    "GET",
	OpSet:    "SET",
	OpVerify: "VERIFY",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("OP(%d)", int32(o))
}

// RegisterRequest asks the bridge to access registers. Count is only used
// by GET, SET and VERIFY write Values.
type RegisterRequest struct {
	Seq       uint32   `protobuf:"varint,1,opt,name=seq,proto3" json:"seq,omitempty"`
	Op        Op       `protobuf:"varint,2,opt,name=op,proto3" json:"op,omitempty"`
	Index     uint32   `protobuf:"varint,3,opt,name=index,proto3" json:"index,omitempty"`
	Count     uint32   `protobuf:"varint,4,opt,name=count,proto3" json:"count,omitempty"`
	Values    []uint32 `protobuf:"varint,5,rep,packed,name=values,proto3" json:"values,omitempty"`
	Tolerance uint32   `protobuf:"varint,6,opt,name=tolerance,proto3" json:"tolerance,omitempty"`
}

// Reset implements proto.Message.
func (m *RegisterRequest) Reset() { *m = RegisterRequest{} }

// String implements proto.Message.
func (m *RegisterRequest) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*RegisterRequest) ProtoMessage() {}

// RegisterReply answers a RegisterRequest with the same Seq. Values are
// set for GET, Error and Code are set on failure.
type RegisterReply struct {
	Seq    uint32   `protobuf:"varint,1,opt,name=seq,proto3" json:"seq,omitempty"`
	Values []uint32 `protobuf:"varint,2,rep,packed,name=values,proto3" json:"values,omitempty"`
	Error  string   `protobuf:"bytes,3,opt,name=error,proto3" json:"error,omitempty"`
	Code   string   `protobuf:"bytes,4,opt,name=code,proto3" json:"code,omitempty"`
}

// Reset implements proto.Message.
func (m *RegisterReply) Reset() { *m = RegisterReply{} }

// String implements proto.Message.
func (m *RegisterReply) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*RegisterReply) ProtoMessage() {}

// Encode encodes the request to bytes.
func (m *RegisterRequest) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// Encode encodes the reply to bytes.
func (m *RegisterReply) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeRequest decodes bytes into RegisterRequest.
func DecodeRequest(data []byte) (*RegisterRequest, error) {
	var req RegisterRequest
	if err := proto.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// DecodeReply decodes bytes into RegisterReply.
func DecodeReply(data []byte) (*RegisterReply, error) {
	var reply RegisterReply
	if err := proto.Unmarshal(data, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

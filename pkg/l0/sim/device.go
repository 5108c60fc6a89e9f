package sim

import (
	"sync"

	"github.com/golang/glog"
	"github.com/robotalks/servo2040/pkg/l0/comm"
)

// MaxValues is the most registers the firmware handles in one frame.
const MaxValues = 32

// Registers is the register file of an emulated board.
type Registers interface {
	ReadRegister(index int) uint16
	WriteRegister(index int, v uint16)
}

// Device runs the firmware command loop on top of Registers.
type Device struct {
	Registers Registers
	// Layout of GET responses.
	Layout comm.Layout
	// Noise is emitted before every GET response, like log text
	// printed by firmware.
	Noise []byte
	// DropResponses is the number of upcoming GET requests left unanswered.
	DropResponses int

	lock   sync.Mutex
	parser RequestParser
}

// NewDevice creates a Device.
func NewDevice(regs Registers) *Device {
	return &Device{Registers: regs}
}

// Receive consumes bytes from the host and returns bytes sent back.
func (d *Device) Receive(p []byte) (out []byte) {
	d.lock.Lock()
	defer d.lock.Unlock()
	for _, b := range p {
		if f := d.parser.Parse(b); f != nil {
			out = append(out, d.handle(f)...)
		}
	}
	return
}

func (d *Device) handle(f *comm.Frame) []byte {
	if f.Count == 0 || f.Count > MaxValues {
		glog.V(2).Infof("sim: ignored %s with count %d", f.Command, f.Count)
		return nil
	}
	index := int(f.Start)
	switch f.Command {
	case comm.CmdSet:
		for n, v := range f.Values {
			if index+n <= comm.MaxIndex {
				d.Registers.WriteRegister(index+n, v)
			}
		}
	case comm.CmdGet:
		values := make([]uint16, f.Count)
		for n := range values {
			if index+n <= comm.MaxIndex {
				values[n] = d.Registers.ReadRegister(index + n)
			}
		}
		if d.DropResponses > 0 {
			d.DropResponses--
			return nil
		}
		return append(append([]byte(nil), d.Noise...), comm.ResponseBytes(f.Start, values, d.Layout)...)
	}
	return nil
}

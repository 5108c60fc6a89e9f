// Package regmap defines the register layouts of the boards speaking the
// L0 register protocol.
package regmap

import (
	"fmt"
	"sort"

	"github.com/robotalks/servo2040/pkg/l0/comm"
)

// Peripheral identifies a group of registers.
type Peripheral int

// Peripherals.
const (
	GPIODirection Peripheral = iota + 1
	GPIOValue
	Servo
	Output
	Touch
	Current
	Voltage
	LED
)

var peripheralNames = map[Peripheral]string{
	GPIODirection: "gpio-dir",
	GPIOValue:     "gpio",
	Servo:         "servo",
	Output:        "out",
	Touch:         "touch",
	Current:       "current",
	Voltage:       "voltage",
	LED:           "led",
}

func (p Peripheral) String() string {
	if name, ok := peripheralNames[p]; ok {
		return name
	}
	return fmt.Sprintf("peripheral(%d)", int(p))
}

// ParsePeripheral converts the name printed by String back.
func ParsePeripheral(name string) (Peripheral, error) {
	for p, n := range peripheralNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown peripheral %q", name)
}

// Block is a contiguous range of registers, one per channel.
type Block struct {
	Peripheral Peripheral
	Base       byte
	Channels   int
	// ReadOnly blocks are sensors, writes are ignored by firmware.
	ReadOnly bool
}

// Last returns the index of the last channel.
func (b Block) Last() byte {
	return b.Base + byte(b.Channels-1)
}

// Contains tells whether index falls into the block.
func (b Block) Contains(index byte) bool {
	return index >= b.Base && int(index) < int(b.Base)+b.Channels
}

// ChannelError reports a channel outside of a block.
type ChannelError struct {
	Peripheral Peripheral
	Channel    int
}

// Error implements error.
func (e *ChannelError) Error() string {
	return fmt.Sprintf("invalid %s channel %d", e.Peripheral, e.Channel)
}

// Map is an immutable register layout.
type Map struct {
	name   string
	blocks []Block
}

// New creates a Map from blocks. It panics if blocks overlap or exceed
// the register space, as maps are built from constants.
func New(name string, blocks ...Block) *Map {
	m := &Map{name: name, blocks: append([]Block(nil), blocks...)}
	sort.Slice(m.blocks, func(i, j int) bool { return m.blocks[i].Base < m.blocks[j].Base })
	for n, b := range m.blocks {
		if err := comm.ValidateRange(b.Base, b.Channels); err != nil {
			panic(fmt.Sprintf("regmap %s: block %s: %v", name, b.Peripheral, err))
		}
		if n > 0 && m.blocks[n-1].Last() >= b.Base {
			panic(fmt.Sprintf("regmap %s: block %s overlaps %s", name, b.Peripheral, m.blocks[n-1].Peripheral))
		}
	}
	return m
}

// Name returns the name of the board.
func (m *Map) Name() string {
	return m.name
}

// Blocks returns all blocks ordered by base index.
func (m *Map) Blocks() []Block {
	return append([]Block(nil), m.blocks...)
}

// Block finds the block of a peripheral.
func (m *Map) Block(p Peripheral) (Block, bool) {
	for _, b := range m.blocks {
		if b.Peripheral == p {
			return b, true
		}
	}
	return Block{}, false
}

// Index returns the register index of a peripheral channel.
func (m *Map) Index(p Peripheral, ch int) (byte, error) {
	b, ok := m.Block(p)
	if !ok || ch < 0 || ch >= b.Channels {
		return 0, &ChannelError{Peripheral: p, Channel: ch}
	}
	return b.Base + byte(ch), nil
}

// MustIndex is Index which panics on error.
func (m *Map) MustIndex(p Peripheral, ch int) byte {
	index, err := m.Index(p, ch)
	if err != nil {
		panic(err)
	}
	return index
}

// Lookup finds the peripheral channel of a register index.
func (m *Map) Lookup(index byte) (Peripheral, int, bool) {
	for _, b := range m.blocks {
		if b.Contains(index) {
			return b.Peripheral, int(index - b.Base), true
		}
	}
	return 0, 0, false
}

// Servo2040 register layout.
const (
	NumServos  = 18
	NumOutputs = 3
	NumTouch   = 6
	NumLEDs    = 6

	ServoBase  byte = 0
	OutputBase byte = 19
	TouchBase  byte = 22
	CurrentReg byte = 28
	VoltageReg byte = 29
	LEDBase    byte = 32
)

// NumGPIOPins is the number of pins on a GPIO board.
const NumGPIOPins = 8

// Servo2040 is the layout of the servo2040 firmware.
var Servo2040 = New("servo2040",
	Block{Peripheral: Servo, Base: ServoBase, Channels: NumServos},
	Block{Peripheral: Output, Base: OutputBase, Channels: NumOutputs},
	Block{Peripheral: Touch, Base: TouchBase, Channels: NumTouch, ReadOnly: true},
	Block{Peripheral: Current, Base: CurrentReg, Channels: 1, ReadOnly: true},
	Block{Peripheral: Voltage, Base: VoltageReg, Channels: 1, ReadOnly: true},
	Block{Peripheral: LED, Base: LEDBase, Channels: NumLEDs},
)

// GPIOBoard is the layout of plain GPIO boards: a direction register
// (0 output, 1 input) and a value register per pin.
var GPIOBoard = New("gpio",
	Block{Peripheral: GPIODirection, Base: 0, Channels: NumGPIOPins},
	Block{Peripheral: GPIOValue, Base: NumGPIOPins, Channels: NumGPIOPins},
)

// Profiles lists the known layouts by name.
var Profiles = map[string]*Map{
	Servo2040.Name(): Servo2040,
	GPIOBoard.Name(): GPIOBoard,
}

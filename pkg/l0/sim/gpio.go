package sim

import (
	"sync"

	"github.com/robotalks/servo2040/pkg/l0/regmap"
)

// GPIO models a board exposing plain GPIO pins. Pins start as inputs.
type GPIO struct {
	lock   sync.Mutex
	input  [regmap.NumGPIOPins]bool
	levels [regmap.NumGPIOPins]bool
	// external levels seen on input pins
	external [regmap.NumGPIOPins]bool
}

// NewGPIO creates a GPIO board.
func NewGPIO() *GPIO {
	g := &GPIO{}
	for n := range g.input {
		g.input[n] = true
	}
	return g
}

// ReadRegister implements Registers.
func (g *GPIO) ReadRegister(index int) uint16 {
	g.lock.Lock()
	defer g.lock.Unlock()
	p, pin, ok := regmap.GPIOBoard.Lookup(byte(index))
	if !ok {
		return 0
	}
	var on bool
	switch p {
	case regmap.GPIODirection:
		on = g.input[pin]
	case regmap.GPIOValue:
		if g.input[pin] {
			on = g.external[pin]
		} else {
			on = g.levels[pin]
		}
	}
	if on {
		return 1
	}
	return 0
}

// WriteRegister implements Registers.
func (g *GPIO) WriteRegister(index int, v uint16) {
	g.lock.Lock()
	defer g.lock.Unlock()
	p, pin, ok := regmap.GPIOBoard.Lookup(byte(index))
	if !ok {
		return
	}
	switch p {
	case regmap.GPIODirection:
		g.input[pin] = v != 0
	case regmap.GPIOValue:
		g.levels[pin] = v != 0
	}
}

// IsOutput tells whether a pin is configured as output.
func (g *GPIO) IsOutput(pin int) bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	return !g.input[pin]
}

// Level returns the level driven on an output pin.
func (g *GPIO) Level(pin int) bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.levels[pin]
}

// SetExternal sets the level applied to a pin from outside.
func (g *GPIO) SetExternal(pin int, level bool) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.external[pin] = level
}

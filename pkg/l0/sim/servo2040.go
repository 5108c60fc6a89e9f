package sim

import (
	"sync"

	"github.com/robotalks/servo2040/pkg/l0/regmap"
)

// TouchScale converts touch sensor and voltage readings from volts to
// register values.
const TouchScale = 310.303

// Servo2040 models the registers of a servo2040 board.
type Servo2040 struct {
	lock    sync.Mutex
	pulses  [regmap.NumServos]uint16
	outputs [regmap.NumOutputs]bool
	touch   [regmap.NumTouch]uint16
	current uint16
	voltage uint16
	leds    [regmap.NumLEDs][3]uint8
}

// NewServo2040 creates a board with all servos disabled, outputs off and
// LEDs dark.
func NewServo2040() *Servo2040 {
	return &Servo2040{}
}

// ReadRegister implements Registers.
func (s *Servo2040) ReadRegister(index int) uint16 {
	s.lock.Lock()
	defer s.lock.Unlock()
	p, ch, ok := regmap.Servo2040.Lookup(byte(index))
	if !ok {
		return 0
	}
	switch p {
	case regmap.Servo:
		return s.pulses[ch]
	case regmap.Output:
		if s.outputs[ch] {
			return 1
		}
		return 0
	case regmap.Touch:
		return s.touch[ch]
	case regmap.Current:
		return s.current
	case regmap.Voltage:
		return s.voltage
	}
	// LEDs are write only.
	return 0
}

// WriteRegister implements Registers.
func (s *Servo2040) WriteRegister(index int, v uint16) {
	s.lock.Lock()
	defer s.lock.Unlock()
	p, ch, ok := regmap.Servo2040.Lookup(byte(index))
	if !ok {
		return
	}
	switch p {
	case regmap.Servo:
		s.pulses[ch] = regmap.ClampPulse(int(v))
	case regmap.Output:
		s.outputs[ch] = v != 0
	case regmap.LED:
		r, g, b := regmap.UnpackRGB(v)
		s.leds[ch] = [3]uint8{r, g, b}
	}
}

// Pulse returns the pulse width of a servo.
func (s *Servo2040) Pulse(ch int) uint16 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.pulses[ch]
}

// Output returns the state of output A0..A2.
func (s *Servo2040) Output(ch int) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.outputs[ch]
}

// LED returns the color of a LED.
func (s *Servo2040) LED(i int) (r, g, b uint8) {
	s.lock.Lock()
	defer s.lock.Unlock()
	c := s.leds[i]
	return c[0], c[1], c[2]
}

// SetTouchVoltage sets the reading of a touch sensor input.
func (s *Servo2040) SetTouchVoltage(ch int, volts float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.touch[ch] = uint16(volts * TouchScale)
}

// SetCurrentRaw sets the raw reading of the current sensor.
func (s *Servo2040) SetCurrentRaw(raw uint16) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.current = raw
}

// SetVoltageRaw sets the raw reading of the voltage sensor.
func (s *Servo2040) SetVoltageRaw(raw uint16) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.voltage = raw
}

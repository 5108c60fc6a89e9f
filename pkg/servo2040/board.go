// Package servo2040 operates servo2040 and GPIO boards through the
// register protocol.
package servo2040

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/servo2040/pkg/l0/comm"
	"github.com/robotalks/servo2040/pkg/l0/regmap"
)

// Board wraps a client with peripheral level operations.
type Board struct {
	Client      *comm.Client
	Map         *regmap.Map
	Calibration Calibration

	retry comm.RetryPolicy
}

// New creates a Board using the servo2040 register layout.
func New(c *comm.Client, cfg Config) *Board {
	return NewWithMap(c, regmap.Servo2040, cfg)
}

// NewWithMap creates a Board for another register layout.
func NewWithMap(c *comm.Client, m *regmap.Map, cfg Config) *Board {
	return &Board{Client: c, Map: m, Calibration: cfg.Calibration, retry: cfg.Retry}
}

func (b *Board) set(p regmap.Peripheral, ch int, values ...uint16) error {
	index, err := b.Map.Index(p, ch)
	if err != nil {
		return err
	}
	if _, err = b.Map.Index(p, ch+len(values)-1); err != nil {
		return err
	}
	return b.retry.Do(b.Client, func() error {
		return b.Client.Set(index, values...)
	})
}

func (b *Board) get(p regmap.Peripheral, ch, count int) (values []uint16, err error) {
	index, err := b.Map.Index(p, ch)
	if err != nil {
		return nil, err
	}
	if _, err = b.Map.Index(p, ch+count-1); err != nil {
		return nil, err
	}
	err = b.retry.Do(b.Client, func() (err error) {
		values, err = b.Client.Get(index, count)
		return
	})
	return
}

func (b *Board) get1(p regmap.Peripheral, ch int) (uint16, error) {
	values, err := b.get(p, ch, 1)
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

// SetPulse moves a servo to pulse width in microseconds.
func (b *Board) SetPulse(ch int, us int) error {
	return b.set(regmap.Servo, ch, regmap.ClampPulse(us))
}

// SetPulses moves consecutive servos starting from ch in a single request.
func (b *Board) SetPulses(ch int, us ...int) error {
	values := make([]uint16, len(us))
	for n, v := range us {
		values[n] = regmap.ClampPulse(v)
	}
	return b.set(regmap.Servo, ch, values...)
}

// Pulse reads the pulse width of a servo, 0 if it's never been moved.
func (b *Board) Pulse(ch int) (int, error) {
	v, err := b.get1(regmap.Servo, ch)
	return int(v), err
}

// Pulses reads the pulse widths of all servos.
func (b *Board) Pulses() ([]int, error) {
	blk, ok := b.Map.Block(regmap.Servo)
	if !ok {
		return nil, &regmap.ChannelError{Peripheral: regmap.Servo}
	}
	values, err := b.get(regmap.Servo, 0, blk.Channels)
	if err != nil {
		return nil, err
	}
	pulses := make([]int, len(values))
	for n, v := range values {
		pulses[n] = int(v)
	}
	return pulses, nil
}

// CenterAll moves all servos to the center position plus per servo offsets.
func (b *Board) CenterAll(offsets []int) error {
	blk, ok := b.Map.Block(regmap.Servo)
	if !ok {
		return &regmap.ChannelError{Peripheral: regmap.Servo}
	}
	if offsets != nil && len(offsets) != blk.Channels {
		return fmt.Errorf("expect %d offsets, got %d", blk.Channels, len(offsets))
	}
	pulses := make([]int, blk.Channels)
	for n := range pulses {
		pulses[n] = regmap.CenterPulse
		if offsets != nil {
			pulses[n] += offsets[n]
		}
	}
	return b.SetPulses(0, pulses...)
}

// SetAngles moves servos from 0 by angles in degrees (-90..90). Offsets
// shift the center of each servo in microseconds and can be nil.
func (b *Board) SetAngles(angles []float64, offsets []int) error {
	if offsets != nil && len(offsets) != len(angles) {
		return fmt.Errorf("expect %d offsets, got %d", len(angles), len(offsets))
	}
	values := make([]uint16, len(angles))
	for n, deg := range angles {
		var offset int
		if offsets != nil {
			offset = offsets[n]
		}
		values[n] = regmap.AngleToPulse(deg, offset)
	}
	return b.set(regmap.Servo, 0, values...)
}

// SetOutput switches output A0..A2. A0 drives the relay.
func (b *Board) SetOutput(ch int, on bool) error {
	var v uint16
	if on {
		v = 1
	}
	return b.set(regmap.Output, ch, v)
}

// Output reads the state of an output.
func (b *Board) Output(ch int) (bool, error) {
	v, err := b.get1(regmap.Output, ch)
	return v != 0, err
}

// SetLED sets the color of a LED, each channel keeps its upper 4 bits.
func (b *Board) SetLED(i int, r, g, bl uint8) error {
	return b.set(regmap.LED, i, regmap.PackRGB(r, g, bl))
}

// SetAllLEDs sets all LEDs to the same color.
func (b *Board) SetAllLEDs(r, g, bl uint8) error {
	blk, ok := b.Map.Block(regmap.LED)
	if !ok {
		return &regmap.ChannelError{Peripheral: regmap.LED}
	}
	values := make([]uint16, blk.Channels)
	for n := range values {
		values[n] = regmap.PackRGB(r, g, bl)
	}
	return b.set(regmap.LED, 0, values...)
}

// ClearLEDs turns all LEDs off.
func (b *Board) ClearLEDs() error {
	return b.SetAllLEDs(0, 0, 0)
}

// SetPinOutput configures a GPIO pin as output and drives level.
func (b *Board) SetPinOutput(pin int, level bool) error {
	if err := b.set(regmap.GPIODirection, pin, 0); err != nil {
		return err
	}
	var v uint16
	if level {
		v = 1
	}
	return b.set(regmap.GPIOValue, pin, v)
}

// SetPinInput configures a GPIO pin as input.
func (b *Board) SetPinInput(pin int) error {
	return b.set(regmap.GPIODirection, pin, 1)
}

// ReadPin reads the level of a GPIO pin.
func (b *Board) ReadPin(pin int) (bool, error) {
	v, err := b.get1(regmap.GPIOValue, pin)
	return v != 0, err
}

// Raw sensor scales.
const (
	TouchScale = 310.303
	adcMax     = 4095.0
	// supply voltage divider and reference
	voltageScale = 15.0 * 0.68
	// current sensor zero point and full scale in amps
	currentZero      = 0.48
	currentFullScale = 16.0
	currentFloor     = 0.025
)

// TouchVoltage reads the voltage on a touch sensor input.
func (b *Board) TouchVoltage(ch int) (float64, error) {
	v, err := b.get1(regmap.Touch, ch)
	if err != nil {
		return 0, err
	}
	return float64(v) / TouchScale, nil
}

// TouchVoltages reads all touch sensor inputs.
func (b *Board) TouchVoltages() ([]float64, error) {
	blk, ok := b.Map.Block(regmap.Touch)
	if !ok {
		return nil, &regmap.ChannelError{Peripheral: regmap.Touch}
	}
	values, err := b.get(regmap.Touch, 0, blk.Channels)
	if err != nil {
		return nil, err
	}
	volts := make([]float64, len(values))
	for n, v := range values {
		volts[n] = float64(v) / TouchScale
	}
	return volts, nil
}

// SwitchClosed reads a touch input wired to a switch.
func (b *Board) SwitchClosed(ch int) (bool, error) {
	volts, err := b.TouchVoltage(ch)
	if err != nil {
		return false, err
	}
	return b.Calibration.SwitchClosed(volts), nil
}

// SwitchClosed applies the threshold to a touch input voltage.
func (c Calibration) SwitchClosed(volts float64) bool {
	if c.SwitchActiveHigh {
		return volts > c.SwitchThreshold
	}
	return volts < c.SwitchThreshold
}

// Voltage converts a raw supply voltage reading.
func (c Calibration) Voltage(raw uint16) float64 {
	return float64(raw) / adcMax * voltageScale * c.VoltageFactor
}

// Current converts a raw current reading. Readings in the noise floor are
// reported as 0 before the offset is applied, the result is never negative.
func (c Calibration) Current(raw uint16) float64 {
	amps := (float64(raw)/adcMax - currentZero) * currentFullScale * c.CurrentFactor
	if amps < currentFloor {
		amps = 0
	}
	amps += c.CurrentOffset
	if amps < 0 {
		amps = 0
	}
	return amps
}

// Voltage reads the supply voltage.
func (b *Board) Voltage() (float64, error) {
	v, err := b.get1(regmap.Voltage, 0)
	if err != nil {
		return 0, err
	}
	return b.Calibration.Voltage(v), nil
}

// Current reads the servo supply current in amps.
func (b *Board) Current() (float64, error) {
	v, err := b.get1(regmap.Current, 0)
	if err != nil {
		return 0, err
	}
	return b.Calibration.Current(v), nil
}

// AveragePower averages voltage and current over samples taken delay
// apart. Failed samples are skipped, an error is returned only when all
// samples fail.
func (b *Board) AveragePower(ctx context.Context, samples int, delay time.Duration) (volts, amps float64, err error) {
	var n int
	for i := 0; i < samples; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return 0, 0, ctx.Err()
			case <-time.After(delay):
			}
		}
		v, verr := b.Voltage()
		if verr != nil {
			glog.Warningf("voltage sample %d: %v", i, verr)
			err = verr
			continue
		}
		a, aerr := b.Current()
		if aerr != nil {
			glog.Warningf("current sample %d: %v", i, aerr)
			err = aerr
			continue
		}
		volts += v
		amps += a
		n++
	}
	if n == 0 {
		if err == nil {
			err = fmt.Errorf("no samples")
		}
		return 0, 0, err
	}
	return volts / float64(n), amps / float64(n), nil
}

package servo2040

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/servo2040/pkg/l0/comm"
	"github.com/robotalks/servo2040/pkg/l0/regmap"
	"github.com/robotalks/servo2040/pkg/l0/sim"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry.Backoff = time.Millisecond
	return cfg
}

func newTestBoard() (*Board, *sim.Servo2040, *sim.Device) {
	regs := sim.NewServo2040()
	dev := sim.NewDevice(regs)
	c := comm.NewClient(sim.NewTransport(dev), comm.DefaultConfig())
	return New(c, testConfig()), regs, dev
}

func TestServos(t *testing.T) {
	b, regs, _ := newTestBoard()
	require.NoError(t, b.SetPulse(3, 1800))
	require.Equal(t, uint16(1800), regs.Pulse(3))
	pulse, err := b.Pulse(3)
	require.NoError(t, err)
	require.Equal(t, 1800, pulse)

	require.NoError(t, b.SetPulses(16, 100, 9000))
	require.Equal(t, uint16(500), regs.Pulse(16))
	require.Equal(t, uint16(2500), regs.Pulse(17))
	require.Error(t, b.SetPulses(17, 1500, 1500))
	require.Error(t, b.SetPulse(18, 1500))

	require.NoError(t, b.CenterAll(nil))
	pulses, err := b.Pulses()
	require.NoError(t, err)
	require.Len(t, pulses, regmap.NumServos)
	for _, p := range pulses {
		require.Equal(t, regmap.CenterPulse, p)
	}

	offsets := make([]int, regmap.NumServos)
	offsets[5] = -40
	require.NoError(t, b.CenterAll(offsets))
	require.Equal(t, uint16(1460), regs.Pulse(5))
	require.Error(t, b.CenterAll([]int{1, 2}))
}

func TestSetAngles(t *testing.T) {
	b, regs, _ := newTestBoard()
	require.NoError(t, b.SetAngles([]float64{-90, 0, 45, 100}, nil))
	require.Equal(t, uint16(500), regs.Pulse(0))
	require.Equal(t, uint16(1500), regs.Pulse(1))
	require.Equal(t, uint16(2000), regs.Pulse(2))
	require.Equal(t, uint16(2500), regs.Pulse(3))

	require.NoError(t, b.SetAngles([]float64{0, 0}, []int{25, -25}))
	require.Equal(t, uint16(1525), regs.Pulse(0))
	require.Equal(t, uint16(1475), regs.Pulse(1))
	require.Error(t, b.SetAngles([]float64{0, 0}, []int{25}))
}

func TestOutputs(t *testing.T) {
	b, regs, _ := newTestBoard()
	require.NoError(t, b.SetOutput(0, true))
	require.True(t, regs.Output(0))
	on, err := b.Output(0)
	require.NoError(t, err)
	require.True(t, on)
	require.NoError(t, b.SetOutput(0, false))
	on, err = b.Output(0)
	require.NoError(t, err)
	require.False(t, on)
	require.Error(t, b.SetOutput(3, true))
}

func TestLEDs(t *testing.T) {
	b, regs, _ := newTestBoard()
	require.NoError(t, b.SetLED(2, 0xff, 0x00, 0x80))
	r, g, bl := regs.LED(2)
	require.Equal(t, []uint8{0xf0, 0, 0x80}, []uint8{r, g, bl})

	require.NoError(t, b.SetAllLEDs(0x10, 0x20, 0x30))
	for i := 0; i < regmap.NumLEDs; i++ {
		r, g, bl = regs.LED(i)
		require.Equal(t, []uint8{0x10, 0x20, 0x30}, []uint8{r, g, bl})
	}
	require.NoError(t, b.ClearLEDs())
	r, g, bl = regs.LED(5)
	require.Equal(t, []uint8{0, 0, 0}, []uint8{r, g, bl})
}

func TestTouchAndSwitches(t *testing.T) {
	b, regs, _ := newTestBoard()
	regs.SetTouchVoltage(0, 3.3)
	regs.SetTouchVoltage(1, 0.1)
	volts, err := b.TouchVoltage(0)
	require.NoError(t, err)
	require.InDelta(t, 3.3, volts, 0.01)

	all, err := b.TouchVoltages()
	require.NoError(t, err)
	require.Len(t, all, regmap.NumTouch)
	require.InDelta(t, 0.1, all[1], 0.01)

	closed, err := b.SwitchClosed(1)
	require.NoError(t, err)
	require.True(t, closed)
	closed, err = b.SwitchClosed(0)
	require.NoError(t, err)
	require.False(t, closed)

	b.Calibration.SwitchActiveHigh = true
	closed, err = b.SwitchClosed(0)
	require.NoError(t, err)
	require.True(t, closed)
}

func TestCalibration(t *testing.T) {
	c := DefaultCalibration
	require.InDelta(t, 13.464, c.Voltage(4095), 0.001)
	require.InDelta(t, 0, c.Voltage(0), 0.001)

	// zero point reads as no current
	require.Equal(t, 0.0, c.Current(1966))
	require.Equal(t, 0.0, c.Current(0))
	require.InDelta(t, (2457.0/4095-0.48)*16*3.5, c.Current(2457), 0.0001)

	c.CurrentOffset = -0.5
	require.Equal(t, 0.0, c.Current(2000))
	c.CurrentOffset = 0.2
	require.InDelta(t, 0.2, c.Current(0), 0.0001)
}

func TestPower(t *testing.T) {
	b, regs, _ := newTestBoard()
	regs.SetVoltageRaw(2730)
	regs.SetCurrentRaw(2457)
	volts, err := b.Voltage()
	require.NoError(t, err)
	require.InDelta(t, 2730.0/4095*15*0.68*1.32, volts, 0.0001)
	amps, err := b.Current()
	require.NoError(t, err)
	require.InDelta(t, DefaultCalibration.Current(2457), amps, 0.0001)

	avgV, avgA, err := b.AveragePower(context.Background(), 3, time.Millisecond)
	require.NoError(t, err)
	require.InDelta(t, volts, avgV, 0.0001)
	require.InDelta(t, amps, avgA, 0.0001)
}

func TestAveragePowerCanceled(t *testing.T) {
	b, _, _ := newTestBoard()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := b.AveragePower(ctx, 3, time.Second)
	require.Equal(t, context.Canceled, err)
}

func TestRetryOnDroppedResponse(t *testing.T) {
	b, regs, dev := newTestBoard()
	regs.SetVoltageRaw(100)
	dev.DropResponses = 2
	_, err := b.Voltage()
	require.NoError(t, err)

	dev.DropResponses = 3
	_, err = b.Voltage()
	require.ErrorIs(t, err, comm.ErrShortRead)
}

func TestGPIOBoard(t *testing.T) {
	regs := sim.NewGPIO()
	c := comm.NewClient(sim.NewTransport(sim.NewDevice(regs)), comm.DefaultConfig())
	b := NewWithMap(c, regmap.GPIOBoard, testConfig())

	require.NoError(t, b.SetPinOutput(2, true))
	require.True(t, regs.IsOutput(2))
	require.True(t, regs.Level(2))
	level, err := b.ReadPin(2)
	require.NoError(t, err)
	require.True(t, level)

	require.NoError(t, b.SetPinInput(2))
	require.False(t, regs.IsOutput(2))
	regs.SetExternal(2, false)
	level, err = b.ReadPin(2)
	require.NoError(t, err)
	require.False(t, level)

	require.Error(t, b.SetPulse(0, 1500))
	require.Error(t, b.SetPinOutput(8, true))
}

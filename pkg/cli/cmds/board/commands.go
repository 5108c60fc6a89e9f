// Package board provides peripheral level shell commands.
package board

import (
	"context"
	"fmt"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/servo2040/pkg/cli/sh"
	"github.com/robotalks/servo2040/pkg/servo2040"
)

func parseOnOff(arg string) (bool, error) {
	switch arg {
	case "on", "1", "high", "true":
		return true, nil
	case "off", "0", "low", "false":
		return false, nil
	}
	return false, fmt.Errorf("expect on or off, got %q", arg)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func parseColor(args []string) (r, g, b uint8, err error) {
	if len(args) != 3 {
		err = fmt.Errorf("R G B required")
		return
	}
	ints, err := sh.ParseInts("color", args)
	if err != nil {
		return
	}
	for _, v := range ints {
		if v < 0 || v > 255 {
			err = fmt.Errorf("color %d out of range 0..255", v)
			return
		}
	}
	return uint8(ints[0]), uint8(ints[1]), uint8(ints[2]), nil
}

// PowerReading is the output of power command.
type PowerReading struct {
	Volts float64 `json:"volts"`
	Amps  float64 `json:"amps"`
	Watts float64 `json:"watts"`
}

var (
	// ServoCmd reads or moves servos.
	ServoCmd = ishell.Cmd{
		Name:    "servo",
		Aliases: []string{"sv"},
		Help:    "[CH [PULSE(us)...]], without arguments reads all servos",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *servo2040.Board) {
			if len(c.Args) == 0 {
				pulses, err := b.Pulses()
				if err != nil {
					c.Err(err)
					return
				}
				sh.Print(c, pulses, fmt.Sprint(pulses))
				return
			}
			ints, err := sh.ParseInts("argument", c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if len(ints) == 1 {
				us, err := b.Pulse(ints[0])
				if err != nil {
					c.Err(err)
					return
				}
				sh.Print(c, us, fmt.Sprintf("%d", us))
				return
			}
			sh.PrintOK(c, b.SetPulses(ints[0], ints[1:]...))
		}),
	}

	// CenterCmd centers all servos.
	CenterCmd = ishell.Cmd{
		Name: "center",
		Help: "[OFFSET(us)...], one offset per servo",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *servo2040.Board) {
			var offsets []int
			if len(c.Args) > 0 {
				var err error
				if offsets, err = sh.ParseInts("OFFSET", c.Args); err != nil {
					c.Err(err)
					return
				}
			}
			sh.PrintOK(c, b.CenterAll(offsets))
		}),
	}

	// AnglesCmd moves servos by angles.
	AnglesCmd = ishell.Cmd{
		Name:    "angles",
		Aliases: []string{"a"},
		Help:    "DEGREES..., from servo 0, -90..90",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *servo2040.Board) {
			angles, err := sh.ParseFloats("DEGREES", c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if len(angles) == 0 {
				c.Err(fmt.Errorf("DEGREES required"))
				return
			}
			sh.PrintOK(c, b.SetAngles(angles, nil))
		}),
	}

	// LEDCmd sets a LED.
	LEDCmd = ishell.Cmd{
		Name: "led",
		Help: "INDEX R G B",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *servo2040.Board) {
			if len(c.Args) != 4 {
				c.Err(fmt.Errorf("usage: led INDEX R G B"))
				return
			}
			index, err := sh.ParseInts("INDEX", c.Args[:1])
			if err != nil {
				c.Err(err)
				return
			}
			r, g, bl, err := parseColor(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			sh.PrintOK(c, b.SetLED(index[0], r, g, bl))
		}),
	}

	// LEDsCmd sets all LEDs.
	LEDsCmd = ishell.Cmd{
		Name: "leds",
		Help: "R G B | off",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *servo2040.Board) {
			if len(c.Args) == 1 && c.Args[0] == "off" {
				sh.PrintOK(c, b.ClearLEDs())
				return
			}
			r, g, bl, err := parseColor(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.PrintOK(c, b.SetAllLEDs(r, g, bl))
		}),
	}

	// OutputCmd reads or switches an output, A0 drives the relay.
	OutputCmd = ishell.Cmd{
		Name:    "out",
		Aliases: []string{"relay"},
		Help:    "CH [on|off]",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *servo2040.Board) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("CH required"))
				return
			}
			ch, err := sh.ParseInts("CH", c.Args[:1])
			if err != nil {
				c.Err(err)
				return
			}
			if len(c.Args) > 1 {
				on, err := parseOnOff(c.Args[1])
				if err != nil {
					c.Err(err)
					return
				}
				sh.PrintOK(c, b.SetOutput(ch[0], on))
				return
			}
			on, err := b.Output(ch[0])
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, on, onOff(on))
		}),
	}

	// PinCmd operates GPIO pins.
	PinCmd = ishell.Cmd{
		Name: "pin",
		Help: "PIN [in|on|off]",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *servo2040.Board) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("PIN required"))
				return
			}
			pin, err := sh.ParseInts("PIN", c.Args[:1])
			if err != nil {
				c.Err(err)
				return
			}
			if len(c.Args) > 1 {
				if c.Args[1] == "in" {
					sh.PrintOK(c, b.SetPinInput(pin[0]))
					return
				}
				level, err := parseOnOff(c.Args[1])
				if err != nil {
					c.Err(err)
					return
				}
				sh.PrintOK(c, b.SetPinOutput(pin[0], level))
				return
			}
			level, err := b.ReadPin(pin[0])
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, level, onOff(level))
		}),
	}

	// TouchCmd reads touch sensor voltages.
	TouchCmd = ishell.Cmd{
		Name: "touch",
		Help: "[CH]",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *servo2040.Board) {
			if len(c.Args) > 0 {
				ch, err := sh.ParseInts("CH", c.Args[:1])
				if err != nil {
					c.Err(err)
					return
				}
				volts, err := b.TouchVoltage(ch[0])
				if err != nil {
					c.Err(err)
					return
				}
				sh.Print(c, volts, fmt.Sprintf("%.3fV", volts))
				return
			}
			volts, err := b.TouchVoltages()
			if err != nil {
				c.Err(err)
				return
			}
			sh.Print(c, volts, fmt.Sprintf("%.3f", volts))
		}),
	}

	// SwitchCmd reads a switch wired to a touch input.
	SwitchCmd = ishell.Cmd{
		Name: "switch",
		Help: "CH",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *servo2040.Board) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("CH required"))
				return
			}
			ch, err := sh.ParseInts("CH", c.Args[:1])
			if err != nil {
				c.Err(err)
				return
			}
			closed, err := b.SwitchClosed(ch[0])
			if err != nil {
				c.Err(err)
				return
			}
			text := "open"
			if closed {
				text = "closed"
			}
			sh.Print(c, closed, text)
		}),
	}

	// PowerCmd reads supply voltage and current.
	PowerCmd = ishell.Cmd{
		Name: "power",
		Help: "[SAMPLES [DELAY(ms)]]",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *servo2040.Board) {
			samples, delay := 1, 100
			ints, err := sh.ParseInts("argument", c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if len(ints) > 0 {
				samples = ints[0]
			}
			if len(ints) > 1 {
				delay = ints[1]
			}
			volts, amps, err := b.AveragePower(context.TODO(), samples, time.Duration(delay)*time.Millisecond)
			if err != nil {
				c.Err(err)
				return
			}
			r := PowerReading{Volts: volts, Amps: amps, Watts: volts * amps}
			sh.Print(c, r, fmt.Sprintf("%.2fV %.2fA %.2fW", r.Volts, r.Amps, r.Watts))
		}),
	}
)

func init() {
	sh.AddCmds(
		&ServoCmd,
		&CenterCmd,
		&AnglesCmd,
		&LEDCmd,
		&LEDsCmd,
		&OutputCmd,
		&PinCmd,
		&TouchCmd,
		&SwitchCmd,
		&PowerCmd,
	)
}

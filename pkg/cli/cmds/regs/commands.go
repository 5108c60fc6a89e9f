// Package regs provides register level shell commands.
package regs

import (
	"context"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/servo2040/pkg/cli/sh"
	l0 "github.com/robotalks/servo2040/pkg/l0/comm"
	"github.com/robotalks/servo2040/pkg/servo2040"
)

// Result is the output of register commands.
type Result struct {
	Index  int      `json:"index"`
	Values []uint16 `json:"values"`
}

// String formats the result as INDEX: V0 V1 ...
func (r Result) String() string {
	strs := make([]string, len(r.Values))
	for n, v := range r.Values {
		strs[n] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("%d: %s", r.Index, strings.Join(strs, " "))
}

func parseStart(c *ishell.Context, usage string) (byte, bool) {
	if len(c.Args) < 1 {
		c.Err(fmt.Errorf("usage: %s", usage))
		return 0, false
	}
	ints, err := sh.ParseInts("INDEX", c.Args[:1])
	if err != nil {
		c.Err(err)
		return 0, false
	}
	if ints[0] < 0 || ints[0] > l0.MaxIndex {
		c.Err(fmt.Errorf("INDEX must be in 0..%d", l0.MaxIndex))
		return 0, false
	}
	return byte(ints[0]), true
}

func parseValues(c *ishell.Context, args []string) ([]uint16, bool) {
	if len(args) == 0 {
		c.Err(fmt.Errorf("VALUE required"))
		return nil, false
	}
	ints, err := sh.ParseInts("VALUE", args)
	if err != nil {
		c.Err(err)
		return nil, false
	}
	values := make([]uint16, len(ints))
	for n, v := range ints {
		if v < 0 || v > int(l0.MaxValue) {
			c.Err(fmt.Errorf("VALUE %d out of range 0..%d", v, l0.MaxValue))
			return nil, false
		}
		values[n] = uint16(v)
	}
	return values, true
}

var (
	// GetCmd reads registers.
	GetCmd = ishell.Cmd{
		Name:    "get",
		Aliases: []string{"g"},
		Help:    "INDEX [COUNT]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			start, ok := parseStart(c, "get INDEX [COUNT]")
			if !ok {
				return
			}
			count := 1
			if len(c.Args) > 1 {
				ints, err := sh.ParseInts("COUNT", c.Args[1:2])
				if err != nil {
					c.Err(err)
					return
				}
				count = ints[0]
			}
			values, err := sh.Registers(c).Get(context.TODO(), start, count)
			if err != nil {
				c.Err(err)
				return
			}
			res := Result{Index: int(start), Values: values}
			sh.Print(c, res, res.String())
		}),
	}

	// SetCmd writes registers.
	SetCmd = ishell.Cmd{
		Name:    "set",
		Aliases: []string{"s"},
		Help:    "INDEX VALUE...",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			start, ok := parseStart(c, "set INDEX VALUE...")
			if !ok {
				return
			}
			values, ok := parseValues(c, c.Args[1:])
			if !ok {
				return
			}
			sh.PrintOK(c, sh.Registers(c).Set(context.TODO(), start, values...))
		}),
	}

	// VerifyCmd writes registers and reads them back.
	VerifyCmd = ishell.Cmd{
		Name:    "verify",
		Aliases: []string{"v"},
		Help:    "INDEX TOLERANCE VALUE...",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			start, ok := parseStart(c, "verify INDEX TOLERANCE VALUE...")
			if !ok {
				return
			}
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("TOLERANCE required"))
				return
			}
			tol, ok := parseValues(c, c.Args[1:2])
			if !ok {
				return
			}
			values, ok := parseValues(c, c.Args[2:])
			if !ok {
				return
			}
			sh.PrintOK(c, sh.Registers(c).SetThenVerify(context.TODO(), start, values, tol[0]))
		}),
	}

	// ResyncCmd discards stale bytes on the serial line.
	ResyncCmd = ishell.Cmd{
		Name: "resync",
		Help: "",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *servo2040.Board) {
			sh.PrintOK(c, b.Client.Resync())
		}),
	}
)

func init() {
	sh.AddCmds(
		&GetCmd,
		&SetCmd,
		&VerifyCmd,
		&ResyncCmd,
	)
}

// Package sh is the interactive shell of a board.
package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/servo2040/pkg/l1"
	"github.com/robotalks/servo2040/pkg/l1/comm/mqtt"
	"github.com/robotalks/servo2040/pkg/l1/env"
	"github.com/robotalks/servo2040/pkg/servo2040"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *env.Conn
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// MustHaveBoard wraps command func requires a board on a local port.
func MustHaveBoard(fn func(c *ishell.Context, b *servo2040.Board)) func(c *ishell.Context) {
	return MustBeConnected(func(c *ishell.Context) {
		b := ShellFrom(c).Conn.Board
		if b == nil {
			c.Err(fmt.Errorf("board commands require a local port, use get/set through a bridge"))
			return
		}
		fn(c, b)
	})
}

// Registers gets the register access of current connection.
func Registers(c *ishell.Context) l1.Registers {
	return ShellFrom(c).Conn.Registers
}

// Print prints the result of a command, v is used for JSON and text
// otherwise.
func Print(c *ishell.Context, v interface{}, text string) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// PrintOK prints the result of a command without output.
func PrintOK(c *ishell.Context, err error) {
	if err != nil {
		c.Err(err)
		return
	}
	Print(c, map[string]bool{"ok": true}, "OK")
}

// ParseInts parses args as integers, name is used in errors.
func ParseInts(name string, args []string) ([]int, error) {
	values := make([]int, len(args))
	for n, arg := range args {
		v, err := strconv.ParseInt(arg, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %v", name, arg, err)
		}
		values[n] = int(v)
	}
	return values, nil
}

// ParseFloats parses args as floats, name is used in errors.
func ParseFloats(name string, args []string) ([]float64, error) {
	values := make([]float64, len(args))
	for n, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %v", name, arg, err)
		}
		values[n] = v
	}
	return values, nil
}

// FormatInfo prints DeviceInfo into friendly string for display.
func FormatInfo(info l1.DeviceInfo) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s", info.Ref.Name())
	if info.Meta.Layout != "" {
		fmt.Fprintf(&w, " [%s]", info.Meta.Layout)
	}
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	return w.String()
}

func isMQTT(port string) bool {
	return strings.HasPrefix(port, "mqtt://")
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Discover lists devices announced on the MQTT bridge in Config.Port.
func (s *Shell) Discover(filter func(l1.DeviceInfo) bool) ([]l1.DeviceInfo, error) {
	if !isMQTT(s.Config.Port) {
		return nil, fmt.Errorf("discovery requires an MQTT bridge, got %q", s.Config.Port)
	}
	connector, err := mqtt.NewConnector(s.Config.Port)
	if err != nil {
		return nil, err
	}
	infoList, err := connector.Discover(context.TODO())
	if err != nil {
		return nil, err
	}
	if filter != nil {
		items := make([]l1.DeviceInfo, 0, len(infoList))
		for _, info := range infoList {
			if filter(info) {
				items = append(items, info)
			}
		}
		infoList = items
	}
	return infoList, nil
}

// SelectDevice discovers devices and asks for a choice.
func (s *Shell) SelectDevice(filter func(l1.DeviceInfo) bool) (*l1.DeviceInfo, error) {
	infoList, err := s.Discover(filter)
	if err != nil {
		return nil, err
	}
	if len(infoList) == 0 {
		return nil, nil
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 devices discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
	}
	return &infoList[index], nil
}

// Connect opens the board using Config.
func (s *Shell) Connect() error {
	conn, err := s.Config.Open(context.TODO())
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Conn = conn
	name := s.Config.Port
	if isMQTT(name) && s.Config.Device.IsValid() {
		name = s.Config.Device.Name()
	}
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", name))
	return nil
}

// Disconnect disconnects current board.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Close()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Port != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Port)
		}
		if err := s.Connect(); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Port, err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// DiscoverCmd discovers devices on an MQTT bridge.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "[TYPE], requires -port mqtt://...",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var filter func(l1.DeviceInfo) bool
			if len(c.Args) > 0 {
				filter = func(info l1.DeviceInfo) bool {
					return info.Ref.Type == c.Args[0]
				}
			}
			infoList, err := s.Discover(filter)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(infoList) == 0 {
					// in case infoList is nil, make it empty slice.
					infoList = []l1.DeviceInfo{}
				}
				Print(c, infoList, "")
				return
			}
			if len(infoList) == 0 {
				c.Println("No devices found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a board.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[PORT|URL] [TYPE/ID]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				s.Config.Port = c.Args[0]
			}
			if len(c.Args) > 1 {
				ref, ok := l1.ParseDeviceRef(c.Args[1])
				if !ok {
					c.Err(fmt.Errorf("invalid device %q", c.Args[1]))
					return
				}
				s.Config.Device = ref
			} else if isMQTT(s.Config.Port) && !s.Config.Device.IsValid() {
				info, err := s.SelectDevice(nil)
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no device discovered"))
					return
				}
				s.Config.Device = info.Ref
			}
			if err := s.Connect(); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current board.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}

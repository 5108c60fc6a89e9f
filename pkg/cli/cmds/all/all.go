// Package all registers all shell commands.
package all

import (
	// commands
	_ "github.com/robotalks/servo2040/pkg/cli/cmds/board"
	_ "github.com/robotalks/servo2040/pkg/cli/cmds/regs"
)

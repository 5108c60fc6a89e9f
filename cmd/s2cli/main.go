package main

import (
	"github.com/robotalks/servo2040/pkg/cli/sh"
	"github.com/robotalks/servo2040/pkg/l1/env"

	_ "github.com/robotalks/servo2040/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}

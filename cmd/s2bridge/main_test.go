package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "s2bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunReturnsErrors(t *testing.T) {
	err := run(writeConfig(t, `
device:
  id: arm
  profile: nope
`))
	require.EqualError(t, err, `unknown profile "nope"`)

	err = run(writeConfig(t, `
device:
  id: arm
serial:
  port: sim
mqtt:
  url: ""
http:
  addr: ""
`))
	require.ErrorIs(t, err, errNothingToServe)

	err = run(writeConfig(t, `
device:
  id: arm
serial:
  port: sim
mqtt:
  url: ""
http:
  addr: ""
tcp:
  addr: "localhost:-1"
`))
	require.Error(t, err)
}

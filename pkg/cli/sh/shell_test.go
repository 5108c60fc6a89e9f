package sh

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/servo2040/pkg/l1"
)

func TestParseInts(t *testing.T) {
	values, err := ParseInts("VALUE", []string{"1500", "0x10", "-20"})
	require.NoError(t, err)
	require.Equal(t, []int{1500, 16, -20}, values)
	_, err = ParseInts("VALUE", []string{"1", "x"})
	require.EqualError(t, err, `invalid VALUE "x": strconv.ParseInt: parsing "x": invalid syntax`)

	floats, err := ParseFloats("DEGREES", []string{"-45", "12.5"})
	require.NoError(t, err)
	require.Equal(t, []float64{-45, 12.5}, floats)
	_, err = ParseFloats("DEGREES", []string{"left"})
	require.Error(t, err)
}

func TestFormatInfo(t *testing.T) {
	info := l1.DeviceInfo{Ref: l1.DeviceRef{Type: "servo2040", ID: "arm"}}
	require.Equal(t, "servo2040/arm", FormatInfo(info))
	info.Meta = l1.DeviceMeta{Description: "left arm", Layout: "servo2040"}
	require.Equal(t, "servo2040/arm [servo2040]: left arm", FormatInfo(info))
}

func TestIsMQTT(t *testing.T) {
	require.True(t, isMQTT("mqtt://localhost:1883/"))
	require.False(t, isMQTT("tcp://localhost:9041"))
	require.False(t, isMQTT("/dev/ttyACM0"))
}

package servo2040

import "github.com/robotalks/servo2040/pkg/l0/comm"

// Calibration converts raw sensor readings into physical units.
type Calibration struct {
	// VoltageFactor scales the supply voltage reading.
	VoltageFactor float64
	// CurrentFactor scales the current reading.
	CurrentFactor float64
	// CurrentOffset is added to current readings above the noise floor.
	CurrentOffset float64
	// SwitchThreshold is the touch input voltage separating open and
	// closed switches.
	SwitchThreshold float64
	// SwitchActiveHigh means a closed switch pulls the input high.
	SwitchActiveHigh bool
}

// DefaultCalibration matches a stock servo2040 on a 2S battery.
var DefaultCalibration = Calibration{
	VoltageFactor:   1.32,
	CurrentFactor:   3.5,
	SwitchThreshold: 0.5,
}

// Config configures a Board.
type Config struct {
	Calibration Calibration
	Retry       comm.RetryPolicy
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Calibration: DefaultCalibration,
		Retry:       comm.DefaultRetryPolicy,
	}
}

package regmap

// Servo pulse limits in microseconds.
const (
	MinPulse    = 500
	MaxPulse    = 2500
	CenterPulse = 1500

	MaxAngle = 90
)

// ClampPulse limits a pulse width to what the firmware accepts.
func ClampPulse(us int) uint16 {
	if us < MinPulse {
		us = MinPulse
	} else if us > MaxPulse {
		us = MaxPulse
	}
	return uint16(us)
}

// AngleToPulse maps -90..90 degrees to 500..2500us, adds the center offset
// of the servo, then clamps.
func AngleToPulse(deg float64, offset int) uint16 {
	if deg < -MaxAngle {
		deg = -MaxAngle
	} else if deg > MaxAngle {
		deg = MaxAngle
	}
	pulse := MinPulse + (deg+MaxAngle)/(2*MaxAngle)*(MaxPulse-MinPulse)
	return ClampPulse(int(pulse) + offset)
}

// PackRGB packs 8-bit channels into a LED register value keeping the
// upper 4 bits of each: R<<8 | G<<4 | B.
func PackRGB(r, g, b uint8) uint16 {
	return uint16(r>>4)<<8 | uint16(g>>4)<<4 | uint16(b>>4)
}

// UnpackRGB expands a LED register value into 8-bit channels the way the
// firmware does.
func UnpackRGB(v uint16) (r, g, b uint8) {
	return uint8((v>>8)&0xf) << 4, uint8((v>>4)&0xf) << 4, uint8(v&0xf) << 4
}

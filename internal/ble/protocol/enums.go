package protocol

import (
	"fmt"
	"strings"
)

// PumpVoltage is the wire code selecting the pump supply voltage.
// The codes are not ordered by voltage; they match the device firmware.
type PumpVoltage uint8

const (
	PumpV11 PumpVoltage = 0x00
	PumpV12 PumpVoltage = 0x01
	PumpV7  PumpVoltage = 0x02
	PumpV8  PumpVoltage = 0x03
)

// Valid reports whether v is a known wire code.
func (v PumpVoltage) Valid() bool { return v <= PumpV8 }

// Volts returns the nominal supply voltage for v, or 0 for unknown codes.
func (v PumpVoltage) Volts() int {
	switch v {
	case PumpV11:
		return 11
	case PumpV12:
		return 12
	case PumpV7:
		return 7
	case PumpV8:
		return 8
	}
	return 0
}

func (v PumpVoltage) String() string {
	if !v.Valid() {
		return fmt.Sprintf("PumpVoltage(%d)", uint8(v))
	}
	return fmt.Sprintf("%dV", v.Volts())
}

// ParsePumpVoltage accepts "7", "7v" or "7V" style input.
func ParsePumpVoltage(s string) (PumpVoltage, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "v") {
	case "7":
		return PumpV7, nil
	case "8":
		return PumpV8, nil
	case "11":
		return PumpV11, nil
	case "12":
		return PumpV12, nil
	}
	return 0, fmt.Errorf("protocol: unknown pump voltage %q (want 7, 8, 11 or 12)", s)
}

// RGBMode is the lighting effect code.
type RGBMode uint8

const (
	RGBStatic       RGBMode = 0x00
	RGBBreathe      RGBMode = 0x01
	RGBColorful     RGBMode = 0x02
	RGBBreatheColor RGBMode = 0x03
)

var rgbModeNames = map[RGBMode]string{
	RGBStatic:       "static",
	RGBBreathe:      "breathe",
	RGBColorful:     "colorful",
	RGBBreatheColor: "breathe-color",
}

// Valid reports whether m is a known wire code.
func (m RGBMode) Valid() bool { return m <= RGBBreatheColor }

func (m RGBMode) String() string {
	if name, ok := rgbModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("RGBMode(%d)", uint8(m))
}

// ParseRGBMode accepts the names returned by RGBMode.String, plus the
// aliases "rainbow" and "breathe-rainbow".
func ParseRGBMode(s string) (RGBMode, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch name {
	case "rainbow":
		return RGBColorful, nil
	case "breathe-rainbow":
		return RGBBreatheColor, nil
	}
	for m, n := range rgbModeNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("protocol: unknown rgb mode %q", s)
}

// Package settings holds the desired cooler configuration and persists it
// between runs.
package settings

import (
	"errors"
	"fmt"

	"github.com/watercooler/watercooler/internal/ble/protocol"
)

// ErrNotFound is returned by Store.Load when nothing has been saved yet.
var ErrNotFound = errors.New("settings: not found")

// Store loads and saves the desired device configuration.
type Store interface {
	Load() (Device, error)
	Save(Device) error
	Close() error
}

// Color is an RGB triple.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Preset colors offered by the menu.
var (
	Red   = Color{255, 0, 0}
	Green = Color{0, 255, 0}
	Blue  = Color{0, 0, 255}
	White = Color{255, 255, 255}
)

func (c Color) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

// ParseColor parses "r,g,b" with each channel in 0..255.
func ParseColor(s string) (Color, error) {
	var r, g, b int
	if _, err := fmt.Sscanf(s, "%d,%d,%d", &r, &g, &b); err != nil {
		return Color{}, fmt.Errorf("settings: color %q: want r,g,b", s)
	}
	for _, v := range []int{r, g, b} {
		if v < 0 || v > 255 {
			return Color{}, fmt.Errorf("settings: color %q: channel %d not in 0..255", s, v)
		}
	}
	return Color{uint8(r), uint8(g), uint8(b)}, nil
}

// Device is the desired configuration re-applied on every connect. Each
// Off flag is independent of the stored level, so switching a subsystem
// back on replays its last configuration.
type Device struct {
	PumpVoltage protocol.PumpVoltage `json:"current_voltage"`
	PumpDuty    uint8                `json:"pump_duty"`
	PumpOff     bool                 `json:"pump_is_off"`

	FanDuty uint8 `json:"current_fan_speed"`
	FanOff  bool  `json:"fan_is_off"`

	RGBMode  protocol.RGBMode `json:"rgb_state"`
	RGBColor Color            `json:"rgb_color"`
	RGBOff   bool             `json:"rgb_is_off"`

	AutoConnect bool `json:"auto_connect"`
	AutoStart   bool `json:"auto_start"`
}

// Default returns the configuration used before anything is saved.
func Default() Device {
	return Device{
		PumpVoltage: protocol.PumpV7,
		PumpDuty:    protocol.DefaultPumpDuty,
		FanDuty:     50,
		RGBMode:     protocol.RGBStatic,
		RGBColor:    Red,
		AutoConnect: true,
	}
}

// Validate checks that every stored value can be encoded.
func (d Device) Validate() error {
	if !d.PumpVoltage.Valid() {
		return fmt.Errorf("pump voltage code %d not in 0..3", d.PumpVoltage)
	}
	if d.PumpDuty > 100 {
		return fmt.Errorf("pump duty %d not in 0..100", d.PumpDuty)
	}
	if !d.RGBMode.Valid() {
		return fmt.Errorf("rgb mode %d not in 0..3", d.RGBMode)
	}
	return nil
}

// PumpFrame returns the frame that puts the pump in its stored state.
func (d Device) PumpFrame() (protocol.Frame, error) {
	if d.PumpOff {
		return protocol.EncodePumpOff(), nil
	}
	return protocol.EncodePump(int(d.PumpDuty), d.PumpVoltage)
}

// FanFrame returns the frame that puts the fan in its stored state.
func (d Device) FanFrame() (protocol.Frame, error) {
	if d.FanOff {
		return protocol.EncodeFanOff(), nil
	}
	return protocol.EncodeFan(int(d.FanDuty))
}

// RGBFrame returns the frame that puts the lighting in its stored state.
func (d Device) RGBFrame() (protocol.Frame, error) {
	if d.RGBOff {
		return protocol.EncodeRGBOff(), nil
	}
	return protocol.EncodeRGB(int(d.RGBColor.R), int(d.RGBColor.G), int(d.RGBColor.B), d.RGBMode)
}

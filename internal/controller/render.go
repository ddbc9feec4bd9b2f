package controller

import (
	"github.com/watercooler/watercooler/internal/ble"
	"github.com/watercooler/watercooler/internal/ble/protocol"
	"github.com/watercooler/watercooler/internal/settings"
)

// Menu presets offered to the user.
var (
	VoltagePresets = []protocol.PumpVoltage{protocol.PumpV7, protocol.PumpV8, protocol.PumpV11, protocol.PumpV12}
	FanPresets     = []uint8{25, 50, 75, 90}
	ModePresets    = []protocol.RGBMode{protocol.RGBStatic, protocol.RGBBreathe, protocol.RGBColorful, protocol.RGBBreatheColor}
	ColorPresets   = []settings.Color{settings.Red, settings.Green, settings.Blue, settings.White}
)

// RenderState is an immutable snapshot for drawing menus and status.
type RenderState struct {
	State      State           `json:"state"`
	Connected  bool            `json:"connected"`
	Model      ble.Model       `json:"model,omitempty"`
	DeviceName string          `json:"device_name,omitempty"`
	Address    string          `json:"address,omitempty"`
	Settings   settings.Device `json:"settings"`
}

// ConnectLabel is the caption of the connect/disconnect action.
func (r RenderState) ConnectLabel() string {
	if r.Connected {
		return "Disconnect"
	}
	return "Connect"
}

// PumpChecked reports whether voltage v should carry a checkmark.
func (r RenderState) PumpChecked(v protocol.PumpVoltage) bool {
	return !r.Settings.PumpOff && r.Settings.PumpVoltage == v
}

// FanChecked reports whether fan duty d should carry a checkmark.
func (r RenderState) FanChecked(d uint8) bool {
	return !r.Settings.FanOff && r.Settings.FanDuty == d
}

// RGBModeChecked reports whether mode m should carry a checkmark.
func (r RenderState) RGBModeChecked(m protocol.RGBMode) bool {
	return !r.Settings.RGBOff && r.Settings.RGBMode == m
}

// RGBColorChecked reports whether color c should carry a checkmark.
func (r RenderState) RGBColorChecked(c settings.Color) bool {
	return !r.Settings.RGBOff && r.Settings.RGBColor == c
}

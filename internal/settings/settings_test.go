package settings

import (
	"testing"

	"github.com/watercooler/watercooler/internal/ble/protocol"
)

func TestDefault(t *testing.T) {
	d := Default()
	if d.PumpVoltage != protocol.PumpV7 {
		t.Errorf("PumpVoltage = %s, want 7V", d.PumpVoltage)
	}
	if d.PumpDuty != 60 {
		t.Errorf("PumpDuty = %d, want 60", d.PumpDuty)
	}
	if d.FanDuty != 50 {
		t.Errorf("FanDuty = %d, want 50", d.FanDuty)
	}
	if d.RGBMode != protocol.RGBStatic || d.RGBColor != Red {
		t.Errorf("RGB = %s %v, want static red", d.RGBMode, d.RGBColor)
	}
	if d.PumpOff || d.FanOff || d.RGBOff {
		t.Error("default settings should have every subsystem on")
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestFramesFollowOffFlags(t *testing.T) {
	d := Default()

	pump, err := d.PumpFrame()
	if err != nil {
		t.Fatal(err)
	}
	if pump != (protocol.Frame{0xFE, 0x1C, 0x01, 60, 0x02, 0, 0, 0xEF}) {
		t.Errorf("PumpFrame() = %v", pump)
	}

	d.PumpOff, d.FanOff, d.RGBOff = true, true, true
	if f, _ := d.PumpFrame(); f != protocol.EncodePumpOff() {
		t.Errorf("PumpFrame() with PumpOff = %v", f)
	}
	if f, _ := d.FanFrame(); f != protocol.EncodeFanOff() {
		t.Errorf("FanFrame() with FanOff = %v", f)
	}
	if f, _ := d.RGBFrame(); f != protocol.EncodeRGBOff() {
		t.Errorf("RGBFrame() with RGBOff = %v", f)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{"255,0,0", Red, false},
		{"0,255,0", Green, false},
		{"12,34,56", Color{12, 34, 56}, false},
		{"256,0,0", Color{}, true},
		{"-1,0,0", Color{}, true},
		{"red", Color{}, true},
		{"1,2", Color{}, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Device)
		wantErr bool
	}{
		{"default", func(d *Device) {}, false},
		{"bad voltage", func(d *Device) { d.PumpVoltage = 4 }, true},
		{"pump duty 101", func(d *Device) { d.PumpDuty = 101 }, true},
		{"bad rgb mode", func(d *Device) { d.RGBMode = 7 }, true},
		{"fan duty 255", func(d *Device) { d.FanDuty = 255 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Default()
			tt.modify(&d)
			if err := d.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

package protocol

import "testing"

func TestPumpVoltageWireCodes(t *testing.T) {
	// Codes are fixed by the firmware and intentionally not sorted by voltage.
	codes := map[PumpVoltage]byte{PumpV11: 0, PumpV12: 1, PumpV7: 2, PumpV8: 3}
	for v, want := range codes {
		if byte(v) != want {
			t.Errorf("%s code = %d, want %d", v, byte(v), want)
		}
	}
}

func TestParsePumpVoltage(t *testing.T) {
	tests := []struct {
		in      string
		want    PumpVoltage
		wantErr bool
	}{
		{"7", PumpV7, false},
		{"7V", PumpV7, false},
		{" 8v ", PumpV8, false},
		{"11", PumpV11, false},
		{"12", PumpV12, false},
		{"9", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePumpVoltage(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePumpVoltage(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParsePumpVoltage(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseRGBMode(t *testing.T) {
	tests := []struct {
		in      string
		want    RGBMode
		wantErr bool
	}{
		{"static", RGBStatic, false},
		{"Breathe", RGBBreathe, false},
		{"colorful", RGBColorful, false},
		{"rainbow", RGBColorful, false},
		{"breathe_color", RGBBreatheColor, false},
		{"breathe-rainbow", RGBBreatheColor, false},
		{" Breathe_Rainbow ", RGBBreatheColor, false},
		{"strobe", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseRGBMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRGBMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseRGBMode(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestModeStringRoundTrip(t *testing.T) {
	for m := RGBStatic; m <= RGBBreatheColor; m++ {
		got, err := ParseRGBMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseRGBMode(%q) = %v, %v; want %v", m.String(), got, err, m)
		}
	}
	if s := RGBMode(9).String(); s != "RGBMode(9)" {
		t.Errorf("unknown mode String() = %q", s)
	}
	if s := PumpV7.String(); s != "7V" {
		t.Errorf("PumpV7.String() = %q, want 7V", s)
	}
}

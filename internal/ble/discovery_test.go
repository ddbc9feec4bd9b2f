package ble

import (
	"context"
	"testing"
	"time"
)

func TestModelFromName(t *testing.T) {
	tests := []struct {
		name   string
		want   Model
		wantOK bool
	}{
		{"MyLCT21001Device", ModelLCT21001, true},
		{"lct22002", ModelLCT22002, true},
		{"CoolingSystem-Lct22002-A", ModelLCT22002, true},
		{"randomgadget", ModelUnknown, false},
		{"", ModelUnknown, false},
		// Both tokens present: the first known model wins.
		{"LCT22002+LCT21001", ModelLCT21001, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ModelFromName(tt.name)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ModelFromName(%q) = %q, %v; want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	adapter := newMockAdapter([]Device{
		{Name: "", Address: "00:00:00:00:00:01", RSSI: -40},
		{Name: "Headphones", Address: "00:00:00:00:00:02", RSSI: -60},
		{Name: "LCT21001", Address: "00:00:00:00:00:03", RSSI: -70},
		{Name: "CoolingSystem LCT22002", Address: "00:00:00:00:00:04", RSSI: -55},
	})

	got, err := Discover(context.Background(), adapter, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d devices, want 2: %+v", len(got), got)
	}
	if got[0].Address != "00:00:00:00:00:03" || got[0].Model != ModelLCT21001 || got[0].RSSI != -70 {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Address != "00:00:00:00:00:04" || got[1].Model != ModelLCT22002 {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestDiscoverRunsFreshScan(t *testing.T) {
	adapter := newMockAdapter(nil)
	for i := 0; i < 3; i++ {
		if _, err := Discover(context.Background(), adapter, time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}
	if adapter.scans != 3 {
		t.Errorf("scans = %d, want 3", adapter.scans)
	}
}

func TestFindTarget(t *testing.T) {
	adapter := newMockAdapter([]Device{
		{Name: "LCT21001", Address: "00:00:00:00:00:01"},
		{Name: "CoolingSystem", Address: "00:00:00:00:00:02", RSSI: -48},
		{Name: "CoolingSystem LCT21001", Address: "00:00:00:00:00:03"},
	})

	got, ok, err := FindTarget(context.Background(), adapter, "", time.Millisecond)
	if err != nil {
		t.Fatalf("FindTarget() error = %v", err)
	}
	if !ok {
		t.Fatal("FindTarget() found nothing")
	}
	if got.Address != "00:00:00:00:00:02" {
		t.Errorf("Address = %q, want first CoolingSystem match", got.Address)
	}
	// Matched by name only; model stays unknown.
	if got.Model != ModelUnknown {
		t.Errorf("Model = %q, want %q", got.Model, ModelUnknown)
	}
}

func TestFindTargetNoMatch(t *testing.T) {
	adapter := newMockAdapter([]Device{{Name: "LCT21001", Address: "00:00:00:00:00:01"}})
	_, ok, err := FindTarget(context.Background(), adapter, "CoolingSystem", time.Millisecond)
	if err != nil {
		t.Fatalf("FindTarget() error = %v", err)
	}
	if ok {
		t.Error("FindTarget() matched a device without the substring")
	}
}

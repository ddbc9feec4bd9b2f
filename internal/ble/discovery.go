package ble

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Model identifies the controller hardware variant.
type Model string

const (
	ModelLCT21001 Model = "LCT21001"
	ModelLCT22002 Model = "LCT22002"
	ModelUnknown  Model = "Unknown"
)

// knownModels is checked in order; the first token found in a name wins.
var knownModels = []Model{ModelLCT21001, ModelLCT22002}

// DefaultTargetName is the advertised-name fragment used for auto-connect.
const DefaultTargetName = "CoolingSystem"

// DefaultScanTimeout bounds a single discovery scan.
const DefaultScanTimeout = 5 * time.Second

// DeviceInfo is a discovered, not yet connected controller.
type DeviceInfo struct {
	Address string
	Name    string
	RSSI    int
	Model   Model
}

// ModelFromName resolves the hardware model from an advertised name by
// case-insensitive substring match.
func ModelFromName(name string) (Model, bool) {
	lower := strings.ToLower(name)
	for _, m := range knownModels {
		if strings.Contains(lower, strings.ToLower(string(m))) {
			return m, true
		}
	}
	return ModelUnknown, false
}

// scan enables the adapter and runs one scan bounded by timeout.
func scan(ctx context.Context, adapter Adapter, timeout time.Duration) ([]Device, error) {
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("ble: enable adapter: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	devices, err := adapter.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}
	return devices, nil
}

// Discover runs a fresh scan and returns every advertisement whose name
// resolves to a known model.
func Discover(ctx context.Context, adapter Adapter, timeout time.Duration) ([]DeviceInfo, error) {
	devices, err := scan(ctx, adapter, timeout)
	if err != nil {
		return nil, err
	}

	var found []DeviceInfo
	for _, d := range devices {
		if d.Name == "" {
			continue
		}
		model, ok := ModelFromName(d.Name)
		if !ok {
			continue
		}
		found = append(found, DeviceInfo{
			Address: d.Address,
			Name:    d.Name,
			RSSI:    d.RSSI,
			Model:   model,
		})
	}
	return found, nil
}

// FindTarget runs a fresh scan and returns the first advertisement whose
// name contains substr. The model is resolved but not required to be known.
func FindTarget(ctx context.Context, adapter Adapter, substr string, timeout time.Duration) (DeviceInfo, bool, error) {
	if substr == "" {
		substr = DefaultTargetName
	}
	devices, err := scan(ctx, adapter, timeout)
	if err != nil {
		return DeviceInfo{}, false, err
	}
	for _, d := range devices {
		if d.Name == "" || !strings.Contains(d.Name, substr) {
			continue
		}
		model, _ := ModelFromName(d.Name)
		return DeviceInfo{
			Address: d.Address,
			Name:    d.Name,
			RSSI:    d.RSSI,
			Model:   model,
		}, true, nil
	}
	return DeviceInfo{}, false, nil
}

// Scanner binds discovery to one adapter and scan timeout.
type Scanner struct {
	Adapter Adapter
	Timeout time.Duration
}

// Discover runs Discover on the bound adapter.
func (s Scanner) Discover(ctx context.Context) ([]DeviceInfo, error) {
	return Discover(ctx, s.Adapter, s.Timeout)
}

// FindTarget runs FindTarget on the bound adapter.
func (s Scanner) FindTarget(ctx context.Context, substr string) (DeviceInfo, bool, error) {
	return FindTarget(ctx, s.Adapter, substr, s.Timeout)
}

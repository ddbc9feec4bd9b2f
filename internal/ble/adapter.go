// Package ble talks to LCT liquid-cooling controllers over Bluetooth Low
// Energy. It handles discovery, connection management and command writes
// over the Nordic UART service.
package ble

import "context"

// Nordic UART service UUIDs
const (
	ServiceUUID = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	TXCharUUID  = "6e400002-b5a3-f393-e0a9-e50e24dcca9e"
	RXCharUUID  = "6e400003-b5a3-f393-e0a9-e50e24dcca9e"
)

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// Write sends data to the characteristic.
	Write(data []byte) error
	// Read returns the current value of the characteristic.
	Read() ([]byte, error)
}

// Device is a raw advertisement seen during a scan.
type Device struct {
	Name    string
	Address string
	RSSI    int
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan collects advertisements until ctx is done.
	Scan(ctx context.Context) ([]Device, error)
	// Connect establishes a connection to the device with the given address.
	Connect(ctx context.Context, address string) (Connection, error)
}

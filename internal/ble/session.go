package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/watercooler/watercooler/internal/ble/protocol"
)

var (
	// ErrDeviceNotFound means no advertisement matched the requested device.
	ErrDeviceNotFound = errors.New("ble: device not found")
	// ErrConnectTimeout means the transport connect exceeded its deadline.
	ErrConnectTimeout = errors.New("ble: connect timed out")
	// ErrNotConnected means a write or read was attempted without a live session.
	ErrNotConnected = errors.New("ble: not connected")
	// ErrTransport wraps failures reported by the BLE stack.
	ErrTransport = errors.New("ble: transport error")
)

// SessionState is the lifecycle state of a Session.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// SessionOptions configures connection behavior.
type SessionOptions struct {
	ScanTimeout    time.Duration // how long to look for the address before connecting
	ConnectTimeout time.Duration // transport connect deadline
}

// DefaultSessionOptions returns the timeouts used by the desktop tool.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		ScanTimeout:    DefaultScanTimeout,
		ConnectTimeout: 5 * time.Second,
	}
}

// Session owns the connection to one cooling controller and mediates every
// write and read against it. Callers are expected to serialize transport
// operations; the mutex only guards state for concurrent observers.
type Session struct {
	adapter Adapter
	opts    SessionOptions

	mu         sync.Mutex
	state      SessionState
	conn       Connection
	txChar     Characteristic
	rxChar     Characteristic
	linkUp     bool
	address    string
	name       string
	model      Model
	gen        uint64 // bumped per connection so stale drop callbacks are ignored
	droppedGen uint64 // generation whose link dropped before it was published
	onLinkLost func()
}

// NewSession creates a disconnected session on the given adapter.
func NewSession(adapter Adapter, opts SessionOptions) *Session {
	def := DefaultSessionOptions()
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = def.ScanTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = def.ConnectTimeout
	}
	return &Session{adapter: adapter, opts: opts}
}

// OnLinkLost registers a callback fired when the transport reports that an
// established link dropped. The session does not reconnect on its own.
func (s *Session) OnLinkLost(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLinkLost = cb
}

// Connect resolves address against current advertisements, opens the
// transport connection and discovers the UART characteristics.
func (s *Session) Connect(ctx context.Context, address string) (Model, error) {
	s.mu.Lock()
	if s.state != StateDisconnected {
		state := s.state
		s.mu.Unlock()
		return ModelUnknown, fmt.Errorf("ble: connect to %s: session is %s", address, state)
	}
	s.state = StateConnecting
	s.mu.Unlock()

	model, err := s.connect(ctx, address)
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		return ModelUnknown, err
	}
	return model, nil
}

func (s *Session) connect(ctx context.Context, address string) (Model, error) {
	devices, err := scan(ctx, s.adapter, s.opts.ScanTimeout)
	if err != nil {
		return ModelUnknown, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	var target *Device
	for i := range devices {
		if strings.EqualFold(devices[i].Address, address) {
			target = &devices[i]
			break
		}
	}
	if target == nil {
		return ModelUnknown, fmt.Errorf("%w: %s", ErrDeviceNotFound, address)
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	defer cancel()

	conn, err := s.adapter.Connect(cctx, address)
	if err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return ModelUnknown, fmt.Errorf("%w: %s after %s", ErrConnectTimeout, address, s.opts.ConnectTimeout)
		}
		return ModelUnknown, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	txChar, err := conn.DiscoverCharacteristic(ServiceUUID, TXCharUUID)
	if err != nil {
		_ = conn.Disconnect() // never leave a half-open link behind
		return ModelUnknown, fmt.Errorf("%w: discover TX characteristic: %w", ErrTransport, err)
	}
	rxChar, err := conn.DiscoverCharacteristic(ServiceUUID, RXCharUUID)
	if err != nil {
		// Commands still work without RX; only firmware reads need it.
		slog.Warn("[BLE] RX characteristic unavailable", "address", address, "error", err)
		rxChar = nil
	}

	model, _ := ModelFromName(target.Name)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	// Registered before the session is published as connected so a drop
	// in between is still seen.
	conn.OnDisconnect(func() { s.linkLost(gen) })

	s.mu.Lock()
	if s.droppedGen == gen {
		s.mu.Unlock()
		_ = conn.Disconnect()
		return ModelUnknown, fmt.Errorf("%w: link to %s dropped while connecting", ErrTransport, address)
	}
	s.conn = conn
	s.txChar = txChar
	s.rxChar = rxChar
	s.linkUp = true
	s.address = address
	s.name = target.Name
	s.model = model
	s.state = StateConnected
	s.mu.Unlock()

	slog.Info("[BLE] connected", "address", address, "name", target.Name, "model", model)
	return model, nil
}

// linkLost handles a transport-initiated drop of connection gen.
func (s *Session) linkLost(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if s.state == StateConnecting {
		s.droppedGen = gen
		s.mu.Unlock()
		return
	}
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	addr := s.address
	s.clearLocked()
	cb := s.onLinkLost
	s.mu.Unlock()

	slog.Warn("[BLE] link lost", "address", addr)
	if cb != nil {
		cb()
	}
}

// clearLocked resets the session to disconnected (caller must hold mu).
func (s *Session) clearLocked() {
	s.state = StateDisconnected
	s.conn = nil
	s.txChar = nil
	s.rxChar = nil
	s.linkUp = false
	s.address = ""
	s.name = ""
	s.model = ""
}

// Disconnect sends a best-effort reset and closes the link. Calling it on a
// disconnected session is a no-op.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return nil
	}
	s.state = StateDisconnecting
	conn := s.conn
	txChar := s.txChar
	linkUp := s.linkUp
	addr := s.address
	s.mu.Unlock()

	if linkUp {
		// Reset failures are discarded: a vanished device must not block teardown.
		_ = writeFrame(txChar, protocol.EncodeReset())
	}
	err := conn.Disconnect()

	s.mu.Lock()
	s.gen++
	s.clearLocked()
	s.mu.Unlock()

	slog.Info("[BLE] disconnected", "address", addr)
	if err != nil {
		return fmt.Errorf("%w: disconnect %s: %w", ErrTransport, addr, err)
	}
	return nil
}

// IsConnected reports whether the link is up and the session is connected.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateConnected && s.linkUp
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Model returns the model of the connected device, or "" when disconnected.
func (s *Session) Model() Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Address returns the address of the connected device, or "".
func (s *Session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// Name returns the advertised name of the connected device, or "".
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Write transmits one command frame. There is no retry.
func (s *Session) Write(frame protocol.Frame) error {
	txChar, _, err := s.chars()
	if err != nil {
		return err
	}
	if err := writeFrame(txChar, frame); err != nil {
		return err
	}
	slog.Debug("[BLE] wrote frame", "frame", frame.String())
	return nil
}

// ReadFirmwareVersion writes the version query and returns one reply read
// from the RX characteristic.
func (s *Session) ReadFirmwareVersion() ([]byte, error) {
	txChar, rxChar, err := s.chars()
	if err != nil {
		return nil, err
	}
	if rxChar == nil {
		return nil, fmt.Errorf("%w: RX characteristic unavailable", ErrTransport)
	}
	if err := txChar.Write(protocol.FirmwareVersionQuery()); err != nil {
		return nil, fmt.Errorf("%w: write version query: %w", ErrTransport, err)
	}
	data, err := rxChar.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read version: %w", ErrTransport, err)
	}
	return data, nil
}

func (s *Session) chars() (tx, rx Characteristic, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected || !s.linkUp {
		return nil, nil, ErrNotConnected
	}
	return s.txChar, s.rxChar, nil
}

func writeFrame(txChar Characteristic, frame protocol.Frame) error {
	if err := txChar.Write(frame.Bytes()); err != nil {
		return fmt.Errorf("%w: write 0x%02x frame: %w", ErrTransport, frame.Command(), err)
	}
	return nil
}

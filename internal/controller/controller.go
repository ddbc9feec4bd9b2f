// Package controller orchestrates the cooler: it connects through a BLE
// session, replays persisted settings, and serializes every device
// operation on a single worker.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/watercooler/watercooler/internal/ble"
	"github.com/watercooler/watercooler/internal/ble/protocol"
	"github.com/watercooler/watercooler/internal/settings"
)

// ErrStopped is returned when work is submitted after Exit.
var ErrStopped = errors.New("controller: stopped")

// DefaultExitTimeout bounds how long Exit waits for the disconnect job.
const DefaultExitTimeout = 2 * time.Second

// defaultQueueSize is the number of jobs that may wait for the worker.
const defaultQueueSize = 64

// State is the controller lifecycle state.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateConnecting
	StateApplying
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateConnecting:
		return "connecting"
	case StateApplying:
		return "applying"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is the device link the controller drives. *ble.Session
// satisfies it.
type Session interface {
	Connect(ctx context.Context, address string) (ble.Model, error)
	Disconnect() error
	IsConnected() bool
	Name() string
	Write(frame protocol.Frame) error
	ReadFirmwareVersion() ([]byte, error)
	OnLinkLost(cb func())
}

// Scanner finds controllers on the air. ble.Scanner satisfies it.
type Scanner interface {
	Discover(ctx context.Context) ([]ble.DeviceInfo, error)
	FindTarget(ctx context.Context, substr string) (ble.DeviceInfo, bool, error)
}

// Options tunes target selection and shutdown.
type Options struct {
	// Address pins a device and skips name matching.
	Address string
	// NameFilter is the advertised-name fragment to look for. Empty means
	// the first device of any known model.
	NameFilter string
	// ExitTimeout bounds Exit. Zero means DefaultExitTimeout.
	ExitTimeout time.Duration
	// Title is used for every notification. Empty means DefaultTitle.
	Title string
}

type job struct {
	name string
	fn   func(ctx context.Context)
}

// Controller owns the settings, the session and the presenter.
type Controller struct {
	session Session
	scanner Scanner
	store   settings.Store
	ui      Presenter
	opts    Options

	jobs     chan job
	stopped  chan struct{}
	exitOnce sync.Once
	// exited is set once Exit stops waiting; a job still running after
	// that must not reach the presenter or leave the link up.
	exited atomic.Bool

	mu       sync.RWMutex
	settings settings.Device
	state    State
	device   ble.DeviceInfo
}

// New builds a controller and loads persisted settings, falling back to
// defaults when none are stored or they cannot be read.
func New(session Session, scanner Scanner, store settings.Store, ui Presenter, opts Options) (*Controller, error) {
	if session == nil || scanner == nil || store == nil || ui == nil {
		return nil, fmt.Errorf("controller: session, scanner, store and presenter are required")
	}
	if opts.ExitTimeout <= 0 {
		opts.ExitTimeout = DefaultExitTimeout
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}

	dev, err := store.Load()
	switch {
	case errors.Is(err, settings.ErrNotFound):
		dev = settings.Default()
	case err != nil:
		slog.Warn("[CTRL] Could not load settings, using defaults", "error", err)
		dev = settings.Default()
	}

	c := &Controller{
		session:  session,
		scanner:  scanner,
		store:    store,
		ui:       ui,
		opts:     opts,
		jobs:     make(chan job, defaultQueueSize),
		stopped:  make(chan struct{}),
		settings: dev,
	}
	session.OnLinkLost(c.onLinkLost)
	return c, nil
}

// Run processes queued jobs one at a time until ctx is cancelled or Exit
// stops the controller.
func (c *Controller) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.stopped:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-c.jobs:
			slog.Debug("[CTRL] Running job", "job", j.name)
			j.fn(ctx)
		}
	}
}

// enqueue hands fn to the worker without blocking. It reports false when
// the controller is stopped or the queue is full.
func (c *Controller) enqueue(name string, fn func(ctx context.Context)) bool {
	select {
	case <-c.stopped:
		slog.Debug("[CTRL] Dropping job after exit", "job", name)
		return false
	default:
	}

	select {
	case c.jobs <- job{name: name, fn: fn}:
		return true
	default:
		slog.Warn("[CTRL] Job queue full, dropping", "job", name)
		return false
	}
}

// Sync returns once every job queued before it has run.
func (c *Controller) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if !c.enqueue("sync", func(context.Context) { close(done) }) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect queues a scan, connect and settings replay.
func (c *Controller) Connect() {
	c.enqueue("connect", c.connectAndRun)
}

// Disconnect queues a disconnect. It is a no-op when not connected.
func (c *Controller) Disconnect() {
	c.enqueue("disconnect", func(context.Context) { c.disconnect() })
}

// ReadFirmware queues a firmware version query and reports the result.
func (c *Controller) ReadFirmware() {
	c.enqueue("firmware", func(context.Context) {
		version, err := c.session.ReadFirmwareVersion()
		if err != nil {
			c.notify(fmt.Sprintf("Could not read firmware version: %v", err))
			return
		}
		c.notify(fmt.Sprintf("Firmware version: %s", version))
	})
}

// Exit disconnects, waiting at most ExitTimeout, then persists settings,
// stops the presenter and stops the worker. Later calls do nothing.
// Exit must not be called from the worker.
func (c *Controller) Exit() {
	c.exitOnce.Do(func() {
		done := make(chan struct{})
		if c.enqueue("exit", func(context.Context) {
			c.disconnect()
			close(done)
		}) {
			timer := time.NewTimer(c.opts.ExitTimeout)
			select {
			case <-done:
			case <-timer.C:
				slog.Warn("[CTRL] Disconnect did not finish before exit", "timeout", c.opts.ExitTimeout)
			}
			timer.Stop()
		}

		c.exited.Store(true)
		c.save()
		c.ui.Stop()
		close(c.stopped)
	})
}

// Done is closed once Exit has finished.
func (c *Controller) Done() <-chan struct{} {
	return c.stopped
}

// Snapshot returns an immutable copy of the state presenters render.
func (c *Controller) Snapshot() RenderState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return RenderState{
		State:      c.state,
		Connected:  c.state == StateConnected || c.state == StateApplying,
		Model:      c.device.Model,
		DeviceName: c.device.Name,
		Address:    c.device.Address,
		Settings:   c.settings,
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		slog.Debug("[CTRL] State change", "from", prev, "to", s)
	}
}

func (c *Controller) notify(message string) {
	if c.exited.Load() {
		slog.Debug("[CTRL] Notification after exit", "message", message)
		return
	}
	c.ui.Notify(message, c.opts.Title)
}

func (c *Controller) indicate(connected bool) {
	if c.exited.Load() {
		return
	}
	c.ui.SetConnectionIndicator(connected)
}

// abandonAfterExit drops a link that came up after Exit gave up waiting.
func (c *Controller) abandonAfterExit() bool {
	if !c.exited.Load() {
		return false
	}
	slog.Warn("[CTRL] Connection finished after exit, disconnecting")
	_ = c.session.Disconnect()
	c.mu.Lock()
	c.device = ble.DeviceInfo{}
	c.mu.Unlock()
	c.setState(StateIdle)
	return true
}

func (c *Controller) targetLabel() string {
	if c.opts.NameFilter != "" {
		return c.opts.NameFilter
	}
	return ble.DefaultTargetName
}

// findTarget resolves the device to connect to.
func (c *Controller) findTarget(ctx context.Context) (ble.DeviceInfo, bool, error) {
	if c.opts.Address != "" {
		return ble.DeviceInfo{Address: c.opts.Address, Name: c.opts.Address, Model: ble.ModelUnknown}, true, nil
	}
	if c.opts.NameFilter != "" {
		return c.scanner.FindTarget(ctx, c.opts.NameFilter)
	}
	found, err := c.scanner.Discover(ctx)
	if err != nil || len(found) == 0 {
		return ble.DeviceInfo{}, false, err
	}
	return found[0], true, nil
}

func (c *Controller) connectAndRun(ctx context.Context) {
	if c.session.IsConnected() {
		c.mu.RLock()
		name := c.device.Name
		c.mu.RUnlock()
		c.notify(fmt.Sprintf("Already connected to %s", name))
		return
	}

	label := c.targetLabel()
	c.setState(StateScanning)
	c.notify(fmt.Sprintf("Scanning for %s device...", label))

	target, ok, err := c.findTarget(ctx)
	if err != nil {
		slog.Error("[CTRL] Scan failed", "error", err)
		c.notify(fmt.Sprintf("Error occurred: %v", err))
		c.setState(StateIdle)
		return
	}
	if !ok {
		c.notify(fmt.Sprintf("%s device not found", label))
		c.setState(StateIdle)
		return
	}

	c.notify(fmt.Sprintf("Found device at %s", target.Address))
	c.setState(StateConnecting)

	model, err := c.session.Connect(ctx, target.Address)
	if err != nil {
		c.failConnection(err)
		return
	}
	if c.abandonAfterExit() {
		return
	}
	if target.Model == "" || target.Model == ble.ModelUnknown {
		target.Model = model
	}
	// A pinned address has no advertised name until the session reads it.
	if c.opts.Address != "" || target.Name == "" {
		if name := c.session.Name(); name != "" {
			target.Name = name
		}
	}

	c.mu.Lock()
	c.device = target
	c.mu.Unlock()

	slog.Info("[CTRL] Connected", "name", target.Name, "address", target.Address, "model", target.Model)
	c.notify(fmt.Sprintf("Successfully connected to %s", target.Name))
	c.indicate(true)

	c.setState(StateApplying)
	if err := c.applyCurrentSettings(); err != nil {
		c.failConnection(err)
		return
	}
	if c.abandonAfterExit() {
		return
	}
	c.setState(StateConnected)
}

// failConnection reports err and returns to a clean idle state.
func (c *Controller) failConnection(err error) {
	slog.Error("[CTRL] Connection failed", "error", err)
	c.notify(fmt.Sprintf("Error occurred: %v", err))
	_ = c.session.Disconnect()

	c.mu.Lock()
	c.device = ble.DeviceInfo{}
	c.mu.Unlock()

	c.indicate(false)
	c.setState(StateIdle)
}

// applyCurrentSettings writes pump, fan and RGB in that order. RGB is
// skipped while it is switched off.
func (c *Controller) applyCurrentSettings() error {
	c.mu.RLock()
	s := c.settings
	c.mu.RUnlock()

	frames := make([]func() (protocol.Frame, error), 0, 3)
	frames = append(frames, s.PumpFrame, s.FanFrame)
	if !s.RGBOff {
		frames = append(frames, s.RGBFrame)
	}

	for _, build := range frames {
		frame, err := build()
		if err != nil {
			return err
		}
		if err := c.session.Write(frame); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) disconnect() {
	c.mu.RLock()
	prev := c.state
	c.mu.RUnlock()
	if prev == StateIdle && !c.session.IsConnected() {
		return
	}

	c.setState(StateDisconnecting)
	if err := c.session.Disconnect(); err != nil {
		slog.Warn("[CTRL] Disconnect error", "error", err)
	}

	c.mu.Lock()
	c.device = ble.DeviceInfo{}
	c.mu.Unlock()

	c.indicate(false)
	c.setState(StateIdle)
	c.notify("Disconnected")
}

// onLinkLost runs on the transport's goroutine; the state change is
// handed to the worker.
func (c *Controller) onLinkLost() {
	c.enqueue("link-lost", func(context.Context) {
		// A reconnect queued ahead of this job already brought the link back.
		if c.session.IsConnected() {
			slog.Debug("[CTRL] Ignoring stale link loss")
			return
		}
		c.mu.Lock()
		name := c.device.Name
		c.device = ble.DeviceInfo{}
		c.mu.Unlock()

		slog.Warn("[CTRL] Link lost", "name", name)
		c.indicate(false)
		c.setState(StateIdle)
		c.notify(fmt.Sprintf("Connection to %s lost", name))
	})
}

func (c *Controller) save() {
	c.mu.RLock()
	s := c.settings
	c.mu.RUnlock()
	if err := c.store.Save(s); err != nil {
		slog.Error("[CTRL] Saving settings failed", "error", err)
	}
}

// update queues a settings change: mutate under the lock, write the
// frame built from the new settings, then persist.
func (c *Controller) update(name string, mutate func(*settings.Device), frame func(settings.Device) (protocol.Frame, error)) {
	c.enqueue(name, func(context.Context) {
		c.mu.Lock()
		mutate(&c.settings)
		s := c.settings
		c.mu.Unlock()

		if frame != nil {
			c.send(name, frame, s)
		}
		c.save()
	})
}

func (c *Controller) send(name string, build func(settings.Device) (protocol.Frame, error), s settings.Device) {
	f, err := build(s)
	if err != nil {
		slog.Error("[CTRL] Encoding failed", "job", name, "error", err)
		c.notify(fmt.Sprintf("Error occurred: %v", err))
		return
	}
	err = c.session.Write(f)
	switch {
	case err == nil:
		slog.Debug("[CTRL] Sent", "job", name, "frame", f)
	case errors.Is(err, ble.ErrNotConnected):
		c.notify("Not connected, change saved for the next connection")
	default:
		slog.Error("[CTRL] Write failed", "job", name, "error", err)
		c.notify(fmt.Sprintf("Error occurred: %v", err))
	}
}

// SetPumpVoltage selects a pump voltage and switches the pump on.
func (c *Controller) SetPumpVoltage(v protocol.PumpVoltage) error {
	if !v.Valid() {
		return fmt.Errorf("%w: pump voltage code %d", protocol.ErrOutOfRange, int(v))
	}
	c.update("pump-voltage", func(s *settings.Device) {
		s.PumpVoltage = v
		s.PumpOff = false
	}, settings.Device.PumpFrame)
	return nil
}

// SetPumpDuty sets the pump duty cycle and switches the pump on.
func (c *Controller) SetPumpDuty(duty int) error {
	if _, err := protocol.EncodePump(duty, protocol.PumpV7); err != nil {
		return err
	}
	c.update("pump-duty", func(s *settings.Device) {
		s.PumpDuty = uint8(duty)
		s.PumpOff = false
	}, settings.Device.PumpFrame)
	return nil
}

// SetFanSpeed sets the fan duty cycle and switches the fan on.
func (c *Controller) SetFanSpeed(duty int) error {
	if _, err := protocol.EncodeFan(duty); err != nil {
		return err
	}
	c.update("fan-speed", func(s *settings.Device) {
		s.FanDuty = uint8(duty)
		s.FanOff = false
	}, settings.Device.FanFrame)
	return nil
}

// SetRGBMode sets the lighting mode and switches the lights on.
func (c *Controller) SetRGBMode(m protocol.RGBMode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: rgb mode code %d", protocol.ErrOutOfRange, int(m))
	}
	c.update("rgb-mode", func(s *settings.Device) {
		s.RGBMode = m
		s.RGBOff = false
	}, settings.Device.RGBFrame)
	return nil
}

// SetRGBColor sets the lighting color and switches the lights on.
func (c *Controller) SetRGBColor(color settings.Color) {
	c.update("rgb-color", func(s *settings.Device) {
		s.RGBColor = color
		s.RGBOff = false
	}, settings.Device.RGBFrame)
}

// TogglePumpOff flips the pump between off and its stored parameters.
func (c *Controller) TogglePumpOff() {
	c.update("pump-toggle", func(s *settings.Device) { s.PumpOff = !s.PumpOff }, settings.Device.PumpFrame)
}

// ToggleFanOff flips the fan between off and its stored duty.
func (c *Controller) ToggleFanOff() {
	c.update("fan-toggle", func(s *settings.Device) { s.FanOff = !s.FanOff }, settings.Device.FanFrame)
}

// ToggleRGBOff flips the lights between off and their stored parameters.
func (c *Controller) ToggleRGBOff() {
	c.update("rgb-toggle", func(s *settings.Device) { s.RGBOff = !s.RGBOff }, settings.Device.RGBFrame)
}

// ToggleAutoConnect flips whether run connects at startup. Nothing is
// written to the device.
func (c *Controller) ToggleAutoConnect() {
	c.update("auto-connect-toggle", func(s *settings.Device) { s.AutoConnect = !s.AutoConnect }, nil)
}

// Package mqtt exposes the cooler controller over MQTT: status and state
// are published, commands are accepted under <prefix>/set/#.
package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/watercooler/watercooler/internal/ble/protocol"
	"github.com/watercooler/watercooler/internal/controller"
	"github.com/watercooler/watercooler/internal/settings"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Commands is the controller surface the bridge drives.
type Commands interface {
	Connect()
	Disconnect()
	ReadFirmware()
	Exit()
	SetPumpVoltage(v protocol.PumpVoltage) error
	SetPumpDuty(duty int) error
	TogglePumpOff()
	SetFanSpeed(duty int) error
	ToggleFanOff()
	SetRGBMode(m protocol.RGBMode) error
	SetRGBColor(c settings.Color)
	ToggleRGBOff()
	ToggleAutoConnect()
	Snapshot() controller.RenderState
}

// Bridge is a controller.Presenter that mirrors status to MQTT.
type Bridge struct {
	client pahomqtt.Client
	prefix string
	logger *slog.Logger

	mu     sync.Mutex
	target Commands

	stopOnce sync.Once
}

type statusMessage struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(cfg Config, logger *slog.Logger) (*Bridge, error) {
	b := newBridge(nil, cfg.TopicPrefix, logger)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "watercooler"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(b.topic("bridge"), "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			b.publish(b.topic("bridge"), []byte("online"), true)
			b.subscribeCommands()
			b.publishState()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	b.client = pahomqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return b, nil
}

func newBridge(client pahomqtt.Client, prefix string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		logger: logger.With("component", "mqtt"),
	}
}

// Serve routes commands received under <prefix>/set/# to target and
// starts publishing its state.
func (b *Bridge) Serve(target Commands) {
	b.mu.Lock()
	b.target = target
	b.mu.Unlock()

	b.subscribeCommands()
	b.publishState()
	b.logger.Info("MQTT bridge serving", "prefix", b.prefix)
}

// Notify publishes a status message and the current state.
func (b *Bridge) Notify(message, title string) {
	b.publish(b.topic("status"), mustJSON(statusMessage{Title: title, Message: message}), false)
	b.publishState()
}

// SetConnectionIndicator publishes the retained connection flag.
func (b *Bridge) SetConnectionIndicator(connected bool) {
	payload := "offline"
	if connected {
		payload = "online"
	}
	b.publish(b.topic("connected"), []byte(payload), true)
	b.publishState()
}

// Stop publishes offline state and disconnects.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.publish(b.topic("bridge"), []byte("offline"), true)
		b.client.Disconnect(1000)
		b.logger.Info("MQTT bridge stopped")
	})
}

func (b *Bridge) topic(name string) string {
	return b.prefix + "/" + name
}

func (b *Bridge) commands() Commands {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.target
}

func (b *Bridge) subscribeCommands() {
	if b.commands() == nil {
		return
	}
	topic := b.topic("set/#")
	token := b.client.Subscribe(topic, 1, b.handleMessage)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			b.logger.Warn("MQTT subscribe timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			b.logger.Warn("MQTT subscribe error", "topic", topic, "err", err)
		}
	}()
}

func (b *Bridge) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	action := strings.TrimPrefix(msg.Topic(), b.topic("set/"))
	cmd, err := ParseCommand(action, msg.Payload())
	if err != nil {
		b.logger.Warn("invalid command", "topic", msg.Topic(), "err", err)
		return
	}
	b.dispatch(cmd)
}

func (b *Bridge) dispatch(cmd Command) {
	target := b.commands()
	if target == nil {
		return
	}

	var err error
	switch cmd.Action {
	case ActionConnect:
		target.Connect()
	case ActionDisconnect:
		target.Disconnect()
	case ActionFirmware:
		target.ReadFirmware()
	case ActionExit:
		// Exit stops this bridge, which must not happen on paho's
		// message goroutine.
		go target.Exit()
	case ActionPumpVoltage:
		err = target.SetPumpVoltage(cmd.Voltage)
	case ActionPumpDuty:
		err = target.SetPumpDuty(cmd.Duty)
	case ActionPumpOff:
		target.TogglePumpOff()
	case ActionFanSpeed:
		err = target.SetFanSpeed(cmd.Duty)
	case ActionFanOff:
		target.ToggleFanOff()
	case ActionRGBMode:
		err = target.SetRGBMode(cmd.Mode)
	case ActionRGBColor:
		target.SetRGBColor(cmd.Color)
	case ActionRGBOff:
		target.ToggleRGBOff()
	case ActionAutoConnect:
		target.ToggleAutoConnect()
	}
	if err != nil {
		b.logger.Warn("command rejected", "action", cmd.Action, "err", err)
	}
}

func (b *Bridge) publishState() {
	target := b.commands()
	if target == nil {
		return
	}
	b.publish(b.topic("state"), mustJSON(target.Snapshot()), true)
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			b.logger.Warn("MQTT publish timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			b.logger.Warn("MQTT publish error", "topic", topic, "err", err)
		}
	}()
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}

var _ controller.Presenter = (*Bridge)(nil)

package mqtt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/watercooler/watercooler/internal/ble/protocol"
	"github.com/watercooler/watercooler/internal/settings"
)

// Action names accepted under <prefix>/set/.
const (
	ActionConnect     = "connect"
	ActionDisconnect  = "disconnect"
	ActionFirmware    = "firmware"
	ActionExit        = "exit"
	ActionPumpVoltage = "pump/voltage"
	ActionPumpDuty    = "pump/duty"
	ActionPumpOff     = "pump/off"
	ActionFanSpeed    = "fan/speed"
	ActionFanOff      = "fan/off"
	ActionRGBMode     = "rgb/mode"
	ActionRGBColor    = "rgb/color"
	ActionRGBOff      = "rgb/off"
	ActionAutoConnect = "auto-connect"
)

// Command is a parsed request. Only the field matching Action is set.
type Command struct {
	Action  string
	Voltage protocol.PumpVoltage
	Duty    int
	Mode    protocol.RGBMode
	Color   settings.Color
}

// ParseCommand decodes a request. action is the topic below the command
// root, e.g. "fan/speed".
func ParseCommand(action string, payload []byte) (Command, error) {
	action = strings.Trim(action, "/")
	arg := strings.TrimSpace(string(payload))
	cmd := Command{Action: action}

	switch action {
	case ActionConnect, ActionDisconnect, ActionFirmware, ActionExit,
		ActionPumpOff, ActionFanOff, ActionRGBOff, ActionAutoConnect:
		return cmd, nil

	case ActionPumpVoltage:
		v, err := protocol.ParsePumpVoltage(arg)
		if err != nil {
			return Command{}, err
		}
		cmd.Voltage = v

	case ActionPumpDuty, ActionFanSpeed:
		duty, err := strconv.Atoi(strings.TrimSuffix(arg, "%"))
		if err != nil {
			return Command{}, fmt.Errorf("mqtt: %s: invalid duty %q", action, arg)
		}
		cmd.Duty = duty

	case ActionRGBMode:
		m, err := protocol.ParseRGBMode(arg)
		if err != nil {
			return Command{}, err
		}
		cmd.Mode = m

	case ActionRGBColor:
		c, err := parseColorArg(arg)
		if err != nil {
			return Command{}, err
		}
		cmd.Color = c

	default:
		return Command{}, fmt.Errorf("mqtt: unknown action %q", action)
	}
	return cmd, nil
}

// parseColorArg accepts "r,g,b" or a preset name.
func parseColorArg(arg string) (settings.Color, error) {
	switch strings.ToLower(arg) {
	case "red":
		return settings.Red, nil
	case "green":
		return settings.Green, nil
	case "blue":
		return settings.Blue, nil
	case "white":
		return settings.White, nil
	}
	return settings.ParseColor(arg)
}

package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watercooler/watercooler/internal/ble/protocol"
	"github.com/watercooler/watercooler/internal/settings"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		action  string
		payload string
		want    Command
		wantErr bool
	}{
		{action: "connect", want: Command{Action: ActionConnect}},
		{action: "/disconnect/", want: Command{Action: ActionDisconnect}},
		{action: "exit", payload: "ignored", want: Command{Action: ActionExit}},
		{action: "firmware", want: Command{Action: ActionFirmware}},
		{action: "pump/off", want: Command{Action: ActionPumpOff}},
		{action: "fan/off", want: Command{Action: ActionFanOff}},
		{action: "rgb/off", want: Command{Action: ActionRGBOff}},
		{action: "auto-connect", payload: "toggle", want: Command{Action: ActionAutoConnect}},
		{action: "pump/voltage", payload: "7", want: Command{Action: ActionPumpVoltage, Voltage: protocol.PumpV7}},
		{action: "pump/voltage", payload: "12V", want: Command{Action: ActionPumpVoltage, Voltage: protocol.PumpV12}},
		{action: "pump/voltage", payload: "9", wantErr: true},
		{action: "pump/duty", payload: "60", want: Command{Action: ActionPumpDuty, Duty: 60}},
		{action: "fan/speed", payload: " 90% ", want: Command{Action: ActionFanSpeed, Duty: 90}},
		{action: "fan/speed", payload: "fast", wantErr: true},
		{action: "rgb/mode", payload: "breathe-color", want: Command{Action: ActionRGBMode, Mode: protocol.RGBBreatheColor}},
		{action: "rgb/mode", payload: "disco", wantErr: true},
		{action: "rgb/color", payload: "0,255,0", want: Command{Action: ActionRGBColor, Color: settings.Green}},
		{action: "rgb/color", payload: "White", want: Command{Action: ActionRGBColor, Color: settings.White}},
		{action: "rgb/color", payload: "0,256,0", wantErr: true},
		{action: "pump", wantErr: true},
		{action: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.action+"="+tt.payload, func(t *testing.T) {
			got, err := ParseCommand(tt.action, []byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/watercooler/watercooler/internal/ble"
)

var firmwareCmd = &cobra.Command{
	Use:   "firmware",
	Short: "Read the controller firmware version",
	Long: `Connect to the configured controller, send the firmware version query,
print the reply and disconnect. Saved settings are not applied.`,
	RunE: runFirmware,
}

func init() {
	rootCmd.AddCommand(firmwareCmd)
}

func runFirmware(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	adapter := ble.NewTinyGoAdapter()

	address := cfg.Device.Address
	if address == "" {
		target, ok, err := newScanner(adapter).FindTarget(ctx, cfg.Device.NameFilter)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: no device matching %q", ble.ErrDeviceNotFound, cfg.Device.NameFilter)
		}
		address = target.Address
	}

	session := ble.NewSession(adapter, sessionOptions())
	model, err := session.Connect(ctx, address)
	if err != nil {
		return err
	}
	defer func() { _ = session.Disconnect() }()

	version, err := session.ReadFirmwareVersion()
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s): %s\n", address, model, version)
	return nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/watercooler/watercooler/internal/ble/protocol"
	"github.com/watercooler/watercooler/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or edit the saved device settings",
	Long: `Work on the persisted settings without touching the device. Changes
take effect the next time run connects.`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved settings",
	RunE:  runSettingsShow,
}

var (
	setPumpVoltage string
	setPumpDuty    int
	setFanDuty     int
	setRGBMode     string
	setRGBColor    string
	setPumpOff     bool
	setFanOff      bool
	setRGBOff      bool
	setAutoConnect bool
	setAutoStart   bool
)

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change saved settings",
	Long: `Change one or more saved settings. Only the flags given are changed.

Examples:
  watercooler settings set --pump-voltage 8 --fan 75
  watercooler settings set --mode breathe --color 0,0,255
  watercooler settings set --rgb-off`,
	RunE: runSettingsSet,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)

	f := settingsSetCmd.Flags()
	f.StringVar(&setPumpVoltage, "pump-voltage", "", "pump voltage: 7, 8, 11 or 12")
	f.IntVar(&setPumpDuty, "pump-duty", protocol.DefaultPumpDuty, "pump duty cycle 0-100")
	f.IntVar(&setFanDuty, "fan", 50, "fan duty cycle 0-255")
	f.StringVar(&setRGBMode, "mode", "", "lighting mode: static, breathe, colorful, breathe-color")
	f.StringVar(&setRGBColor, "color", "", "lighting color as r,g,b")
	f.BoolVar(&setPumpOff, "pump-off", false, "switch the pump off")
	f.BoolVar(&setFanOff, "fan-off", false, "switch the fan off")
	f.BoolVar(&setRGBOff, "rgb-off", false, "switch the lighting off")
	f.BoolVar(&setAutoConnect, "auto-connect", true, "connect when run starts")
	f.BoolVar(&setAutoStart, "auto-start", false, "start with the desktop session")
}

// loadSettings opens the store and returns the saved or default settings.
func loadSettings() (*settings.BoltStore, settings.Device, error) {
	store, err := settings.NewBoltStore(cfg.SettingsPath)
	if err != nil {
		return nil, settings.Device{}, err
	}
	dev, err := store.Load()
	if errors.Is(err, settings.ErrNotFound) {
		return store, settings.Default(), nil
	}
	if err != nil {
		_ = store.Close()
		return nil, settings.Device{}, err
	}
	return store, dev, nil
}

func runSettingsShow(_ *cobra.Command, _ []string) error {
	store, dev, err := loadSettings()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	printSettings(dev)
	return nil
}

func runSettingsSet(cmd *cobra.Command, _ []string) error {
	store, dev, err := loadSettings()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	f := cmd.Flags()
	if f.Changed("pump-voltage") {
		v, err := protocol.ParsePumpVoltage(setPumpVoltage)
		if err != nil {
			return err
		}
		dev.PumpVoltage = v
	}
	if f.Changed("pump-duty") {
		if _, err := protocol.EncodePump(setPumpDuty, dev.PumpVoltage); err != nil {
			return err
		}
		dev.PumpDuty = uint8(setPumpDuty)
	}
	if f.Changed("fan") {
		if _, err := protocol.EncodeFan(setFanDuty); err != nil {
			return err
		}
		dev.FanDuty = uint8(setFanDuty)
	}
	if f.Changed("mode") {
		m, err := protocol.ParseRGBMode(setRGBMode)
		if err != nil {
			return err
		}
		dev.RGBMode = m
	}
	if f.Changed("color") {
		c, err := settings.ParseColor(setRGBColor)
		if err != nil {
			return err
		}
		dev.RGBColor = c
	}
	if f.Changed("pump-off") {
		dev.PumpOff = setPumpOff
	}
	if f.Changed("fan-off") {
		dev.FanOff = setFanOff
	}
	if f.Changed("rgb-off") {
		dev.RGBOff = setRGBOff
	}
	if f.Changed("auto-connect") {
		dev.AutoConnect = setAutoConnect
	}
	if f.Changed("auto-start") {
		dev.AutoStart = setAutoStart
	}

	if err := store.Save(dev); err != nil {
		return err
	}
	printSettings(dev)
	return nil
}

func printSettings(dev settings.Device) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "pump\t%s, %d%%%s\n", dev.PumpVoltage, dev.PumpDuty, offSuffix(dev.PumpOff))
	fmt.Fprintf(w, "fan\t%d%%%s\n", dev.FanDuty, offSuffix(dev.FanOff))
	fmt.Fprintf(w, "rgb\t%s, %s%s\n", dev.RGBMode, dev.RGBColor, offSuffix(dev.RGBOff))
	fmt.Fprintf(w, "auto-connect\t%t\n", dev.AutoConnect)
	fmt.Fprintf(w, "auto-start\t%t\n", dev.AutoStart)
	_ = w.Flush()
}

func offSuffix(off bool) string {
	if off {
		return " (off)"
	}
	return ""
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/watercooler/watercooler/internal/ble"
	"github.com/watercooler/watercooler/internal/controller"
	"github.com/watercooler/watercooler/internal/mqtt"
	"github.com/watercooler/watercooler/internal/settings"
)

var runNoConnect bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Keep a session open and serve commands",
	Long: `Run the controller until interrupted.

When auto_connect is on in the saved settings the device is connected at
startup and the saved pump, fan and lighting settings are applied. With
mqtt.enabled the controller is driven through <prefix>/set/# and reports
on <prefix>/status, <prefix>/connected and <prefix>/state.

SIGINT or SIGTERM (or an MQTT exit command) disconnects, saves the
settings and exits.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runNoConnect, "no-connect", false, "do not connect at startup even if auto_connect is set")
}

func runRun(cmd *cobra.Command, _ []string) error {
	printBanner()

	store, err := settings.NewBoltStore(cfg.SettingsPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	presenters := controller.MultiPresenter{controller.LogPresenter{}}
	var bridge *mqtt.Bridge
	if cfg.MQTT.Enabled {
		bridge, err = mqtt.NewBridge(mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, slog.Default())
		if err != nil {
			return err
		}
		presenters = append(presenters, bridge)
	}

	adapter := ble.NewTinyGoAdapter()
	session := ble.NewSession(adapter, sessionOptions())
	ctrl, err := controller.New(session, newScanner(adapter), store, presenters, controller.Options{
		Address:    cfg.Device.Address,
		NameFilter: cfg.Device.NameFilter,
	})
	if err != nil {
		return err
	}
	if bridge != nil {
		bridge.Serve(ctrl)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go ctrl.Run(ctx)

	if ctrl.Snapshot().Settings.AutoConnect && !runNoConnect {
		ctrl.Connect()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		slog.Info("Shutting down", "signal", sig.String())
		ctrl.Exit()
	case <-ctrl.Done():
	}
	return nil
}

// printBanner displays the startup configuration summary.
func printBanner() {
	target := cfg.Device.NameFilter
	if cfg.Device.Address != "" {
		target = cfg.Device.Address
	} else if target == "" {
		target = "any LCT21001/LCT22002"
	}
	mqttState := "disabled"
	if cfg.MQTT.Enabled {
		mqttState = fmt.Sprintf("%s (%s)", cfg.MQTT.Broker, cfg.MQTT.TopicPrefix)
	}

	fmt.Println("=== watercooler ===")
	fmt.Printf("  Device:   %s\n", target)
	fmt.Printf("  Settings: %s\n", cfg.SettingsPath)
	fmt.Printf("  MQTT:     %s\n", mqttState)
	fmt.Printf("  Log:      %s\n", cfg.LogLevel)
	fmt.Println("===================")
}

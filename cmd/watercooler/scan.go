package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/watercooler/watercooler/internal/ble"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List nearby LCT21001/LCT22002 controllers",
	Long: `Scan for device.scan_timeout and print every advertisement whose name
identifies a known controller model.

Exit codes:
  0 - at least one controller found
  1 - none found or the scan failed`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	fmt.Printf("Scanning for %s...\n", cfg.Device.ScanTimeout)

	found, err := newScanner(ble.NewTinyGoAdapter()).Discover(cmd.Context())
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return fmt.Errorf("no controllers found")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tNAME\tMODEL\tRSSI")
	for _, d := range found {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", d.Address, d.Name, d.Model, d.RSSI)
	}
	return w.Flush()
}

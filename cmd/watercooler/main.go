// Command watercooler controls a BLE liquid-cooling controller: pump,
// fan and RGB lighting, with settings re-applied on every connect.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// mockdcore is the command-line launcher for the mock server core.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// exit codes per the external interface contract.
const (
	exitOK            = 0
	exitBindFailure   = 1
	exitBadConfigured = 2
)

var rootCmd = &cobra.Command{
	Use:   "mockdcore",
	Short: "Programmable HTTP(S) mock server core",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitBadConfigured)
	}
}

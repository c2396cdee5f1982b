// =============================================================================
// SEPA Payment Builder - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   sepagen version
//
// OUTPUT:
//   SEPA Payment Builder
//   Version:    1.0.0
//   Build Date: 2026-03-14
//   Go Version: go1.24.11
//   Formats:    json, xml (urn:iso:std:iso:20022:tech:xsd:pain.001.001.03)
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sepa-payment-builder/internal/config"
	"github.com/ginjaninja78/sepa-payment-builder/internal/xmlwriter"
)

// =============================================================================
// VERSION INFORMATION
// =============================================================================
// These variables are set at build time using ldflags.
// Example build command:
//   go build -ldflags "-X 'github.com/ginjaninja78/sepa-payment-builder/cmd.Version=1.0.0'"

// Version is the application version.
var Version = "1.0.0"

// BuildDate is the date the application was built.
var BuildDate = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Long:  `Display the application version, build date, Go runtime version and supported output formats.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "SEPA Payment Builder")
		fmt.Fprintf(out, "Version:    %s\n", Version)
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
		fmt.Fprintf(out, "Formats:    %s, %s (%s)\n", config.FormatJSON, config.FormatXML, xmlwriter.Namespace)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

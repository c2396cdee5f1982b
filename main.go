// =============================================================================
// SEPA Payment Builder - Main Entry Point
// =============================================================================
//
// This is the main entry point for the sepagen CLI application. It delegates
// command execution to the cmd package.
//
// USAGE:
//   sepagen generate  - Turn every input file into a payment document
//   sepagen validate  - Validate the configuration (and input files)
//   sepagen inspect   - Print the content of a payment document
//   sepagen version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/            : CLI command definitions (Cobra)
//   - internal/sepa   : Payment builder, document schema and reader
//   - internal/       : Parsing, transformation, validation and rendering
//   - pkg/utils       : File discovery, archival and log files
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/sepa-payment-builder/cmd"
)

func main() {
	cmd.Execute()
}

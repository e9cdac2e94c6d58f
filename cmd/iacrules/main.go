// Package main is the entry point for the iacrules CLI.
//
// Without a subcommand the binary serves the rule catalog over stdio to an
// MCP client. The report, catalog and template subcommands expose the same
// engine to humans and CI pipelines. Startup follows this sequence:
//
//  1. Load configuration (defaults when no file exists)
//  2. Initialize logging on stderr
//  3. Run the selected command
//
// A report that finds errors exits with status 1.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errReportFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

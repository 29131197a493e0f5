package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=... -X main.gitCommit=... -X main.buildDate=...".
var (
	version   = "development"
	gitCommit = "unknown"
	buildDate = "development"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sushichat %s (commit %s, built %s)\n", version, gitCommit, buildDate)
		},
	}
}

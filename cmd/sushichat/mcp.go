package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/itsneelabh/sushichat/mcpserver"
)

func newMCPCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the ordering tools over MCP stdio",
		Long: `mcp publishes the menu, store and order tools to an MCP client on
stdin/stdout. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigWithoutModel(v)
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, buildOptions{stderrLogs: true})
			if err != nil {
				return err
			}
			defer func() { _ = a.close(context.Background()) }()
			return mcpserver.ServeStdio(a.router, cfg.Name, version, a.logger)
		},
	}
}

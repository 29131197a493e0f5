package main

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/itsneelabh/sushichat/core"
)

type rootOptions struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "sushichat",
		Short:         "Sushi ordering assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `sushichat answers customers in Spanish, shows the menu and store
information and takes orders through a tool-calling language model.

Examples:
  # Chat service with the offline model
  sushichat serve --ai-provider mock

  # Expose the tools to an MCP client over stdio
  sushichat mcp --storage-driver memory`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initViper(v, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (yaml, json or toml)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, text)")
	flags.String("ai-provider", "openai", "language model provider (openai, mock)")
	flags.String("storage-driver", "sqlite", "order storage (sqlite, memory)")
	flags.String("storage-dsn", "sushichat.db", "sqlite database path")
	flags.String("redis-url", "", "redis URL for quotes and chat sessions")
	flags.String("seed-file", "", "catalog seed YAML (default: built-in)")
	flags.String("kitchen-backend", "log", "kitchen ticket backend (log, servicebus, amqp, temporal, none)")

	for key, flag := range map[string]string{
		"logging.level":     "log-level",
		"logging.format":    "log-format",
		"ai.provider":       "ai-provider",
		"storage.driver":    "storage-driver",
		"storage.dsn":       "storage-dsn",
		"redis.url":         "redis-url",
		"catalog.seed_file": "seed-file",
		"kitchen.backend":   "kitchen-backend",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(
		newServeCmd(v),
		newMCPCmd(v),
		newSeedCmd(v),
		newWorkerCmd(v),
		newVersionCmd(),
	)
	return cmd
}

func initViper(v *viper.Viper, opts *rootOptions) error {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && opts.envFile != ".env" {
			return fmt.Errorf("load env file %s: %w", opts.envFile, err)
		}
	}
	if err := core.BindViper(v); err != nil {
		return err
	}
	if opts.configFile != "" {
		v.SetConfigFile(opts.configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return fmt.Errorf("config file %s not found: %w", opts.configFile, core.ErrMissingConfiguration)
			}
			return fmt.Errorf("read config %s: %w", opts.configFile, err)
		}
	}
	return nil
}

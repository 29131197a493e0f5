package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/itsneelabh/sushichat/catalog"
	"github.com/itsneelabh/sushichat/core"
	"github.com/itsneelabh/sushichat/storage"
)

func newSeedCmd(v *viper.Viper) *cobra.Command {
	var resetStock bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the catalog seed into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigWithoutModel(v)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "sqlite" {
				return fmt.Errorf("seed needs the sqlite storage driver, got %q: %w", cfg.Storage.Driver, core.ErrInvalidConfiguration)
			}
			logger, err := newLogger(cfg, false)
			if err != nil {
				return err
			}
			defer logger.Close()

			seed, err := catalog.Load(cfg.Catalog.SeedFile)
			if err != nil {
				return err
			}
			db, err := storage.Open(cfg.Storage, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.SeedCatalog(cmd.Context(), seed, storage.SeedOptions{ResetStock: resetStock}); err != nil {
				return err
			}
			n, err := db.CountProducts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d boxes into %s\n", n, cfg.Storage.DSN)
			return nil
		},
	}
	cmd.Flags().BoolVar(&resetStock, "reset-stock", false, "overwrite live stock with the seed values")
	return cmd
}

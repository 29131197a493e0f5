package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.temporal.io/sdk/worker"

	"github.com/itsneelabh/sushichat/kitchen"
)

func newWorkerCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal worker for kitchen tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigWithoutModel(v)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, false)
			if err != nil {
				return err
			}
			defer logger.Close()

			c, err := kitchen.DialTemporal(cfg.Kitchen.Temporal, logger)
			if err != nil {
				return err
			}
			defer c.Close()

			w := kitchen.NewWorker(c, cfg.Kitchen.Temporal.TaskQueue)
			logger.Info("Starting kitchen worker", map[string]interface{}{
				"operation":  "kitchen_worker",
				"host_port":  cfg.Kitchen.Temporal.HostPort,
				"task_queue": cfg.Kitchen.Temporal.TaskQueue,
			})
			if err := w.Run(worker.InterruptCh()); err != nil {
				return fmt.Errorf("kitchen worker: %w", err)
			}
			return nil
		},
	}
}

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/yukikurage/timesheet-management-api/internal/logger"
	"github.com/yukikurage/timesheet-management-api/internal/storage"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete staged uploads left behind by interrupted requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, dir := range []string{cfg.UserUploadDir, cfg.ReportUploadDir} {
			store, err := storage.NewStore(dir)
			if err != nil {
				return err
			}
			removed, err := store.Sweep(cfg.SweepMaxAge, time.Now())
			if err != nil {
				return err
			}
			logger.Log.Infow("Swept staged uploads", "dir", dir, "removed", removed, "maxAge", cfg.SweepMaxAge)
		}
		return nil
	},
}

package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/route-enrich/internal/fetch"
)

var fetchlaForce bool

var fetchlaCmd = &cobra.Command{
	Use:   "fetchla",
	Short: "Download local authority boundaries from SpatialHub",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if fetchlaForce {
			dest := filepath.Join(cfg.Output.DataDir, "la_boundaries.geojson")
			if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
				return eris.Wrap(err, "fetchla: remove cached boundaries")
			}
		}

		client := fetch.New(nil, cfg.Fetch.Retries, cfg.Fetch.RatePerSec)
		_, err := client.EnsureLA(ctx, cfg.Output.DataDir, cfg.Fetch.BoundaryURL)
		return err
	},
}

func init() {
	fetchlaCmd.Flags().BoolVar(&fetchlaForce, "force", false, "Re-download even when a cached copy exists")
	rootCmd.AddCommand(fetchlaCmd)
}

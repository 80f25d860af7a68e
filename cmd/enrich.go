package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/route-enrich/internal/db"
	"github.com/sells-group/route-enrich/internal/engine"
	"github.com/sells-group/route-enrich/internal/enrich"
	"github.com/sells-group/route-enrich/internal/fetch"
	"github.com/sells-group/route-enrich/internal/loader"
	"github.com/sells-group/route-enrich/internal/model"
	"github.com/sells-group/route-enrich/internal/writer"
)

var (
	enrichRoutesPath   string
	enrichLAPath       string
	enrichRPTPath      string
	enrichManifestPath string
	enrichMinLengthM   float64
	enrichMinShare     float64
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich routes with region primary and membership fields",
	Long: `Runs the batch enrichment job: loads routes and both region layers,
computes overlaps, primary assignments (longest overlap, nearest-region
fallback) and threshold-filtered membership lists, and writes the enriched
GeoJSON plus the SQLite artifact database.

LA boundaries are downloaded from SpatialHub when --la is not given.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if enrichRoutesPath == "" {
			return eris.New("enrich: --routes is required")
		}

		// Flag overrides for run-scoped thresholds.
		ecfg := cfg.Enrich
		if cmd.Flags().Changed("min-length-m") {
			ecfg.MinLengthM = enrichMinLengthM
		}
		if cmd.Flags().Changed("min-share") {
			ecfg.MinShare = enrichMinShare
		}
		if err := ecfg.Validate(); err != nil {
			return err
		}

		pool, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		eng := engine.NewPostGIS(pool)

		manifest, err := resolveManifest(ctx)
		if err != nil {
			return err
		}

		routes, err := loader.LoadRoutes(enrichRoutesPath)
		if err != nil {
			return err
		}
		layers := make([]model.Layer, 0, len(manifest.Layers))
		for _, spec := range manifest.Layers {
			layer, err := loader.LoadLayer(spec)
			if err != nil {
				return err
			}
			layers = append(layers, layer)
		}

		pipeline := enrich.New(enrich.Config{
			StorageSRID: ecfg.StorageSRID,
			MeasureSRID: ecfg.MeasureSRID,
			Workers:     ecfg.Workers,
			Thresholds: enrich.Thresholds{
				MinLengthM: ecfg.MinLengthM,
				MinShare:   ecfg.MinShare,
			},
		}, eng)

		result, err := pipeline.Run(ctx, routes, layers)
		if err != nil {
			return err
		}

		return writeArtifacts(ctx, result)
	},
}

// resolveManifest builds the layer manifest from flags: an explicit YAML
// manifest wins; otherwise the default LA + RTP pair is used, downloading
// LA boundaries when no local path is given.
func resolveManifest(ctx context.Context) (*loader.Manifest, error) {
	if enrichManifestPath != "" {
		return loader.LoadManifest(enrichManifestPath)
	}

	laPath := enrichLAPath
	if laPath == "" {
		client := fetch.New(nil, cfg.Fetch.Retries, cfg.Fetch.RatePerSec)
		p, err := client.EnsureLA(ctx, cfg.Output.DataDir, cfg.Fetch.BoundaryURL)
		if err != nil {
			return nil, err
		}
		laPath = p
	}
	if enrichRPTPath == "" {
		return nil, eris.New("enrich: --rpt is required when --layers is not given")
	}
	return loader.DefaultManifest(laPath, enrichRPTPath), nil
}

func init() {
	enrichCmd.Flags().StringVar(&enrichRoutesPath, "routes", "", "Input routes GeoJSON (LineString/MultiLineString)")
	enrichCmd.Flags().StringVar(&enrichLAPath, "la", "", "Local authority boundaries (GeoJSON or shapefile; downloaded when empty)")
	enrichCmd.Flags().StringVar(&enrichRPTPath, "rpt", "", "RTP boundaries (GeoJSON or shapefile)")
	enrichCmd.Flags().StringVar(&enrichManifestPath, "layers", "", "Layer manifest YAML (overrides --la/--rpt)")
	enrichCmd.Flags().Float64Var(&enrichMinLengthM, "min-length-m", 0, "Minimum intersection length in meters for membership")
	enrichCmd.Flags().Float64Var(&enrichMinShare, "min-share", 0, "Minimum route share (0-1) for membership")

	rootCmd.AddCommand(enrichCmd)
}

func writeArtifacts(ctx context.Context, result *enrich.Result) error {
	log := zap.L().With(zap.String("command", "enrich"))

	if err := os.MkdirAll(cfg.Output.DataDir, 0o755); err != nil {
		return eris.Wrap(err, "enrich: create data dir")
	}

	geojsonPath := filepath.Join(cfg.Output.DataDir, "routes_enriched.geojson")
	if err := writer.WriteGeoJSON(geojsonPath, result.Records); err != nil {
		return err
	}

	artifacts, err := writer.OpenArtifacts(cfg.Output.SQLitePath)
	if err != nil {
		return err
	}
	defer artifacts.Close() //nolint:errcheck

	if err := artifacts.Migrate(ctx); err != nil {
		return err
	}
	if err := artifacts.WriteRoutes(ctx, result.Records); err != nil {
		return err
	}
	for layerKey, refs := range result.Lookups {
		if err := artifacts.WriteRegions(ctx, layerKey, refs); err != nil {
			return err
		}
	}
	if err := artifacts.WriteOperators(ctx, result.Operators); err != nil {
		return err
	}

	for _, ls := range result.Layers {
		log.Info("layer summary",
			zap.String("layer", ls.Key),
			zap.Int("regions", ls.Regions),
			zap.Int("excluded_regions", ls.ExcludedRegions),
			zap.Int("overlaps", ls.Overlaps),
			zap.Int("primary_assigned", ls.PrimaryAssigned),
			zap.Int("fallback_assigned", ls.FallbackAssigned),
			zap.Int("membership_routes", ls.MembershipRoutes),
		)
	}
	log.Info("artifacts written",
		zap.String("run_id", result.RunID),
		zap.String("geojson", geojsonPath),
		zap.String("sqlite", cfg.Output.SQLitePath),
	)
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/place-dedup/internal/dedupe"
	"github.com/sells-group/place-dedup/internal/export"
	"github.com/sells-group/place-dedup/internal/importer"
	"github.com/sells-group/place-dedup/internal/model"
	"github.com/sells-group/place-dedup/internal/review"
)

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Group likely duplicates into clusters",
	Long:  "Runs pairwise detection over every place in the store, or in --file when given, and prints the connected groups of matches.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		file, _ := cmd.Flags().GetString("file")
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		if err := checkFormat(format, "table", "json", "csv", "geojson"); err != nil {
			return err
		}
		if err := cfg.Validate("engine"); err != nil {
			return err
		}

		q := clusterQueryFromFlags(cmd)
		if err := q.Validate(); err != nil {
			return err
		}

		var (
			report *review.ClusterReport
			err    error
		)
		if file != "" {
			report, err = clustersInFile(ctx, file, q)
		} else {
			var svc *review.Service
			var closeFn func()
			svc, closeFn, err = initService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			report, err = svc.Clusters(ctx, q)
		}
		if err != nil {
			return eris.Wrap(err, "clusters")
		}

		out := cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output) //nolint:gosec // path is supplied by the operator
			if err != nil {
				return eris.Wrapf(err, "clusters: create %s", output)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		if err := writeClusters(out, report, format); err != nil {
			return err
		}
		if output != "" {
			zap.L().Info("clusters written",
				zap.String("path", output),
				zap.Int("clusters", len(report.Clusters)),
			)
		}
		return nil
	},
}

func clusterQueryFromFlags(cmd *cobra.Command) review.ClusterQuery {
	q := review.ClusterQuery{
		MinConfidence:  cfg.Review.MinConfidence,
		MinClusterSize: cfg.Review.MinClusterSize,
	}
	if cmd.Flags().Changed("min-confidence") {
		q.MinConfidence, _ = cmd.Flags().GetFloat64("min-confidence")
	}
	if cmd.Flags().Changed("min-size") {
		q.MinClusterSize, _ = cmd.Flags().GetInt("min-size")
	}
	q.Limit, _ = cmd.Flags().GetInt("limit")
	q.IncludeArchived, _ = cmd.Flags().GetBool("include-archived")
	return q
}

// clustersInFile clusters the places of an import file without the store.
// Dismissed pairs live in the store and are not applied here.
func clustersInFile(ctx context.Context, file string, q review.ClusterQuery) (*review.ClusterReport, error) {
	places, err := importer.ReadFile(ctx, file)
	if err != nil {
		return nil, err
	}
	places = slices.DeleteFunc(places, func(p model.Place) bool {
		return !statusIncluded(p.Status, q.IncludeArchived)
	})

	if cfg.Review.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Review.Timeout)
		defer cancel()
	}

	batch, err := dedupe.BatchDetectDuplicates(ctx, places, cfg.Detection, dedupe.WithWorkers(cfg.Batch.Workers))
	if err != nil {
		return nil, err
	}
	clusters := dedupe.FindDuplicateClusters(batch, q.MinClusterSize, q.MinConfidence)

	report := &review.ClusterReport{
		Clusters:      clusters,
		TotalClusters: len(clusters),
		PlacesScanned: len(places),
		ComputedAt:    time.Now().UTC(),
	}
	if q.Limit > 0 && len(report.Clusters) > q.Limit {
		report.Clusters = report.Clusters[:q.Limit]
	}
	return report, nil
}

func writeClusters(out io.Writer, report *review.ClusterReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "csv":
		return export.WriteClustersCSV(out, report.Clusters)
	case "geojson":
		return export.WriteClustersGeoJSON(out, report.Clusters)
	default:
		formatClusters(out, report)
		return nil
	}
}

func init() {
	clustersCmd.Flags().String("file", "", "read places from this import file instead of the store")
	clustersCmd.Flags().Float64("min-confidence", 0, "minimum pair confidence (default review.min_confidence)")
	clustersCmd.Flags().Int("min-size", 0, "minimum cluster size (default review.min_cluster_size)")
	clustersCmd.Flags().Int("limit", 0, "maximum clusters to print (0 = all)")
	clustersCmd.Flags().Bool("include-archived", false, "include archived places")
	clustersCmd.Flags().String("format", "table", "output format: table, json, csv, geojson")
	clustersCmd.Flags().String("output", "", "write to this file instead of stdout")
	rootCmd.AddCommand(clustersCmd)
}

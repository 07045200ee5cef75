package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/place-dedup/internal/dedupe"
	"github.com/sells-group/place-dedup/internal/export"
	"github.com/sells-group/place-dedup/internal/importer"
	"github.com/sells-group/place-dedup/internal/model"
	"github.com/sells-group/place-dedup/internal/review"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Find potential duplicates of one place",
	Long:  "Scores one place against the other places in the store, or in --file when given, and prints the matches at or above the confidence threshold.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		id, _ := cmd.Flags().GetString("id")
		file, _ := cmd.Flags().GetString("file")
		includeArchived, _ := cmd.Flags().GetBool("include-archived")
		format, _ := cmd.Flags().GetString("format")

		if err := checkFormat(format, "table", "json", "csv"); err != nil {
			return err
		}

		det, err := detectionFromFlags(cmd)
		if err != nil {
			return err
		}

		var result *dedupe.DuplicateDetectionResult
		if file != "" {
			result, err = detectInFile(cmd, file, id, det, includeArchived)
		} else {
			var closeFn func()
			var svc *review.Service
			svc, closeFn, err = initService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			result, err = svc.CheckPlace(ctx, id, det, review.CheckOptions{IncludeArchived: includeArchived})
		}
		if err != nil {
			return eris.Wrap(err, "detect")
		}

		return writeMatches(cmd.OutOrStdout(), result, format)
	},
}

// detectionFromFlags starts from the configured detection settings and
// applies any threshold flags the user set.
func detectionFromFlags(cmd *cobra.Command) (dedupe.DetectionConfig, error) {
	det := cfg.Detection
	if cmd.Flags().Changed("name-threshold") {
		det.NameThreshold, _ = cmd.Flags().GetFloat64("name-threshold")
	}
	if cmd.Flags().Changed("location-threshold-km") {
		det.LocationThresholdKM, _ = cmd.Flags().GetFloat64("location-threshold-km")
	}
	if cmd.Flags().Changed("min-confidence") {
		det.MinConfidenceScore, _ = cmd.Flags().GetFloat64("min-confidence")
	}
	if err := det.Validate(); err != nil {
		return det, err
	}
	return det, nil
}

// detectInFile runs the engine on an import file without touching the store.
func detectInFile(cmd *cobra.Command, file, id string, det dedupe.DetectionConfig, includeArchived bool) (*dedupe.DuplicateDetectionResult, error) {
	places, err := importer.ReadFile(cmd.Context(), file)
	if err != nil {
		return nil, err
	}

	var target *model.Place
	candidates := make([]model.Place, 0, len(places))
	for i := range places {
		p := places[i]
		if p.ID == id && target == nil {
			target = &p
			continue
		}
		if statusIncluded(p.Status, includeArchived) {
			candidates = append(candidates, p)
		}
	}
	if target == nil {
		return nil, eris.Wrapf(review.ErrPlaceNotFound, "place %s in %s", id, file)
	}

	result := dedupe.DetectDuplicates(*target, candidates, det)
	result.PotentialDuplicates = result.Above(det.MinConfidenceScore)
	result.HasHighConfidenceDuplicates = len(result.PotentialDuplicates) > 0 &&
		result.PotentialDuplicates[0].Confidence > dedupe.HighConfidence
	return &result, nil
}

func statusIncluded(s model.PlaceStatus, includeArchived bool) bool {
	return s == model.PlaceStatusActive || (includeArchived && s == model.PlaceStatusArchived)
}

func writeMatches(out io.Writer, result *dedupe.DuplicateDetectionResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "csv":
		return export.WriteMatchesCSV(out, result)
	default:
		formatMatches(out, result)
		return nil
	}
}

func init() {
	detectCmd.Flags().String("id", "", "place ID to check (required)")
	detectCmd.Flags().String("file", "", "read places from this import file instead of the store")
	detectCmd.Flags().Bool("include-archived", false, "also compare against archived places")
	detectCmd.Flags().Float64("name-threshold", 0, "override detection.name_threshold")
	detectCmd.Flags().Float64("location-threshold-km", 0, "override detection.location_threshold_km")
	detectCmd.Flags().Float64("min-confidence", 0, "override detection.min_confidence_score")
	detectCmd.Flags().String("format", "table", "output format: table, json, csv")
	_ = detectCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(detectCmd)
}

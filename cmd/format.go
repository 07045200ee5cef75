package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/place-dedup/internal/dedupe"
	"github.com/sells-group/place-dedup/internal/model"
	"github.com/sells-group/place-dedup/internal/review"
)

func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return eris.Errorf("unsupported format %q (want one of %s)", format, strings.Join(allowed, ", "))
}

// formatMatches writes a tabular list of potential duplicates to w.
func formatMatches(out io.Writer, r *dedupe.DuplicateDetectionResult) {
	_, _ = fmt.Fprintf(out, "%s  %s\n", r.OriginalPlace.ID, r.OriginalPlace.Name)
	_, _ = fmt.Fprintf(out, "Compared against %d candidates, %d matches", r.TotalCandidates, len(r.PotentialDuplicates))
	if r.HasHighConfidenceDuplicates {
		_, _ = fmt.Fprint(out, " (high confidence)")
	}
	_, _ = fmt.Fprintln(out)
	if len(r.PotentialDuplicates) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCONFIDENCE\tNAME\tLOCATION\tDISTANCE\tREASONS")
	_, _ = fmt.Fprintln(w, "--\t----\t----------\t----\t--------\t--------\t-------")
	for _, d := range r.PotentialDuplicates {
		dist := "-"
		if d.Factors.DistanceKM != nil {
			dist = fmt.Sprintf("%.3fkm", *d.Factors.DistanceKM)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.3f\t%.2f\t%.2f\t%s\t%s\n",
			d.Place.ID,
			truncate(d.Place.Name, 40),
			d.Confidence,
			d.Factors.NameScore,
			d.Factors.LocationScore,
			dist,
			strings.Join(d.Reasoning, "; "),
		)
	}
	_ = w.Flush()
}

// formatClusters writes each cluster with its members to w.
func formatClusters(out io.Writer, report *review.ClusterReport) {
	_, _ = fmt.Fprintf(out, "%d clusters from %d places", report.TotalClusters, report.PlacesScanned)
	if report.Truncated {
		_, _ = fmt.Fprint(out, " (candidate cap reached)")
	}
	_, _ = fmt.Fprintln(out)

	for _, c := range report.Clusters {
		_, _ = fmt.Fprintf(out, "\nCluster %s  size=%d  pairs=%d  avg_confidence=%.3f\n",
			truncateID(c.ClusterID), len(c.Places), c.PairCount, c.AvgConfidence)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, p := range c.Places {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
				p.ID, truncate(p.Name, 40), p.Kind, p.City, p.Status)
		}
		_ = w.Flush()
	}
}

// formatDismissed writes dismissed pairs to w.
func formatDismissed(out io.Writer, pairs []model.DismissedPair) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PLACE_A\tPLACE_B\tDISMISSED")
	_, _ = fmt.Fprintln(w, "-------\t-------\t---------")
	for _, p := range pairs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", p.PlaceA, p.PlaceB, p.DismissedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

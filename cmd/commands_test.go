package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/place-dedup/internal/dedupe"
	"github.com/sells-group/place-dedup/internal/review"
)

const placesCSV = `id,name,kind,city,country,lat,lon,status
louvre-1,Musée du Louvre,museum,Paris,France,48.8606,2.3376,active
louvre-2,Musee du Louvre,museum,Paris,France,48.86078,2.3376,active
orsay-1,Musée d'Orsay,museum,Paris,France,48.8741,2.3376,active
orsay-2,Musee d'Orsay,museum,Paris,France,48.87419,2.3376,active
louvre-old,Louvre,museum,Paris,France,48.86069,2.3376,archived
`

// setupCLI points the store at a temp SQLite file and writes a places CSV.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PLACEDEDUP_STORE_DRIVER", "sqlite")
	t.Setenv("PLACEDEDUP_STORE_DATABASE_URL", filepath.Join(dir, "places.db"))
	t.Setenv("PLACEDEDUP_LOG_LEVEL", "error")

	path := filepath.Join(dir, "places.csv")
	require.NoError(t, os.WriteFile(path, []byte(placesCSV), 0o600))
	return path
}

// resetFlags restores every flag to its default so commands can run more
// than once per process.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	servePort = 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_ImportDetectClusters(t *testing.T) {
	file := setupCLI(t)

	_, err := execute(t, "migrate")
	require.NoError(t, err)

	out, err := execute(t, "import", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "5 places imported")

	out, err = execute(t, "detect", "--id", "louvre-1", "--format", "json")
	require.NoError(t, err)
	var result dedupe.DuplicateDetectionResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 3, result.TotalCandidates)
	require.Len(t, result.PotentialDuplicates, 1)
	assert.Equal(t, "louvre-2", result.PotentialDuplicates[0].Place.ID)

	out, err = execute(t, "clusters", "--format", "json")
	require.NoError(t, err)
	var report review.ClusterReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Clusters, 2)
	assert.Equal(t, []string{"louvre-1", "louvre-2"}, report.Clusters[0].IDs())

	_, err = execute(t, "dismiss", "louvre-2", "louvre-1")
	require.NoError(t, err)

	out, err = execute(t, "dismissed")
	require.NoError(t, err)
	assert.Contains(t, out, "louvre-1")

	out, err = execute(t, "clusters", "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Clusters, 1)
	assert.Equal(t, []string{"orsay-1", "orsay-2"}, report.Clusters[0].IDs())

	_, err = execute(t, "dismiss", "louvre-1", "louvre-2", "--undo")
	require.NoError(t, err)

	out, err = execute(t, "clusters", "--include-archived", "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Clusters, 2)
	assert.Contains(t, report.Clusters[0].IDs(), "louvre-old")
}

func TestCLI_ClustersCSVOutput(t *testing.T) {
	file := setupCLI(t)
	output := filepath.Join(t.TempDir(), "clusters.csv")

	_, err := execute(t, "clusters", "--file", file, "--format", "csv", "--output", output)
	require.NoError(t, err)

	f, err := os.Open(output) //nolint:gosec // test file
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5, "header plus four members")
	assert.Equal(t, "cluster_id", rows[0][0])
	assert.Equal(t, "louvre-1", rows[1][4])
}

func TestCLI_FileMode(t *testing.T) {
	file := setupCLI(t)

	out, err := execute(t, "detect", "--file", file, "--id", "orsay-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Compared against 3 candidates, 1 matches (high confidence)")
	assert.Contains(t, out, "orsay-2")

	out, err = execute(t, "clusters", "--file", file, "--min-size", "3", "--include-archived")
	require.NoError(t, err)
	assert.Contains(t, out, "1 clusters from 5 places")
	assert.Contains(t, out, "louvre-old")

	_, statErr := os.Stat(os.Getenv("PLACEDEDUP_STORE_DATABASE_URL"))
	assert.True(t, os.IsNotExist(statErr), "file mode does not create the store")
}

func TestCLI_ImportDryRun(t *testing.T) {
	file := setupCLI(t)

	out, err := execute(t, "import", "--file", file, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "5 places read")
}

func TestCLI_Errors(t *testing.T) {
	file := setupCLI(t)

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"unknown place in file", []string{"detect", "--file", file, "--id", "ghost"}, "place ghost"},
		{"bad detect format", []string{"detect", "--id", "x", "--format", "xml"}, "unsupported format"},
		{"bad threshold", []string{"detect", "--file", file, "--id", "louvre-1", "--name-threshold", "2"}, "name_threshold"},
		{"bad cluster size", []string{"clusters", "--file", file, "--min-size", "1"}, "invalid min cluster size"},
		{"bad clusters format", []string{"clusters", "--format", "kml"}, "unsupported format"},
		{"unsupported import file", []string{"import", "--file", "places.txt"}, "unsupported file type"},
		{"self dismissal", []string{"dismiss", "a", "a"}, "against itself"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCLI_BadStoreDriver(t *testing.T) {
	setupCLI(t)
	t.Setenv("PLACEDEDUP_STORE_DRIVER", "mysql")

	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

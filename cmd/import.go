package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/place-dedup/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import places from a CSV, XLSX, JSON, or YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		path, _ := cmd.Flags().GetString("file")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		places, err := importer.ReadFile(ctx, path)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		if dryRun {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d places read from %s (dry run, nothing written)\n", len(places), path)
			return nil
		}

		svc, closeFn, err := initService(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		n, err := svc.Import(ctx, places)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		zap.L().Info("import complete",
			zap.Int64("upserted", n),
			zap.String("file", path),
		)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d places imported from %s\n", n, path)
		return nil
	},
}

func init() {
	importCmd.Flags().String("file", "", "path to a .csv, .tsv, .xlsx, .json, or .yaml file (required)")
	importCmd.Flags().Bool("dry-run", false, "parse the file without writing to the store")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

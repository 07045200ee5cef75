package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dismissCmd = &cobra.Command{
	Use:   "dismiss <place-a> <place-b>",
	Short: "Mark two places as not duplicates",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		undo, _ := cmd.Flags().GetBool("undo")

		svc, closeFn, err := initService(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if undo {
			if err := svc.Undismiss(ctx, args[0], args[1]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Undismissed %s / %s\n", args[0], args[1])
			return nil
		}

		if err := svc.Dismiss(ctx, args[0], args[1]); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dismissed %s / %s\n", args[0], args[1])
		return nil
	},
}

var dismissedCmd = &cobra.Command{
	Use:   "dismissed",
	Short: "List dismissed place pairs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		svc, closeFn, err := initService(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		pairs, err := svc.DismissedPairs(ctx)
		if err != nil {
			return err
		}
		if len(pairs) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No dismissed pairs.")
			return nil
		}
		formatDismissed(cmd.OutOrStdout(), pairs)
		return nil
	},
}

func init() {
	dismissCmd.Flags().Bool("undo", false, "remove the dismissal instead")
	rootCmd.AddCommand(dismissCmd)
	rootCmd.AddCommand(dismissedCmd)
}

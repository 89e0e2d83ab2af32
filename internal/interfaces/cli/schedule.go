package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Inspect renewal schedules",
	}
	cmd.AddCommand(newSchedulePreviewCmd())
	return cmd
}

func newSchedulePreviewCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "preview MATTER_ID",
		Short: "Show the renewal schedule a matter would get, without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runWithBackend(cmd, func(ctx context.Context, cc *CLIContext, b *Backend) error {
				today, err := dayFlag(cc, date)
				if err != nil {
					return err
				}
				res, err := b.Renewals.PreviewSchedule(ctx, id, today)
				if err != nil {
					return err
				}
				if err := PrintResult(cmd, taskView(res.Tasks)); err != nil {
					return err
				}
				for _, s := range res.Skipped {
					fmt.Fprintf(cmd.ErrOrStderr(), "year %d (due %s) skipped: %s\n", s.Year, formatDate(s.DueDate), s.Reason)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reference date (default: today)")
	return cmd
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the reference-data cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Drop cached country parameters, fees and event codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithBackend(cmd, func(ctx context.Context, cc *CLIContext, b *Backend) error {
				n, err := b.FlushCache(ctx)
				if err != nil {
					return err
				}
				PrintSuccess(cmd, fmt.Sprintf("removed %d cache entries", n))
				return nil
			})
		},
	})
	return cmd
}

//Personal.AI order the ending

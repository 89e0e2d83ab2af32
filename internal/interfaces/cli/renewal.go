package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	app "github.com/turtacn/KeyIP-Docket/internal/application/docket"
	domain "github.com/turtacn/KeyIP-Docket/internal/domain/docket"
)

func newRenewalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "renewal",
		Short: "Price renewals and run renewal batches",
		Long: `Work with renewal tasks: quote fees, move batches through the renewal
workflow (first-call, reminder, to-pay, to-invoice, ...) directly or through
the worker queue, and list renewals due for notice or past their grace period.`,
	}
	cmd.AddCommand(
		newRenewalQuoteCmd(),
		newRenewalTransitionCmd(),
		newRenewalEnqueueCmd(),
		newRenewalLapseCmd(),
		newRenewalNoticeCmd(),
	)
	return cmd
}

func newRenewalQuoteCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "quote TASK_ID...",
		Short: "Price renewal tasks with VAT",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return runWithBackend(cmd, func(ctx context.Context, cc *CLIContext, b *Backend) error {
				today, err := dayFlag(cc, date)
				if err != nil {
					return err
				}
				res, err := b.Renewals.Quote(ctx, ids, today)
				if err != nil {
					return err
				}
				return PrintResult(cmd, quoteView{res})
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "pricing date (default: today)")
	return cmd
}

func newRenewalTransitionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transition NAME TASK_ID...",
		Short: "Apply a workflow transition to renewal tasks now",
		Example: `  keyip renewal transition to-pay 101 102 103
  keyip renewal transition done 101`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			return runWithBackend(cmd, func(ctx context.Context, cc *CLIContext, b *Backend) error {
				out, err := b.Renewals.Transition(ctx, cc.Actor(), args[0], ids)
				if err != nil {
					return err
				}
				return PrintResult(cmd, outcomeView{out})
			})
		},
	}
}

func newRenewalEnqueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue NAME TASK_ID...",
		Short: "Queue a workflow transition for the worker",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			return runWithBackend(cmd, func(ctx context.Context, cc *CLIContext, b *Backend) error {
				job, err := b.Renewals.Enqueue(ctx, cc.Actor(), args[0], ids)
				if err != nil {
					return err
				}
				PrintSuccess(cmd, fmt.Sprintf("queued job %s (%d tasks)", job, len(ids)))
				return nil
			})
		},
	}
}

func newRenewalLapseCmd() *cobra.Command {
	var (
		date  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "lapse",
		Short: "List pending renewals whose grace period has ended",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithBackend(cmd, func(ctx context.Context, cc *CLIContext, b *Backend) error {
				today, err := dayFlag(cc, date)
				if err != nil {
					return err
				}
				list, err := b.Renewals.LapseCandidates(ctx, today, limit)
				if err != nil {
					return err
				}
				return PrintResult(cmd, lapseView(list))
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reference date (default: today)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows (0 = no limit)")
	return cmd
}

func newRenewalNoticeCmd() *cobra.Command {
	var (
		date  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "notice",
		Short: "List pending renewals due within the notice window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithBackend(cmd, func(ctx context.Context, cc *CLIContext, b *Backend) error {
				today, err := dayFlag(cc, date)
				if err != nil {
					return err
				}
				tasks, err := b.Renewals.DueForNotice(ctx, today, limit)
				if err != nil {
					return err
				}
				return PrintResult(cmd, taskView(tasks))
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reference date (default: today)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows (0 = no limit)")
	return cmd
}

type quoteView struct {
	*app.QuoteResult
}

func (v quoteView) TableHeaders() []string {
	return []string{"TASK", "MATTER", "YEAR", "DUE", "COST", "FEE", "VAT", "TOTAL", "CUR", "GRACE"}
}

func (v quoteView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Quotes)+len(v.Skipped))
	for _, q := range v.Quotes {
		rows = append(rows, []string{
			strconv.FormatInt(q.TaskID, 10),
			q.MatterUID,
			strconv.Itoa(q.Year),
			formatDate(q.DueDate),
			q.Cost.StringFixed(2),
			q.Fee.StringFixed(2),
			q.VAT.StringFixed(2),
			q.Total.StringFixed(2),
			q.Currency,
			strconv.FormatBool(q.GracePeriod),
		})
	}
	for _, s := range v.Skipped {
		rows = append(rows, []string{strconv.FormatInt(s.TaskID, 10), "skipped: " + s.Reason})
	}
	return rows
}

type outcomeView struct {
	*domain.BatchOutcome
}

func (v outcomeView) TableHeaders() []string { return []string{"TASK", "RESULT", "REASON"} }

func (v outcomeView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Updated)+len(v.Skipped))
	for _, t := range v.Updated {
		rows = append(rows, []string{strconv.FormatInt(t.ID, 10), t.Step.String(), ""})
	}
	for _, s := range v.Skipped {
		rows = append(rows, []string{strconv.FormatInt(s.TaskID, 10), string(s.Code), s.Reason})
	}
	return rows
}

type lapseView []app.LapseCandidate

func (v lapseView) TableHeaders() []string {
	return []string{"TASK", "MATTER", "YEAR", "DUE", "GRACE_END", "STEP"}
}

func (v lapseView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, c := range v {
		year, _ := domain.RenewalYear(c.Task)
		rows = append(rows, []string{
			strconv.FormatInt(c.Task.ID, 10),
			c.MatterUID,
			strconv.Itoa(year),
			formatDate(c.Task.DueDate),
			formatDate(c.GraceDeadline),
			c.Task.Step.String(),
		})
	}
	return rows
}

type taskView []*domain.Task

func (v taskView) TableHeaders() []string {
	return []string{"TASK", "MATTER", "CODE", "YEAR", "DUE", "STEP", "ASSIGNED"}
}

func (v taskView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, t := range v {
		year := ""
		if y, ok := domain.RenewalYear(t); ok {
			year = strconv.Itoa(y)
		}
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			strconv.FormatInt(t.MatterID, 10),
			t.Code,
			year,
			formatDate(t.DueDate),
			t.Step.String(),
			t.AssignedTo,
		})
	}
	return rows
}

//Personal.AI order the ending

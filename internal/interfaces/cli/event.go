package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	app "github.com/turtacn/KeyIP-Docket/internal/application/docket"
	domain "github.com/turtacn/KeyIP-Docket/internal/domain/docket"
)

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Record events and run the task rules",
		Long: `Record a matter event (filing, publication, grant, ...) and run the task
rules it triggers: tasks are created, cleared or deleted and the renewal
schedule is generated when the event starts it.`,
	}
	cmd.AddCommand(newEventRecordCmd(), newEventReevaluateCmd())
	return cmd
}

func newEventRecordCmd() *cobra.Command {
	var (
		id        int64
		matterID  int64
		code      string
		date      string
		altMatter int64
		detail    string
		notes     string
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Save an event and apply its rules",
		Example: `  keyip event record --matter 12 --code FIL --date 2020-06-15
  keyip event record --matter 12 --code PRI --alt-matter 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if matterID <= 0 || code == "" {
				return fmt.Errorf("--matter and --code are required")
			}
			req := &app.SaveEventRequest{
				ID:       id,
				MatterID: matterID,
				Code:     strings.ToUpper(code),
				Detail:   detail,
				Notes:    notes,
			}
			if date != "" {
				d, err := domain.ParseDate(date)
				if err != nil {
					return err
				}
				req.EventDate = d
			}
			if altMatter > 0 {
				req.AltMatterID = &altMatter
			}
			return runWithBackend(cmd, func(ctx context.Context, cc *CLIContext, b *Backend) error {
				res, err := b.Events.Save(ctx, cc.Actor(), req)
				if err != nil {
					return err
				}
				return PrintResult(cmd, eventView{res})
			})
		},
	}
	fl := cmd.Flags()
	fl.Int64Var(&id, "id", 0, "event id to update (omit to create)")
	fl.Int64Var(&matterID, "matter", 0, "matter id")
	fl.StringVar(&code, "code", "", "event code (e.g. FIL, PUB, GRT)")
	fl.StringVar(&date, "date", "", "event date (YYYY-MM-DD)")
	fl.Int64Var(&altMatter, "alt-matter", 0, "take the date from this matter's filing")
	fl.StringVar(&detail, "detail", "", "event detail (e.g. application number)")
	fl.StringVar(&notes, "notes", "", "free-text notes")
	return cmd
}

func newEventReevaluateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reevaluate EVENT_ID",
		Short: "Re-run the rules of a stored event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runWithBackend(cmd, func(ctx context.Context, cc *CLIContext, b *Backend) error {
				res, err := b.Events.Reevaluate(ctx, cc.Actor(), id)
				if err != nil {
					return err
				}
				return PrintResult(cmd, eventView{res})
			})
		},
	}
}

type eventView struct {
	*app.EventResult
}

func (v eventView) TableHeaders() []string { return []string{"ACTION", "COUNT", "TASKS"} }

func (v eventView) TableRows() [][]string {
	row := func(action string, ids []int64) []string {
		return []string{action, strconv.Itoa(len(ids)), joinIDs(ids)}
	}
	rows := [][]string{
		row(app.ChangeCreated, v.Created),
		row(app.ChangeScheduled, v.Scheduled),
		row(app.ChangeCleared, v.Cleared),
		row(app.ChangeDeleted, v.Deleted),
		row(app.ChangeRescheduled, v.Rescheduled),
	}
	for _, d := range v.Diagnostics {
		rows = append(rows, []string{"diagnostic", "", d})
	}
	return rows
}

//Personal.AI order the ending

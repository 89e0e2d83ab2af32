package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	domain "github.com/turtacn/KeyIP-Docket/internal/domain/docket"
)

func newMatterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matter",
		Short: "Create, update and look up matters",
	}
	cmd.AddCommand(newMatterUIDCmd(), newMatterSaveCmd(), newMatterGetCmd())
	return cmd
}

type matterFlags struct {
	id          int64
	caseRef     string
	country     string
	category    string
	origin      string
	typeCode    string
	idx         int
	container   int64
	parent      int64
	expire      string
	dead        bool
	sme         bool
	discount    string
	responsible string
	version     int64
}

func (f *matterFlags) bindIdentity(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.caseRef, "caseref", "", "case reference")
	fl.StringVar(&f.country, "country", "", "two-letter country code")
	fl.StringVar(&f.origin, "origin", "", "origin country code (e.g. EP, WO)")
	fl.StringVar(&f.typeCode, "type", "", "matter type code (e.g. DIV, CIP)")
	fl.IntVar(&f.idx, "idx", 0, "family index (1 or more)")
}

func (f *matterFlags) bind(cmd *cobra.Command) {
	f.bindIdentity(cmd)
	fl := cmd.Flags()
	fl.Int64Var(&f.id, "id", 0, "matter id to update (omit to create)")
	fl.StringVar(&f.category, "category", "", "category (PAT, TM, DSG, UM)")
	fl.Int64Var(&f.container, "container", 0, "container matter id")
	fl.Int64Var(&f.parent, "parent", 0, "parent matter id")
	fl.StringVar(&f.expire, "expire", "", "expiry date (YYYY-MM-DD)")
	fl.BoolVar(&f.dead, "dead", false, "matter is dead")
	fl.BoolVar(&f.sme, "sme", false, "owner has SME status")
	fl.StringVar(&f.discount, "discount", "", "fee discount: a rate up to 1 (e.g. 0.5), or above 1 a fixed fee (e.g. 150)")
	fl.StringVar(&f.responsible, "responsible", "", "responsible login")
	fl.Int64Var(&f.version, "version", 0, "expected version for optimistic update")
}

func optString(cmd *cobra.Command, name, v string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return nil
	}
	return &v
}

// apply overlays the flags the user set on m.
func (f *matterFlags) apply(cmd *cobra.Command, m *domain.Matter) error {
	changed := cmd.Flags().Changed
	if changed("caseref") {
		m.CaseRef = strings.TrimSpace(f.caseRef)
	}
	if changed("country") {
		m.Country = strings.ToUpper(strings.TrimSpace(f.country))
	}
	if changed("category") {
		m.Category = domain.Category(strings.ToUpper(f.category))
	}
	if changed("origin") {
		m.Origin = optString(cmd, "origin", f.origin)
	}
	if changed("type") {
		m.TypeCode = optString(cmd, "type", f.typeCode)
	}
	if changed("idx") {
		idx := f.idx
		m.Idx = &idx
	}
	if changed("container") {
		m.ContainerID = optID(f.container)
	}
	if changed("parent") {
		m.ParentID = optID(f.parent)
	}
	if changed("expire") {
		if f.expire == "" {
			m.ExpireDate = nil
		} else {
			d, err := domain.ParseDate(f.expire)
			if err != nil {
				return err
			}
			m.ExpireDate = &d
		}
	}
	if changed("dead") {
		m.Dead = f.dead
	}
	if changed("sme") {
		m.SmeStatus = f.sme
	}
	if changed("discount") {
		d, err := decimal.NewFromString(f.discount)
		if err != nil {
			return fmt.Errorf("invalid discount %q", f.discount)
		}
		m.Discount = d
	}
	if changed("responsible") {
		m.ResponsibleID = f.responsible
	}
	if changed("version") {
		m.Version = f.version
	}
	return nil
}

func optID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

func newMatterUIDCmd() *cobra.Command {
	f := &matterFlags{}
	cmd := &cobra.Command{
		Use:   "uid",
		Short: "Compose a matter UID without touching the database",
		Example: `  keyip matter uid --caseref ACME01 --country EP --origin WO --type DIV --idx 2
  ACME01EP-WO-DIV.2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.caseRef == "" || f.country == "" {
				return fmt.Errorf("--caseref and --country are required")
			}
			var idx *int
			if cmd.Flags().Changed("idx") {
				idx = &f.idx
			}
			uid := domain.ComposeUID(strings.TrimSpace(f.caseRef), strings.ToUpper(f.country),
				optString(cmd, "origin", f.origin), optString(cmd, "type", f.typeCode), idx)
			fmt.Fprintln(cmd.OutOrStdout(), uid)
			return nil
		},
	}
	f.bindIdentity(cmd)
	return cmd
}

func newMatterSaveCmd() *cobra.Command {
	f := &matterFlags{}
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create a matter, or update the one given by --id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithBackend(cmd, func(ctx context.Context, cc *CLIContext, b *Backend) error {
				m := &domain.Matter{}
				if f.id > 0 {
					cur, err := b.Matters.Get(ctx, f.id)
					if err != nil {
						return err
					}
					m = cur
				}
				if err := f.apply(cmd, m); err != nil {
					return err
				}
				saved, err := b.Matters.Save(ctx, cc.Actor(), m)
				if err != nil {
					return err
				}
				return PrintResult(cmd, matterView{saved})
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newMatterGetCmd() *cobra.Command {
	var uid string
	cmd := &cobra.Command{
		Use:   "get [ID]",
		Short: "Show a matter by id or --uid",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && uid == "" {
				return fmt.Errorf("an id or --uid is required")
			}
			return runWithBackend(cmd, func(ctx context.Context, cc *CLIContext, b *Backend) error {
				var (
					m   *domain.Matter
					err error
				)
				if uid != "" {
					m, err = b.Matters.GetByUID(ctx, uid)
				} else {
					id, perr := parseID(args[0])
					if perr != nil {
						return perr
					}
					m, err = b.Matters.Get(ctx, id)
				}
				if err != nil {
					return err
				}
				return PrintResult(cmd, matterView{m})
			})
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "matter UID")
	return cmd
}

type matterView struct {
	*domain.Matter
}

func (v matterView) TableHeaders() []string {
	return []string{"ID", "UID", "CATEGORY", "EXPIRE", "DEAD", "RESPONSIBLE", "VERSION"}
}

func (v matterView) TableRows() [][]string {
	return [][]string{{
		strconv.FormatInt(v.ID, 10),
		v.UID,
		string(v.Category),
		formatDatePtr(v.ExpireDate),
		strconv.FormatBool(v.Dead),
		v.ResponsibleID,
		strconv.FormatInt(v.Version, 10),
	}}
}

//Personal.AI order the ending

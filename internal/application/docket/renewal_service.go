package docket

import (
	"context"
	"sort"
	"strconv"
	"time"

	domain "github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
	"github.com/turtacn/KeyIP-Docket/pkg/types/common"
)

// QuoteResult holds the priced renewals and the tasks that could not be
// priced.
type QuoteResult struct {
	Quotes  []domain.Quote       `json:"quotes"`
	Skipped []domain.SkippedTask `json:"skipped,omitempty"`
}

// LapseCandidate is a pending renewal whose grace period has ended.
type LapseCandidate struct {
	Task          *domain.Task `json:"task"`
	MatterUID     string       `json:"matter_uid"`
	GraceDeadline time.Time    `json:"grace_deadline"`
}

// RenewalService drives renewal tasks through the workflow and prices them.
type RenewalService interface {
	// Transition applies the named transition to every task in ids.  Tasks
	// that cannot move are reported in the outcome, not as an error.
	Transition(ctx context.Context, actor domain.Actor, name string, ids []int64) (*domain.BatchOutcome, error)
	// Enqueue hands a transition to the worker and returns the job id.
	Enqueue(ctx context.Context, actor domain.Actor, name string, ids []int64) (common.JobID, error)
	Quote(ctx context.Context, ids []int64, today time.Time) (*QuoteResult, error)
	LapseCandidates(ctx context.Context, today time.Time, limit int) ([]LapseCandidate, error)
	// DueForNotice lists pending renewals due within the notice window.
	DueForNotice(ctx context.Context, today time.Time, limit int) ([]*domain.Task, error)
	// PreviewSchedule generates a matter's renewal schedule without storing
	// it.
	PreviewSchedule(ctx context.Context, matterID int64, today time.Time) (*domain.ScheduleResult, error)
}

type renewalServiceImpl struct {
	ServiceDeps
	workflow domain.Workflow
}

// NewRenewalService builds the renewal service.
func NewRenewalService(deps ServiceDeps) RenewalService {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.Named("renewals")
	return &renewalServiceImpl{ServiceDeps: deps}
}

// quotedTransitions announce their tasks with prices attached.
var quotedTransitions = map[domain.Transition]bool{
	domain.TransitionFirstCall: true,
	domain.TransitionToPay:     true,
	domain.TransitionToInvoice: true,
}

func (s *renewalServiceImpl) Transition(ctx context.Context, actor domain.Actor, name string, ids []int64) (*domain.BatchOutcome, error) {
	tr, err := domain.ParseTransition(name)
	if err != nil {
		return nil, err
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return &domain.BatchOutcome{Transition: tr}, nil
	}
	defer s.Metrics.ObserveOperation("renewal_transition", time.Now())

	current, err := s.Repo.Tasks().ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	matterIDs := make([]int64, 0, len(current))
	for _, t := range current {
		matterIDs = append(matterIDs, t.MatterID)
	}
	unlock, err := s.Locker.LockRenewals(ctx, matterIDs)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(context.Background()); err != nil {
			s.Logger.Warn("renewal locks not released", logging.Err(err))
		}
	}()

	now := s.Clock()
	var out domain.BatchOutcome
	err = s.Repo.WithTx(ctx, func(tx domain.Repository) error {
		tasks, err := tx.Tasks().ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		found := make(map[int64]bool, len(tasks))
		for _, t := range tasks {
			found[t.ID] = true
		}

		applied, err := s.workflow.Apply(tr, tasks, actor, now)
		if err != nil {
			return err
		}
		out = domain.BatchOutcome{Transition: tr, Requested: len(ids)}
		for _, id := range ids {
			if !found[id] {
				out.Skip(id, errors.CodeTaskNotFound, "task not found")
			}
		}
		out.Skipped = append(out.Skipped, applied.Skipped...)

		var logs []*domain.RenewalsLog
		for i, t := range applied.Updated {
			if err := tx.Tasks().Update(ctx, t); err != nil {
				if errors.IsCode(err, errors.CodeTaskVersionConflict) {
					out.Skip(t.ID, errors.CodeTaskVersionConflict, "task was modified concurrently")
					continue
				}
				return err
			}
			out.Updated = append(out.Updated, t)
			logs = append(logs, applied.Logs[i])
		}
		if len(logs) > 0 {
			if err := tx.RenewalLogs().Append(ctx, logs); err != nil {
				return err
			}
		}
		out.Logs = logs
		out.Affected = len(out.Updated)
		return nil
	})
	if err != nil {
		s.Logger.Error("renewal transition failed",
			logging.String("transition", string(tr)),
			logging.Int("tasks", len(ids)),
			logging.String("job_id", string(actor.JobID)),
			logging.Err(err))
		return nil, err
	}

	s.Metrics.RecordTransition(string(tr), out.Affected, len(out.Skipped))
	for _, sk := range out.Skipped {
		if sk.Code == errors.CodeOK {
			continue
		}
		s.Logger.Warn("renewal task skipped",
			logging.Int64("task_id", sk.TaskID),
			logging.String("transition", string(tr)),
			logging.String("code", string(sk.Code)),
			logging.String("reason", sk.Reason))
	}
	s.announce(ctx, actor, &out, now)
	return &out, nil
}

func (s *renewalServiceImpl) announce(ctx context.Context, actor domain.Actor, out *domain.BatchOutcome, now time.Time) {
	if out.Affected == 0 {
		return
	}
	byMatter := make(map[int64][]int64)
	for _, t := range out.Updated {
		byMatter[t.MatterID] = append(byMatter[t.MatterID], t.ID)
	}

	var quotes map[int64]kafka.QuotePayload
	if quotedTransitions[out.Transition] {
		ids := make([]int64, 0, len(out.Updated))
		for _, t := range out.Updated {
			ids = append(ids, t.ID)
		}
		res, err := s.Quote(ctx, ids, now)
		if err != nil {
			s.Logger.Warn("renewal quotes not computed", logging.Err(err))
		} else {
			quotes = make(map[int64]kafka.QuotePayload, len(res.Quotes))
			for _, q := range res.Quotes {
				quotes[q.TaskID] = quotePayload(q)
			}
		}
	}

	matters := make([]int64, 0, len(byMatter))
	for id := range byMatter {
		matters = append(matters, id)
	}
	sort.Slice(matters, func(i, j int) bool { return matters[i] < matters[j] })
	for _, matterID := range matters {
		payload := kafka.TaskChangedPayload{
			MatterID:   matterID,
			Action:     ChangeTransition,
			Transition: string(out.Transition),
			TaskIDs:    byMatter[matterID],
			JobID:      string(actor.JobID),
			Actor:      actor.Login(),
		}
		for _, id := range byMatter[matterID] {
			if q, ok := quotes[id]; ok {
				payload.Quotes = append(payload.Quotes, q)
			}
		}
		key := strconv.FormatInt(matterID, 10)
		if err := s.Publisher.PublishEvent(ctx, kafka.TopicTaskChanged, key, kafka.EventTypeTaskChanged, payload); err != nil {
			s.Logger.Warn("task change not published",
				logging.Int64("matter_id", matterID),
				logging.String("transition", string(out.Transition)),
				logging.Err(err))
		}
	}
}

func quotePayload(q domain.Quote) kafka.QuotePayload {
	return kafka.QuotePayload{
		TaskID:   q.TaskID,
		Cost:     q.Cost.StringFixed(2),
		Fee:      q.Fee.StringFixed(2),
		Total:    q.Subtotal.StringFixed(2),
		TotalVAT: q.Total.StringFixed(2),
		Currency: q.Currency,
		Grace:    q.GracePeriod,
	}
}

func (s *renewalServiceImpl) Enqueue(ctx context.Context, actor domain.Actor, name string, ids []int64) (common.JobID, error) {
	tr, err := domain.ParseTransition(name)
	if err != nil {
		return "", err
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return "", errors.InvalidParam("no task ids to enqueue")
	}
	job := common.NewJobID()
	payload := kafka.RenewalBatchPayload{
		JobID:      string(job),
		UserID:     string(actor.UserID),
		Transition: string(tr),
		TaskIDs:    ids,
	}
	if err := s.Publisher.PublishEvent(ctx, kafka.TopicRenewalBatch, string(job), kafka.EventTypeRenewalBatch, payload); err != nil {
		return "", err
	}
	s.Logger.Info("renewal batch enqueued",
		logging.String("job_id", string(job)),
		logging.String("transition", string(tr)),
		logging.Int("tasks", len(ids)))
	return job, nil
}

// refs memoises matters and country parameters within one operation.
type refs struct {
	repo      domain.Repository
	matters   map[int64]*domain.Matter
	countries map[string]*domain.CountryRenewal
}

func newRefs(repo domain.Repository) *refs {
	return &refs{repo: repo, matters: map[int64]*domain.Matter{}, countries: map[string]*domain.CountryRenewal{}}
}

func (r *refs) matter(ctx context.Context, id int64) (*domain.Matter, error) {
	if m, ok := r.matters[id]; ok {
		return m, nil
	}
	m, err := r.repo.Matters().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.matters[id] = m
	return m, nil
}

func (r *refs) country(ctx context.Context, code string) (*domain.CountryRenewal, error) {
	if c, ok := r.countries[code]; ok {
		return c, nil
	}
	c, err := r.repo.Countries().GetRenewal(ctx, code)
	if err != nil {
		return nil, err
	}
	r.countries[code] = c
	return c, nil
}

func (s *renewalServiceImpl) Quote(ctx context.Context, ids []int64, today time.Time) (*QuoteResult, error) {
	ids = uniqueIDs(ids)
	res := &QuoteResult{}
	if len(ids) == 0 {
		return res, nil
	}
	defer s.Metrics.ObserveOperation("renewal_quote", time.Now())

	settings := s.Settings.Load()
	tasks, err := s.Repo.Tasks().ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	r := newRefs(s.Repo)
	validUntil := settings.quoteValidUntil(today)
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			res.Skipped = append(res.Skipped, domain.SkippedTask{TaskID: id, Code: errors.CodeTaskNotFound, Reason: "task not found"})
			continue
		}
		m, err := r.matter(ctx, t.MatterID)
		if err != nil {
			return nil, err
		}
		c, err := r.country(ctx, m.Country)
		if err != nil {
			return nil, err
		}

		// Only renewals are priced from the fee table; any other task carries
		// its own cost and fee whatever its detail says.
		var year int
		var isRenewal bool
		if t.IsRenewal(settings.RenewalCode) {
			year, isRenewal = domain.RenewalYear(t)
		}
		var row *domain.FeeSchedule
		if isRenewal {
			row, err = s.Repo.Fees().Find(ctx, m.Country, m.Category, m.OriginCode(), year)
			if err != nil {
				return nil, err
			}
		}
		inGrace := settings.grace().InGrace(t, c, m.OriginCode(), today)
		in := domain.FeeInputFor(t, m, row, inGrace)
		fee, err := settings.Fees.Calculate(in)
		if err != nil {
			code := errors.GetCode(err)
			s.Metrics.FeeErrorsTotal.WithLabelValues(string(code)).Inc()
			s.Logger.Warn("renewal not priced",
				logging.Int64("task_id", t.ID),
				logging.Int64("matter_id", m.ID),
				logging.Int("year", year),
				logging.Err(err))
			res.Skipped = append(res.Skipped, domain.SkippedTask{TaskID: t.ID, Code: code, Reason: err.Error()})
			continue
		}

		currency := t.Currency
		if row != nil && row.Currency != "" {
			currency = row.Currency
		}
		if currency == "" {
			currency = DefaultCurrency
		}
		q := domain.BuildQuote(t, m, year, fee, in, settings.VATRate, currency, validUntil)
		s.Metrics.QuotesTotal.WithLabelValues(strconv.FormatBool(q.GracePeriod)).Inc()
		res.Quotes = append(res.Quotes, q)
	}
	return res, nil
}

func (s *renewalServiceImpl) LapseCandidates(ctx context.Context, today time.Time, limit int) ([]LapseCandidate, error) {
	settings := s.Settings.Load()
	tasks, err := s.Repo.Tasks().ListPendingByCode(ctx, settings.RenewalCode, domain.Day(today), 0)
	if err != nil {
		return nil, err
	}

	r := newRefs(s.Repo)
	grace := settings.grace()
	var out []LapseCandidate
	for _, t := range tasks {
		if t.Step.Terminal() {
			continue
		}
		m, err := r.matter(ctx, t.MatterID)
		if err != nil {
			return nil, err
		}
		if m.Dead {
			continue
		}
		c, err := r.country(ctx, m.Country)
		if err != nil {
			return nil, err
		}
		if !grace.Lapsed(t, c, m.OriginCode(), today) {
			continue
		}
		out = append(out, LapseCandidate{
			Task:          t,
			MatterUID:     m.UID,
			GraceDeadline: domain.GraceDeadline(t.DueDate, settings.Windows.Grace(c, m.OriginCode())),
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *renewalServiceImpl) DueForNotice(ctx context.Context, today time.Time, limit int) ([]*domain.Task, error) {
	settings := s.Settings.Load()
	horizon := domain.Day(today).AddDate(0, 0, settings.NoticeDays+1)
	tasks, err := s.Repo.Tasks().ListPendingByCode(ctx, settings.RenewalCode, horizon, 0)
	if err != nil {
		return nil, err
	}
	var out []*domain.Task
	for _, t := range tasks {
		if t.Step != domain.StepPending {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *renewalServiceImpl) PreviewSchedule(ctx context.Context, matterID int64, today time.Time) (*domain.ScheduleResult, error) {
	settings := s.Settings.Load()
	m, err := s.Repo.Matters().GetByID(ctx, matterID)
	if err != nil {
		return nil, err
	}
	c, err := s.Repo.Countries().GetRenewal(ctx, m.Country)
	if err != nil {
		return nil, err
	}
	events, err := s.Repo.Events().ListByMatter(ctx, matterID)
	if err != nil {
		return nil, err
	}

	in := domain.ScheduleInput{Matter: m, Country: c, AssignedTo: m.ResponsibleID, Today: today}
	if c != nil {
		set := domain.NewEventSet(events)
		if ev, ok := set.Earliest(c.BaseEvent); ok {
			d := ev.EventDate
			in.TriggerID, in.TriggerDate, in.BaseEventDate = ev.ID, d, &d
		}
		if ev, ok := set.Earliest(c.StartEvent); ok {
			d := ev.EventDate
			in.StartEventDate = &d
		}
	}
	res := settings.Schedule.Generate(in)
	if res.Diagnostic != nil {
		return nil, res.Diagnostic
	}
	return &res, nil
}

func uniqueIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

//Personal.AI order the ending

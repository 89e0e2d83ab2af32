package docket

import (
	"context"
	"strconv"
	"time"

	domain "github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	metrics "github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

// SaveEventRequest creates an event, or updates it when ID is set.  A zero
// EventDate is only accepted with AltMatterID; the date is then taken from the
// linked matter's filing event.
type SaveEventRequest struct {
	ID          int64     `json:"id,omitempty"`
	MatterID    int64     `json:"matter_id"`
	Code        string    `json:"code"`
	EventDate   time.Time `json:"event_date"`
	AltMatterID *int64    `json:"alt_matter_id,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// EventResult lists what the rules did to the matter's tasks.
type EventResult struct {
	Event        *domain.Event     `json:"event"`
	Created      []int64           `json:"created,omitempty"`
	Scheduled    []int64           `json:"scheduled,omitempty"`
	Cleared      []int64           `json:"cleared,omitempty"`
	Deleted      []int64           `json:"deleted,omitempty"`
	Rescheduled  []int64           `json:"rescheduled,omitempty"`
	SkippedYears int               `json:"skipped_years,omitempty"`
	Skips        []domain.RuleSkip `json:"rule_skips,omitempty"`
	Diagnostics  []string          `json:"diagnostics,omitempty"`
}

// EventService records events and runs the task rules they trigger.
type EventService interface {
	Save(ctx context.Context, actor domain.Actor, req *SaveEventRequest) (*EventResult, error)
	// Reevaluate re-runs the rules of a stored event as if it had just been
	// updated.
	Reevaluate(ctx context.Context, actor domain.Actor, eventID int64) (*EventResult, error)
}

// ServiceDeps are the collaborators shared by the docket services.
type ServiceDeps struct {
	Repo      domain.Repository
	Settings  *SettingsStore
	Locker    RenewalLocker
	Publisher EventPublisher
	Metrics   *metrics.DocketMetrics
	Logger    logging.Logger
	Clock     Clock
}

func (d ServiceDeps) withDefaults() ServiceDeps {
	if d.Settings == nil {
		d.Settings = NewSettingsStore(nil)
	}
	if d.Locker == nil {
		d.Locker = NopLocker()
	}
	if d.Publisher == nil {
		d.Publisher = NopPublisher()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewNoopDocketMetrics()
	}
	if d.Logger == nil {
		d.Logger = logging.NewNopLogger()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return d
}

type eventServiceImpl struct {
	ServiceDeps
}

// NewEventService builds the event service.
func NewEventService(deps ServiceDeps) EventService {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.Named("events")
	return &eventServiceImpl{ServiceDeps: deps}
}

func (s *eventServiceImpl) Save(ctx context.Context, actor domain.Actor, req *SaveEventRequest) (*EventResult, error) {
	if req == nil {
		return nil, errors.InvalidParam("request must not be nil")
	}
	defer s.Metrics.ObserveOperation("event_save", time.Now())

	ev := &domain.Event{
		ID:          req.ID,
		MatterID:    req.MatterID,
		Code:        req.Code,
		AltMatterID: req.AltMatterID,
		Detail:      req.Detail,
		Notes:       req.Notes,
	}
	if !req.EventDate.IsZero() {
		ev.EventDate = domain.Day(req.EventDate)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	settings := s.Settings.Load()
	today := s.Clock()
	var res *EventResult
	err := s.Repo.WithTx(ctx, func(tx domain.Repository) error {
		matter, err := tx.Matters().GetForUpdate(ctx, ev.MatterID)
		if err != nil {
			return err
		}
		if err := backfillDate(ctx, tx, ev, settings.FilingCode); err != nil {
			return err
		}

		update := ev.ID != 0
		if update {
			existing, err := tx.Events().GetByID(ctx, ev.ID)
			if err != nil {
				return err
			}
			if existing.MatterID != ev.MatterID {
				return errors.InvalidParam("event belongs to another matter").
					WithDetailf("event_id=%d matter_id=%d", ev.ID, existing.MatterID)
			}
			ev.CreatorID, ev.CreatedAt = existing.CreatorID, existing.CreatedAt
			ev.UpdaterID = actor.Login()
			if err := tx.Events().Update(ctx, ev); err != nil {
				return err
			}
			// Notes or detail edits leave every generated task as it is.
			if sameAnchor(existing, ev) {
				res = &EventResult{Event: ev}
				return nil
			}
		} else {
			ev.CreatorID = actor.Login()
			if err := tx.Events().Create(ctx, ev); err != nil {
				return err
			}
		}

		res, err = s.evaluate(ctx, tx, settings, matter, ev, actor, today, update)
		return err
	})
	s.Metrics.RecordEvaluation(ev.Code, err)
	if err != nil {
		s.Logger.Warn("event not saved",
			logging.Int64("matter_id", ev.MatterID),
			logging.String("code", ev.Code),
			logging.Err(err))
		return nil, err
	}

	s.report(ctx, actor, res)
	return res, nil
}

func (s *eventServiceImpl) Reevaluate(ctx context.Context, actor domain.Actor, eventID int64) (*EventResult, error) {
	if eventID <= 0 {
		return nil, errors.InvalidParam("event id must be positive")
	}
	defer s.Metrics.ObserveOperation("event_reevaluate", time.Now())

	settings := s.Settings.Load()
	today := s.Clock()
	var res *EventResult
	code := ""
	err := s.Repo.WithTx(ctx, func(tx domain.Repository) error {
		ev, err := tx.Events().GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		code = ev.Code
		matter, err := tx.Matters().GetForUpdate(ctx, ev.MatterID)
		if err != nil {
			return err
		}
		res, err = s.evaluate(ctx, tx, settings, matter, ev, actor, today, true)
		return err
	})
	s.Metrics.RecordEvaluation(code, err)
	if err != nil {
		s.Logger.Warn("event not re-evaluated", logging.Int64("event_id", eventID), logging.Err(err))
		return nil, err
	}

	s.report(ctx, actor, res)
	return res, nil
}

// sameAnchor reports whether an update keeps what the task rules look at.
func sameAnchor(old, ev *domain.Event) bool {
	if old.Code != ev.Code || !domain.Day(old.EventDate).Equal(domain.Day(ev.EventDate)) {
		return false
	}
	switch {
	case old.AltMatterID == nil || ev.AltMatterID == nil:
		return old.AltMatterID == nil && ev.AltMatterID == nil
	default:
		return *old.AltMatterID == *ev.AltMatterID
	}
}

// backfillDate gives a linked event the filing date of its linked matter.
func backfillDate(ctx context.Context, tx domain.Repository, ev *domain.Event, filingCode string) error {
	if ev.HasDate() || ev.AltMatterID == nil {
		return nil
	}
	if _, err := tx.Matters().GetByID(ctx, *ev.AltMatterID); err != nil {
		return err
	}
	events, err := tx.Events().ListByMatter(ctx, *ev.AltMatterID)
	if err != nil {
		return err
	}
	if fil, ok := domain.NewEventSet(events).Earliest(filingCode); ok && fil.HasDate() {
		ev.EventDate = domain.Day(fil.EventDate)
		return nil
	}
	return errors.New(errors.CodeEventDateUnresolved, "linked matter has no filing date").
		WithDetailf("matter_id=%d alt_matter_id=%d code=%s", ev.MatterID, *ev.AltMatterID, filingCode)
}

func (s *eventServiceImpl) evaluate(ctx context.Context, tx domain.Repository, settings *Settings, matter *domain.Matter, ev *domain.Event, actor domain.Actor, today time.Time, update bool) (*EventResult, error) {
	events, err := tx.Events().ListByMatter(ctx, matter.ID)
	if err != nil {
		return nil, err
	}
	rules, err := tx.Rules().ListByTrigger(ctx, ev.Code)
	if err != nil {
		return nil, err
	}
	tasks, err := tx.Tasks().ListByMatter(ctx, matter.ID)
	if err != nil {
		return nil, err
	}
	codes, err := tx.EventNames().Codes(ctx)
	if err != nil {
		return nil, err
	}
	country, err := tx.Countries().GetRenewal(ctx, matter.Country)
	if err != nil {
		return nil, err
	}

	in := domain.EvaluationInput{
		Matter:     matter,
		Event:      ev,
		Events:     events,
		Rules:      rules,
		Tasks:      tasks,
		KnownCodes: codes,
		Country:    country,
		Actor:      actor,
		Today:      today,
	}
	var plan domain.Plan
	if update {
		plan, err = settings.evaluator().Reevaluate(in)
	} else {
		plan, err = settings.evaluator().Evaluate(in)
	}
	if err != nil {
		return nil, err
	}

	res, err := applyPlan(ctx, tx, plan)
	if err != nil {
		return nil, err
	}
	res.Event = ev
	s.diagnose(plan, matter, res)
	return res, nil
}

// applyPlan persists the plan: deletions and updates first, then all new
// tasks in one batch insert.
func applyPlan(ctx context.Context, tx domain.Repository, plan domain.Plan) (*EventResult, error) {
	res := &EventResult{Skips: plan.Skips}
	var created, scheduled []*domain.Task

	for _, a := range plan.Actions {
		switch a.Kind {
		case domain.ActionCreate:
			created = append(created, a.Task)
		case domain.ActionSchedule:
			scheduled = append(scheduled, a.Tasks...)
			res.SkippedYears += len(a.Skipped)
		case domain.ActionClear:
			if err := tx.Tasks().Update(ctx, a.Task); err != nil {
				return nil, err
			}
			res.Cleared = append(res.Cleared, a.Task.ID)
		case domain.ActionReschedule:
			if err := tx.Tasks().Update(ctx, a.Task); err != nil {
				return nil, err
			}
			res.Rescheduled = append(res.Rescheduled, a.Task.ID)
		case domain.ActionDelete:
			if err := tx.Tasks().Delete(ctx, a.Task.ID); err != nil {
				return nil, err
			}
			res.Deleted = append(res.Deleted, a.Task.ID)
		}
	}

	batch := append(append([]*domain.Task(nil), created...), scheduled...)
	if len(batch) > 0 {
		if err := tx.Tasks().CreateBatch(ctx, batch); err != nil {
			return nil, err
		}
	}
	res.Created = taskIDs(created)
	res.Scheduled = taskIDs(scheduled)
	return res, nil
}

func (s *eventServiceImpl) diagnose(plan domain.Plan, matter *domain.Matter, res *EventResult) {
	for _, d := range plan.Diagnostics {
		code := errors.GetCode(d)
		s.Metrics.ScheduleSkippedTotal.WithLabelValues(string(code)).Inc()
		s.Logger.Warn("renewal schedule skipped",
			logging.Int64("matter_id", matter.ID),
			logging.Int64("event_id", plan.EventID),
			logging.String("country", matter.Country),
			logging.String("code", string(code)),
			logging.Err(d))
		res.Diagnostics = append(res.Diagnostics, d.Error())
	}
	for _, sk := range plan.Skips {
		s.Logger.Debug("rule skipped",
			logging.Int64("event_id", plan.EventID),
			logging.Int64("rule_id", sk.RuleID),
			logging.String("reason", sk.Reason))
	}
	if res.SkippedYears > 0 {
		s.Metrics.ScheduleSkippedTotal.WithLabelValues("look_back").Add(float64(res.SkippedYears))
	}
	s.Metrics.RenewalYearsGenerated.WithLabelValues(matter.Country).Add(float64(len(res.Scheduled)))
}

// report records metrics and announces the changes.  Publishing happens after
// commit and failures are only logged.
func (s *eventServiceImpl) report(ctx context.Context, actor domain.Actor, res *EventResult) {
	changes := []struct {
		action string
		ids    []int64
	}{
		{ChangeCreated, res.Created},
		{ChangeScheduled, res.Scheduled},
		{ChangeCleared, res.Cleared},
		{ChangeDeleted, res.Deleted},
		{ChangeRescheduled, res.Rescheduled},
	}
	for _, c := range changes {
		s.Metrics.RecordTaskActions(c.action, len(c.ids))
		if len(c.ids) == 0 {
			continue
		}
		payload := kafka.TaskChangedPayload{
			MatterID: res.Event.MatterID,
			EventID:  res.Event.ID,
			Action:   c.action,
			TaskIDs:  c.ids,
			JobID:    string(actor.JobID),
			Actor:    actor.Login(),
		}
		key := strconv.FormatInt(res.Event.MatterID, 10)
		if err := s.Publisher.PublishEvent(ctx, kafka.TopicTaskChanged, key, kafka.EventTypeTaskChanged, payload); err != nil {
			s.Logger.Warn("task change not published",
				logging.Int64("event_id", res.Event.ID),
				logging.String("action", c.action),
				logging.Err(err))
		}
	}
	s.Logger.Info("event processed",
		logging.Int64("matter_id", res.Event.MatterID),
		logging.Int64("event_id", res.Event.ID),
		logging.String("code", res.Event.Code),
		logging.Int("created", len(res.Created)+len(res.Scheduled)),
		logging.Int("cleared", len(res.Cleared)),
		logging.Int("deleted", len(res.Deleted)),
		logging.Int("rescheduled", len(res.Rescheduled)))
}

func taskIDs(tasks []*domain.Task) []int64 {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]int64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

//Personal.AI order the ending

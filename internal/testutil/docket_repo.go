package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

// MemoryRepository is an in-memory docket.Repository.  WithTx works on a copy
// of the state and publishes it only when the callback succeeds, which gives
// tests the same all-or-nothing behaviour as the Postgres implementation.
type MemoryRepository struct {
	mu    *sync.Mutex
	state *memState
	inTx  bool

	// FailTaskUpdate, when set, is consulted before every task update.
	FailTaskUpdate func(t *docket.Task) error
	// Clock stamps created_at/updated_at.  Defaults to time.Now.
	Clock func() time.Time
}

type memState struct {
	nextID    int64
	matters   map[int64]docket.Matter
	events    map[int64]docket.Event
	rules     map[int64]docket.TaskRule
	tasks     map[int64]docket.Task
	logs      []docket.RenewalsLog
	countries map[string]docket.CountryRenewal
	fees      []docket.FeeSchedule
	codes     map[string]bool
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		mu: &sync.Mutex{},
		state: &memState{
			matters:   map[int64]docket.Matter{},
			events:    map[int64]docket.Event{},
			rules:     map[int64]docket.TaskRule{},
			tasks:     map[int64]docket.Task{},
			countries: map[string]docket.CountryRenewal{},
			codes:     map[string]bool{},
		},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		nextID:    s.nextID,
		matters:   make(map[int64]docket.Matter, len(s.matters)),
		events:    make(map[int64]docket.Event, len(s.events)),
		rules:     make(map[int64]docket.TaskRule, len(s.rules)),
		tasks:     make(map[int64]docket.Task, len(s.tasks)),
		logs:      append([]docket.RenewalsLog(nil), s.logs...),
		countries: make(map[string]docket.CountryRenewal, len(s.countries)),
		fees:      append([]docket.FeeSchedule(nil), s.fees...),
		codes:     make(map[string]bool, len(s.codes)),
	}
	for k, v := range s.matters {
		c.matters[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.rules {
		c.rules[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.countries {
		c.countries[k] = v
	}
	for k, v := range s.codes {
		c.codes[k] = v
	}
	return c
}

func (r *MemoryRepository) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func (r *MemoryRepository) id() int64 {
	r.state.nextID++
	return r.state.nextID
}

// lock serialises access outside transactions; inside one the outer WithTx
// already holds the mutex.
func (r *MemoryRepository) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

// WithTx implements docket.Repository.
func (r *MemoryRepository) WithTx(ctx context.Context, fn func(tx docket.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &MemoryRepository{mu: r.mu, state: r.state.clone(), inTx: true, FailTaskUpdate: r.FailTaskUpdate, Clock: r.Clock}
	if err := fn(tx); err != nil {
		return err
	}
	r.state = tx.state
	return nil
}

func (r *MemoryRepository) Matters() docket.MatterRepository         { return memMatters{r} }
func (r *MemoryRepository) Events() docket.EventRepository           { return memEvents{r} }
func (r *MemoryRepository) Rules() docket.RuleRepository             { return memRules{r} }
func (r *MemoryRepository) Tasks() docket.TaskRepository             { return memTasks{r} }
func (r *MemoryRepository) RenewalLogs() docket.RenewalLogRepository { return memLogs{r} }
func (r *MemoryRepository) Countries() docket.CountryRepository      { return memCountries{r} }
func (r *MemoryRepository) Fees() docket.FeeRepository               { return memFees{r} }
func (r *MemoryRepository) EventNames() docket.EventNameRepository   { return memCodes{r} }

// ─────────────────────────────────────────────────────────────────────────────
// Seeding helpers
// ─────────────────────────────────────────────────────────────────────────────

// AddRule stores a rule, assigning an id when it has none.
func (r *MemoryRepository) AddRule(rule *docket.TaskRule) {
	defer r.lock()()
	if rule.ID == 0 {
		rule.ID = r.id()
	} else if rule.ID > r.state.nextID {
		r.state.nextID = rule.ID
	}
	r.state.rules[rule.ID] = *rule
}

// AddCountry stores renewal parameters.
func (r *MemoryRepository) AddCountry(c *docket.CountryRenewal) {
	defer r.lock()()
	r.state.countries[c.Country] = *c
}

// AddFee stores a fee-table row.
func (r *MemoryRepository) AddFee(f *docket.FeeSchedule) {
	defer r.lock()()
	r.state.fees = append(r.state.fees, *f)
}

// AddCodes registers event codes in the catalog.
func (r *MemoryRepository) AddCodes(codes ...string) {
	defer r.lock()()
	for _, c := range codes {
		r.state.codes[c] = true
	}
}

// AllTasks returns every stored task ordered by id.
func (r *MemoryRepository) AllTasks() []*docket.Task {
	defer r.lock()()
	out := make([]*docket.Task, 0, len(r.state.tasks))
	for _, t := range r.state.tasks {
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllLogs returns every renewal log row.
func (r *MemoryRepository) AllLogs() []docket.RenewalsLog {
	defer r.lock()()
	return append([]docket.RenewalsLog(nil), r.state.logs...)
}

// ─────────────────────────────────────────────────────────────────────────────
// Matters
// ─────────────────────────────────────────────────────────────────────────────

type memMatters struct{ r *MemoryRepository }

func (m memMatters) Create(ctx context.Context, matter *docket.Matter) error {
	defer m.r.lock()()
	matter.RecomputeUID()
	for _, existing := range m.r.state.matters {
		if existing.UID == matter.UID {
			return errors.New(errors.CodeMatterDuplicate, "matter already exists").WithDetailf("uid=%s", matter.UID)
		}
	}
	matter.ID = m.r.id()
	matter.CreatedAt, matter.UpdatedAt = m.r.now(), m.r.now()
	matter.Version = 1
	m.r.state.matters[matter.ID] = *matter
	return nil
}

func (m memMatters) Update(ctx context.Context, matter *docket.Matter) error {
	defer m.r.lock()()
	if _, ok := m.r.state.matters[matter.ID]; !ok {
		return errors.New(errors.CodeMatterNotFound, "matter not found").WithDetailf("matter_id=%d", matter.ID)
	}
	matter.RecomputeUID()
	for id, existing := range m.r.state.matters {
		if id != matter.ID && existing.UID == matter.UID {
			return errors.New(errors.CodeMatterDuplicate, "matter already exists").WithDetailf("uid=%s", matter.UID)
		}
	}
	matter.UpdatedAt = m.r.now()
	matter.Version++
	m.r.state.matters[matter.ID] = *matter
	return nil
}

func (m memMatters) GetByID(ctx context.Context, id int64) (*docket.Matter, error) {
	defer m.r.lock()()
	v, ok := m.r.state.matters[id]
	if !ok {
		return nil, errors.New(errors.CodeMatterNotFound, "matter not found").WithDetailf("matter_id=%d", id)
	}
	return &v, nil
}

func (m memMatters) GetForUpdate(ctx context.Context, id int64) (*docket.Matter, error) {
	return m.GetByID(ctx, id)
}

func (m memMatters) GetByUID(ctx context.Context, uid string) (*docket.Matter, error) {
	defer m.r.lock()()
	for _, v := range m.r.state.matters {
		if v.UID == uid {
			v := v
			return &v, nil
		}
	}
	return nil, errors.New(errors.CodeMatterNotFound, "matter not found").WithDetailf("uid=%s", uid)
}

// ─────────────────────────────────────────────────────────────────────────────
// Events
// ─────────────────────────────────────────────────────────────────────────────

type memEvents struct{ r *MemoryRepository }

func (e memEvents) duplicate(ev *docket.Event) bool {
	for id, existing := range e.r.state.events {
		if id == ev.ID || existing.MatterID != ev.MatterID || existing.Code != ev.Code || !existing.EventDate.Equal(ev.EventDate) {
			continue
		}
		if (existing.AltMatterID == nil) == (ev.AltMatterID == nil) &&
			(existing.AltMatterID == nil || *existing.AltMatterID == *ev.AltMatterID) {
			return true
		}
	}
	return false
}

func (e memEvents) Create(ctx context.Context, ev *docket.Event) error {
	defer e.r.lock()()
	if e.duplicate(ev) {
		return errors.New(errors.CodeEventDuplicate, "event already exists").WithDetailf("matter_id=%d code=%s", ev.MatterID, ev.Code)
	}
	ev.ID = e.r.id()
	ev.CreatedAt, ev.UpdatedAt = e.r.now(), e.r.now()
	e.r.state.events[ev.ID] = *ev
	return nil
}

func (e memEvents) Update(ctx context.Context, ev *docket.Event) error {
	defer e.r.lock()()
	if _, ok := e.r.state.events[ev.ID]; !ok {
		return errors.New(errors.CodeEventNotFound, "event not found").WithDetailf("event_id=%d", ev.ID)
	}
	if e.duplicate(ev) {
		return errors.New(errors.CodeEventDuplicate, "event already exists").WithDetailf("matter_id=%d code=%s", ev.MatterID, ev.Code)
	}
	ev.UpdatedAt = e.r.now()
	e.r.state.events[ev.ID] = *ev
	return nil
}

func (e memEvents) GetByID(ctx context.Context, id int64) (*docket.Event, error) {
	defer e.r.lock()()
	v, ok := e.r.state.events[id]
	if !ok {
		return nil, errors.New(errors.CodeEventNotFound, "event not found").WithDetailf("event_id=%d", id)
	}
	return &v, nil
}

func (e memEvents) ListByMatter(ctx context.Context, matterID int64) ([]*docket.Event, error) {
	defer e.r.lock()()
	var out []*docket.Event
	for _, v := range e.r.state.events {
		if v.MatterID == matterID {
			v := v
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Rules, countries, fees, codes
// ─────────────────────────────────────────────────────────────────────────────

type memRules struct{ r *MemoryRepository }

func (m memRules) ListByTrigger(ctx context.Context, trigger string) ([]*docket.TaskRule, error) {
	defer m.r.lock()()
	var out []*docket.TaskRule
	for _, v := range m.r.state.rules {
		if v.TriggerEvent == trigger {
			v := v
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memRules) GetByID(ctx context.Context, id int64) (*docket.TaskRule, error) {
	defer m.r.lock()()
	v, ok := m.r.state.rules[id]
	if !ok {
		return nil, errors.NotFound("rule not found").WithDetailf("rule_id=%d", id)
	}
	return &v, nil
}

type memCountries struct{ r *MemoryRepository }

func (m memCountries) GetRenewal(ctx context.Context, country string) (*docket.CountryRenewal, error) {
	defer m.r.lock()()
	v, ok := m.r.state.countries[country]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

type memFees struct{ r *MemoryRepository }

func (m memFees) Find(ctx context.Context, country string, category docket.Category, origin string, year int) (*docket.FeeSchedule, error) {
	defer m.r.lock()()
	var generic *docket.FeeSchedule
	for _, f := range m.r.state.fees {
		if f.Country != country || f.Category != category || f.Year != year {
			continue
		}
		f := f
		if f.Origin != nil && *f.Origin == origin {
			return &f, nil
		}
		if f.Origin == nil {
			generic = &f
		}
	}
	return generic, nil
}

type memCodes struct{ r *MemoryRepository }

func (m memCodes) Codes(ctx context.Context) (map[string]bool, error) {
	defer m.r.lock()()
	if len(m.r.state.codes) == 0 {
		return nil, nil
	}
	out := make(map[string]bool, len(m.r.state.codes))
	for k := range m.r.state.codes {
		out[k] = true
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Tasks and logs
// ─────────────────────────────────────────────────────────────────────────────

type memTasks struct{ r *MemoryRepository }

func (m memTasks) insert(t *docket.Task) {
	t.ID = m.r.id()
	t.CreatedAt, t.UpdatedAt = m.r.now(), m.r.now()
	t.Version = 1
	m.r.state.tasks[t.ID] = *t
}

func (m memTasks) Create(ctx context.Context, t *docket.Task) error {
	defer m.r.lock()()
	m.insert(t)
	return nil
}

func (m memTasks) CreateBatch(ctx context.Context, tasks []*docket.Task) error {
	defer m.r.lock()()
	for _, t := range tasks {
		m.insert(t)
	}
	return nil
}

func (m memTasks) Update(ctx context.Context, t *docket.Task) error {
	defer m.r.lock()()
	if m.r.FailTaskUpdate != nil {
		if err := m.r.FailTaskUpdate(t); err != nil {
			return err
		}
	}
	stored, ok := m.r.state.tasks[t.ID]
	if !ok {
		return errors.New(errors.CodeTaskNotFound, "task not found").WithDetailf("task_id=%d", t.ID)
	}
	if stored.Version != t.Version {
		return errors.New(errors.CodeTaskVersionConflict, "task was modified concurrently").
			WithDetailf("task_id=%d version=%d stored=%d", t.ID, t.Version, stored.Version)
	}
	t.Version++
	t.UpdatedAt = m.r.now()
	m.r.state.tasks[t.ID] = *t
	return nil
}

func (m memTasks) Delete(ctx context.Context, id int64) error {
	defer m.r.lock()()
	if _, ok := m.r.state.tasks[id]; !ok {
		return errors.New(errors.CodeTaskNotFound, "task not found").WithDetailf("task_id=%d", id)
	}
	for _, l := range m.r.state.logs {
		if l.TaskID == id {
			return errors.New(errors.CodeConflict, "task has renewal history").WithDetailf("task_id=%d", id)
		}
	}
	delete(m.r.state.tasks, id)
	return nil
}

func (m memTasks) GetByID(ctx context.Context, id int64) (*docket.Task, error) {
	defer m.r.lock()()
	v, ok := m.r.state.tasks[id]
	if !ok {
		return nil, errors.New(errors.CodeTaskNotFound, "task not found").WithDetailf("task_id=%d", id)
	}
	return &v, nil
}

func (m memTasks) ListByIDs(ctx context.Context, ids []int64) ([]*docket.Task, error) {
	defer m.r.lock()()
	var out []*docket.Task
	for _, id := range ids {
		if v, ok := m.r.state.tasks[id]; ok {
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memTasks) ListByMatter(ctx context.Context, matterID int64) ([]*docket.Task, error) {
	defer m.r.lock()()
	var out []*docket.Task
	for _, v := range m.r.state.tasks {
		if v.MatterID == matterID {
			v := v
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memTasks) ListPendingByCode(ctx context.Context, code string, dueBefore time.Time, limit int) ([]*docket.Task, error) {
	defer m.r.lock()()
	var out []*docket.Task
	for _, v := range m.r.state.tasks {
		if v.Code == code && !v.Done && v.DueDate.Before(dueBefore) {
			v := v
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memLogs struct{ r *MemoryRepository }

func (m memLogs) Append(ctx context.Context, logs []*docket.RenewalsLog) error {
	defer m.r.lock()()
	for _, l := range logs {
		l.ID = m.r.id()
		m.r.state.logs = append(m.r.state.logs, *l)
	}
	return nil
}

func (m memLogs) ListByTask(ctx context.Context, taskID int64) ([]*docket.RenewalsLog, error) {
	defer m.r.lock()()
	var out []*docket.RenewalsLog
	for _, l := range m.r.state.logs {
		if l.TaskID == taskID {
			l := l
			out = append(out, &l)
		}
	}
	return out, nil
}

//Personal.AI order the ending

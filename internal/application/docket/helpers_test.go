package docket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	domain "github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-Docket/internal/testutil"
)

type published struct {
	topic     string
	key       string
	eventType string
	payload   interface{}
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, topic, key, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic: topic, key: key, eventType: eventType, payload: payload})
	return nil
}

func (p *recordingPublisher) taskChanges() []kafka.TaskChangedPayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []kafka.TaskChangedPayload
	for _, m := range p.msgs {
		if pl, ok := m.payload.(kafka.TaskChangedPayload); ok {
			out = append(out, pl)
		}
	}
	return out
}

type stubLocker struct {
	err      error
	locked   [][]int64
	released int
}

func (l *stubLocker) LockRenewals(ctx context.Context, ids []int64) (func(context.Context) error, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locked = append(l.locked, ids)
	return func(context.Context) error {
		l.released++
		return nil
	}, nil
}

type fixture struct {
	repo      *testutil.MemoryRepository
	log       *testutil.MockLogger
	publisher *recordingPublisher
	locker    *stubLocker
	today     time.Time
	matter    *domain.Matter
	events    EventService
	renewals  RenewalService
	matters   MatterService
}

// newFixture seeds a US patent expiring in 2040 with a recurring renewal
// rule on FIL (first renewal in year 2) and a GRT rule deleting pending
// renewals.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:      testutil.NewMemoryRepository(),
		log:       testutil.NewMockLogger(),
		publisher: &recordingPublisher{},
		locker:    &stubLocker{},
		today:     domain.Date(2020, 6, 15),
	}
	f.repo.Clock = f.now
	f.repo.AddCodes("FIL", "GRT", "PRI", "EXA", "REN", "REQ")
	f.repo.AddCountry(&domain.CountryRenewal{
		Country:    "US",
		First:      domain.RenewalFirst{Mode: domain.CountFromBase, Year: 2},
		BaseEvent:  "FIL",
		StartEvent: "FIL",
	})
	f.repo.AddRule(&domain.TaskRule{Active: true, TriggerEvent: "FIL", TaskCode: "REN", Recurring: true})
	f.repo.AddRule(&domain.TaskRule{Active: true, TriggerEvent: "GRT", TaskCode: "REN", DeleteTask: true})

	expire := domain.Date(2040, 6, 15)
	f.matter = &domain.Matter{Category: domain.CategoryPatent, CaseRef: "TEST001", Country: "US", ExpireDate: &expire, ResponsibleID: "owner"}
	require.NoError(t, f.repo.Matters().Create(context.Background(), f.matter))

	deps := ServiceDeps{
		Repo:      f.repo,
		Locker:    f.locker,
		Publisher: f.publisher,
		Logger:    f.log,
		Clock:     f.now,
	}
	f.events = NewEventService(deps)
	f.renewals = NewRenewalService(deps)
	f.matters = NewMatterService(deps)
	return f
}

func (f *fixture) now() time.Time { return f.today }

func (f *fixture) file(t *testing.T, date time.Time) *EventResult {
	t.Helper()
	res, err := f.events.Save(context.Background(), domain.UserActor("clerk"), &SaveEventRequest{
		MatterID:  f.matter.ID,
		Code:      "FIL",
		EventDate: date,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) renewalIDs() []int64 {
	var ids []int64
	for _, task := range f.repo.AllTasks() {
		if task.Code == "REN" {
			ids = append(ids, task.ID)
		}
	}
	return ids
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

//Personal.AI order the ending

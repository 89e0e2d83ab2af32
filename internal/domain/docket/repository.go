package docket

import (
	"context"
	"time"
)

// MatterRepository persists matters.  Create and Update recompute the UID.
type MatterRepository interface {
	Create(ctx context.Context, m *Matter) error
	Update(ctx context.Context, m *Matter) error
	GetByID(ctx context.Context, id int64) (*Matter, error)
	GetByUID(ctx context.Context, uid string) (*Matter, error)
	// GetForUpdate locks the matter row until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Matter, error)
}

// EventRepository persists events.
type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	Update(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id int64) (*Event, error)
	ListByMatter(ctx context.Context, matterID int64) ([]*Event, error)
}

// RuleRepository reads task rules.
type RuleRepository interface {
	ListByTrigger(ctx context.Context, trigger string) ([]*TaskRule, error)
	GetByID(ctx context.Context, id int64) (*TaskRule, error)
}

// TaskRepository persists tasks.  Update fails with CodeTaskVersionConflict
// when the stored version differs from t.Version and bumps it on success.
type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	CreateBatch(ctx context.Context, tasks []*Task) error
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Task, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*Task, error)
	ListByMatter(ctx context.Context, matterID int64) ([]*Task, error)
	ListPendingByCode(ctx context.Context, code string, dueBefore time.Time, limit int) ([]*Task, error)
}

// RenewalLogRepository appends renewal logs.  Rows are never updated.
type RenewalLogRepository interface {
	Append(ctx context.Context, logs []*RenewalsLog) error
	ListByTask(ctx context.Context, taskID int64) ([]*RenewalsLog, error)
}

// CountryRepository reads renewal parameters.  A country without parameters
// yields (nil, nil).
type CountryRepository interface {
	GetRenewal(ctx context.Context, country string) (*CountryRenewal, error)
}

// FeeRepository reads the fee table.  A missing row yields (nil, nil); an
// origin-specific row wins over the generic one.
type FeeRepository interface {
	Find(ctx context.Context, country string, category Category, origin string, year int) (*FeeSchedule, error)
}

// EventNameRepository reads the event-code catalog.
type EventNameRepository interface {
	Codes(ctx context.Context) (map[string]bool, error)
}

// Repository groups the docket stores and runs units of work.
type Repository interface {
	Matters() MatterRepository
	Events() EventRepository
	Rules() RuleRepository
	Tasks() TaskRepository
	RenewalLogs() RenewalLogRepository
	Countries() CountryRepository
	Fees() FeeRepository
	EventNames() EventNameRepository

	// WithTx runs fn with a Repository bound to one transaction, committing
	// when fn returns nil and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}

//Personal.AI order the ending

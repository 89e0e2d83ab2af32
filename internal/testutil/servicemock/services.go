// Package servicemock holds testify mocks of the docket application
// services for transport-layer tests.
package servicemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	app "github.com/turtacn/KeyIP-Docket/internal/application/docket"
	domain "github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/pkg/types/common"
)

type EventService struct{ mock.Mock }

func (m *EventService) Save(ctx context.Context, actor domain.Actor, req *app.SaveEventRequest) (*app.EventResult, error) {
	args := m.Called(ctx, actor, req)
	if r := args.Get(0); r != nil {
		return r.(*app.EventResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EventService) Reevaluate(ctx context.Context, actor domain.Actor, eventID int64) (*app.EventResult, error) {
	args := m.Called(ctx, actor, eventID)
	if r := args.Get(0); r != nil {
		return r.(*app.EventResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type RenewalService struct{ mock.Mock }

func (m *RenewalService) Transition(ctx context.Context, actor domain.Actor, name string, ids []int64) (*domain.BatchOutcome, error) {
	args := m.Called(ctx, actor, name, ids)
	if r := args.Get(0); r != nil {
		return r.(*domain.BatchOutcome), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RenewalService) Enqueue(ctx context.Context, actor domain.Actor, name string, ids []int64) (common.JobID, error) {
	args := m.Called(ctx, actor, name, ids)
	return args.Get(0).(common.JobID), args.Error(1)
}

func (m *RenewalService) Quote(ctx context.Context, ids []int64, today time.Time) (*app.QuoteResult, error) {
	args := m.Called(ctx, ids, today)
	if r := args.Get(0); r != nil {
		return r.(*app.QuoteResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RenewalService) LapseCandidates(ctx context.Context, today time.Time, limit int) ([]app.LapseCandidate, error) {
	args := m.Called(ctx, today, limit)
	if r := args.Get(0); r != nil {
		return r.([]app.LapseCandidate), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RenewalService) DueForNotice(ctx context.Context, today time.Time, limit int) ([]*domain.Task, error) {
	args := m.Called(ctx, today, limit)
	if r := args.Get(0); r != nil {
		return r.([]*domain.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RenewalService) PreviewSchedule(ctx context.Context, matterID int64, today time.Time) (*domain.ScheduleResult, error) {
	args := m.Called(ctx, matterID, today)
	if r := args.Get(0); r != nil {
		return r.(*domain.ScheduleResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MatterService struct{ mock.Mock }

func (m *MatterService) Save(ctx context.Context, actor domain.Actor, mt *domain.Matter) (*domain.Matter, error) {
	args := m.Called(ctx, actor, mt)
	if r := args.Get(0); r != nil {
		return r.(*domain.Matter), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MatterService) Get(ctx context.Context, id int64) (*domain.Matter, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*domain.Matter), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MatterService) GetByUID(ctx context.Context, uid string) (*domain.Matter, error) {
	args := m.Called(ctx, uid)
	if r := args.Get(0); r != nil {
		return r.(*domain.Matter), args.Error(1)
	}
	return nil, args.Error(1)
}

var (
	_ app.EventService   = (*EventService)(nil)
	_ app.RenewalService = (*RenewalService)(nil)
	_ app.MatterService  = (*MatterService)(nil)
)

//Personal.AI order the ending

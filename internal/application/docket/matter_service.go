package docket

import (
	"context"
	"time"

	domain "github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

// MatterService maintains matters.  The UID is always derived from the
// identifying fields; a UID passed in by the caller is ignored.
type MatterService interface {
	Save(ctx context.Context, actor domain.Actor, m *domain.Matter) (*domain.Matter, error)
	Get(ctx context.Context, id int64) (*domain.Matter, error)
	GetByUID(ctx context.Context, uid string) (*domain.Matter, error)
}

type matterServiceImpl struct {
	ServiceDeps
}

// NewMatterService builds the matter service.
func NewMatterService(deps ServiceDeps) MatterService {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.Named("matters")
	return &matterServiceImpl{ServiceDeps: deps}
}

func (s *matterServiceImpl) Save(ctx context.Context, actor domain.Actor, m *domain.Matter) (*domain.Matter, error) {
	if m == nil {
		return nil, errors.InvalidParam("matter must not be nil")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	defer s.Metrics.ObserveOperation("matter_save", time.Now())

	saved := *m
	err := s.Repo.WithTx(ctx, func(tx domain.Repository) error {
		if saved.ID == 0 {
			saved.CreatorID = actor.Login()
			return tx.Matters().Create(ctx, &saved)
		}
		existing, err := tx.Matters().GetForUpdate(ctx, saved.ID)
		if err != nil {
			return err
		}
		if saved.Version != 0 && saved.Version != existing.Version {
			return errors.Conflict("matter was modified concurrently").
				WithDetailf("matter_id=%d version=%d stored=%d", saved.ID, saved.Version, existing.Version)
		}
		saved.Version = existing.Version
		saved.CreatorID, saved.CreatedAt = existing.CreatorID, existing.CreatedAt
		saved.UpdaterID = actor.Login()
		return tx.Matters().Update(ctx, &saved)
	})
	if err != nil {
		s.Logger.Warn("matter not saved",
			logging.Int64("matter_id", m.ID),
			logging.String("caseref", m.CaseRef),
			logging.Err(err))
		return nil, err
	}
	s.Logger.Info("matter saved", logging.Int64("matter_id", saved.ID), logging.String("uid", saved.UID))
	return &saved, nil
}

func (s *matterServiceImpl) Get(ctx context.Context, id int64) (*domain.Matter, error) {
	if id <= 0 {
		return nil, errors.InvalidParam("matter id must be positive")
	}
	return s.Repo.Matters().GetByID(ctx, id)
}

func (s *matterServiceImpl) GetByUID(ctx context.Context, uid string) (*domain.Matter, error) {
	if uid == "" {
		return nil, errors.InvalidParam("matter uid is required")
	}
	return s.Repo.Matters().GetByUID(ctx, uid)
}

//Personal.AI order the ending

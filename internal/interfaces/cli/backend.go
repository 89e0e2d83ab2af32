package cli

import (
	"context"
	"time"

	app "github.com/turtacn/KeyIP-Docket/internal/application/docket"
	"github.com/turtacn/KeyIP-Docket/internal/bootstrap"
	"github.com/turtacn/KeyIP-Docket/internal/config"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
)

// Backend is what service commands run against.
type Backend struct {
	Events     app.EventService
	Renewals   app.RenewalService
	Matters    app.MatterService
	FlushCache func(ctx context.Context) (int64, error)
	Close      func()
}

// BackendOpener connects the services for one invocation.
type BackendOpener func(cfg *config.Config, logger logging.Logger) (*Backend, error)

// Migrator applies the schema migrations.
type Migrator interface {
	Up() error
	Down(steps int) error
	Status() (postgres.MigrationState, error)
	Force(version int) error
}

// Deps are the replaceable collaborators of the command tree.
type Deps struct {
	OpenBackend BackendOpener
	NewMigrator func(cfg config.DatabaseConfig) Migrator
	Now         func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.OpenBackend == nil {
		d.OpenBackend = openBackend
	}
	if d.NewMigrator == nil {
		d.NewMigrator = newPostgresMigrator
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func openBackend(cfg *config.Config, logger logging.Logger) (*Backend, error) {
	infra, err := bootstrap.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	svc := bootstrap.NewServices(infra, cfg.Docket, logger)
	return &Backend{
		Events:     svc.Events,
		Renewals:   svc.Renewals,
		Matters:    svc.Matters,
		FlushCache: svc.FlushCache,
		Close:      infra.Close,
	}, nil
}

type postgresMigrator struct {
	url  string
	path string
}

func newPostgresMigrator(cfg config.DatabaseConfig) Migrator {
	return &postgresMigrator{url: postgres.BuildDSN(cfg), path: cfg.MigrationPath}
}

func (m *postgresMigrator) Up() error { return postgres.RunMigrations(m.url, m.path) }
func (m *postgresMigrator) Down(steps int) error {
	return postgres.RollbackMigration(m.url, m.path, steps)
}
func (m *postgresMigrator) Status() (postgres.MigrationState, error) {
	return postgres.MigrationStatus(m.url, m.path)
}
func (m *postgresMigrator) Force(version int) error {
	return postgres.ForceMigrationVersion(m.url, m.path, version)
}

//Personal.AI order the ending

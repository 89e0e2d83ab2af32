package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-Docket/internal/config"
	domain "github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Docket/internal/testutil/servicemock"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

type fakeMigrator struct{ mock.Mock }

func (m *fakeMigrator) Up() error            { return m.Called().Error(0) }
func (m *fakeMigrator) Down(steps int) error { return m.Called(steps).Error(0) }
func (m *fakeMigrator) Force(version int) error {
	return m.Called(version).Error(0)
}
func (m *fakeMigrator) Status() (postgres.MigrationState, error) {
	args := m.Called()
	return args.Get(0).(postgres.MigrationState), args.Error(1)
}

// harness runs the command tree against mocked services.
type harness struct {
	events   *servicemock.EventService
	renewals *servicemock.RenewalService
	matters  *servicemock.MatterService
	migrator *fakeMigrator
	opened   int
	closed   int
	flushed  int64
	openErr  error
}

func newHarness() *harness {
	return &harness{
		events:   new(servicemock.EventService),
		renewals: new(servicemock.RenewalService),
		matters:  new(servicemock.MatterService),
		migrator: new(fakeMigrator),
	}
}

func (h *harness) deps() Deps {
	return Deps{
		OpenBackend: func(*config.Config, logging.Logger) (*Backend, error) {
			if h.openErr != nil {
				return nil, h.openErr
			}
			h.opened++
			return &Backend{
				Events:     h.events,
				Renewals:   h.renewals,
				Matters:    h.matters,
				FlushCache: func(context.Context) (int64, error) { return h.flushed, nil },
				Close:      func() { h.closed++ },
			}, nil
		},
		NewMigrator: func(config.DatabaseConfig) Migrator { return h.migrator },
		Now:         func() time.Time { return time.Date(2021, 5, 1, 15, 4, 5, 0, time.UTC) },
	}
}

func (h *harness) run(args ...string) (string, string, error) {
	cmd := NewRootCommand(h.deps())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--user", "tester", "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand(Deps{})
	assert.Equal(t, "keyip", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"migrate", "matter", "event", "renewal", "schedule", "cache"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
	for _, flag := range []string{"config", "log-level", "output", "user", "verbose", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRoot_ConfigFile(t *testing.T) {
	h := newHarness()
	_, _, err := h.run("--config", "/nonexistent/keyip.yaml", "matter", "uid", "--caseref", "A", "--country", "US")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config initialization failed")
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := NewRootCommand(Deps{})
	cmd.SetContext(context.Background())
	_, err := GetCLIContext(cmd)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestBackend_OpenedLazilyAndClosed(t *testing.T) {
	h := newHarness()
	out, _, err := h.run("matter", "uid", "--caseref", "ACME01", "--country", "ep", "--origin", "WO", "--type", "DIV", "--idx", "2")
	require.NoError(t, err)
	assert.Equal(t, "ACME01EP-WO-DIV.2\n", out)
	assert.Zero(t, h.opened)

	h.flushed = 7
	out, _, err = h.run("cache", "flush")
	require.NoError(t, err)
	assert.Equal(t, "OK: removed 7 cache entries\n", out)
	assert.Equal(t, 1, h.opened)
	assert.Equal(t, 1, h.closed)
}

func TestBackend_OpenError(t *testing.T) {
	h := newHarness()
	h.openErr = errors.New(errors.ErrCodeDatabaseError, "connection refused")
	_, _, err := h.run("cache", "flush")
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestFormatTable(t *testing.T) {
	got := FormatTable([]string{"ID", "NAME"}, [][]string{{"1", "first"}, {"100", "x"}})
	want := "ID   NAME\n" +
		"---  -----\n" +
		"1    first\n" +
		"100  x\n"
	assert.Equal(t, want, got)
	assert.Empty(t, FormatTable(nil, nil))
}

func TestCLIContext_Actor(t *testing.T) {
	cc := &CLIContext{User: "alice"}
	assert.Equal(t, domain.UserActor("alice"), cc.Actor())
}

//Personal.AI order the ending

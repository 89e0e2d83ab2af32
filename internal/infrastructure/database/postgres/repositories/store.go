// Package repositories implements the docket stores on PostgreSQL through
// database/sql and lib/pq.
package repositories

import (
	"context"
	"database/sql"

	"github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

// Store is the PostgreSQL docket.Repository.  A Store returned to a WithTx
// callback runs every statement on the same transaction.
type Store struct {
	baseRepo
}

// NewStore returns a Store using the connection pool.
func NewStore(conn *postgres.Connection, log logging.Logger) *Store {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Store{baseRepo: baseRepo{conn: conn, log: log.Named("postgres")}}
}

var _ docket.Repository = (*Store)(nil)

func (s *Store) Matters() docket.MatterRepository         { return &matterRepo{baseRepo: s.baseRepo} }
func (s *Store) Events() docket.EventRepository           { return &eventRepo{baseRepo: s.baseRepo} }
func (s *Store) Rules() docket.RuleRepository             { return &ruleRepo{baseRepo: s.baseRepo} }
func (s *Store) Tasks() docket.TaskRepository             { return &taskRepo{baseRepo: s.baseRepo} }
func (s *Store) RenewalLogs() docket.RenewalLogRepository { return &renewalLogRepo{baseRepo: s.baseRepo} }
func (s *Store) Countries() docket.CountryRepository      { return &countryRepo{baseRepo: s.baseRepo} }
func (s *Store) Fees() docket.FeeRepository               { return &feeRepo{baseRepo: s.baseRepo} }
func (s *Store) EventNames() docket.EventNameRepository   { return &eventNameRepo{baseRepo: s.baseRepo} }

// WithTx runs fn inside one READ COMMITTED transaction.  Nested calls join the
// outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx docket.Repository) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.conn.DB().BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to begin transaction")
	}

	txStore := &Store{baseRepo: baseRepo{conn: s.conn, tx: tx, log: s.log}}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Warn("rollback failed", logging.Err(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to commit transaction")
	}
	return nil
}

//Personal.AI order the ending

package export

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/postgres"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// pgSink replaces the contents of a score table with a COPY stream inside a
// single transaction, so readers see either the old or the new matrix.
type pgSink struct {
	client  *postgres.Client
	owned   bool
	tx      *sql.Tx
	stmt    *sql.Stmt
	table   string
	written int
}

// EnsureScoreTable creates the score table if it does not exist.
func EnsureScoreTable(ctx context.Context, client *postgres.Client, table string) error {
	if !tableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return client.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	stem     TEXT NOT NULL,
	category TEXT NOT NULL,
	ji_score NUMERIC(6,5) NOT NULL
)`, pq.QuoteIdentifier(table)))
		return err
	})
}

func newPostgresSink(ctx context.Context, client *postgres.Client, owned bool, table string) (*pgSink, error) {
	if err := EnsureScoreTable(ctx, client, table); err != nil {
		return nil, fmt.Errorf("preparing table %s: %w", table, err)
	}
	tx, err := client.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "TRUNCATE "+pq.QuoteIdentifier(table)); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("clearing table %s: %w", table, err)
	}
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, "stem", "category", "ji_score"))
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("preparing copy into %s: %w", table, err)
	}
	return &pgSink{client: client, owned: owned, tx: tx, stmt: stmt, table: table}, nil
}

func (s *pgSink) WriteRow(ctx context.Context, row MatrixRow) error {
	if _, err := s.stmt.ExecContext(ctx, row.Stem, row.Category, row.Score); err != nil {
		return fmt.Errorf("copying row into %s: %w", s.table, err)
	}
	s.written++
	return nil
}

func (s *pgSink) Written() int {
	return s.written
}

func (s *pgSink) Close() error {
	defer func() {
		if s.owned {
			s.client.Close()
		}
	}()
	if _, err := s.stmt.Exec(); err != nil {
		s.tx.Rollback()
		return fmt.Errorf("flushing copy into %s: %w", s.table, err)
	}
	if err := s.stmt.Close(); err != nil {
		s.tx.Rollback()
		return fmt.Errorf("closing copy into %s: %w", s.table, err)
	}
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", s.table, err)
	}
	return nil
}

// Abort rolls back the truncate and every copied row.
func (s *pgSink) Abort() error {
	defer func() {
		if s.owned {
			s.client.Close()
		}
	}()
	s.stmt.Close()
	return s.tx.Rollback()
}

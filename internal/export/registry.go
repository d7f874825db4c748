package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/resilience"
)

// Registry opens the row sink matching a destination.
type Registry struct {
	exportCfg config.ExportConfig
	pgCfg     config.PostgresConfig
	pg        *postgres.Client
	logger    *slog.Logger
}

// NewRegistry builds a Registry. pg may be nil; PostgreSQL destinations then
// open (and close) their own connection.
func NewRegistry(exportCfg config.ExportConfig, pgCfg config.PostgresConfig, pg *postgres.Client) *Registry {
	return &Registry{
		exportCfg: exportCfg,
		pgCfg:     pgCfg,
		pg:        pg,
		logger:    slog.Default().With("component", "export"),
	}
}

// Open returns a sink for destination. The bool is false when no sink kind
// matches the destination.
func (r *Registry) Open(ctx context.Context, destination string) (RowSink, bool, error) {
	kind, ok := Detect(destination)
	if !ok {
		return nil, false, nil
	}
	r.logger.Info("opening matrix sink", "destination", destination, "kind", kind)
	switch kind {
	case KindXLSX:
		s, err := newXLSXSink(destination, r.exportCfg.MaxRows)
		if err != nil {
			return nil, true, err
		}
		return s, true, nil
	case KindJSON:
		s, err := newJSONSink(destination)
		if err != nil {
			return nil, true, err
		}
		return s, true, nil
	default:
		return r.openPostgres(ctx, destination)
	}
}

func (r *Registry) openPostgres(ctx context.Context, destination string) (RowSink, bool, error) {
	table := r.pgCfg.ExportTable
	if name, ok := strings.CutPrefix(destination, "pg:"); ok {
		if name != "" {
			table = name
		}
		client, owned := r.pg, false
		if client == nil {
			var err error
			client, err = r.connect(ctx, r.pgCfg.DSN())
			if err != nil {
				return nil, true, err
			}
			owned = true
		}
		return r.postgresSink(ctx, client, owned, table)
	}
	client, err := r.connect(ctx, destination)
	if err != nil {
		return nil, true, err
	}
	return r.postgresSink(ctx, client, true, table)
}

func (r *Registry) postgresSink(ctx context.Context, client *postgres.Client, owned bool, table string) (RowSink, bool, error) {
	s, err := newPostgresSink(ctx, client, owned, table)
	if err != nil {
		if owned {
			client.Close()
		}
		return nil, true, err
	}
	return s, true, nil
}

func (r *Registry) connect(ctx context.Context, dsn string) (*postgres.Client, error) {
	var client *postgres.Client
	err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		var err error
		client, err = postgres.Open(ctx, dsn, r.pgCfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to matrix sink: %w", err)
	}
	return client, nil
}

package infrastructure

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Execer is the slice of a pgx pool the migration needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse connection string")
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresClient{Pool: pool}, nil
}

var schema = []struct {
	name string
	sql  string
}{
	{"leads table", `
		CREATE TABLE IF NOT EXISTS leads (
			id UUID PRIMARY KEY,
			customer_id VARCHAR(128) NOT NULL,
			phone VARCHAR(32),
			email VARCHAR(320),
			intent BOOLEAN NOT NULL DEFAULT FALSE,
			raw_text TEXT NOT NULL DEFAULT '',
			source VARCHAR(32) NOT NULL DEFAULT 'unknown',
			overage BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"leads tenant index", `
		CREATE INDEX IF NOT EXISTS leads_customer_created_idx ON leads (customer_id, created_at);
	`},
}

// Migrate creates the lead schema if it does not exist.
func Migrate(ctx context.Context, db Execer) error {
	for _, step := range schema {
		if _, err := db.Exec(ctx, step.sql); err != nil {
			return eris.Wrapf(err, "postgres: migrate %s", step.name)
		}
	}
	zap.L().Info("postgres schema ready", zap.Int("steps", len(schema)))
	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}

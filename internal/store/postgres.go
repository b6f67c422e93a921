package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// Delivery is one recorded upstream submission attempt. This is an audit
// trail, not a queue: nothing is ever replayed from it.
type Delivery struct {
	EventID        string
	EventName      string
	UpstreamStatus int
	Accepted       bool
	RecordedAt     time.Time
}

// PostgresStore is the optional delivery log.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by the readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// RecordDelivery appends a submission outcome. Callers treat failures as
// best effort; a lost audit row never fails the originating request.
func (p *PostgresStore) RecordDelivery(ctx context.Context, d Delivery) error {
	if d.EventID == "" || d.EventName == "" {
		return errors.New("eventID/eventName required")
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO deliveries(event_id, event_name, upstream_status, accepted, recorded_at)
		VALUES ($1,$2,$3,$4,$5)
	`, d.EventID, d.EventName, d.UpstreamStatus, d.Accepted, time.Now().UTC())

	return err
}

// CountDeliveries returns the number of recorded submissions for eventName in
// the time window [from,to). Using a half-open interval avoids double
// counting at window boundaries.
func (p *PostgresStore) CountDeliveries(
	ctx context.Context,
	eventName string,
	from time.Time,
	to time.Time,
) (int64, error) {

	var count int64
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM deliveries
		WHERE event_name=$1
		  AND recorded_at >= $2
		  AND recorded_at <  $3
	`, eventName, from, to).Scan(&count)

	return count, err
}

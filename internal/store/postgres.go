package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements CallStore on a pgx connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and verifies the connection.
// A connection failure is fatal at startup, not mid-session.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// UpdateRecordingURLs implements CallStore
func (s *PostgresStore) UpdateRecordingURLs(ctx context.Context, callID, videoURL, audioURL string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE video_calls
		    SET recording_video_url = $2,
		        recording_audio_url = $3,
		        updated_at = NOW()
		  WHERE call_id = $1`,
		callID, videoURL, audioURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update call %s: %w", callID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no call row for id %s", callID)
	}
	return nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/healthlens/healthlens/pkg/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresSyncer is a real CloudSyncer backend. It stores the full record
// list per user as one JSONB document, mirroring the local store's layout.
type PostgresSyncer struct {
	db      *pgxpool.Pool
	monitor NetworkMonitor
	logger  *zap.Logger
}

// NewPostgresSyncer creates the syncer and ensures its table exists.
func NewPostgresSyncer(ctx context.Context, db *pgxpool.Pool, monitor NetworkMonitor, logger *zap.Logger) (*PostgresSyncer, error) {
	query := `
		CREATE TABLE IF NOT EXISTS medication_sync (
			user_id TEXT PRIMARY KEY,
			records JSONB NOT NULL,
			synced_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := db.Exec(ctx, query); err != nil {
		return nil, fmt.Errorf("failed to create sync table: %w", err)
	}

	return &PostgresSyncer{
		db:      db,
		monitor: monitor,
		logger:  logger,
	}, nil
}

// Sync upserts the user's full record list.
func (s *PostgresSyncer) Sync(ctx context.Context, userID string, records []model.SavedMedication) error {
	if !s.monitor.Online() {
		return ErrOffline
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	query := `
		INSERT INTO medication_sync (user_id, records, synced_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET records = EXCLUDED.records, synced_at = NOW()
	`
	if _, err := s.db.Exec(ctx, query, userID, data); err != nil {
		s.logger.Error("failed to sync records",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return fmt.Errorf("failed to sync records: %w", err)
	}

	s.logger.Info("records synced to postgres",
		zap.String("user_id", userID),
		zap.Int("record_count", len(records)),
	)

	return nil
}

// Erase removes all remote data for the user.
func (s *PostgresSyncer) Erase(ctx context.Context, userID string) error {
	if !s.monitor.Online() {
		return ErrOffline
	}

	if _, err := s.db.Exec(ctx, "DELETE FROM medication_sync WHERE user_id = $1", userID); err != nil {
		s.logger.Error("failed to erase remote records",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return fmt.Errorf("failed to erase remote records: %w", err)
	}

	s.logger.Info("remote records erased", zap.String("user_id", userID))

	return nil
}

// Fetch returns the last synced record list for a user. Reserved for future
// multi-device restore; exercised by the integration tests.
func (s *PostgresSyncer) Fetch(ctx context.Context, userID string) ([]model.SavedMedication, error) {
	var data []byte
	err := s.db.QueryRow(ctx, "SELECT records FROM medication_sync WHERE user_id = $1", userID).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch synced records: %w", err)
	}

	var records []model.SavedMedication
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode synced records: %w", err)
	}
	return records, nil
}

var _ CloudSyncer = (*PostgresSyncer)(nil)

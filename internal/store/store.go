package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/healthlens/healthlens/internal/security"
	"github.com/healthlens/healthlens/pkg/model"
	"go.uber.org/zap"
)

const (
	recordsFile = "healthlens_data_v1.json"
	userIDFile  = "healthlens_user_id"
	themeFile   = "healthlens_theme"
)

// Store is the durable medication record store. Local writes are synchronous
// and authoritative: they complete and are visible to List regardless of
// what any remote sync attempt later does. Remote synchronization is an
// explicit separate step (Sync / EraseRemote) so callers can detach it.
//
// Construct exactly once at startup and pass by reference.
type Store struct {
	dir       string
	syncer    CloudSyncer
	encryptor *security.Encryptor
	logger    *zap.Logger

	mu     sync.Mutex
	userID string
}

// New creates the store, ensuring the data directory exists and the stable
// user identifier is generated and persisted on first run. encryptor may be
// nil to store records unencrypted.
func New(dir string, syncer CloudSyncer, encryptor *security.Encryptor, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{
		dir:       dir,
		syncer:    syncer,
		encryptor: encryptor,
		logger:    logger,
	}

	userID, err := s.loadOrCreateUserID()
	if err != nil {
		return nil, err
	}
	s.userID = userID

	return s, nil
}

// UserID returns the stable pseudo-random user identifier. It scopes remote
// sync; nothing else in the core enforces it.
func (s *Store) UserID() string {
	return s.userID
}

// List returns all saved records, most recently created first. Corrupt or
// missing data is treated as empty, logged, never returned as an error.
func (s *Store) List() []model.SavedMedication {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRecords()
}

// Create prepends the record and writes synchronously to local storage.
func (s *Store) Create(rec model.SavedMedication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := append([]model.SavedMedication{rec}, s.loadRecords()...)
	if err := s.saveRecords(records); err != nil {
		return err
	}

	s.logger.Info("medication record created",
		zap.String("record_id", rec.ID),
		zap.Int("total_records", len(records)),
	)

	return nil
}

// Update merges patch fields into the record found by id. The read-modify-
// write is atomic under the store's lock. A missing id is a no-op, not an
// error; found reports whether anything was written.
func (s *Store) Update(id string, patch model.RecordPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadRecords()
	for i := range records {
		if records[i].ID != id {
			continue
		}
		applyPatch(&records[i], patch)
		if err := s.saveRecords(records); err != nil {
			return false, err
		}
		return true, nil
	}

	s.logger.Warn("update skipped, record not found", zap.String("record_id", id))
	return false, nil
}

// Delete removes the record by id. Deleting a missing id is a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadRecords()
	filtered := records[:0:0]
	for _, r := range records {
		if r.ID != id {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == len(records) {
		s.logger.Warn("delete skipped, record not found", zap.String("record_id", id))
		return nil
	}
	if err := s.saveRecords(filtered); err != nil {
		return err
	}

	s.logger.Info("medication record deleted", zap.String("record_id", id))

	return nil
}

// ClearAll erases the entire record store in one operation. The user
// identifier and theme are scoped separately and survive. Caller boundary is
// responsible for confirmation.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.dir, recordsFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear local data: %w", err)
	}

	s.logger.Info("all medication data cleared", zap.String("user_id", s.userID))

	return nil
}

// Sync pushes the current record list through the configured syncer and
// maps the outcome to a UI-facing status. Local data stays authoritative.
func (s *Store) Sync(ctx context.Context) model.SyncStatus {
	s.mu.Lock()
	records := s.loadRecords()
	s.mu.Unlock()

	if err := s.syncer.Sync(ctx, s.userID, records); err != nil {
		status := statusFromSyncErr(err)
		s.logger.Warn("remote sync failed",
			zap.Error(err),
			zap.String("status", string(status)),
		)
		return status
	}
	return model.SyncSynced
}

// EraseRemote asks the remote side to drop all data for this user.
func (s *Store) EraseRemote(ctx context.Context) model.SyncStatus {
	if err := s.syncer.Erase(ctx, s.userID); err != nil {
		status := statusFromSyncErr(err)
		s.logger.Warn("remote erase failed",
			zap.Error(err),
			zap.String("status", string(status)),
		)
		return status
	}
	return model.SyncSynced
}

// Theme returns the persisted theme, defaulting to light.
func (s *Store) Theme() model.Theme {
	data, err := os.ReadFile(filepath.Join(s.dir, themeFile))
	if err != nil {
		return model.ThemeLight
	}
	if t := model.Theme(strings.TrimSpace(string(data))); t == model.ThemeDark {
		return model.ThemeDark
	}
	return model.ThemeLight
}

// SetTheme persists the theme toggle.
func (s *Store) SetTheme(theme model.Theme) error {
	if theme != model.ThemeLight && theme != model.ThemeDark {
		return fmt.Errorf("unknown theme: %s", theme)
	}
	if err := os.WriteFile(filepath.Join(s.dir, themeFile), []byte(theme), 0o600); err != nil {
		return fmt.Errorf("failed to persist theme: %w", err)
	}
	return nil
}

// statusFromSyncErr maps a sync error to the UI-facing status value.
func statusFromSyncErr(err error) model.SyncStatus {
	if errors.Is(err, ErrOffline) {
		return model.SyncOffline
	}
	return model.SyncError
}

// applyPatch merges non-nil patch fields into the record. Later patches win
// field by field.
func applyPatch(rec *model.SavedMedication, patch model.RecordPatch) {
	if patch.ChatHistory != nil {
		rec.ChatHistory = patch.ChatHistory
	}
	if patch.ImageURL != nil {
		rec.ImageURL = *patch.ImageURL
	}
	if patch.LastSynced != nil {
		rec.LastSynced = patch.LastSynced
	}
}

// loadRecords reads the record list. Caller must hold s.mu.
func (s *Store) loadRecords() []model.SavedMedication {
	data, err := os.ReadFile(filepath.Join(s.dir, recordsFile))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("failed to read local data, treating as empty", zap.Error(err))
		}
		return []model.SavedMedication{}
	}

	if s.encryptor != nil {
		data, err = s.encryptor.Open(data)
		if err != nil {
			s.logger.Error("failed to decrypt local data, treating as empty", zap.Error(err))
			return []model.SavedMedication{}
		}
	}

	var records []model.SavedMedication
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Error("corrupt local data, treating as empty", zap.Error(err))
		return []model.SavedMedication{}
	}
	return records
}

// saveRecords writes the record list synchronously. Caller must hold s.mu.
func (s *Store) saveRecords(records []model.SavedMedication) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	if s.encryptor != nil {
		data, err = s.encryptor.Seal(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt records: %w", err)
		}
	}

	if err := os.WriteFile(filepath.Join(s.dir, recordsFile), data, 0o600); err != nil {
		return fmt.Errorf("failed to write local data: %w", err)
	}
	return nil
}

// loadOrCreateUserID reads the persisted user identifier, generating it once
// on first run.
func (s *Store) loadOrCreateUserID() (string, error) {
	path := filepath.Join(s.dir, userIDFile)

	data, err := os.ReadFile(path)
	if err == nil && len(strings.TrimSpace(string(data))) > 0 {
		return strings.TrimSpace(string(data)), nil
	}

	id := "user_" + uuid.New().String()
	if err := os.WriteFile(path, []byte(id), 0o600); err != nil {
		return "", fmt.Errorf("failed to persist user id: %w", err)
	}

	s.logger.Info("generated new user identifier", zap.String("user_id", id))

	return id, nil
}

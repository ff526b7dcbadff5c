package store

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/healthlens/healthlens/pkg/model"
	"go.uber.org/zap"
)

// ErrOffline is returned by a syncer when the environment reports itself
// offline. It maps to the offline sync status rather than error.
var ErrOffline = errors.New("offline")

// CloudSyncer pushes the full record list for a user to a remote backend.
// The simulated implementation stands in for a real backend and must be
// replaceable behind this interface.
type CloudSyncer interface {
	Sync(ctx context.Context, userID string, records []model.SavedMedication) error
	Erase(ctx context.Context, userID string) error
}

// NetworkMonitor reports whether the environment currently has connectivity.
type NetworkMonitor interface {
	Online() bool
}

// FlagMonitor is a settable NetworkMonitor. It stands in for the browser's
// online/offline events on the server side.
type FlagMonitor struct {
	online atomic.Bool
}

// NewFlagMonitor creates a monitor with the given initial state.
func NewFlagMonitor(online bool) *FlagMonitor {
	m := &FlagMonitor{}
	m.online.Store(online)
	return m
}

// Online reports the current connectivity state.
func (m *FlagMonitor) Online() bool {
	return m.online.Load()
}

// SetOnline updates the connectivity state.
func (m *FlagMonitor) SetOnline(online bool) {
	m.online.Store(online)
}

// SimulatedSyncer mimics a cloud backend: it fails immediately without any
// network attempt when offline, and otherwise succeeds after a randomized
// latency window.
type SimulatedSyncer struct {
	monitor    NetworkMonitor
	minLatency time.Duration
	maxLatency time.Duration
	logger     *zap.Logger
}

// NewSimulatedSyncer creates a simulated cloud syncer.
func NewSimulatedSyncer(monitor NetworkMonitor, logger *zap.Logger) *SimulatedSyncer {
	return &SimulatedSyncer{
		monitor:    monitor,
		minLatency: 800 * time.Millisecond,
		maxLatency: 1800 * time.Millisecond,
		logger:     logger,
	}
}

// Sync simulates pushing the record list to the cloud.
func (s *SimulatedSyncer) Sync(ctx context.Context, userID string, records []model.SavedMedication) error {
	if !s.monitor.Online() {
		return ErrOffline
	}

	if err := s.wait(ctx); err != nil {
		return err
	}

	s.logger.Info("simulated cloud sync completed",
		zap.String("user_id", userID),
		zap.Int("record_count", len(records)),
	)

	return nil
}

// Erase simulates deleting all remote data for the user.
func (s *SimulatedSyncer) Erase(ctx context.Context, userID string) error {
	if !s.monitor.Online() {
		return ErrOffline
	}

	if err := s.wait(ctx); err != nil {
		return err
	}

	s.logger.Info("simulated cloud erase completed", zap.String("user_id", userID))

	return nil
}

func (s *SimulatedSyncer) wait(ctx context.Context) error {
	latency := s.minLatency
	if s.maxLatency > s.minLatency {
		latency += time.Duration(rand.Int63n(int64(s.maxLatency - s.minLatency)))
	}
	select {
	case <-time.After(latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ CloudSyncer = (*SimulatedSyncer)(nil)

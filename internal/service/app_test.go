package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/healthlens/healthlens/internal/blob"
	"github.com/healthlens/healthlens/internal/store"
	"github.com/healthlens/healthlens/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingSyncer counts sync attempts and fails with a configured error.
type recordingSyncer struct {
	mu     sync.Mutex
	err    error
	syncs  int
	erases int
}

func (s *recordingSyncer) Sync(ctx context.Context, userID string, records []model.SavedMedication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncs++
	return s.err
}

func (s *recordingSyncer) Erase(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.erases++
	return s.err
}

func (s *recordingSyncer) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncs, s.erases
}

func newTestApp(t *testing.T, syncErr error) (*App, *MockCompleter, *recordingSyncer) {
	t.Helper()

	logger := zap.NewNop()
	syncer := &recordingSyncer{err: syncErr}

	st, err := store.New(t.TempDir(), syncer, nil, logger)
	require.NoError(t, err)

	mockAI := new(MockCompleter)
	analyzer := NewAnalyzer(mockAI, logger)
	session := NewChatSession(mockAI, logger)
	app := NewApp(analyzer, session, st, blob.NewMemoryClient(logger), logger)

	return app, mockAI, syncer
}

func waitForSyncStatus(t *testing.T, app *App, want model.SyncStatus) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return app.Snapshot().SyncStatus == want
	}, 2*time.Second, 10*time.Millisecond, "sync status never became %s", want)
}

func TestStartScan_Success(t *testing.T) {
	app, mockAI, _ := newTestApp(t, nil)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).Return(validAnalysisResponse, nil)

	state := app.StartScan(context.Background(), []byte("fake-image"), "image/jpeg", model.DeviceWeb)

	assert.Equal(t, model.StatusSuccess, state.Status)
	require.NotNil(t, state.Data)
	assert.NotEmpty(t, state.ImageURL)

	snap := app.Snapshot()
	assert.Equal(t, model.ViewScanResult, snap.View)
	require.NotNil(t, snap.Active)
	assert.False(t, snap.ActiveSaved)
	assert.Equal(t, model.DeviceWeb, snap.Active.DeviceType)
	assert.NotEmpty(t, snap.Active.ID)
	assert.Empty(t, snap.Active.ChatHistory)
}

func TestStartScan_Failure(t *testing.T) {
	app, mockAI, _ := newTestApp(t, nil)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).Return("", errors.New("401 unauthorized"))

	state := app.StartScan(context.Background(), []byte("fake-image"), "image/jpeg", model.DeviceMobile)

	assert.Equal(t, model.StatusError, state.Status)
	assert.NotEmpty(t, state.Error)
	assert.Nil(t, app.Snapshot().Active)
}

func TestReset_DiscardsInFlightScan(t *testing.T) {
	app, mockAI, _ := newTestApp(t, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			<-release
		}).
		Return(validAnalysisResponse, nil)

	done := make(chan model.AnalysisState, 1)
	go func() {
		done <- app.StartScan(context.Background(), []byte("fake-image"), "image/jpeg", model.DeviceWeb)
	}()
	<-started

	app.Reset()
	close(release)
	<-done

	// The superseded result was dropped, not applied
	snap := app.Snapshot()
	assert.Equal(t, model.StatusIdle, snap.Analysis.Status)
	assert.Equal(t, model.ViewHome, snap.View)
	assert.Nil(t, snap.Active)
}

func TestSave_CreatesRecord(t *testing.T) {
	app, mockAI, syncer := newTestApp(t, nil)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).Return(validAnalysisResponse, nil)

	app.StartScan(context.Background(), []byte("fake-image"), "image/jpeg", model.DeviceWeb)

	rec, duplicate, err := app.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, duplicate)
	require.NotNil(t, rec)

	assert.True(t, app.IsSaved(rec.ID))
	require.Len(t, app.List(), 1)

	waitForSyncStatus(t, app, model.SyncSynced)
	syncs, _ := syncer.counts()
	assert.GreaterOrEqual(t, syncs, 1)
}

func TestSave_NothingToSave(t *testing.T) {
	app, _, _ := newTestApp(t, nil)

	_, _, err := app.Save(context.Background())
	assert.ErrorIs(t, err, ErrNothingToSave)
}

func TestSave_DuplicateIsIdempotent(t *testing.T) {
	app, mockAI, _ := newTestApp(t, nil)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).Return(validAnalysisResponse, nil)

	app.StartScan(context.Background(), []byte("fake-image"), "image/jpeg", model.DeviceWeb)
	first, duplicate, err := app.Save(context.Background())
	require.NoError(t, err)
	require.False(t, duplicate)

	// Rescan the same label and save again
	app.StartScan(context.Background(), []byte("fake-image"), "image/jpeg", model.DeviceWeb)
	second, duplicate, err := app.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, duplicate)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, app.List(), 1)
}

func TestSave_ConcurrentSavesStoreOneRecord(t *testing.T) {
	app, mockAI, _ := newTestApp(t, nil)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).Return(validAnalysisResponse, nil)

	app.StartScan(context.Background(), []byte("fake-image"), "image/jpeg", model.DeviceWeb)

	// Racing saves of the same scan must not both pass the duplicate
	// check and insert twice.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := app.Save(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, app.List(), 1)
}

func TestSave_OfflineKeepsLocalRecord(t *testing.T) {
	app, mockAI, _ := newTestApp(t, store.ErrOffline)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).Return(validAnalysisResponse, nil)

	app.StartScan(context.Background(), []byte("fake-image"), "image/jpeg", model.DeviceWeb)
	rec, _, err := app.Save(context.Background())
	require.NoError(t, err)

	// The local write succeeded and survives the failed sync
	waitForSyncStatus(t, app, model.SyncOffline)
	assert.True(t, app.IsSaved(rec.ID))
}

func TestSelectSaved_RestoresContext(t *testing.T) {
	app, mockAI, _ := newTestApp(t, nil)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).Return(validAnalysisResponse, nil)

	app.StartScan(context.Background(), []byte("fake-image"), "image/jpeg", model.DeviceWeb)
	saved, _, err := app.Save(context.Background())
	require.NoError(t, err)

	app.Reset()
	require.Nil(t, app.Snapshot().Active)

	rec, err := app.SelectSaved(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, rec.ID)

	snap := app.Snapshot()
	assert.Equal(t, model.ViewScanResult, snap.View)
	assert.Equal(t, model.StatusSuccess, snap.Analysis.Status)
	assert.True(t, snap.ActiveSaved)
}

func TestSelectSaved_NotFound(t *testing.T) {
	app, _, _ := newTestApp(t, nil)

	_, err := app.SelectSaved("missing")
	assert.Error(t, err)
}

func TestDeleteSaved_ClearsActiveContext(t *testing.T) {
	app, mockAI, _ := newTestApp(t, nil)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).Return(validAnalysisResponse, nil)

	app.StartScan(context.Background(), []byte("fake-image"), "image/jpeg", model.DeviceWeb)
	rec, _, err := app.Save(context.Background())
	require.NoError(t, err)

	require.NoError(t, app.DeleteSaved(context.Background(), rec.ID))

	assert.Empty(t, app.List())
	assert.Nil(t, app.Snapshot().Active)
}

func TestClearAll_RequiresConfirmation(t *testing.T) {
	app, mockAI, syncer := newTestApp(t, nil)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).Return(validAnalysisResponse, nil)

	app.StartScan(context.Background(), []byte("fake-image"), "image/jpeg", model.DeviceWeb)
	_, _, err := app.Save(context.Background())
	require.NoError(t, err)

	err = app.ClearAll(context.Background(), false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Len(t, app.List(), 1)

	require.NoError(t, app.ClearAll(context.Background(), true))
	assert.Empty(t, app.List())

	snap := app.Snapshot()
	assert.Equal(t, model.ViewHome, snap.View)
	assert.Nil(t, snap.Active)

	assert.Eventually(t, func() bool {
		_, erases := syncer.counts()
		return erases == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNavigate(t *testing.T) {
	app, _, _ := newTestApp(t, nil)

	require.NoError(t, app.Navigate(model.ViewAbout))
	assert.Equal(t, model.ViewAbout, app.Snapshot().View)

	assert.Error(t, app.Navigate(model.View("settings")))
}

func TestChat_PersistsTranscriptForSavedRecord(t *testing.T) {
	app, mockAI, _ := newTestApp(t, nil)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).Return(validAnalysisResponse, nil)
	mockAI.On("Complete", mock.Anything, mock.Anything).Return("Take it with water.", nil)

	app.StartScan(context.Background(), []byte("fake-image"), "image/jpeg", model.DeviceWeb)
	rec, _, err := app.Save(context.Background())
	require.NoError(t, err)

	transcript, err := app.OpenChat(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, transcript)

	_, err = app.SendChat(context.Background(), "How should I take it?")
	require.NoError(t, err)

	// The saved record carries the full transcript
	records := app.List()
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
	require.Len(t, records[0].ChatHistory, 3)
	assert.Equal(t, "How should I take it?", records[0].ChatHistory[1].Text)
}

func TestChat_ProvisionalRecordIsNotPersisted(t *testing.T) {
	app, mockAI, _ := newTestApp(t, nil)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).Return(validAnalysisResponse, nil)
	mockAI.On("Complete", mock.Anything, mock.Anything).Return("Sure.", nil)

	app.StartScan(context.Background(), []byte("fake-image"), "image/jpeg", model.DeviceWeb)

	_, err := app.OpenChat(context.Background())
	require.NoError(t, err)
	_, err = app.SendChat(context.Background(), "Is this safe?")
	require.NoError(t, err)

	// Chatting over an unsaved scan never creates a phantom record
	assert.Empty(t, app.List())

	// But the in-memory active record keeps the transcript
	snap := app.Snapshot()
	require.NotNil(t, snap.Active)
	assert.Len(t, snap.Active.ChatHistory, 3)
}

func TestOpenChat_NoActiveContext(t *testing.T) {
	app, _, _ := newTestApp(t, nil)

	_, err := app.OpenChat(context.Background())
	assert.Error(t, err)
}

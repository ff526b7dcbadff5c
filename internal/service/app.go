package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/healthlens/healthlens/internal/blob"
	"github.com/healthlens/healthlens/internal/store"
	"github.com/healthlens/healthlens/pkg/model"
	"go.uber.org/zap"
)

// ErrNothingToSave is returned by Save when there is no successful analysis
// to persist.
var ErrNothingToSave = fmt.Errorf("no completed analysis to save")

// ErrConfirmationRequired gates the destructive clear-all operation.
var ErrConfirmationRequired = fmt.Errorf("confirmation required")

// Snapshot is the externally visible application state at a point in time.
type Snapshot struct {
	View        model.View            `json:"view"`
	Analysis    model.AnalysisState   `json:"analysis"`
	Active      *model.SavedMedication `json:"active,omitempty"`
	ActiveSaved bool                  `json:"activeSaved"`
	SyncStatus  model.SyncStatus      `json:"syncStatus"`
	Theme       model.Theme           `json:"theme"`
}

// App is the session state machine tying the analysis pipeline, the chat
// session and the record store together. All transitions are serialized
// under a single mutex; remote sync runs detached and only ever touches the
// sync status.
type App struct {
	analyzer *Analyzer
	session  *ChatSession
	store    *store.Store
	objects  blob.ObjectStorage
	logger   *zap.Logger

	mu         sync.Mutex
	generation uint64
	analysis   model.AnalysisState
	active     *model.SavedMedication
	view       model.View
	syncStatus model.SyncStatus

	now   func() time.Time
	newID func() string
}

// NewApp wires the state machine. The chat session's transcript updates are
// routed back into the active record from here.
func NewApp(analyzer *Analyzer, session *ChatSession, st *store.Store, objects blob.ObjectStorage, logger *zap.Logger) *App {
	a := &App{
		analyzer:   analyzer,
		session:    session,
		store:      st,
		objects:    objects,
		logger:     logger,
		view:       model.ViewHome,
		analysis:   model.AnalysisState{Status: model.StatusIdle},
		syncStatus: model.SyncSynced,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	session.OnTranscriptChange(a.handleTranscriptChange)
	return a
}

// StartScan runs the full analysis pipeline for one captured image: the
// image is stored, the model extracts structured data, and on success a
// provisional unsaved record becomes the active context. A scan started
// while another is in flight supersedes it; the superseded result is
// discarded when it lands.
func (a *App) StartScan(ctx context.Context, image []byte, mimeType string, device model.DeviceType) model.AnalysisState {
	imageURL := a.storeImage(ctx, image, mimeType)

	a.mu.Lock()
	a.generation++
	gen := a.generation
	a.analysis = model.AnalysisState{Status: model.StatusAnalyzing, ImageURL: imageURL}
	a.active = nil
	a.view = model.ViewScanResult
	a.mu.Unlock()

	result, err := a.analyzer.Analyze(ctx, image, mimeType)

	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.generation {
		a.logger.Info("discarding superseded analysis result", zap.Uint64("generation", gen))
		return a.analysis
	}

	if err != nil {
		category, message := ClassifyFailure(err)
		a.logger.Error("analysis failed",
			zap.Error(err),
			zap.String("category", string(category)),
		)
		a.analysis = model.AnalysisState{Status: model.StatusError, Error: message, ImageURL: imageURL}
		return a.analysis
	}

	a.active = &model.SavedMedication{
		MedicationAnalysis: *result,
		ID:                 a.newID(),
		DateScanned:        a.now(),
		ImageURL:           imageURL,
		DeviceType:         device,
		ChatHistory:        []model.ChatMessage{},
	}
	a.analysis = model.AnalysisState{Status: model.StatusSuccess, Data: result, ImageURL: imageURL}
	return a.analysis
}

// Save persists the active provisional record. Saving the same scan twice
// is idempotent: when an already saved record matches the duplicate
// heuristic it becomes the active context instead and duplicate is true.
// The local write is synchronous; remote sync is detached.
func (a *App) Save(ctx context.Context) (rec *model.SavedMedication, duplicate bool, err error) {
	// The duplicate check and the create must happen under one lock
	// acquisition, or two concurrent saves of the same scan could both
	// pass the check and insert twice.
	a.mu.Lock()
	if a.active == nil || a.analysis.Status != model.StatusSuccess {
		a.mu.Unlock()
		return nil, false, ErrNothingToSave
	}
	candidate := *a.active

	for _, existing := range a.store.List() {
		if existing.ID == candidate.ID || sameScanIdentity(existing.MedicationAnalysis, candidate.MedicationAnalysis) {
			found := existing
			a.active = &found
			a.mu.Unlock()
			a.logger.Info("save skipped, duplicate of existing record",
				zap.String("record_id", found.ID),
			)
			return &found, true, nil
		}
	}

	if err := a.store.Create(candidate); err != nil {
		a.mu.Unlock()
		return nil, false, err
	}
	a.active = &candidate
	a.mu.Unlock()

	a.syncDetached()

	return &candidate, false, nil
}

// IsSaved reports whether the record id exists in the saved list.
func (a *App) IsSaved(id string) bool {
	for _, r := range a.store.List() {
		if r.ID == id {
			return true
		}
	}
	return false
}

// List returns the saved records, newest first.
func (a *App) List() []model.SavedMedication {
	return a.store.List()
}

// SelectSaved makes a previously saved record the active context and moves
// the view back to its analysis result.
func (a *App) SelectSaved(id string) (*model.SavedMedication, error) {
	for _, r := range a.store.List() {
		if r.ID == id {
			found := r
			a.mu.Lock()
			a.active = &found
			a.analysis = model.AnalysisState{
				Status:   model.StatusSuccess,
				Data:     &found.MedicationAnalysis,
				ImageURL: found.ImageURL,
			}
			a.view = model.ViewScanResult
			a.mu.Unlock()
			return &found, nil
		}
	}
	return nil, fmt.Errorf("record not found: %s", id)
}

// OpenChat starts (or resumes) the conversation for the active record and
// injects its analysis as context.
func (a *App) OpenChat(ctx context.Context) ([]model.ChatMessage, error) {
	a.mu.Lock()
	active := a.active
	a.mu.Unlock()
	if active == nil {
		return nil, fmt.Errorf("no active medication context")
	}

	if err := a.session.Open(active.ChatHistory); err != nil {
		return nil, err
	}
	if err := a.session.BindContext(ctx, active); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.view = model.ViewChat
	a.mu.Unlock()

	return a.session.Transcript(), nil
}

// SendChat forwards one user turn to the chat session.
func (a *App) SendChat(ctx context.Context, text string) (model.ChatMessage, error) {
	return a.session.Send(ctx, text)
}

// DeleteSaved removes a record from the store and detaches a sync of the
// shortened list. The record owns its stored image, so the blob goes with
// it. Deleting the active record clears the active context.
func (a *App) DeleteSaved(ctx context.Context, id string) error {
	var imageURL string
	for _, r := range a.store.List() {
		if r.ID == id {
			imageURL = r.ImageURL
			break
		}
	}

	if err := a.store.Delete(id); err != nil {
		return err
	}

	if imageURL != "" {
		if err := a.objects.Delete(ctx, imageURL); err != nil {
			a.logger.Warn("failed to delete scan image", zap.Error(err), zap.String("record_id", id))
		}
	}

	a.mu.Lock()
	if a.active != nil && a.active.ID == id {
		a.active = nil
		a.analysis = model.AnalysisState{Status: model.StatusIdle}
		a.view = model.ViewList
	}
	a.mu.Unlock()

	a.syncDetached()
	return nil
}

// ClearAll erases every saved record locally and remotely. The caller must
// pass an explicit confirmation; nothing partial ever happens without it.
func (a *App) ClearAll(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	if err := a.store.ClearAll(); err != nil {
		return err
	}

	a.mu.Lock()
	a.active = nil
	a.analysis = model.AnalysisState{Status: model.StatusIdle}
	a.view = model.ViewHome
	a.mu.Unlock()

	a.setSyncStatus(model.SyncSyncing)
	go func() {
		a.setSyncStatus(a.store.EraseRemote(context.Background()))
	}()

	return nil
}

// Reset discards the in-flight or completed analysis and returns home. Any
// scan still running is superseded and its result dropped on arrival.
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generation++
	a.active = nil
	a.analysis = model.AnalysisState{Status: model.StatusIdle}
	a.view = model.ViewHome
}

// Navigate moves the view. Navigating away never cancels persistence or
// sync work already under way.
func (a *App) Navigate(view model.View) error {
	switch view {
	case model.ViewHome, model.ViewScanResult, model.ViewChat, model.ViewList, model.ViewAbout:
	default:
		return fmt.Errorf("unknown view: %s", view)
	}
	a.mu.Lock()
	a.view = view
	a.mu.Unlock()
	return nil
}

// Theme returns the persisted theme preference.
func (a *App) Theme() model.Theme {
	return a.store.Theme()
}

// SetTheme persists the theme preference.
func (a *App) SetTheme(theme model.Theme) error {
	return a.store.SetTheme(theme)
}

// Snapshot returns the current externally visible state.
func (a *App) Snapshot() Snapshot {
	a.mu.Lock()
	var active *model.SavedMedication
	if a.active != nil {
		c := *a.active
		active = &c
	}
	snap := Snapshot{
		View:       a.view,
		Analysis:   a.analysis,
		Active:     active,
		SyncStatus: a.syncStatus,
	}
	a.mu.Unlock()

	if active != nil {
		snap.ActiveSaved = a.IsSaved(active.ID)
	}
	snap.Theme = a.store.Theme()
	return snap
}

// handleTranscriptChange keeps the active record's chat history current. The
// in-memory record always updates; the store is only written when the record
// has actually been saved, so provisional chats never create phantom rows.
func (a *App) handleTranscriptChange(transcript []model.ChatMessage) {
	a.mu.Lock()
	if a.active == nil {
		a.mu.Unlock()
		return
	}
	a.active.ChatHistory = transcript
	id := a.active.ID
	a.mu.Unlock()

	if !a.IsSaved(id) {
		return
	}

	found, err := a.store.Update(id, model.RecordPatch{ChatHistory: transcript})
	if err != nil {
		a.logger.Error("failed to persist chat history", zap.Error(err), zap.String("record_id", id))
		return
	}
	if found {
		a.syncDetached()
	}
}

// storeImage uploads the captured image and returns its URL. Upload failure
// is tolerated: analysis proceeds, the record just carries no image.
func (a *App) storeImage(ctx context.Context, image []byte, mimeType string) string {
	name := a.newID() + extensionForMime(mimeType)
	url, err := a.objects.UploadImage(ctx, name, image, mimeType)
	if err != nil {
		a.logger.Warn("failed to store scan image, continuing without", zap.Error(err))
		return ""
	}
	return url
}

// syncDetached pushes the record list remotely without blocking the caller.
func (a *App) syncDetached() {
	a.setSyncStatus(model.SyncSyncing)
	go func() {
		a.setSyncStatus(a.store.Sync(context.Background()))
	}()
}

func (a *App) setSyncStatus(status model.SyncStatus) {
	a.mu.Lock()
	a.syncStatus = status
	a.mu.Unlock()
}

// sameScanIdentity is the duplicate heuristic for repeated saves of one
// scan: same medication count and same primary medication name. Two scans
// with no medications at all also match.
func sameScanIdentity(a, b model.MedicationAnalysis) bool {
	am, bm := a.EffectiveMedications(), b.EffectiveMedications()
	if len(am) != len(bm) {
		return false
	}
	if len(am) == 0 {
		return true
	}
	return am[0].Name == bm[0].Name
}

func extensionForMime(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

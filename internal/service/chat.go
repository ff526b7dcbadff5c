package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/healthlens/healthlens/internal/ai"
	"github.com/healthlens/healthlens/pkg/model"
	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// ErrTurnInFlight is returned by Send when a model turn is already pending.
// The underlying model session is not safe for concurrent use.
var ErrTurnInFlight = errors.New("a chat turn is already in flight")

// ChatSession maintains one live conversational session bound to at most one
// medication record. A record's structured summary is injected into the
// model's grounding context at most once per record per session lifetime.
//
// Resume policy: prior transcript messages supplied to Open are replayed
// into the outbound model history on subsequent turns, so the model
// remembers earlier turns after a reload.
type ChatSession struct {
	ai     ai.Completer
	logger *zap.Logger
	now    func() time.Time

	mu               sync.Mutex
	busy             bool
	transcript       []model.ChatMessage
	history          []openai.ChatCompletionMessageParamUnion
	injectedRecordID string
	onChange         func([]model.ChatMessage)
}

// NewChatSession creates an unopened session.
func NewChatSession(client ai.Completer, logger *zap.Logger) *ChatSession {
	return &ChatSession{
		ai:     client,
		logger: logger,
		now:    time.Now,
	}
}

// Open initializes (or reinitializes) the session. When prior messages are
// supplied the visible transcript is seeded from them and they are replayed
// into the model history; otherwise the transcript starts with the welcome
// message, which is local-only until the first turn replays it. Reopening
// while a turn is pending is rejected: the pending turn would otherwise
// append its reply to the freshly reset transcript.
func (s *ChatSession) Open(prior []model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return ErrTurnInFlight
	}

	s.injectedRecordID = ""
	s.history = []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(chatSystemPrompt),
	}

	if len(prior) == 0 {
		s.transcript = []model.ChatMessage{{Role: model.RoleModel, Text: welcomeMessage}}
		s.history = append(s.history, openai.AssistantMessage(welcomeMessage))
		return nil
	}

	s.transcript = append([]model.ChatMessage(nil), prior...)
	for _, msg := range prior {
		switch msg.Role {
		case model.RoleUser:
			s.history = append(s.history, openai.UserMessage(msg.Text))
		case model.RoleModel:
			s.history = append(s.history, openai.AssistantMessage(msg.Text))
		}
	}

	return nil
}

// OnTranscriptChange registers a callback fired synchronously after every
// transcript append, user and model messages alike.
func (s *ChatSession) OnTranscriptChange(fn func([]model.ChatMessage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Transcript returns a copy of the visible transcript.
func (s *ChatSession) Transcript() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChatMessage(nil), s.transcript...)
}

// BindContext injects the record's structured summary as grounding for the
// session. Repeated calls with the same record ID are no-ops. An injection
// failure is logged and the session continues ungrounded; the ID stays
// uninjected so a later bind may retry.
func (s *ChatSession) BindContext(ctx context.Context, rec *model.SavedMedication) error {
	if rec == nil {
		return nil
	}

	s.mu.Lock()
	if s.injectedRecordID == rec.ID {
		s.mu.Unlock()
		return nil
	}
	if s.busy {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	s.busy = true
	prompt := contextPrompt(&rec.MedicationAnalysis)
	outbound := append(s.cloneHistory(), openai.SystemMessage(prompt))
	s.mu.Unlock()

	// One out-of-band call with the same shape as a visible turn; the
	// acknowledgment is discarded, never shown as a chat bubble.
	_, err := s.ai.Complete(ctx, outbound)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	if err != nil {
		s.logger.Warn("context injection failed, session continues ungrounded",
			zap.Error(err),
			zap.String("record_id", rec.ID),
		)
		return nil
	}

	s.history = append(s.history, openai.SystemMessage(prompt))
	s.injectedRecordID = rec.ID

	s.logger.Info("context injected into chat session", zap.String("record_id", rec.ID))

	return nil
}

// Send appends a user message, awaits exactly one model reply, appends it,
// and returns it. A concurrent call while a turn is pending is rejected with
// ErrTurnInFlight. A failed remote turn yields the fallback model message
// and leaves the session usable.
func (s *ChatSession) Send(ctx context.Context, userText string) (model.ChatMessage, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return model.ChatMessage{}, ErrTurnInFlight
	}
	s.busy = true

	ts := s.now()
	userMsg := model.ChatMessage{Role: model.RoleUser, Text: userText, Timestamp: &ts}
	s.transcript = append(s.transcript, userMsg)
	outbound := append(s.cloneHistory(), openai.UserMessage(userText))
	s.mu.Unlock()

	s.notify()

	replyText, err := s.ai.Complete(ctx, outbound)
	if err != nil {
		s.logger.Error("chat turn failed", zap.Error(err))
		replyText = chatFallbackMessage
	}

	s.mu.Lock()
	s.busy = false
	rts := s.now()
	reply := model.ChatMessage{Role: model.RoleModel, Text: replyText, Timestamp: &rts}
	s.transcript = append(s.transcript, reply)
	if err == nil {
		s.history = append(s.history, openai.UserMessage(userText), openai.AssistantMessage(replyText))
	}
	s.mu.Unlock()

	s.notify()

	return reply, nil
}

// notify fires the transcript callback outside the lock.
func (s *ChatSession) notify() {
	s.mu.Lock()
	fn := s.onChange
	snapshot := append([]model.ChatMessage(nil), s.transcript...)
	s.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// cloneHistory copies the outbound history. Caller must hold s.mu.
func (s *ChatSession) cloneHistory() []openai.ChatCompletionMessageParamUnion {
	return append([]openai.ChatCompletionMessageParamUnion(nil), s.history...)
}

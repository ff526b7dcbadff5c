package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/healthlens/healthlens/internal/ai"
	"github.com/healthlens/healthlens/pkg/model"
	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// Analyzer turns a raw image into a normalized MedicationAnalysis through a
// single structured-extraction call. It performs no retry of its own and has
// no side effects beyond the remote call.
type Analyzer struct {
	ai     ai.Completer
	logger *zap.Logger
	now    func() time.Time
}

// NewAnalyzer creates a new Analyzer
func NewAnalyzer(client ai.Completer, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		ai:     client,
		logger: logger,
		now:    time.Now,
	}
}

// Analyze runs one extraction call for the image. isMedication=false is a
// valid negative result, not an error. Size and type validation is delegated
// to the remote service.
func (a *Analyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*model.MedicationAnalysis, error) {
	a.logger.Info("starting medication image analysis",
		zap.String("mime_type", mimeType),
		zap.Int("image_bytes", len(image)),
	)

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: dataURL,
			}),
			openai.TextContentPart(extractionInstruction(a.now())),
		}),
	}

	response, err := a.ai.ExtractJSON(ctx, messages)
	if err != nil {
		a.logger.Error("analysis call failed", zap.Error(err))
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	analysis, err := a.parseAnalysisResponse(response)
	if err != nil {
		a.logger.Error("failed to parse analysis response",
			zap.Error(err),
			zap.String("response", response),
		)
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	a.logger.Info("analysis completed",
		zap.Bool("is_medication", analysis.IsMedication),
		zap.Int("medication_count", len(analysis.Medications)),
		zap.Int("interaction_count", len(analysis.Interactions)),
		zap.String("language", analysis.LanguageDetected),
	)

	return analysis, nil
}

// parseAnalysisResponse parses and validates the structured response.
func (a *Analyzer) parseAnalysisResponse(response string) (*model.MedicationAnalysis, error) {
	// Models sometimes wrap the JSON in markdown code blocks
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	// Pointer slices distinguish absent arrays from empty ones: a missing
	// top-level array is a malformed response, not an empty success.
	var raw struct {
		IsMedication       *bool                         `json:"isMedication"`
		Medications        *[]model.IdentifiedMedication `json:"medications"`
		Interactions       *[]model.Interaction          `json:"interactions"`
		GeneralAdvice      *string                       `json:"generalAdvice"`
		ReminderSuggestion string                        `json:"reminderSuggestion"`
		LanguageDetected   string                        `json:"languageDetected"`
	}
	if err := json.Unmarshal([]byte(response), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	if raw.IsMedication == nil {
		return nil, fmt.Errorf("malformed response: missing isMedication")
	}
	if raw.Medications == nil {
		return nil, fmt.Errorf("malformed response: missing medications array")
	}
	if raw.Interactions == nil {
		return nil, fmt.Errorf("malformed response: missing interactions array")
	}

	analysis := &model.MedicationAnalysis{
		IsMedication:       *raw.IsMedication,
		Medications:        *raw.Medications,
		Interactions:       *raw.Interactions,
		GeneralAdvice:      raw.GeneralAdvice,
		ReminderSuggestion: raw.ReminderSuggestion,
		LanguageDetected:   raw.LanguageDetected,
	}

	a.normalizeAnalysis(analysis)

	return analysis, nil
}

// normalizeAnalysis backfills slices and clamps unknown severities.
func (a *Analyzer) normalizeAnalysis(analysis *model.MedicationAnalysis) {
	for i := range analysis.Medications {
		if analysis.Medications[i].SideEffects == nil {
			analysis.Medications[i].SideEffects = []string{}
		}
		if analysis.Medications[i].Warnings == nil {
			analysis.Medications[i].Warnings = []string{}
		}
	}

	for i := range analysis.Interactions {
		sev := model.InteractionSeverity(strings.ToLower(strings.TrimSpace(string(analysis.Interactions[i].Severity))))
		if !sev.Valid() {
			a.logger.Warn("invalid interaction severity, defaulting to caution",
				zap.String("severity", string(analysis.Interactions[i].Severity)),
			)
			sev = model.SeverityCaution
		}
		analysis.Interactions[i].Severity = sev
	}

	if analysis.LanguageDetected == "" {
		analysis.LanguageDetected = "en"
	}
}

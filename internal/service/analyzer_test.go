package service

import (
	"context"
	"errors"
	"testing"

	"github.com/healthlens/healthlens/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validAnalysisResponse = `{
	"isMedication": true,
	"medications": [{
		"name": "Aspirin",
		"genericName": "Acetylsalicylic acid",
		"purpose": "Pain relief",
		"strength": "500mg",
		"dosage": "1 tablet",
		"frequency": "every 8 hours",
		"duration": "as needed",
		"bestTime": "after meals",
		"instructions": "Take with food",
		"sideEffects": ["nausea"],
		"warnings": ["do not exceed 3 tablets per day"]
	}],
	"interactions": [{"severity": "caution", "description": "Avoid alcohol"}],
	"generalAdvice": "Stay hydrated",
	"reminderSuggestion": "Take after meals",
	"languageDetected": "en"
}`

func TestAnalyze_ParsesStructuredResponse(t *testing.T) {
	mockAI := new(MockCompleter)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).Return(validAnalysisResponse, nil)

	analyzer := NewAnalyzer(mockAI, zap.NewNop())

	analysis, err := analyzer.Analyze(context.Background(), []byte("fake-image"), "image/jpeg")
	require.NoError(t, err)

	assert.True(t, analysis.IsMedication)
	require.Len(t, analysis.Medications, 1)
	assert.Equal(t, "Aspirin", analysis.Medications[0].Name)
	assert.Equal(t, "500mg", analysis.Medications[0].Strength)
	require.Len(t, analysis.Interactions, 1)
	assert.Equal(t, model.SeverityCaution, analysis.Interactions[0].Severity)
	require.NotNil(t, analysis.GeneralAdvice)
	assert.Equal(t, "Stay hydrated", *analysis.GeneralAdvice)
	assert.Equal(t, "en", analysis.LanguageDetected)

	mockAI.AssertExpectations(t)
}

func TestAnalyze_StripsMarkdownFences(t *testing.T) {
	mockAI := new(MockCompleter)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).
		Return("```json\n"+validAnalysisResponse+"\n```", nil)

	analyzer := NewAnalyzer(mockAI, zap.NewNop())

	analysis, err := analyzer.Analyze(context.Background(), []byte("fake-image"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, analysis.IsMedication)
}

func TestAnalyze_MalformedResponses(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{
			name:     "not JSON at all",
			response: "I could not analyze this image.",
		},
		{
			name:     "missing isMedication",
			response: `{"medications": [], "interactions": []}`,
		},
		{
			name:     "missing medications array",
			response: `{"isMedication": true, "interactions": []}`,
		},
		{
			name:     "missing interactions array",
			response: `{"isMedication": true, "medications": []}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAI := new(MockCompleter)
			mockAI.On("ExtractJSON", mock.Anything, mock.Anything).Return(tt.response, nil)

			analyzer := NewAnalyzer(mockAI, zap.NewNop())

			_, err := analyzer.Analyze(context.Background(), []byte("fake-image"), "image/jpeg")
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "failed to parse analysis response")
		})
	}
}

func TestAnalyze_NormalizesResponse(t *testing.T) {
	response := `{
		"isMedication": true,
		"medications": [{"name": "Ibuprofen", "purpose": "Pain relief", "dosage": "1 tablet", "frequency": "daily", "duration": "", "bestTime": "", "instructions": ""}],
		"interactions": [{"severity": "CATASTROPHIC", "description": "Unknown risk"}]
	}`

	mockAI := new(MockCompleter)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).Return(response, nil)

	analyzer := NewAnalyzer(mockAI, zap.NewNop())

	analysis, err := analyzer.Analyze(context.Background(), []byte("fake-image"), "image/png")
	require.NoError(t, err)

	// Absent string arrays become empty, never nil
	assert.NotNil(t, analysis.Medications[0].SideEffects)
	assert.Empty(t, analysis.Medications[0].SideEffects)
	assert.NotNil(t, analysis.Medications[0].Warnings)

	// Unknown severities clamp to caution
	assert.Equal(t, model.SeverityCaution, analysis.Interactions[0].Severity)

	// Missing language defaults to English
	assert.Equal(t, "en", analysis.LanguageDetected)
}

func TestAnalyze_NegativeResultIsNotAnError(t *testing.T) {
	response := `{"isMedication": false, "medications": [], "interactions": [], "languageDetected": "en"}`

	mockAI := new(MockCompleter)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).Return(response, nil)

	analyzer := NewAnalyzer(mockAI, zap.NewNop())

	analysis, err := analyzer.Analyze(context.Background(), []byte("fake-image"), "image/jpeg")
	require.NoError(t, err)
	assert.False(t, analysis.IsMedication)
	assert.Nil(t, analysis.EffectiveMedications())
}

func TestAnalyze_CallFailure(t *testing.T) {
	mockAI := new(MockCompleter)
	mockAI.On("ExtractJSON", mock.Anything, mock.Anything).
		Return("", errors.New("connection refused"))

	analyzer := NewAnalyzer(mockAI, zap.NewNop())

	_, err := analyzer.Analyze(context.Background(), []byte("fake-image"), "image/jpeg")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "analysis failed")
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected FailureCategory
	}{
		{"api key error", errors.New("invalid API key provided"), FailureConfiguration},
		{"unauthorized", errors.New("401 unauthorized"), FailureConfiguration},
		{"connection refused", errors.New("dial tcp: connection refused"), FailureConnectivity},
		{"timeout", errors.New("context deadline exceeded"), FailureConnectivity},
		{"anything else", errors.New("model returned garbage"), FailureGeneric},
		{"nil error", nil, FailureGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, message := ClassifyFailure(tt.err)
			assert.Equal(t, tt.expected, category)
			assert.NotEmpty(t, message)
		})
	}
}

package service

import (
	"testing"

	"github.com/healthlens/healthlens/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestFormatSummary(t *testing.T) {
	rec := &model.SavedMedication{
		MedicationAnalysis: model.MedicationAnalysis{
			IsMedication: true,
			Medications: []model.IdentifiedMedication{{
				Name:         "Aspirin",
				Strength:     "500mg",
				Purpose:      "Pain relief",
				Dosage:       "1 tablet",
				Frequency:    "every 8 hours",
				BestTime:     "after meals",
				Instructions: "Take with food",
				Warnings:     []string{"do not exceed 3 tablets", "avoid alcohol"},
			}},
		},
		ID: "rec-1",
	}

	summary := FormatSummary(rec)

	assert.Contains(t, summary, "HealthLens Analysis")
	assert.Contains(t, summary, "Aspirin")
	assert.Contains(t, summary, "Strength: 500mg")
	assert.Contains(t, summary, "Dosage: 1 tablet (every 8 hours)")
	assert.Contains(t, summary, "Best Time: after meals")
	assert.Contains(t, summary, "Warnings: do not exceed 3 tablets, avoid alcohol")
	assert.Contains(t, summary, "Analyzed by HealthLens AI")
}

func TestFormatSummary_OmitsEmptyOptionalFields(t *testing.T) {
	rec := &model.SavedMedication{
		MedicationAnalysis: model.MedicationAnalysis{
			IsMedication: true,
			Medications: []model.IdentifiedMedication{{
				Name:    "Ibuprofen",
				Purpose: "Pain relief",
			}},
		},
	}

	summary := FormatSummary(rec)
	assert.NotContains(t, summary, "Strength:")
	assert.NotContains(t, summary, "Warnings:")
}

func TestFormatSummary_NoMedication(t *testing.T) {
	rec := &model.SavedMedication{
		MedicationAnalysis: model.MedicationAnalysis{IsMedication: false},
	}
	assert.Empty(t, FormatSummary(rec))
}

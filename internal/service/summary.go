package service

import (
	"fmt"
	"strings"

	"github.com/healthlens/healthlens/pkg/model"
)

// FormatSummary renders the shareable plain-text summary for a record. It
// describes the primary identified medication; records without medications
// produce an empty string.
func FormatSummary(rec *model.SavedMedication) string {
	meds := rec.EffectiveMedications()
	if len(meds) == 0 {
		return ""
	}
	med := meds[0]

	var b strings.Builder
	b.WriteString("\U0001F3E5 HealthLens Analysis\n\n")
	fmt.Fprintf(&b, "\U0001F48A %s\n", med.Name)
	if med.Strength != "" {
		fmt.Fprintf(&b, "Strength: %s\n", med.Strength)
	}
	fmt.Fprintf(&b, "\n\U0001F4CB Purpose: %s\n", med.Purpose)
	fmt.Fprintf(&b, "⚡ Dosage: %s (%s)\n", med.Dosage, med.Frequency)
	fmt.Fprintf(&b, "⏰ Best Time: %s\n", med.BestTime)
	fmt.Fprintf(&b, "\n⚠️ Instructions: %s\n", med.Instructions)
	if len(med.Warnings) > 0 {
		fmt.Fprintf(&b, "\n\U0001F6A8 Warnings: %s\n", strings.Join(med.Warnings, ", "))
	}
	b.WriteString("\nAnalyzed by HealthLens AI")
	return b.String()
}

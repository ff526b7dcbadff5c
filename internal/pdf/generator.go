package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/healthlens/healthlens/pkg/model"
	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
)

// Generator renders saved medication records into shareable PDF reports.
type Generator struct {
	logger *zap.Logger
}

// NewGenerator creates a new Generator
func NewGenerator(logger *zap.Logger) *Generator {
	return &Generator{
		logger: logger,
	}
}

// Generate creates a PDF report for one saved medication record.
func (g *Generator) Generate(rec *model.SavedMedication) ([]byte, error) {
	g.logger.Info("generating medication report",
		zap.String("record_id", rec.ID),
		zap.Int("medications", len(rec.EffectiveMedications())),
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	g.addTitle(pdf, rec)

	if !rec.IsMedication {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 8, "No medication was identified in this scan.", "", 1, "L", false, 0, "")
	}

	for _, med := range rec.EffectiveMedications() {
		g.addMedication(pdf, med)
	}

	g.addInteractions(pdf, rec.Interactions)
	g.addGeneralAdvice(pdf, rec.GeneralAdvice)
	g.addFooter(pdf)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("medication report generated",
		zap.String("record_id", rec.ID),
		zap.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

// addTitle adds the report title and scan metadata
func (g *Generator) addTitle(pdf *gofpdf.Fpdf, rec *model.SavedMedication) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, "HealthLens Medication Report", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Scanned: %s", rec.DateScanned.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	if rec.LanguageDetected != "" {
		pdf.CellFormat(0, 8, fmt.Sprintf("Label language: %s", rec.LanguageDetected), "", 1, "L", false, 0, "")
	}
	pdf.Ln(10)
}

// addSectionHeader adds a section header
func (g *Generator) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
}

// addMedication adds one identified medication section
func (g *Generator) addMedication(pdf *gofpdf.Fpdf, med model.IdentifiedMedication) {
	title := med.Name
	if med.GenericName != "" && !strings.EqualFold(med.GenericName, med.Name) {
		title = fmt.Sprintf("%s (%s)", med.Name, med.GenericName)
	}
	g.addSectionHeader(pdf, title)

	fields := []struct {
		label string
		value string
	}{
		{"Strength", med.Strength},
		{"Purpose", med.Purpose},
		{"Dosage", med.Dosage},
		{"Frequency", med.Frequency},
		{"Duration", med.Duration},
		{"Best Time", med.BestTime},
		{"Instructions", med.Instructions},
		{"Storage", med.Storage},
		{"Expiry Date", med.ExpiryDate},
		{"Expiry Warning", med.ExpiryWarning},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		pdf.MultiCell(0, 5, fmt.Sprintf("%s: %s", f.label, f.value), "", "L", false)
	}

	if len(med.SideEffects) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Common Side Effects:", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, effect := range med.SideEffects {
			pdf.MultiCell(0, 5, fmt.Sprintf("  - %s", effect), "", "L", false)
		}
	}

	if len(med.Warnings) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Warnings:", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, warning := range med.Warnings {
			pdf.MultiCell(0, 5, fmt.Sprintf("  - %s", warning), "", "L", false)
		}
	}

	if len(med.SymbolExplanations) > 0 {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Label Symbols:", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, symbol := range med.SymbolExplanations {
			pdf.MultiCell(0, 5, fmt.Sprintf("  - %s", symbol), "", "L", false)
		}
	}

	pdf.Ln(5)
}

// addInteractions adds the interaction section
func (g *Generator) addInteractions(pdf *gofpdf.Fpdf, interactions []model.Interaction) {
	if len(interactions) == 0 {
		return
	}
	g.addSectionHeader(pdf, "Interactions")

	for _, it := range interactions {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, strings.ToUpper(string(it.Severity)), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, fmt.Sprintf("  %s", it.Description), "", "L", false)
		pdf.Ln(2)
	}
	pdf.Ln(5)
}

// addGeneralAdvice adds the general advice section
func (g *Generator) addGeneralAdvice(pdf *gofpdf.Fpdf, advice *string) {
	if advice == nil || *advice == "" {
		return
	}
	g.addSectionHeader(pdf, "General Advice")
	pdf.MultiCell(0, 5, *advice, "", "L", false)
	pdf.Ln(5)
}

// addFooter adds the disclaimer footer
func (g *Generator) addFooter(pdf *gofpdf.Fpdf) {
	pdf.Ln(5)
	pdf.SetFont("Arial", "I", 9)
	pdf.MultiCell(0, 5,
		"This report was produced by AI analysis of a photographed label and may contain errors. "+
			"Always confirm with a pharmacist or doctor before acting on it.",
		"", "L", false)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, "Analyzed by HealthLens AI", "", 1, "L", false, 0, "")
}

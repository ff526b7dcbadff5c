package store

import (
	"testing"

	"github.com/healthlens/healthlens/pkg/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

// TestPatchMergeProperty verifies last-writer-wins semantics for record
// patches: after any sequence of single-field patches, each field holds the
// value of the last patch that set it.
func TestPatchMergeProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("last patch wins per field", prop.ForAll(
		func(urls []string, texts []string) bool {
			s, err := New(t.TempDir(), &stubSyncer{}, nil, zap.NewNop())
			if err != nil {
				return false
			}
			if err := s.Create(testRecord("rec", "Aspirin")); err != nil {
				return false
			}

			for _, u := range urls {
				url := u
				if _, err := s.Update("rec", model.RecordPatch{ImageURL: &url}); err != nil {
					return false
				}
			}
			for _, txt := range texts {
				history := []model.ChatMessage{{Role: model.RoleUser, Text: txt}}
				if _, err := s.Update("rec", model.RecordPatch{ChatHistory: history}); err != nil {
					return false
				}
			}

			rec := s.List()[0]

			if len(urls) > 0 && rec.ImageURL != urls[len(urls)-1] {
				return false
			}
			if len(texts) > 0 {
				if len(rec.ChatHistory) != 1 || rec.ChatHistory[0].Text != texts[len(texts)-1] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}

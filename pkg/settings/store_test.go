package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestStoreDefaults(t *testing.T) {
	store := newTestStore(t)

	analyzing, err := store.IsAnalyzing()
	if err != nil {
		t.Fatalf("IsAnalyzing failed: %v", err)
	}
	if analyzing {
		t.Error("isAnalyzing should default to false")
	}

	model, err := store.SelectedModel()
	if err != nil {
		t.Fatalf("SelectedModel failed: %v", err)
	}
	if model != types.ModelGemini {
		t.Errorf("selectedModel should default to gemini, got %s", model)
	}

	show, err := store.ShowAnswerOverlay()
	if err != nil {
		t.Fatalf("ShowAnswerOverlay failed: %v", err)
	}
	if !show {
		t.Error("showAnswerOverlay should default to true")
	}

	last, err := store.LastAnalysis()
	if err != nil {
		t.Fatalf("LastAnalysis failed: %v", err)
	}
	if last != nil {
		t.Errorf("lastAnalysis should default to nil, got %v", last)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if err := store.SetIsAnalyzing(true); err != nil {
		t.Fatalf("SetIsAnalyzing failed: %v", err)
	}
	if err := store.SetAPIKey("AIzaTestKey12345"); err != nil {
		t.Fatalf("SetAPIKey failed: %v", err)
	}
	if err := store.SetSelectedModel(types.ModelQwenLocal); err != nil {
		t.Fatalf("SetSelectedModel failed: %v", err)
	}
	results := types.AnalysisResults{
		{CorrectAnswer: types.SingleAnswer("4"), Type: types.QuestionShortAnswer},
	}
	if err := store.SetLastAnalysis(results); err != nil {
		t.Fatalf("SetLastAnalysis failed: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}

	analyzing, _ := reopened.IsAnalyzing()
	if !analyzing {
		t.Error("isAnalyzing should survive reopen")
	}
	key, _ := reopened.APIKey()
	if key != "AIzaTestKey12345" {
		t.Errorf("unexpected API key after reopen: %q", key)
	}
	model, _ := reopened.SelectedModel()
	if model != types.ModelQwenLocal {
		t.Errorf("unexpected model after reopen: %s", model)
	}
	last, _ := reopened.LastAnalysis()
	if len(last) != 1 || last[0].CorrectAnswer.Text() != "4" {
		t.Errorf("unexpected lastAnalysis after reopen: %+v", last)
	}
}

func TestStoreSaveIsAtomic(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetAPIKey("first"); err != nil {
		t.Fatalf("SetAPIKey failed: %v", err)
	}

	// No temp file should linger after a successful save.
	if _, err := os.Stat(store.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}

func TestStoreClear(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetAPIKey("key"); err != nil {
		t.Fatalf("SetAPIKey failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	key, err := store.APIKey()
	if err != nil {
		t.Fatalf("APIKey failed: %v", err)
	}
	if key != "" {
		t.Errorf("expected empty key after clear, got %q", key)
	}
}

func TestStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	if _, err := NewStore(path); err == nil {
		t.Error("expected error for corrupt settings file")
	}
}

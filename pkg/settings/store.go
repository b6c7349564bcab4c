// Package settings persists the durable key-value state shared by the
// coordinator and its surfaces: the last analysis result, the analyzing
// flag, the API key, the selected model, and the answer overlay toggle.
// Writes go through an atomic temp-file rename so a crash never leaves a
// torn file.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

// Storage keys. These are the wire-visible names of the durable layout.
const (
	KeyLastAnalysis      = "lastAnalysis"
	KeyIsAnalyzing       = "isAnalyzing"
	KeyAPIKey            = "apiKey"
	KeySelectedModel     = "selectedModel"
	KeyShowAnswerOverlay = "showAnswerOverlay"
)

// Store is a JSON-file-backed key-value store. Every setter persists
// immediately; the analyzing flag in particular must hit disk before an
// analysis call starts.
type Store struct {
	path string
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// DefaultPath returns ~/.screenshot-ai/settings.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".screenshot-ai", "settings.json"), nil
}

// NewStore opens the store at path, loading existing contents. A missing
// file yields an empty store.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load settings from %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) load() error {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	data := make(map[string]json.RawMessage)
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode settings file: %w", err)
	}

	s.data = data
	return nil
}

// save writes the store atomically. Callers hold s.mu.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp settings file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp settings file: %w", err)
	}
	return nil
}

func (s *Store) set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
	return s.save()
}

// get decodes key into out, reporting whether the key was present.
func (s *Store) get(key string, out interface{}) (bool, error) {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return true, nil
}

// LastAnalysis returns the persisted last analysis, nil if none.
func (s *Store) LastAnalysis() (types.AnalysisResults, error) {
	var results types.AnalysisResults
	ok, err := s.get(KeyLastAnalysis, &results)
	if err != nil || !ok {
		return nil, err
	}
	return results, nil
}

// SetLastAnalysis persists the last analysis result.
func (s *Store) SetLastAnalysis(results types.AnalysisResults) error {
	return s.set(KeyLastAnalysis, results)
}

// IsAnalyzing returns the persisted analyzing flag, false if unset.
func (s *Store) IsAnalyzing() (bool, error) {
	var analyzing bool
	_, err := s.get(KeyIsAnalyzing, &analyzing)
	return analyzing, err
}

// SetIsAnalyzing persists the analyzing flag.
func (s *Store) SetIsAnalyzing(analyzing bool) error {
	return s.set(KeyIsAnalyzing, analyzing)
}

// APIKey returns the stored API key, empty if unset.
func (s *Store) APIKey() (string, error) {
	var key string
	_, err := s.get(KeyAPIKey, &key)
	return key, err
}

// SetAPIKey persists the API key.
func (s *Store) SetAPIKey(key string) error {
	return s.set(KeyAPIKey, key)
}

// SelectedModel returns the chosen backend, defaulting to Gemini.
func (s *Store) SelectedModel() (types.Model, error) {
	var model types.Model
	ok, err := s.get(KeySelectedModel, &model)
	if err != nil {
		return types.ModelGemini, err
	}
	if !ok || !model.Valid() {
		return types.ModelGemini, nil
	}
	return model, nil
}

// SetSelectedModel persists the chosen backend.
func (s *Store) SetSelectedModel(model types.Model) error {
	return s.set(KeySelectedModel, model)
}

// ShowAnswerOverlay returns the overlay visibility hint, true if unset.
func (s *Store) ShowAnswerOverlay() (bool, error) {
	show := true
	_, err := s.get(KeyShowAnswerOverlay, &show)
	return show, err
}

// SetShowAnswerOverlay persists the overlay visibility hint.
func (s *Store) SetShowAnswerOverlay(show bool) error {
	return s.set(KeyShowAnswerOverlay, show)
}

// Clear empties the store and persists the empty state.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]json.RawMessage)
	return s.save()
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

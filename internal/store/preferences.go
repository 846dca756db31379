package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go-job-acquisition/internal/filter"
	"go-job-acquisition/internal/listing"
)

// PreferenceFile keeps every platform's title preferences in one JSON document:
//
//	{"linkedin": {"Software Engineer": true, "Sales Manager": false}}
//
// It is safe for concurrent runs on different platforms.
type PreferenceFile struct {
	mu   sync.Mutex
	path string
}

func NewPreferenceFile(path string) *PreferenceFile {
	return &PreferenceFile{path: path}
}

func (s *PreferenceFile) Load(p listing.Platform) (filter.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read()
	if err != nil {
		return nil, err
	}
	prefs := all[p.Key()]
	if prefs == nil {
		prefs = filter.Preferences{}
	}
	return prefs, nil
}

func (s *PreferenceFile) Save(p listing.Platform, prefs filter.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read()
	if err != nil {
		return err
	}
	all[p.Key()] = prefs.Clone()
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return writeAtomic(s.path, data, 0644)
}

func (s *PreferenceFile) read() (map[string]filter.Preferences, error) {
	all := map[string]filter.Preferences{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return all, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse preferences %s: %w", s.path, err)
	}
	return all, nil
}

// Seed adds configured titles the file does not know yet. Titles already in
// the file keep their stored flag, so operator toggles and learned titles win.
func (s *PreferenceFile) Seed(p listing.Platform, titles map[string]bool) error {
	s.mu.Lock()
	all, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	prefs := all[p.Key()]
	if prefs == nil {
		prefs = filter.Preferences{}
	}
	changed := false
	for t, enabled := range titles {
		if _, ok := prefs[t]; !ok {
			prefs[t] = enabled
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.Save(p, prefs)
}

// Package store holds the file-backed collaborators of a run: cookie jars,
// title preferences and result sinks.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go-job-acquisition/internal/browser"
	"go-job-acquisition/internal/listing"
)

// CookieFiles keeps one JSON cookie jar per platform under Dir.
type CookieFiles struct {
	Dir string
}

func NewCookieFiles(dir string) *CookieFiles {
	return &CookieFiles{Dir: dir}
}

func (s *CookieFiles) path(p listing.Platform) string {
	return filepath.Join(s.Dir, p.Key()+".cookies.json")
}

func (s *CookieFiles) Load(p listing.Platform) ([]browser.Cookie, bool, error) {
	data, err := os.ReadFile(s.path(p))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cookies: %w", err)
	}
	var cookies []browser.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, false, fmt.Errorf("parse cookies %s: %w", s.path(p), err)
	}
	return cookies, len(cookies) > 0, nil
}

func (s *CookieFiles) Save(p listing.Platform, cookies []browser.Cookie) error {
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(s.path(p), data, 0600)
}

// writeAtomic replaces path via a temp file so readers never see a torn write.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

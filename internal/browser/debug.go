package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoScreenshot is returned for pages that cannot capture themselves.
var ErrNoScreenshot = errors.New("page does not support screenshots")

// Screenshotter is implemented by pages that can save a full-page capture.
type Screenshotter interface {
	Screenshot(path string) error
}

// ScreenshotDebugger saves timestamped captures of pages that failed, for later inspection.
type ScreenshotDebugger struct {
	outputDir string
	now       func() time.Time
}

func NewScreenshotDebugger(dir string) *ScreenshotDebugger {
	return &ScreenshotDebugger{outputDir: dir, now: time.Now}
}

// Capture saves page as <dir>/<name>_<timestamp>.png and returns the path.
func (s *ScreenshotDebugger) Capture(page Page, name string) (string, error) {
	shot, ok := page.(Screenshotter)
	if !ok {
		return "", ErrNoScreenshot
	}
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s_%s.png", name, s.now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(s.outputDir, filename)
	if err := shot.Screenshot(path); err != nil {
		return "", fmt.Errorf("capture screenshot: %w", err)
	}
	return path, nil
}

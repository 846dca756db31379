package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/playwright-community/playwright-go"
)

// ErrProfileBusy is returned when another live session holds the profile directory.
var ErrProfileBusy = errors.New("browser profile is in use by another session")

type PlaywrightManager struct {
	pw       *playwright.Playwright
	headless bool
}

// Session is one persistent browser context bound to an exclusively locked profile.
type Session struct {
	Page    Page
	context playwright.BrowserContext
	lock    *flock.Flock
}

func NewPlaywright(headless bool) (*PlaywrightManager, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	return &PlaywrightManager{pw: pw, headless: headless}, nil
}

// NewSession launches Chromium against profileDir. Two live sessions may not share a profile.
func (pm *PlaywrightManager) NewSession(profileDir string) (*Session, error) {
	if err := os.MkdirAll(profileDir, 0755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	lock := flock.New(filepath.Join(profileDir, ".acquire.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock profile %s: %w", profileDir, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", profileDir, ErrProfileBusy)
	}

	browserCtx, err := pm.pw.Chromium.LaunchPersistentContext(profileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(pm.headless),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	var page playwright.Page
	if pages := browserCtx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else if page, err = browserCtx.NewPage(); err != nil {
		_ = browserCtx.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &Session{
		Page:    NewPlaywrightPage(page),
		context: browserCtx,
		lock:    lock,
	}, nil
}

func (s *Session) Close() error {
	err := s.context.Close()
	if uerr := s.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

func (pm *PlaywrightManager) Close() error {
	return pm.pw.Stop()
}

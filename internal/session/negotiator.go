// Package session establishes an authenticated browsing context on a platform.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-job-acquisition/internal/browser"
	"go-job-acquisition/internal/listing"

	"github.com/rs/zerolog"
)

// ErrChallengeDetected marks an anti-bot interstitial. It blocks the run until
// an operator resolves it; it is never returned as a run failure.
var ErrChallengeDetected = errors.New("interactive challenge detected")

// AuthenticationError is fatal: every step of the fallback chain failed.
type AuthenticationError struct {
	Platform listing.Platform
	Attempts []error
}

func (e *AuthenticationError) Error() string {
	msgs := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		msgs = append(msgs, a.Error())
	}
	return fmt.Sprintf("authentication failed on %s: %s", e.Platform, strings.Join(msgs, "; "))
}

func (e *AuthenticationError) Unwrap() []error {
	return e.Attempts
}

// Method records which fallback step produced the session.
type Method string

const (
	MethodExisting Method = "existing"
	MethodCookies  Method = "cookies"
	MethodModal    Method = "modal"
	MethodForm     Method = "form"
)

// Credentials may be empty, in which case only the cookie-based steps run.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) empty() bool {
	return c.Username == "" || c.Password == ""
}

// Form describes a login form's inputs.
type Form struct {
	Username string
	Password string
	Submit   string
}

// Modal is a contextual sign-in dialog. Marker must be visible, and contain
// MarkerText when set, for the modal to be used.
type Modal struct {
	Marker     string
	MarkerText string
	Form
}

// Auth is a platform's login description.
type Auth struct {
	LoginURL string
	// HomeURL is visited before injecting cookies so the domain matches.
	HomeURL string
	// Authenticated decides from the post-navigation URL whether the session is logged in.
	Authenticated func(url string) bool
	Modal         *Modal
	Form          *Form
}

// CookieStore persists cookies per platform. Load reports ok=false when none exist.
type CookieStore interface {
	Load(platform listing.Platform) (cookies []browser.Cookie, ok bool, err error)
	Save(platform listing.Platform, cookies []browser.Cookie) error
}

// Context is the authenticated session handed to the engine. The page stays
// owned by the session provider; the engine only borrows it.
type Context struct {
	Page     browser.Page
	Platform listing.Platform
	Method   Method
}

type Timeouts struct {
	Settle    time.Duration
	Cookie    time.Duration
	Modal     time.Duration
	Form      time.Duration
	Field     time.Duration
	PollEvery time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Settle:    3 * time.Second,
		Cookie:    15 * time.Second,
		Modal:     5 * time.Second,
		Form:      60 * time.Second,
		Field:     15 * time.Second,
		PollEvery: 500 * time.Millisecond,
	}
}

type Negotiator struct {
	cookies  CookieStore
	resolver ChallengeResolver
	pacer    browser.Pacer
	timeouts Timeouts
	log      zerolog.Logger
}

func NewNegotiator(cookies CookieStore, resolver ChallengeResolver, pacer browser.Pacer, timeouts Timeouts, log zerolog.Logger) *Negotiator {
	return &Negotiator{
		cookies:  cookies,
		resolver: resolver,
		pacer:    pacer,
		timeouts: timeouts,
		log:      log,
	}
}

// Establish walks the fallback chain: existing profile session, stored cookies,
// contextual modal login, full-page form login. Only exhaustion is fatal.
func (n *Negotiator) Establish(ctx context.Context, page browser.Page, platform listing.Platform, auth Auth, creds Credentials) (*Context, error) {
	authErr := &AuthenticationError{Platform: platform}

	steps := []struct {
		method Method
		run    func() error
	}{
		{MethodExisting, func() error { return n.tryExisting(ctx, page, auth) }},
		{MethodCookies, func() error { return n.tryCookies(ctx, page, platform, auth) }},
		{MethodModal, func() error { return n.tryModal(ctx, page, platform, auth, creds) }},
		{MethodForm, func() error { return n.tryForm(ctx, page, platform, auth, creds) }},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := step.run()
		if err == nil {
			n.log.Info().Str("method", string(step.method)).Msg("✅ Login confirmed")
			n.persist(page, platform)
			return &Context{Page: page, Platform: platform, Method: step.method}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		n.log.Debug().Err(err).Str("method", string(step.method)).Msg("login step failed, falling through")
		authErr.Attempts = append(authErr.Attempts, fmt.Errorf("%s: %w", step.method, err))
	}

	n.log.Error().Err(authErr).Msg("⛔ Login failed")
	return nil, authErr
}

func (n *Negotiator) tryExisting(ctx context.Context, page browser.Page, auth Auth) error {
	if err := page.Navigate(auth.LoginURL); err != nil {
		return err
	}
	if err := n.pacer.Pause(ctx, n.timeouts.Settle, n.timeouts.Settle); err != nil {
		return err
	}
	if !auth.Authenticated(page.CurrentURL()) {
		return errors.New("profile session is not logged in")
	}
	return nil
}

func (n *Negotiator) tryCookies(ctx context.Context, page browser.Page, platform listing.Platform, auth Auth) error {
	if n.cookies == nil {
		return errors.New("no cookie store")
	}
	cookies, ok, err := n.cookies.Load(platform)
	if err != nil {
		return fmt.Errorf("load cookies: %w", err)
	}
	if !ok || len(cookies) == 0 {
		return errors.New("no stored cookies")
	}
	n.log.Info().Int("count", len(cookies)).Msg("🍪 Injecting stored cookies")

	if err := page.Navigate(auth.HomeURL); err != nil {
		return err
	}
	if err := page.AddCookies(cookies); err != nil {
		return err
	}
	if err := page.Reload(); err != nil {
		return err
	}
	return browser.WaitForURL(ctx, page, n.pacer, n.timeouts.Cookie, n.timeouts.PollEvery, auth.Authenticated)
}

func (n *Negotiator) tryModal(ctx context.Context, page browser.Page, platform listing.Platform, auth Auth, creds Credentials) error {
	if auth.Modal == nil {
		return errors.New("platform has no contextual login")
	}
	if creds.empty() {
		return errors.New("no credentials")
	}
	marker, err := page.WaitForSelector(auth.Modal.Marker, n.timeouts.Modal)
	if err != nil {
		return err
	}
	if auth.Modal.MarkerText != "" {
		txt, err := marker.Text()
		if err != nil {
			return err
		}
		if !strings.Contains(txt, auth.Modal.MarkerText) {
			return fmt.Errorf("modal header %q is not a sign-in prompt", strings.TrimSpace(txt))
		}
	}
	n.log.Info().Msg("🔑 Sign-in modal detected, logging in...")
	if err := fill(page, auth.Modal.Form, creds); err != nil {
		return err
	}
	return n.awaitLogin(ctx, page, platform, auth, n.timeouts.Modal)
}

func (n *Negotiator) tryForm(ctx context.Context, page browser.Page, platform listing.Platform, auth Auth, creds Credentials) error {
	if auth.Form == nil {
		return errors.New("platform has no login form")
	}
	if creds.empty() {
		return errors.New("no credentials")
	}
	if err := page.Navigate(auth.LoginURL); err != nil {
		return err
	}
	if auth.Authenticated(page.CurrentURL()) {
		return nil
	}
	if _, err := page.WaitForSelector(auth.Form.Username, n.timeouts.Field); err != nil {
		// The login page itself may be a challenge.
		if n.challenged(page) {
			if err := n.resolveChallenge(ctx, page, platform); err != nil {
				return err
			}
			return n.awaitLogin(ctx, page, platform, auth, n.timeouts.Form)
		}
		return err
	}
	if err := fill(page, *auth.Form, creds); err != nil {
		return err
	}
	return n.awaitLogin(ctx, page, platform, auth, n.timeouts.Form)
}

// awaitLogin polls for an authenticated URL. A challenge suspends the wait
// until it is resolved, then the bounded wait starts over.
func (n *Negotiator) awaitLogin(ctx context.Context, page browser.Page, platform listing.Platform, auth Auth, timeout time.Duration) error {
	for {
		err := browser.WaitForURL(ctx, page, n.pacer, timeout, n.timeouts.PollEvery, func(url string) bool {
			return auth.Authenticated(url) || n.challenged(page)
		})
		if err != nil {
			return err
		}
		// A logged-in URL wins over anything the page happens to render.
		if auth.Authenticated(page.CurrentURL()) {
			return nil
		}
		if err := n.resolveChallenge(ctx, page, platform); err != nil {
			return err
		}
		if auth.Authenticated(page.CurrentURL()) {
			return nil
		}
	}
}

func (n *Negotiator) challenged(page browser.Page) bool {
	html, err := page.Content()
	if err != nil {
		return false
	}
	return DetectChallenge(page.CurrentURL(), html)
}

func (n *Negotiator) resolveChallenge(ctx context.Context, page browser.Page, platform listing.Platform) error {
	n.log.Warn().Str("url", page.CurrentURL()).Msg("🛡️ Challenge detected, waiting for operator")
	if n.resolver == nil {
		return ErrChallengeDetected
	}
	if err := n.resolver.Await(ctx, platform, page.CurrentURL()); err != nil {
		return err
	}
	n.log.Info().Msg("✅ Challenge resolved, resuming login")
	return nil
}

func (n *Negotiator) persist(page browser.Page, platform listing.Platform) {
	if n.cookies == nil {
		return
	}
	cookies, err := page.Cookies()
	if err != nil {
		n.log.Warn().Err(err).Msg("⚠️ Could not read session cookies")
		return
	}
	if err := n.cookies.Save(platform, cookies); err != nil {
		n.log.Warn().Err(err).Msg("⚠️ Could not persist session cookies")
		return
	}
	n.log.Info().Int("count", len(cookies)).Msg("💾 Saved session cookies")
}

func fill(page browser.Page, form Form, creds Credentials) error {
	user, err := page.Query(form.Username)
	if err != nil {
		return err
	}
	if err := user.Type(creds.Username); err != nil {
		return err
	}
	pass, err := page.Query(form.Password)
	if err != nil {
		return err
	}
	if err := pass.Type(creds.Password); err != nil {
		return err
	}
	submit, err := page.Query(form.Submit)
	if err != nil {
		return err
	}
	return submit.Click()
}

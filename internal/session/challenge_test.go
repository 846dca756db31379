package session

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"go-job-acquisition/internal/listing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectChallenge(t *testing.T) {
	tests := []struct {
		name string
		url  string
		html string
		want bool
	}{
		{"checkpoint url", "https://www.linkedin.com/checkpoint/challenge/AgF", "", true},
		{"cloudflare interstitial", "https://in.indeed.com/jobs", "<html><head><title>Just a moment...</title></head></html>", true},
		{"security check title", "https://example.com", "<html><head><title>Security Verification | LinkedIn</title></head></html>", true},
		{"turnstile widget", "https://www.naukri.com/nlogin/login", `<iframe src="https://challenges.cloudflare.com/cdn-cgi/challenge-platform/turnstile"></iframe>`, true},
		{"linkedin captcha form", "https://www.linkedin.com/uas/login-submit", `<form id="captcha-form"><div id="captcha-internal"></div></form>`, true},
		{"normal feed", "https://www.linkedin.com/feed/", "<main>Start a post</main>", false},
		{"recaptcha script on feed", "https://www.linkedin.com/feed/", `<html><head><title>Feed | LinkedIn</title><script src="https://www.google.com/recaptcha/api.js"></script></head><body></body></html>`, false},
		{"post mentioning captcha", "https://www.linkedin.com/feed/", "<p>Built a captcha solver service. Just a moment of your time: security check our repo!</p>", false},
		{"description mentioning security check", "https://in.indeed.com/viewjob", "<div id=\"jobDescriptionText\">Run a security check on every release.</div>", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectChallenge(tt.url, tt.html))
		})
	}
}

func TestSignalResolver_ReleasesWaiter(t *testing.T) {
	r := NewSignalResolver()
	done := make(chan error, 1)
	go func() {
		done <- r.Await(context.Background(), listing.LinkedIn, "https://www.linkedin.com/checkpoint/x")
	}()

	require.Eventually(t, func() bool {
		return len(r.Pending()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "https://www.linkedin.com/checkpoint/x", r.Pending()[listing.LinkedIn])
	assert.False(t, r.Resolve(listing.Naukri))
	assert.True(t, r.Resolve(listing.LinkedIn))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter was not released")
	}
	assert.Empty(t, r.Pending())
}

func TestSignalResolver_Cancelled(t *testing.T) {
	r := NewSignalResolver()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := r.Await(ctx, listing.Indeed, "https://in.indeed.com")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, r.Pending())
}

func TestStdinResolver(t *testing.T) {
	var out bytes.Buffer
	r := NewStdinResolver(strings.NewReader("\n"), &out)

	require.NoError(t, r.Await(context.Background(), listing.Naukri, "https://www.naukri.com/captcha"))
	assert.Contains(t, out.String(), "press Enter to resume NAUKRI")
}

// lockedBuffer lets the test read prompts while Await writes them.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) prompts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), "press Enter")
}

func TestStdinResolver_CancelledPromptKeepsNextKeypress(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	out := &lockedBuffer{}
	r := NewStdinResolver(pr, out)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Await(ctx, listing.LinkedIn, "https://www.linkedin.com/checkpoint/x"), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() {
		done <- r.Await(context.Background(), listing.Naukri, "https://www.naukri.com/captcha")
	}()
	require.Eventually(t, func() bool { return out.prompts() == 2 }, time.Second, 5*time.Millisecond)

	_, err := pw.Write([]byte("\n"))
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("keypress did not reach the waiting prompt")
	}
}

func TestStdinResolver_OnePromptAtATime(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	out := &lockedBuffer{}
	r := NewStdinResolver(pr, out)

	done := make(chan error, 2)
	for _, p := range []listing.Platform{listing.LinkedIn, listing.Naukri} {
		go func() { done <- r.Await(context.Background(), p, "https://jobs.test/checkpoint") }()
	}
	require.Eventually(t, func() bool { return out.prompts() == 1 }, time.Second, 5*time.Millisecond)

	_, err := pw.Write([]byte("\n"))
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.Eventually(t, func() bool { return out.prompts() == 2 }, time.Second, 5*time.Millisecond)
	select {
	case <-done:
		t.Fatal("second prompt resolved without its own keypress")
	case <-time.After(20 * time.Millisecond):
	}

	_, err = pw.Write([]byte("\n"))
	require.NoError(t, err)
	require.NoError(t, <-done)
}

package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go-job-acquisition/internal/listing"

	"github.com/PuerkitoBio/goquery"
)

var challengeURLMarkers = []string{
	"/checkpoint/",
	"/captcha",
	"/challenge",
}

// Interstitial titles: Cloudflare, Akamai and the platforms' own checkpoints.
var challengeTitleMarkers = []string{
	"just a moment",
	"attention required",
	"security check",
	"security verification",
	"verify you are human",
	"captcha",
}

// Nodes only an interstitial renders. Script tags and prose never match.
const challengeSelector = `#challenge-form, #challenge-running, #challenge-stage, #cf-challenge-running, ` +
	`#captcha-internal, form#captcha-form, iframe[src*="challenges.cloudflare.com"], ` +
	`iframe[title*="recaptcha challenge"], .h-captcha`

// DetectChallenge reports whether the page at url is an anti-bot interstitial,
// judged by the URL, the document title and challenge widgets in the DOM.
func DetectChallenge(url, html string) bool {
	u := strings.ToLower(url)
	for _, m := range challengeURLMarkers {
		if strings.Contains(u, m) {
			return true
		}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	for _, m := range challengeTitleMarkers {
		if strings.Contains(title, m) {
			return true
		}
	}
	return doc.Find(challengeSelector).Length() > 0
}

// ChallengeResolver blocks until an operator has solved the challenge in the
// visible browser window, or ctx ends.
type ChallengeResolver interface {
	Await(ctx context.Context, platform listing.Platform, url string) error
}

// StdinResolver waits for the operator to press Enter. One reader serves every
// platform and prompts are taken one at a time, so each keypress answers exactly
// the prompt printed last.
type StdinResolver struct {
	in   io.Reader
	out  io.Writer
	turn chan struct{}
	once sync.Once
	// lines is closed once in hits EOF or fails; readErr is set before that.
	lines   chan struct{}
	readErr error
}

func NewStdinResolver(in io.Reader, out io.Writer) *StdinResolver {
	return &StdinResolver{
		in:    in,
		out:   out,
		turn:  make(chan struct{}, 1),
		lines: make(chan struct{}),
	}
}

func (r *StdinResolver) readLines() {
	br := bufio.NewReader(r.in)
	for {
		if _, err := br.ReadString('\n'); err != nil {
			if err != io.EOF {
				r.readErr = err
			}
			close(r.lines)
			return
		}
		r.lines <- struct{}{}
	}
}

func (r *StdinResolver) Await(ctx context.Context, platform listing.Platform, url string) error {
	select {
	case r.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-r.turn }()
	r.once.Do(func() { go r.readLines() })

	// A keypress left over from a cancelled prompt does not answer this one.
	select {
	case <-r.lines:
	default:
	}

	fmt.Fprintf(r.out, "\n🛡️  %s is showing a security check at %s\n   Solve it in the browser window, then press Enter to resume %s...\n", platform, url, platform)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-r.lines:
		if !ok {
			return r.readErr
		}
		return nil
	}
}

// SignalResolver is resolved from outside the run, e.g. by the HTTP API.
type SignalResolver struct {
	mu      sync.Mutex
	pending map[listing.Platform]*pendingChallenge
}

type pendingChallenge struct {
	url  string
	done chan struct{}
}

func NewSignalResolver() *SignalResolver {
	return &SignalResolver{pending: make(map[listing.Platform]*pendingChallenge)}
}

func (r *SignalResolver) Await(ctx context.Context, platform listing.Platform, url string) error {
	r.mu.Lock()
	p, ok := r.pending[platform]
	if !ok {
		p = &pendingChallenge{url: url, done: make(chan struct{})}
		r.pending[platform] = p
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		r.mu.Lock()
		if r.pending[platform] == p {
			delete(r.pending, platform)
		}
		r.mu.Unlock()
		return ctx.Err()
	case <-p.done:
		return nil
	}
}

// Resolve releases the run waiting on platform. It reports false when nothing is pending.
func (r *SignalResolver) Resolve(platform listing.Platform) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[platform]
	if !ok {
		return false
	}
	delete(r.pending, platform)
	close(p.done)
	return true
}

// Pending returns the challenge URL per waiting platform.
func (r *SignalResolver) Pending() map[listing.Platform]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[listing.Platform]string, len(r.pending))
	for k, p := range r.pending {
		out[k] = p.url
	}
	return out
}

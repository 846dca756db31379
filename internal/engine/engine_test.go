package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"go-job-acquisition/internal/browser"
	"go-job-acquisition/internal/browser/fakebrowser"
	"go-job-acquisition/internal/extract"
	"go-job-acquisition/internal/filter"
	"go-job-acquisition/internal/listing"
	"go-job-acquisition/internal/logger"
	"go-job-acquisition/internal/scraper"
	"go-job-acquisition/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	searchURL = "https://jobs.test/search"
	page2URL  = "https://jobs.test/search/2"
)

type job struct {
	id, title, company string
}

func resultsPage(jobs []job, next string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, j := range jobs {
		fmt.Fprintf(&b, `<li class="card" data-id="%s"><h3 class="title">%s</h3><span class="company">%s</span></li>`, j.id, j.title, j.company)
	}
	b.WriteString("</ul>")
	if next != "" {
		fmt.Fprintf(&b, `<a class="next" href="%s">Next</a>`, next)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func card(get extract.Optional) extract.Field {
	return extract.Field{Scope: extract.FromCard, Get: get}
}

func testPlatform() scraper.Platform {
	return scraper.Platform{
		Name: listing.Naukri,
		SearchURL: func(q scraper.Query) string {
			return searchURL + "?q=" + strings.Join(q.Titles, "+")
		},
		CardSelector: "li.card",
		IDAttribute:  "data-id",
		NextPage:     "a.next",
		Fields: extract.Fields{
			Title:   card(extract.Text(".title")),
			Company: card(extract.Text(".company")),
		},
	}
}

type memPrefs struct {
	prefs filter.Preferences
	saves int
	err   error
}

func (m *memPrefs) Load(listing.Platform) (filter.Preferences, error) {
	return m.prefs.Clone(), nil
}

func (m *memPrefs) Save(_ listing.Platform, p filter.Preferences) error {
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.prefs = p.Clone()
	return nil
}

type memSink struct {
	recs  []listing.Record
	after func(n int)
}

func (s *memSink) Write(_ context.Context, rec listing.Record) error {
	s.recs = append(s.recs, rec)
	if s.after != nil {
		s.after(len(s.recs))
	}
	return nil
}

func newEngine(page browser.Page, p scraper.Platform, prefs filter.PreferenceStore, sink Sink, maxResults int) *Engine {
	log := logger.Nop()
	return New(Config{
		Platform:    p,
		Page:        page,
		Negotiator:  session.NewNegotiator(nil, nil, browser.NoDelay{}, session.Timeouts{PollEvery: time.Millisecond}, log),
		Preferences: prefs,
		Sink:        sink,
		Pacer:       browser.NoDelay{},
		Options:     Options{MaxResults: maxResults, MaxPages: 5},
		Log:         &log,
	})
}

func ids(recs []listing.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ListingID
	}
	return out
}

func TestRun_TwoPagesWithDuplicateAndUnwantedTitles(t *testing.T) {
	page1 := []job{
		{"1", "Software Engineer", "Acme"},
		{"2", "Senior Software Engineer", "Globex"},
		{"3", "Software Engineer II", "Initech"},
		{"4", "Lead Software Engineer", "Umbrella"},
		{"5", "Software Engineer, Backend", "Hooli"},
	}
	page2 := []job{
		{"5", "Software Engineer, Backend", "Hooli"},
		{"6", "Marketing Lead", "Acme"},
		{"7", "Software Engineer III", "Stark"},
		{"8", "Sales Manager", "Wayne"},
		{"9", "Staff Software Engineer", "Wonka"},
	}
	site := &fakebrowser.Site{Pages: map[string]string{
		searchURL: resultsPage(page1, page2URL),
		page2URL:  resultsPage(page2, ""),
	}}
	prefs := &memPrefs{prefs: filter.Preferences{"Software Engineer": true}}
	sink := &memSink{}

	report, err := newEngine(fakebrowser.New(site), testPlatform(), prefs, sink, 8).Run(context.Background())

	require.NoError(t, err)
	assert.Len(t, report.Records, 7)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "7", "9"}, ids(report.Records))
	assert.Equal(t, ids(report.Records), ids(sink.recs))
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 2, report.Pages)
	assert.Equal(t, []string{"Marketing Lead", "Sales Manager"}, report.Learned)
	assert.Equal(t, "no next page", report.Reason)
	assert.NotEmpty(t, report.RunID)

	assert.Equal(t, filter.Preferences{"Software Engineer": true, "Marketing Lead": false, "Sales Manager": false}, prefs.prefs)
	assert.Equal(t, 3, prefs.saves, "one incremental save per learned title plus the final flush")

	seen := map[string]bool{}
	for _, r := range report.Records {
		assert.False(t, seen[r.ListingID], "duplicate %s", r.ListingID)
		seen[r.ListingID] = true
		assert.Equal(t, listing.ContentHash(r.Company, r.Title), r.ContentHash)
		assert.Equal(t, listing.Naukri, r.Source)
	}
}

func TestRun_StopsMidPageAtMaxResults(t *testing.T) {
	page1 := []job{
		{"1", "Software Engineer", "A"}, {"2", "Software Engineer", "B"}, {"3", "Software Engineer", "C"},
		{"4", "Software Engineer", "D"}, {"5", "Software Engineer", "E"},
	}
	page2 := []job{
		{"6", "Software Engineer", "F"}, {"7", "Software Engineer", "G"}, {"8", "Software Engineer", "H"},
		{"9", "Software Engineer", "I"}, {"10", "Software Engineer", "J"},
	}
	site := &fakebrowser.Site{Pages: map[string]string{
		searchURL: resultsPage(page1, page2URL),
		page2URL:  resultsPage(page2, ""),
	}}
	prefs := &memPrefs{prefs: filter.Preferences{"Software Engineer": true}}

	report, err := newEngine(fakebrowser.New(site), testPlatform(), prefs, nil, 8).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8"}, ids(report.Records))
	assert.Equal(t, "max results", report.Reason)
	assert.Equal(t, 2, report.Pages)
}

func TestRun_NoEnabledTitlesIsEmptyReport(t *testing.T) {
	page := fakebrowser.New(&fakebrowser.Site{})
	prefs := &memPrefs{prefs: filter.Preferences{"Sales": false}}

	report, err := newEngine(page, testPlatform(), prefs, nil, 10).Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, report.Records)
	assert.Equal(t, "no enabled titles", report.Reason)
	assert.Empty(t, page.Navigations, "browser never touched")
	assert.Equal(t, 1, prefs.saves)
}

func TestRun_ZeroCardsIsEmptyReport(t *testing.T) {
	site := &fakebrowser.Site{Pages: map[string]string{searchURL: "<html><body>No results</body></html>"}}
	prefs := &memPrefs{prefs: filter.Preferences{"Go": true}}

	report, err := newEngine(fakebrowser.New(site), testPlatform(), prefs, nil, 10).Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, report.Records)
	assert.Equal(t, "no listing cards", report.Reason)
}

func TestRun_SkipsListingWhoseDetailFailsToOpen(t *testing.T) {
	site := &fakebrowser.Site{Pages: map[string]string{searchURL: `<html><body><ul>
		<li class="card" data-id="1"><a class="open"><h3 class="title">Go Engineer</h3></a></li>
		<li class="card" data-id="2"><h3 class="title">Go Engineer</h3></li>
		<li class="card" data-id="3"><a class="open"><h3 class="title">Go Engineer</h3></a></li>
	</ul><div id="pane">ready</div></body></html>`}}
	p := testPlatform()
	p.OpenDetail = scraper.ClickToOpen("a.open", "#pane", 0, 0)
	prefs := &memPrefs{prefs: filter.Preferences{"Go": true}}

	report, err := newEngine(fakebrowser.New(site), p, prefs, nil, 10).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids(report.Records))
	assert.Equal(t, 1, report.Skipped)
}

func TestRun_CancelledKeepsPartialResultsAndFlushesPreferences(t *testing.T) {
	site := &fakebrowser.Site{Pages: map[string]string{searchURL: resultsPage([]job{
		{"1", "Go Developer", "A"}, {"2", "Go Developer", "B"}, {"3", "Go Developer", "C"}, {"4", "Go Developer", "D"},
	}, "")}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &memSink{after: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	prefs := &memPrefs{prefs: filter.Preferences{"Go": true}}

	report, err := newEngine(fakebrowser.New(site), testPlatform(), prefs, sink, 10).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, []string{"1", "2"}, ids(report.Records))
	assert.Equal(t, 1, prefs.saves)
}

func TestRun_AuthenticationFailureAbortsRun(t *testing.T) {
	p := testPlatform()
	p.Auth = &session.Auth{
		LoginURL:      "https://jobs.test/login",
		HomeURL:       "https://jobs.test/",
		Authenticated: func(u string) bool { return strings.Contains(u, "/feed") },
		Form:          &session.Form{Username: "#u", Password: "#p", Submit: "#go"},
	}
	page := fakebrowser.New(&fakebrowser.Site{})
	prefs := &memPrefs{prefs: filter.Preferences{"Go": true}}
	debugDir := t.TempDir()
	eng := newEngine(page, p, prefs, nil, 10)
	eng.cfg.Debug = browser.NewScreenshotDebugger(debugDir)

	report, err := eng.Run(context.Background())

	var authErr *session.AuthenticationError
	assert.ErrorAs(t, err, &authErr)
	assert.Empty(t, report.Records)
	shots, _ := os.ReadDir(debugDir)
	assert.Len(t, shots, 1, "failed login page captured")
	assert.Equal(t, "session failed", report.Reason)
	assert.Equal(t, 1, prefs.saves)
}

func TestRun_ReusesLoggedInSession(t *testing.T) {
	p := testPlatform()
	p.Auth = &session.Auth{
		LoginURL:      "https://jobs.test/login",
		HomeURL:       "https://jobs.test/",
		Authenticated: func(u string) bool { return strings.Contains(u, "/feed") },
	}
	site := &fakebrowser.Site{
		Pages: map[string]string{searchURL: resultsPage([]job{{"1", "Go Developer", "A"}}, "")},
		Route: func(_ *fakebrowser.Page, u string) string {
			if u == "https://jobs.test/login" {
				return "https://jobs.test/feed"
			}
			return u
		},
	}
	prefs := &memPrefs{prefs: filter.Preferences{"Go": true}}

	report, err := newEngine(fakebrowser.New(site), p, prefs, nil, 10).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, session.MethodExisting, report.Session)
	assert.Len(t, report.Records, 1)
}

func TestRun_FinalSaveFailureIsReported(t *testing.T) {
	prefs := &memPrefs{prefs: filter.Preferences{"Go": false}, err: errors.New("disk full")}

	_, err := newEngine(fakebrowser.New(&fakebrowser.Site{}), testPlatform(), prefs, nil, 10).Run(context.Background())

	assert.ErrorContains(t, err, "disk full")
}

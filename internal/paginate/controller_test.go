package paginate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go-job-acquisition/internal/browser"
	"go-job-acquisition/internal/browser/fakebrowser"
	"go-job-acquisition/internal/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultsPage(ids []string, next string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, id := range ids {
		fmt.Fprintf(&b, `<li class="card" data-job-id="%s">Job %s</li>`, id, id)
	}
	b.WriteString("</ul>")
	if next != "" {
		fmt.Fprintf(&b, `<a class="next" href="%s">Next</a>`, next)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func opts() Options {
	return Options{
		SearchURL:    "https://jobs.test/search?q=go",
		CardSelector: "li.card",
		IDAttribute:  "data-job-id",
		NextPage:     "a.next",
		MaxResults:   100,
		MaxPages:     5,
	}
}

func collect(t *testing.T, c *Controller) []Candidate {
	t.Helper()
	var out []Candidate
	for cand := range c.Candidates(context.Background()) {
		out = append(out, cand)
	}
	return out
}

func ids(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.ID
	}
	return out
}

func TestCandidates_WalksPagesUntilNoNext(t *testing.T) {
	site := &fakebrowser.Site{Pages: map[string]string{
		"https://jobs.test/search": resultsPage([]string{"1", "2"}, "https://jobs.test/p2"),
		"https://jobs.test/p2":     resultsPage([]string{"3"}, ""),
	}}
	page := fakebrowser.New(site)
	run := NewRunState()
	c := New(page, opts(), run, browser.NoDelay{}, logger.Nop())

	got := collect(t, c)

	assert.Equal(t, []string{"1", "2", "3"}, ids(got))
	assert.Equal(t, []int{1, 1, 2}, []int{got[0].Page, got[1].Page, got[2].Page})
	assert.Equal(t, 2, run.Page)
	assert.Equal(t, Exhausted, c.State())
	assert.Equal(t, "no next page", c.Reason())
	assert.NoError(t, c.Err())
}

func TestCandidates_TerminatesAtMaxPagesWhenNextNeverDisappears(t *testing.T) {
	site := &fakebrowser.Site{
		Pages: map[string]string{
			"https://jobs.test/search": resultsPage([]string{"a"}, "https://jobs.test/search"),
		},
		// Height changes once after the first scroll, then never again.
		Height: func(scrolls int) int {
			if scrolls == 0 {
				return 1000
			}
			return 1800
		},
	}
	page := fakebrowser.New(site)
	run := NewRunState()
	o := opts()
	o.MaxPages = 3
	c := New(page, o, run, browser.NoDelay{}, logger.Nop())

	got := collect(t, c)

	assert.Len(t, got, 3, "one card per page, three pages")
	assert.Equal(t, 3, run.Page)
	assert.Equal(t, "max pages", c.Reason())
	assert.Len(t, page.Navigations, 3, "initial load plus two next-page clicks")
	assert.Equal(t, 2, page.Scrolls(), "scrolling stops once height is unchanged")
}

func TestCandidates_ScrollCapOnEverGrowingPage(t *testing.T) {
	site := &fakebrowser.Site{
		Pages:  map[string]string{"https://jobs.test/search": resultsPage([]string{"a"}, "")},
		Height: func(scrolls int) int { return 1000 + scrolls*500 },
	}
	page := fakebrowser.New(site)
	o := opts()
	o.MaxScrolls = 4
	c := New(page, o, NewRunState(), browser.NoDelay{}, logger.Nop())

	collect(t, c)

	assert.Equal(t, 4, page.Scrolls())
}

func TestCandidates_NoCardsExhausts(t *testing.T) {
	site := &fakebrowser.Site{Pages: map[string]string{
		"https://jobs.test/search": `<html><body><p>No matching jobs found.</p></body></html>`,
	}}
	c := New(fakebrowser.New(site), opts(), NewRunState(), browser.NoDelay{}, logger.Nop())

	assert.Empty(t, collect(t, c))
	assert.Equal(t, "no listing cards", c.Reason())
	assert.NoError(t, c.Err())
}

func TestCandidates_SkipsCardsWithoutID(t *testing.T) {
	site := &fakebrowser.Site{Pages: map[string]string{
		"https://jobs.test/search": `<html><body><ul>
			<li class="card" data-job-id="1"></li>
			<li class="card"></li>
			<li class="card" data-job-id="  "></li>
			<li class="card" data-job-id="2"></li>
		</ul></body></html>`,
	}}
	c := New(fakebrowser.New(site), opts(), NewRunState(), browser.NoDelay{}, logger.Nop())

	assert.Equal(t, []string{"1", "2"}, ids(collect(t, c)))
}

func TestCandidates_StopsWhenCollectedReachesMax(t *testing.T) {
	site := &fakebrowser.Site{Pages: map[string]string{
		"https://jobs.test/search": resultsPage([]string{"1", "2", "3", "4"}, "https://jobs.test/p2"),
	}}
	page := fakebrowser.New(site)
	run := NewRunState()
	o := opts()
	o.MaxResults = 2
	c := New(page, o, run, browser.NoDelay{}, logger.Nop())

	var seen []string
	for cand := range c.Candidates(context.Background()) {
		seen = append(seen, cand.ID)
		run.Collected++
	}

	assert.Equal(t, []string{"1", "2"}, seen)
	assert.Equal(t, "max results", c.Reason())
	assert.Len(t, page.Navigations, 1, "never advanced")
}

func TestCandidates_NextPageSelectorWithPageNumber(t *testing.T) {
	site := &fakebrowser.Site{
		Pages: map[string]string{
			"https://jobs.test/search": `<html><body><ul><li class="card" data-job-id="1"></li></ul>
				<button aria-label="Page 2">2</button></body></html>`,
			"https://jobs.test/search?page=2": `<html><body><ul><li class="card" data-job-id="2"></li></ul></body></html>`,
		},
		Clicks: []fakebrowser.ClickHandler{{
			Selector: "button[aria-label='Page 2']",
			Do: func(p *fakebrowser.Page, _ *goquery.Selection) error {
				return p.Navigate("https://jobs.test/search?page=2")
			},
		}},
	}
	o := opts()
	o.NextPage = "button[aria-label='Page %d']"
	c := New(fakebrowser.New(site), o, NewRunState(), browser.NoDelay{}, logger.Nop())

	assert.Equal(t, []string{"1", "2"}, ids(collect(t, c)))
}

func TestCandidates_NotRestartable(t *testing.T) {
	site := &fakebrowser.Site{Pages: map[string]string{
		"https://jobs.test/search": resultsPage([]string{"1"}, ""),
	}}
	c := New(fakebrowser.New(site), opts(), NewRunState(), browser.NoDelay{}, logger.Nop())

	require.Len(t, collect(t, c), 1)
	assert.Empty(t, collect(t, c))
	assert.ErrorIs(t, c.Err(), ErrControllerUsed)
}

func TestCandidates_Cancelled(t *testing.T) {
	site := &fakebrowser.Site{Pages: map[string]string{
		"https://jobs.test/search": resultsPage([]string{"1", "2"}, ""),
	}}
	c := New(fakebrowser.New(site), opts(), NewRunState(), browser.NoDelay{}, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got []Candidate
	for cand := range c.Candidates(ctx) {
		got = append(got, cand)
	}

	assert.Empty(t, got)
	assert.ErrorIs(t, c.Err(), context.Canceled)
}

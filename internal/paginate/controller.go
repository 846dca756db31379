// Package paginate drives infinite-scroll-then-next-page traversal of search results.
package paginate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"go-job-acquisition/internal/browser"
	"go-job-acquisition/internal/dedup"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var ErrControllerUsed = errors.New("pagination controller already used")

type State int

const (
	Idle State = iota
	Loading
	Scrolling
	ExtractingPage
	AdvancingPage
	Exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Scrolling:
		return "scrolling"
	case ExtractingPage:
		return "extracting"
	case AdvancingPage:
		return "advancing"
	case Exhausted:
		return "exhausted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// RunState is created per run and discarded afterwards. The controller owns Page;
// the engine owns Seen and Collected.
type RunState struct {
	Seen      *dedup.Tracker
	Page      int
	Collected int
}

func NewRunState() *RunState {
	return &RunState{Seen: dedup.NewTracker(), Page: 1}
}

// Candidate is one rendered listing card and its platform id.
type Candidate struct {
	ID   string
	Card browser.Element
	Page int
}

type Options struct {
	SearchURL    string
	CardSelector string
	IDAttribute  string
	// NextPage locates the next-page control; a %d verb receives the target page number.
	NextPage   string
	MaxResults int
	MaxPages   int
	// MaxScrolls caps scrolling on pages whose height keeps growing.
	MaxScrolls   int
	ScrollPause  time.Duration
	SettleDelay  time.Duration
	NextWait     time.Duration
	PageInterval time.Duration
}

// Controller yields listing cards page by page. It is single use.
type Controller struct {
	page    browser.Page
	opts    Options
	run     *RunState
	pacer   browser.Pacer
	limiter *rate.Limiter
	log     zerolog.Logger

	state  State
	used   bool
	err    error
	reason string
}

func New(page browser.Page, opts Options, run *RunState, pacer browser.Pacer, log zerolog.Logger) *Controller {
	if opts.MaxScrolls <= 0 {
		opts.MaxScrolls = 30
	}
	limit := rate.Inf
	if opts.PageInterval > 0 {
		limit = rate.Every(opts.PageInterval)
	}
	return &Controller{
		page:    page,
		opts:    opts,
		run:     run,
		pacer:   pacer,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

func (c *Controller) State() State { return c.state }

// Err reports why traversal ended abnormally: navigation failure, cancellation, or reuse.
func (c *Controller) Err() error { return c.err }

// Reason describes which stop condition exhausted the controller.
func (c *Controller) Reason() string { return c.reason }

func (c *Controller) transition(to State) {
	c.log.Debug().Stringer("from", c.state).Stringer("to", to).Int("page", c.run.Page).Msg("pagination")
	c.state = to
}

func (c *Controller) exhaust(reason string) {
	c.reason = reason
	c.transition(Exhausted)
}

func (c *Controller) capReached() bool {
	return c.opts.MaxResults > 0 && c.run.Collected >= c.opts.MaxResults
}

// Candidates yields every card on every page until a stop condition fires.
// Breaking out of the loop stops traversal without touching the browser again.
func (c *Controller) Candidates(ctx context.Context) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		if c.used {
			c.err = ErrControllerUsed
			return
		}
		c.used = true

		c.transition(Loading)
		c.log.Info().Str("url", c.opts.SearchURL).Msg("🔍 Loading search results")
		if err := c.page.Navigate(c.opts.SearchURL); err != nil {
			c.err = fmt.Errorf("load search page: %w", err)
			c.exhaust("navigation failed")
			return
		}

		for {
			if err := c.pacer.Pause(ctx, c.opts.SettleDelay, c.opts.SettleDelay+time.Second); err != nil {
				c.err = err
				c.exhaust("cancelled")
				return
			}

			c.transition(Scrolling)
			c.scrollToConvergence(ctx)

			c.transition(ExtractingPage)
			cards, err := c.page.QueryAll(c.opts.CardSelector)
			if err != nil || len(cards) == 0 {
				c.log.Warn().Int("page", c.run.Page).Msg("⚠️ No job cards found on this page")
				c.exhaust("no listing cards")
				return
			}
			c.log.Info().Int("page", c.run.Page).Int("cards", len(cards)).Msg("📦 Found job cards")

			for _, card := range cards {
				if c.capReached() {
					c.exhaust("max results")
					return
				}
				if ctx.Err() != nil {
					c.err = ctx.Err()
					c.exhaust("cancelled")
					return
				}
				id, ok, err := card.Attribute(c.opts.IDAttribute)
				id = strings.TrimSpace(id)
				if err != nil || !ok || id == "" {
					c.log.Debug().Err(err).Msg("card without id, skipping")
					continue
				}
				if !yield(Candidate{ID: id, Card: card, Page: c.run.Page}) {
					c.exhaust("stopped by consumer")
					return
				}
			}

			if c.capReached() {
				c.exhaust("max results")
				return
			}

			c.transition(AdvancingPage)
			if c.run.Page >= c.opts.MaxPages {
				c.exhaust("max pages")
				return
			}
			if !c.advance(ctx) {
				return
			}
			c.run.Page++
			c.log.Info().Int("page", c.run.Page).Msg("➡️ Moving to next page")
			c.transition(Loading)
		}
	}
}

func (c *Controller) advance(ctx context.Context) bool {
	selector := c.opts.NextPage
	if strings.Contains(selector, "%d") {
		selector = fmt.Sprintf(selector, c.run.Page+1)
	}
	next, err := c.page.WaitForSelector(selector, c.opts.NextWait)
	if err != nil {
		c.log.Info().Msg("⚠️ No more pages available")
		c.exhaust("no next page")
		return false
	}
	if err := c.limiter.Wait(ctx); err != nil {
		c.err = err
		c.exhaust("cancelled")
		return false
	}
	if err := next.Click(); err != nil {
		c.log.Warn().Err(err).Msg("⚠️ Next page control did not respond")
		c.exhaust("no next page")
		return false
	}
	return true
}

// scrollToConvergence scrolls until the page height stops changing.
func (c *Controller) scrollToConvergence(ctx context.Context) int {
	prev, err := c.height()
	if err != nil {
		return 0
	}
	scrolls := 0
	for scrolls < c.opts.MaxScrolls {
		if _, err := c.page.Evaluate(browser.ScriptScrollToBottom); err != nil {
			return scrolls
		}
		scrolls++
		if err := c.pacer.Pause(ctx, c.opts.ScrollPause, c.opts.ScrollPause); err != nil {
			return scrolls
		}
		h, err := c.height()
		if err != nil || h == prev {
			return scrolls
		}
		prev = h
	}
	return scrolls
}

func (c *Controller) height() (int, error) {
	v, err := c.page.Evaluate(browser.ScriptScrollHeight)
	if err != nil {
		return 0, err
	}
	return browser.ToInt(v)
}

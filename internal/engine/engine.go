// Package engine runs one acquisition pass over one platform: it negotiates a
// session, walks the search results, filters by title and emits records.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-job-acquisition/internal/browser"
	"go-job-acquisition/internal/extract"
	"go-job-acquisition/internal/filter"
	"go-job-acquisition/internal/listing"
	"go-job-acquisition/internal/logger"
	"go-job-acquisition/internal/paginate"
	"go-job-acquisition/internal/scraper"
	"go-job-acquisition/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sink receives records in acquisition order.
type Sink interface {
	Write(ctx context.Context, rec listing.Record) error
}

type Options struct {
	Location     string
	Recency      scraper.Recency
	MaxResults   int
	MaxPages     int
	MaxScrolls   int
	ScrollPause  time.Duration
	SettleDelay  time.Duration
	NextWait     time.Duration
	PageInterval time.Duration
}

type Config struct {
	Platform    scraper.Platform
	Page        browser.Page
	Negotiator  *session.Negotiator
	Credentials session.Credentials
	Preferences filter.PreferenceStore
	// Sink may be nil; records are always kept in the Report.
	Sink    Sink
	Pacer   browser.Pacer
	Options Options
	// Log defaults to a component logger tagged with the run id.
	Log *zerolog.Logger
	// Debug, when set, captures the page after a failed session negotiation.
	Debug *browser.ScreenshotDebugger
}

// Report is the outcome of one run. It is returned even when the run fails, holding
// whatever was acquired before the failure.
type Report struct {
	RunID      string
	Platform   listing.Platform
	Records    []listing.Record
	Learned    []string
	Pages      int
	Duplicates int
	Skipped    int
	SinkErrors int
	Reason     string
	Session    session.Method
	StartedAt  time.Time
	FinishedAt time.Time
}

type Engine struct {
	cfg Config
	log zerolog.Logger
}

func New(cfg Config) *Engine {
	if cfg.Pacer == nil {
		cfg.Pacer = browser.HumanPacer{}
	}
	return &Engine{cfg: cfg}
}

// Run acquires listings until a stop condition fires. Preferences are written back
// before Run returns, whatever the outcome.
func (e *Engine) Run(ctx context.Context) (report *Report, err error) {
	p := e.cfg.Platform
	report = &Report{
		RunID:     uuid.NewString(),
		Platform:  p.Name,
		StartedAt: time.Now(),
	}
	if e.cfg.Log != nil {
		e.log = e.cfg.Log.With().Str("run_id", report.RunID).Str("platform", string(p.Name)).Logger()
	} else {
		e.log = logger.ForRun("engine", report.RunID, string(p.Name))
	}
	defer func() { report.FinishedAt = time.Now() }()

	prefs, err := e.cfg.Preferences.Load(p.Name)
	if err != nil {
		return report, fmt.Errorf("load title preferences: %w", err)
	}
	if prefs == nil {
		prefs = filter.Preferences{}
	}
	defer func() {
		if saveErr := e.cfg.Preferences.Save(p.Name, prefs); saveErr != nil {
			e.log.Error().Err(saveErr).Msg("❌ Failed to save title preferences")
			err = errors.Join(err, fmt.Errorf("save title preferences: %w", saveErr))
		}
	}()

	titles := prefs.Enabled()
	if len(titles) == 0 {
		e.log.Warn().Msg("⛔ No job titles enabled, nothing to search")
		report.Reason = "no enabled titles"
		return report, nil
	}

	page := e.cfg.Page
	if p.Auth != nil {
		sc, err := e.cfg.Negotiator.Establish(ctx, page, p.Name, *p.Auth, e.cfg.Credentials)
		if err != nil {
			report.Reason = "session failed"
			e.captureFailure(page, "session")
			return report, err
		}
		page = sc.Page
		report.Session = sc.Method
	} else if p.HomeURL != "" {
		// Anonymous platforms still get a first-party visit before searching.
		if err := page.Navigate(p.HomeURL); err != nil {
			e.log.Warn().Err(err).Msg("⚠️ Could not open home page")
		}
	}

	o := e.cfg.Options
	run := paginate.NewRunState()
	ctl := paginate.New(page, paginate.Options{
		SearchURL:    p.SearchURL(scraper.Query{Titles: titles, Location: o.Location, Recency: o.Recency}),
		CardSelector: p.CardSelector,
		IDAttribute:  p.IDAttribute,
		NextPage:     p.NextPage,
		MaxResults:   o.MaxResults,
		MaxPages:     o.MaxPages,
		MaxScrolls:   o.MaxScrolls,
		ScrollPause:  o.ScrollPause,
		SettleDelay:  o.SettleDelay,
		NextWait:     o.NextWait,
		PageInterval: o.PageInterval,
	}, run, e.cfg.Pacer, e.log)

	e.log.Info().Strs("titles", titles).Str("location", o.Location).Str("recency", string(o.Recency)).Msg("🚀 Starting acquisition")

	capped := false
	for cand := range ctl.Candidates(ctx) {
		if run.Seen.Seen(cand.ID) {
			report.Duplicates++
			continue
		}
		run.Seen.Mark(cand.ID)

		rec, ok := e.acquire(ctx, page, cand, prefs, report)
		if !ok {
			report.Skipped++
			continue
		}

		report.Records = append(report.Records, rec)
		run.Collected++
		e.log.Info().Str("title", rec.Title).Str("company", rec.Company).Str("id", rec.ListingID).Msg("✅ Collected")
		if e.cfg.Sink != nil {
			if err := e.cfg.Sink.Write(ctx, rec); err != nil {
				report.SinkErrors++
				e.log.Warn().Err(err).Str("id", rec.ListingID).Msg("⚠️ Sink rejected record")
			}
		}
		if o.MaxResults > 0 && run.Collected >= o.MaxResults {
			capped = true
			break
		}
	}

	report.Pages = run.Page
	report.Reason = ctl.Reason()
	if capped {
		report.Reason = "max results"
	}
	e.log.Info().
		Int("records", len(report.Records)).
		Int("pages", report.Pages).
		Int("duplicates", report.Duplicates).
		Int("learned", len(report.Learned)).
		Str("reason", report.Reason).
		Msg("🏁 Acquisition finished")

	if err := ctl.Err(); err != nil {
		return report, err
	}
	return report, ctx.Err()
}

// acquire opens one candidate, checks its title and extracts it. ok=false means
// the listing was skipped; the failure never escapes the listing.
func (e *Engine) acquire(ctx context.Context, page browser.Page, cand paginate.Candidate, prefs filter.Preferences, report *Report) (listing.Record, bool) {
	p := e.cfg.Platform
	if p.OpenDetail != nil {
		if err := p.OpenDetail(ctx, page, cand.Card, e.cfg.Pacer); err != nil {
			e.log.Warn().Err(err).Str("id", cand.ID).Msg("⚠️ Could not open listing, skipping")
			return listing.Record{}, false
		}
	}

	l := extract.Listing{ID: cand.ID, Card: cand.Card, Page: page, Source: p.Name}
	title := p.Fields.ReadTitle(l)
	wanted, learned := prefs.IsWanted(title)
	if learned {
		report.Learned = append(report.Learned, title)
		e.log.Info().Str("title", title).Msg("🆕 New title found, added as disabled")
		if err := e.cfg.Preferences.Save(p.Name, prefs); err != nil {
			e.log.Warn().Err(err).Msg("⚠️ Could not save learned title, will retry at run end")
		}
	}
	if !wanted {
		e.log.Debug().Str("title", title).Str("id", cand.ID).Msg("title not wanted")
		return listing.Record{}, false
	}

	rec := p.Fields.Extract(l)
	e.logDegraded(rec)
	return rec, true
}

func (e *Engine) captureFailure(page browser.Page, what string) {
	if e.cfg.Debug == nil {
		return
	}
	path, err := e.cfg.Debug.Capture(page, e.cfg.Platform.Name.Key()+"_"+what)
	if err != nil {
		e.log.Warn().Err(err).Msg("⚠️ Failed to capture screenshot")
		return
	}
	e.log.Info().Str("path", path).Msg("📸 Screenshot saved")
}

func (e *Engine) logDegraded(rec listing.Record) {
	if e.log.GetLevel() > zerolog.DebugLevel || zerolog.GlobalLevel() > zerolog.DebugLevel {
		return
	}
	var missing []string
	for i, v := range rec.Row() {
		if v == listing.Unknown {
			missing = append(missing, listing.Header[i])
		}
	}
	if len(missing) > 0 {
		e.log.Debug().Str("id", rec.ListingID).Strs("unknown", missing).Msg("degraded fields")
	}
}

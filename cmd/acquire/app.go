package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go-job-acquisition/internal/browser"
	"go-job-acquisition/internal/config"
	"go-job-acquisition/internal/database"
	"go-job-acquisition/internal/dedup"
	"go-job-acquisition/internal/engine"
	"go-job-acquisition/internal/filter"
	"go-job-acquisition/internal/listing"
	"go-job-acquisition/internal/logger"
	"go-job-acquisition/internal/publisher"
	"go-job-acquisition/internal/reporter"
	"go-job-acquisition/internal/scraper"
	"go-job-acquisition/internal/session"
	"go-job-acquisition/internal/store"
	"go-job-acquisition/internal/telegram"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type preferenceSeeder interface {
	filter.PreferenceStore
	Seed(p listing.Platform, titles map[string]bool) error
}

// app holds what every command shares: stores, sinks and the notifier.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	prefs    preferenceSeeder
	repo     *database.Repository
	sink     store.Sink
	notifier reporter.Notifier
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, log: logger.For("acquire")}

	if cfg.DatabaseURL != "" {
		repo, err := database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { repo.Close(); return nil })
		if err := repo.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.repo = repo
		a.prefs = repo
		a.log.Info().Msg("🗄️ Using PostgreSQL for listings and title preferences")
	} else {
		a.prefs = store.NewPreferenceFile(cfg.Paths.PreferencesFile)
	}

	sinks, err := a.openSinks(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.sink = store.NewUnique(sinks, dedup.NewHashCache(cfg.Paths.CacheDir, cfg.Paths.CacheTTL))

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		bot, err := telegram.NewBot(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
		a.notifier = bot
		a.log.Info().Msg("🤖 Telegram Bot initialized.")
	} else {
		a.notifier = reporter.LogNotifier{Log: logger.For("summary")}
	}
	return a, nil
}

func (a *app) openSinks(ctx context.Context) (store.Multi, error) {
	var sinks store.Multi
	paths := a.cfg.Paths
	if paths.OutputCSV != "" {
		csvSink, err := store.NewCSVSink(paths.OutputCSV)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, csvSink.Close)
		sinks = append(sinks, csvSink)
	}
	if paths.OutputJSON != "" {
		jsonSink := store.NewJSONSink(paths.OutputJSON)
		a.closers = append(a.closers, jsonSink.Close)
		sinks = append(sinks, jsonSink)
	}
	if a.repo != nil {
		sinks = append(sinks, a.repo)
	}
	if r := a.cfg.Redis; r.Addr != "" {
		pub := publisher.NewRedisPublisher(r.Addr, r.DB, r.StreamPrefix, r.MaxLen)
		if err := pub.Ping(ctx); err != nil {
			a.log.Warn().Err(err).Str("addr", r.Addr).Msg("⚠️ Redis unreachable, stream publishing disabled")
			_ = pub.Close()
		} else {
			a.closers = append(a.closers, pub.Close)
			sinks = append(sinks, pub)
		}
	}
	if len(sinks) == 0 {
		a.log.Warn().Msg("⚠️ No output configured, records are only summarised")
	}
	return sinks, nil
}

// seed adds configured titles the store has never seen.
func (a *app) seed(names []string) error {
	for _, name := range names {
		p, _ := listing.ParsePlatform(name)
		if titles := a.cfg.Platforms[name].Titles; len(titles) > 0 {
			if err := a.prefs.Seed(p, titles); err != nil {
				return fmt.Errorf("seed %s titles: %w", name, err)
			}
		}
	}
	return nil
}

// alert reports a failure that prevented any run from starting, when the notifier supports it.
func (a *app) alert(err error) {
	n, ok := a.notifier.(interface{ SendError(error) error })
	if !ok {
		return
	}
	if serr := n.SendError(err); serr != nil {
		a.log.Warn().Err(serr).Msg("⚠️ Failed to send error alert")
	}
}

// Close releases sinks and connections in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// acquireAll runs every named platform concurrently, each in its own browser profile.
// One platform failing does not stop the others.
func (a *app) acquireAll(ctx context.Context, names []string, resolver session.ChallengeResolver, overrides engine.Options) ([]*engine.Report, error) {
	if err := a.seed(names); err != nil {
		return nil, err
	}

	pm, err := browser.NewPlaywright(a.cfg.Browser.Headless)
	if err != nil {
		a.alert(err)
		return nil, err
	}
	defer pm.Close()

	negotiator := session.NewNegotiator(
		store.NewCookieFiles(a.cfg.Paths.CookiesDir),
		resolver,
		browser.HumanPacer{},
		session.DefaultTimeouts(),
		logger.For("session"),
	)

	var (
		mu      sync.Mutex
		reports []*engine.Report
		errs    []error
	)
	var g errgroup.Group
	for _, name := range names {
		g.Go(func() error {
			report, err := a.acquireOne(ctx, pm, negotiator, name, overrides)
			mu.Lock()
			defer mu.Unlock()
			if report != nil {
				reports = append(reports, report)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return reports, errors.Join(errs...)
}

func (a *app) acquireOne(ctx context.Context, pm *browser.PlaywrightManager, negotiator *session.Negotiator, name string, overrides engine.Options) (*engine.Report, error) {
	pc := a.cfg.Platforms[name]
	platform, err := descriptor(name, pc)
	if err != nil {
		return nil, err
	}
	recency, err := scraper.ParseRecency(pc.Recency)
	if err != nil {
		return nil, err
	}

	sess, err := pm.NewSession(filepath.Join(a.cfg.Browser.ProfilesDir, platform.Name.Key()))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			a.log.Warn().Err(cerr).Str("platform", name).Msg("⚠️ Failed to close browser session")
		}
	}()

	s := a.cfg.Search
	opts := engine.Options{
		Location:     pc.Location,
		Recency:      recency,
		MaxResults:   s.MaxResults,
		MaxPages:     s.MaxPages,
		MaxScrolls:   s.MaxScrolls,
		ScrollPause:  s.ScrollPause,
		SettleDelay:  s.SettleDelay,
		NextWait:     s.NextWait,
		PageInterval: s.PageInterval,
	}
	if overrides.MaxResults > 0 {
		opts.MaxResults = overrides.MaxResults
	}
	if overrides.MaxPages > 0 {
		opts.MaxPages = overrides.MaxPages
	}

	eng := engine.New(engine.Config{
		Platform:    platform,
		Page:        sess.Page,
		Negotiator:  negotiator,
		Credentials: session.Credentials{Username: pc.Email, Password: pc.Password},
		Preferences: a.prefs,
		Sink:        a.sink,
		Options:     opts,
		Debug:       browser.NewScreenshotDebugger(a.cfg.Paths.DebugDir),
	})
	report, runErr := eng.Run(ctx)

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := a.notifier.Notify(notifyCtx, reporter.Summary(report, runErr)); err != nil {
		a.log.Warn().Err(err).Str("platform", name).Msg("⚠️ Failed to send run summary")
	}
	return report, runErr
}

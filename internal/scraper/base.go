// Package scraper describes each job platform to the acquisition engine:
// how to search it, where its cards and fields live, and how to log in.
package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-job-acquisition/internal/browser"
	"go-job-acquisition/internal/extract"
	"go-job-acquisition/internal/listing"
	"go-job-acquisition/internal/session"
)

// Recency limits results to listings posted within a window.
type Recency string

const (
	Past24h   Recency = "past_24h"
	PastWeek  Recency = "past_week"
	PastMonth Recency = "past_month"
	AnyTime   Recency = "any"
)

func ParseRecency(s string) (Recency, error) {
	switch r := Recency(strings.ToLower(strings.TrimSpace(s))); r {
	case Past24h, PastWeek, PastMonth, AnyTime:
		return r, nil
	case "":
		return AnyTime, nil
	}
	return "", fmt.Errorf("unknown recency %q (want past_24h, past_week, past_month or any)", s)
}

// Days is the window length, 0 for AnyTime.
func (r Recency) Days() int {
	switch r {
	case Past24h:
		return 1
	case PastWeek:
		return 7
	case PastMonth:
		return 30
	}
	return 0
}

// Query is what a search URL is built from.
type Query struct {
	Titles   []string
	Location string
	Recency  Recency
}

// Platform is everything the engine needs to acquire listings from one site.
type Platform struct {
	Name listing.Platform
	// Auth is nil for platforms that can be searched anonymously.
	Auth *session.Auth
	// HomeURL is opened when no login is needed.
	HomeURL string

	SearchURL    func(q Query) string
	CardSelector string
	IDAttribute  string
	NextPage     string
	Fields       extract.Fields

	// OpenDetail reveals a card's full listing before extraction. Nil when
	// every field is read from the card itself.
	OpenDetail func(ctx context.Context, page browser.Page, card browser.Element, pacer browser.Pacer) error
}

// ClickToOpen builds an OpenDetail that clicks link inside the card and waits for ready on the page.
func ClickToOpen(link, ready string, settle, timeout time.Duration) func(context.Context, browser.Page, browser.Element, browser.Pacer) error {
	return func(ctx context.Context, page browser.Page, card browser.Element, pacer browser.Pacer) error {
		el, err := card.Query(link)
		if err != nil {
			return err
		}
		if err := el.Click(); err != nil {
			return err
		}
		if err := pacer.Pause(ctx, settle, settle+time.Second); err != nil {
			return err
		}
		_, err = page.WaitForSelector(ready, timeout)
		return err
	}
}

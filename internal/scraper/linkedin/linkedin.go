package linkedin

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"go-job-acquisition/internal/extract"
	"go-job-acquisition/internal/listing"
	"go-job-acquisition/internal/scraper"
	"go-job-acquisition/internal/session"
)

const (
	baseURL   = "https://www.linkedin.com"
	searchURL = baseURL + "/jobs/search/"
)

var recencyParam = map[scraper.Recency]string{
	scraper.Past24h:   "r86400",
	scraper.PastWeek:  "r604800",
	scraper.PastMonth: "r2592000",
}

// Platform returns the LinkedIn descriptor. Listings open in a detail pane
// beside the results list, so most fields are read from the page.
func Platform() scraper.Platform {
	return scraper.Platform{
		Name:         listing.LinkedIn,
		Auth:         auth(),
		HomeURL:      baseURL + "/",
		SearchURL:    SearchURL,
		CardSelector: "li[data-occludable-job-id]",
		IDAttribute:  "data-occludable-job-id",
		NextPage:     "button[aria-label='Page %d']",
		OpenDetail:   scraper.ClickToOpen("a.job-card-container__link", ".jobs-description__container", 2*time.Second, 10*time.Second),
		Fields: extract.Fields{
			Title:   extract.Field{Get: extract.Text(".job-details-jobs-unified-top-card__job-title h1")},
			Company: extract.Field{Get: extract.Text(".job-details-jobs-unified-top-card__company-name")},
			Location: extract.Field{Get: extract.Text(".job-details-jobs-unified-top-card__primary-description-container").
				Map(extract.BeforeSeparator("·"))},
			JobType:     extract.Field{Get: extract.TextAt(".job-details-fit-level-preferences button", 1)},
			Description: extract.Field{Get: extract.Text(".jobs-description__container")},
			Salary: extract.Field{Get: extract.FirstOf(
				extract.Text(".jobs-unified-top-card__salary-info"),
				extract.Text(".salary-compensation__text"),
			)},
			ApplyLink: extract.Field{Get: extract.Attr("a[data-control-name='jobdetails_topcard_inapply']", "href")},

			FooterScope:    extract.FromCard,
			FooterSelector: ".job-card-list__footer-wrapper li",

			EasyApplySelector: ".jobs-apply-button--top-card button",
			EasyApplyMarker:   "Easy Apply",
		},
	}
}

func auth() *session.Auth {
	return &session.Auth{
		LoginURL:      baseURL + "/login",
		HomeURL:       baseURL + "/",
		Authenticated: Authenticated,
		Modal: &session.Modal{
			Marker:     "h2.sign-in-modal__header",
			MarkerText: "Welcome back",
			Form: session.Form{
				Username: "#base-sign-in-modal_session_key",
				Password: "#base-sign-in-modal_session_password",
				Submit:   "button.sign-in-form__submit-btn--full-width",
			},
		},
		Form: &session.Form{
			Username: "#username",
			Password: "#password",
			Submit:   "button[type='submit']",
		},
	}
}

// Authenticated treats the feed and jobs sections as logged-in landing pages.
func Authenticated(u string) bool {
	if strings.Contains(u, "/checkpoint/") || strings.Contains(u, "/login") || strings.Contains(u, "/authwall") {
		return false
	}
	return strings.Contains(u, "feed") || strings.Contains(u, "jobs")
}

// SearchURL ORs every enabled title into one keyword expression.
func SearchURL(q scraper.Query) string {
	u := fmt.Sprintf("%s?keywords=%s&location=%s",
		searchURL,
		url.QueryEscape(strings.Join(q.Titles, " OR ")),
		url.QueryEscape(q.Location),
	)
	if tpr, ok := recencyParam[q.Recency]; ok {
		u += "&f_TPR=" + tpr
	}
	return u
}

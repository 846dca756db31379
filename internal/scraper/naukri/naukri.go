package naukri

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go-job-acquisition/internal/extract"
	"go-job-acquisition/internal/listing"
	"go-job-acquisition/internal/scraper"
	"go-job-acquisition/internal/session"
)

const baseURL = "https://www.naukri.com"

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Platform returns the Naukri descriptor. Every field is read straight from the
// result card; there is no detail pane to open.
func Platform() scraper.Platform {
	return scraper.Platform{
		Name:         listing.Naukri,
		Auth:         auth(),
		HomeURL:      baseURL + "/",
		SearchURL:    SearchURL,
		CardSelector: ".jobTuple, .srp-jobtuple-wrapper",
		IDAttribute:  "data-job-id",
		NextPage:     "a[rel='next']",
		Fields: extract.Fields{
			Title:       card(extract.Text(".title")),
			Company:     card(extract.FirstOf(extract.Text(".companyInfo .subTitle"), extract.Text(".comp-name"))),
			Location:    card(extract.FirstOf(extract.Text(".location"), extract.Text(".locWdth"))),
			Description: card(extract.FirstOf(extract.Text(".job-description"), extract.Text(".job-desc"))),
			Experience:  card(extract.FirstOf(extract.Text(".experience"), extract.Text(".expwdth"))),
			Salary:      card(extract.FirstOf(extract.Text(".salary"), extract.Text(".sal-wrap"))),
			ApplyLink:   card(extract.Attr("a.title", "href").Prefix(baseURL)),
			URL:         card(extract.Attr("a.title", "href").Prefix(baseURL)),

			FooterScope:    extract.FromCard,
			FooterSelector: ".tags li, .tags-gt li",
		},
	}
}

func card(get extract.Optional) extract.Field {
	return extract.Field{Scope: extract.FromCard, Get: get}
}

func auth() *session.Auth {
	return &session.Auth{
		LoginURL:      baseURL + "/nlogin/login",
		HomeURL:       baseURL + "/",
		Authenticated: Authenticated,
		Form: &session.Form{
			Username: "#usernameField",
			Password: "#passwordField",
			Submit:   "button[type='submit']",
		},
	}
}

// Authenticated is any naukri page that is not the login flow.
func Authenticated(u string) bool {
	return strings.Contains(u, "naukri.com") && !strings.Contains(u, "login")
}

// SearchURL concatenates the title slugs into Naukri's "<keywords>-jobs" path.
func SearchURL(q scraper.Query) string {
	var slugs []string
	for _, t := range q.Titles {
		if s := slug(t); s != "" {
			slugs = append(slugs, s)
		}
	}
	path := strings.Join(slugs, "-") + "-jobs"
	if loc := slug(q.Location); loc != "" {
		path += "-in-" + loc
	}

	v := url.Values{}
	v.Set("k", strings.Join(q.Titles, ", "))
	if q.Location != "" {
		v.Set("l", q.Location)
	}
	if d := q.Recency.Days(); d > 0 {
		v.Set("jobAge", fmt.Sprint(d))
	}
	return fmt.Sprintf("%s/%s?%s", baseURL, path, v.Encode())
}

func slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

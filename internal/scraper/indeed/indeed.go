package indeed

import (
	"fmt"
	"net/url"
	"strings"

	"go-job-acquisition/internal/extract"
	"go-job-acquisition/internal/listing"
	"go-job-acquisition/internal/scraper"
)

const baseURL = "https://www.indeed.com"

// Platform returns the Indeed descriptor. Search needs no login.
func Platform() scraper.Platform {
	return PlatformAt(baseURL)
}

// PlatformAt targets a regional Indeed host such as https://in.indeed.com.
func PlatformAt(base string) scraper.Platform {
	base = strings.TrimRight(base, "/")
	link := extract.FirstOf(
		extract.Attr("a.jcs-JobTitle", "href"),
		extract.Attr(".jobtitle", "href"),
	).Prefix(base)

	return scraper.Platform{
		Name:         listing.Indeed,
		HomeURL:      base + "/",
		SearchURL:    func(q scraper.Query) string { return searchURL(base, q) },
		CardSelector: "div.job_seen_beacon[data-jk], .jobsearch-SerpJobCard[data-jk]",
		IDAttribute:  "data-jk",
		NextPage:     "a[data-testid='pagination-page-next']",
		Fields: extract.Fields{
			Title:       card(extract.FirstOf(extract.Text("h2.jobTitle span[title]"), extract.Text(".jobtitle"))),
			Company:     card(extract.FirstOf(extract.Text("[data-testid='company-name']"), extract.Text(".company"))),
			Location:    card(extract.FirstOf(extract.Text("[data-testid='text-location']"), extract.Text(".location"))),
			Description: card(extract.FirstOf(extract.Text(".job-snippet"), extract.Text(".summary"))),
			Salary:      card(extract.FirstOf(extract.Text(".salary-snippet-container"), extract.Text(".salaryText"))),
			JobType:     card(extract.Text("[data-testid='attribute_snippet_testid']")),
			ApplyLink:   card(link),
			URL:         card(link),

			EasyApplyScope:    extract.FromCard,
			EasyApplySelector: ".iaLabel, [data-testid='indeedApply']",
			EasyApplyMarker:   "Easily apply",
		},
	}
}

func card(get extract.Optional) extract.Field {
	return extract.Field{Scope: extract.FromCard, Get: get}
}

// SearchURL builds a q/l/fromage query against the default host.
func SearchURL(q scraper.Query) string {
	return searchURL(baseURL, q)
}

func searchURL(base string, q scraper.Query) string {
	v := url.Values{}
	v.Set("q", strings.Join(q.Titles, " OR "))
	v.Set("l", q.Location)
	if d := q.Recency.Days(); d > 0 {
		v.Set("fromage", fmt.Sprint(d))
	}
	return base + "/jobs?" + v.Encode()
}

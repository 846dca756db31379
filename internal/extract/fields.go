package extract

import (
	"regexp"
	"strconv"
	"strings"

	"go-job-acquisition/internal/browser"
	"go-job-acquisition/internal/listing"
)

var (
	experienceRegex = regexp.MustCompile(`(?i)(\d+)\+?\s*(?:year|yr)s?`)
	leadingIntRegex = regexp.MustCompile(`\d+`)
	salaryRegex     = regexp.MustCompile(`(?i)[₹$€£]\s?\d[\d,.]*(?:\s*(?:per\s+(?:month|year|annum)|/\s?(?:month|year|yr|mo)))?`)
)

// Scope says whether a field is read from the listing card or from the page (detail pane).
type Scope int

const (
	FromPage Scope = iota
	FromCard
)

// Field is one optional extractor bound to its scope. A zero Field is always unknown.
type Field struct {
	Scope Scope
	Get   Optional
}

// Listing is what the extractor works on: one card plus the page it lives in.
type Listing struct {
	ID     string
	Card   browser.Element
	Page   browser.Page
	Source listing.Platform
}

func (l Listing) scope(s Scope) browser.Querier {
	if s == FromCard {
		if l.Card == nil {
			return nil
		}
		return l.Card
	}
	if l.Page == nil {
		return nil
	}
	return l.Page
}

func (l Listing) read(f Field) (string, bool) {
	q := l.scope(f.Scope)
	if f.Get == nil || q == nil {
		return "", false
	}
	return f.Get(q)
}

// Fields is a platform's full set of field extractors.
type Fields struct {
	Title       Field
	Company     Field
	Location    Field
	JobType     Field
	Description Field
	Salary      Field
	Experience  Field
	ApplyLink   Field
	// URL defaults to the page's current URL when unset or unknown.
	URL Field

	FooterScope    Scope
	FooterSelector string

	// EasyApply is Yes when the first EasyApplySelector match contains EasyApplyMarker,
	// No when it exists without the marker, unknown when it cannot be found.
	EasyApplyScope    Scope
	EasyApplySelector string
	EasyApplyMarker   string
}

// ReadTitle reads just the title, used for the relevance check before full extraction.
func (f *Fields) ReadTitle(l Listing) string {
	return orUnknown(l.read(f.Title))
}

// Extract builds a record. It never fails: degraded fields hold listing.Unknown.
func (f *Fields) Extract(l Listing) listing.Record {
	title := orUnknown(l.read(f.Title))
	company := orUnknown(l.read(f.Company))
	description := orUnknown(l.read(f.Description))

	rec := listing.Record{
		Title:       title,
		Company:     company,
		Location:    orUnknown(l.read(f.Location)),
		Footer:      f.footer(l),
		EasyApply:   f.easyApply(l),
		JobType:     orUnknown(l.read(f.JobType)),
		Description: description,
		Source:      l.Source,
		ListingID:   l.ID,
		ContentHash: listing.ContentHash(company, title),
	}

	rec.ExperienceYears = f.experience(l, description)
	rec.Salary = f.salary(l, description)

	// An easy-apply listing has no external link to read.
	rec.ApplyLink = listing.Unknown
	if rec.EasyApply != listing.EasyApplyYes {
		rec.ApplyLink = orUnknown(l.read(f.ApplyLink))
	}

	rec.ListingURL = listing.Unknown
	if u, ok := l.read(f.URL); ok {
		rec.ListingURL = u
	} else if l.Page != nil {
		if cur := l.Page.CurrentURL(); cur != "" {
			rec.ListingURL = cur
		}
	}
	return rec
}

func (f *Fields) footer(l Listing) []string {
	if f.FooterSelector == "" {
		return nil
	}
	q := l.scope(f.FooterScope)
	if q == nil {
		return nil
	}
	tags, _ := Texts(q, f.FooterSelector)
	return tags
}

func (f *Fields) easyApply(l Listing) listing.EasyApply {
	if f.EasyApplySelector == "" {
		return listing.EasyApplyUnknown
	}
	q := l.scope(f.EasyApplyScope)
	if q == nil {
		return listing.EasyApplyUnknown
	}
	el, err := q.Query(f.EasyApplySelector)
	if err != nil {
		return listing.EasyApplyUnknown
	}
	txt, err := el.Text()
	if err != nil {
		return listing.EasyApplyUnknown
	}
	if strings.Contains(strings.ToLower(txt), strings.ToLower(f.EasyApplyMarker)) {
		return listing.EasyApplyYes
	}
	return listing.EasyApplyNo
}

func (f *Fields) experience(l Listing, description string) *int {
	if v, ok := l.read(f.Experience); ok {
		if m := leadingIntRegex.FindString(v); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				return &n
			}
		}
	}
	return ExperienceFromText(description)
}

func (f *Fields) salary(l Listing, description string) string {
	if v, ok := l.read(f.Salary); ok {
		return v
	}
	if s, ok := SalaryFromText(description); ok {
		return s
	}
	return listing.Unknown
}

// ExperienceFromText finds "<n>+ years" style requirements and returns n.
func ExperienceFromText(text string) *int {
	m := experienceRegex.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// SalaryFromText finds a currency-prefixed amount, optionally with its period.
func SalaryFromText(text string) (string, bool) {
	m := salaryRegex.FindString(text)
	m = strings.TrimRight(m, ".,")
	return m, m != ""
}

func orUnknown(v string, ok bool) string {
	if !ok {
		return listing.Unknown
	}
	return v
}

// Package listing holds the record emitted for every acquired job posting.
package listing

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

// Unknown marks a field that was absent or could not be extracted.
const Unknown = "N/A"

type Platform string

const (
	LinkedIn Platform = "LINKEDIN"
	Naukri   Platform = "NAUKRI"
	Indeed   Platform = "INDEED"
)

// ParsePlatform accepts either the enum value or the lower-case config name.
func ParsePlatform(s string) (Platform, bool) {
	switch Platform(strings.ToUpper(strings.TrimSpace(s))) {
	case LinkedIn:
		return LinkedIn, true
	case Naukri:
		return Naukri, true
	case Indeed:
		return Indeed, true
	}
	return "", false
}

// Key is the lower-case name used for cookie files, profiles and preference scopes.
func (p Platform) Key() string {
	return strings.ToLower(string(p))
}

// EasyApply is tri-state: the affordance may be present, absent, or undeterminable.
type EasyApply int

const (
	EasyApplyUnknown EasyApply = iota
	EasyApplyYes
	EasyApplyNo
)

func (e EasyApply) String() string {
	switch e {
	case EasyApplyYes:
		return "Yes"
	case EasyApplyNo:
		return "No"
	}
	return Unknown
}

func (e EasyApply) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *EasyApply) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Yes":
		*e = EasyApplyYes
	case "No":
		*e = EasyApplyNo
	default:
		*e = EasyApplyUnknown
	}
	return nil
}

// Record is one acquired listing. String fields hold Unknown when degraded.
type Record struct {
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Footer      []string  `json:"footer"`
	EasyApply   EasyApply `json:"easy_apply"`
	JobType     string    `json:"job_type"`
	Description string    `json:"description"`
	// ExperienceYears is nil when unknown.
	ExperienceYears *int     `json:"experience_years"`
	Salary          string   `json:"salary"`
	ApplyLink       string   `json:"apply_link"`
	Source          Platform `json:"source"`
	ListingID       string   `json:"listing_id"`
	ListingURL      string   `json:"listing_url"`
	ContentHash     string   `json:"content_hash"`
}

// ContentHash fingerprints a company/title pair for cross-run dedup downstream.
// It is not a security primitive.
func ContentHash(company, title string) string {
	sum := md5.Sum([]byte(company + "-" + title))
	return hex.EncodeToString(sum[:])
}

// Header is the fixed sink column order.
var Header = []string{
	"Job Title", "Company", "Location", "Footer",
	"Easy Apply", "Job Type", "Description",
	"Experience Required", "Salary Mentioned", "Apply Link",
	"Source Platform", "Job ID", "Job URL", "Company-Title Hash",
}

// Row renders the record in Header order. Unknown values render as the sentinel, never as empty cells.
func (r Record) Row() []string {
	return []string{
		r.Title,
		r.Company,
		r.Location,
		r.FooterText(),
		r.EasyApply.String(),
		r.JobType,
		r.Description,
		r.ExperienceText(),
		r.Salary,
		r.ApplyLink,
		string(r.Source),
		r.ListingID,
		r.ListingURL,
		r.ContentHash,
	}
}

func (r Record) FooterText() string {
	if len(r.Footer) == 0 {
		return Unknown
	}
	return strings.Join(r.Footer, " | ")
}

func (r Record) ExperienceText() string {
	if r.ExperienceYears == nil {
		return Unknown
	}
	return strconv.Itoa(*r.ExperienceYears) + " years"
}

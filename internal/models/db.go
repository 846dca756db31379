package models

import (
	"time"

	"go-job-acquisition/internal/listing"
)

// StoredListing is a listings row as read back from PostgreSQL.
type StoredListing struct {
	ID          int64            `json:"id"`
	Source      listing.Platform `json:"source"`
	ListingID   string           `json:"listing_id"`
	ContentHash string           `json:"content_hash"`
	Title       string           `json:"title"`
	Company     string           `json:"company"`
	Location    string           `json:"location"`
	EasyApply   string           `json:"easy_apply"`
	Salary      string           `json:"salary"`
	ApplyLink   string           `json:"apply_link"`
	ListingURL  string           `json:"listing_url"`
	// ExperienceYears is nil when the listing did not state it.
	ExperienceYears *int      `json:"experience_years,omitempty"`
	FirstSeenAt     time.Time `json:"first_seen_at"`
	LastSeenAt      time.Time `json:"last_seen_at"`
}

package filter

import (
	"slices"
	"strings"
	"unicode"

	"go-job-acquisition/internal/listing"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Preferences maps a known title to whether listings containing it are wanted.
// One run owns it exclusively; it is not safe for concurrent use.
type Preferences map[string]bool

// PreferenceStore persists preferences per platform.
type PreferenceStore interface {
	Load(platform listing.Platform) (Preferences, error)
	Save(platform listing.Platform, prefs Preferences) error
}

var folder = cases.Fold()

// normalize folds case and strips diacritics so "Développeur" matches "developpeur".
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return folder.String(strings.TrimSpace(result))
}

// IsWanted reports whether title contains any enabled key. When nothing matches
// and the exact title is not yet known, it is learned as disabled and learned
// is true: the caller should persist the preferences.
func (p Preferences) IsWanted(title string) (wanted, learned bool) {
	t := normalize(title)
	if t == "" || title == listing.Unknown {
		return false, false
	}
	for known, enabled := range p {
		if !enabled {
			continue
		}
		if k := normalize(known); k != "" && strings.Contains(t, k) {
			return true, false
		}
	}
	if _, exists := p[title]; exists {
		return false, false
	}
	p[title] = false
	return false, true
}

// Enabled returns the enabled titles in a stable order.
func (p Preferences) Enabled() []string {
	var out []string
	for title, enabled := range p {
		if enabled {
			out = append(out, title)
		}
	}
	slices.Sort(out)
	return out
}

func (p Preferences) Clone() Preferences {
	out := make(Preferences, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

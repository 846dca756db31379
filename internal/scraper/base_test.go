package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecency(t *testing.T) {
	for in, want := range map[string]Recency{
		"past_24h":    Past24h,
		"PAST_WEEK":   PastWeek,
		" past_month": PastMonth,
		"any":         AnyTime,
		"":            AnyTime,
	} {
		got, err := ParseRecency(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseRecency("yesterday")
	assert.Error(t, err)
}

func TestRecencyDays(t *testing.T) {
	assert.Equal(t, 1, Past24h.Days())
	assert.Equal(t, 7, PastWeek.Days())
	assert.Equal(t, 30, PastMonth.Days())
	assert.Equal(t, 0, AnyTime.Days())
}

package main

import (
	"strings"
	"testing"

	"go-job-acquisition/internal/config"
	"go-job-acquisition/internal/listing"
	"go-job-acquisition/internal/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor(t *testing.T) {
	tests := []struct {
		name     string
		pc       config.PlatformConfig
		want     listing.Platform
		wantAuth bool
		host     string
	}{
		{"linkedin", config.PlatformConfig{}, listing.LinkedIn, true, "linkedin.com"},
		{"naukri", config.PlatformConfig{}, listing.Naukri, true, "naukri.com"},
		{"indeed", config.PlatformConfig{}, listing.Indeed, false, "www.indeed.com"},
		{"indeed", config.PlatformConfig{BaseURL: "https://in.indeed.com"}, listing.Indeed, false, "in.indeed.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name+tt.pc.BaseURL, func(t *testing.T) {
			p, err := descriptor(tt.name, tt.pc)

			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
			assert.Equal(t, tt.wantAuth, p.Auth != nil)
			u := p.SearchURL(scraper.Query{Titles: []string{"Go Developer"}})
			assert.True(t, strings.Contains(u, tt.host), u)
		})
	}

	_, err := descriptor("monster", config.PlatformConfig{})
	assert.Error(t, err)
}

func TestSelectPlatforms(t *testing.T) {
	cfg := &config.Config{Platforms: map[string]config.PlatformConfig{
		"naukri":   {Enabled: true},
		"linkedin": {Enabled: true},
		"indeed":   {Enabled: false},
	}}

	names, err := selectPlatforms(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"linkedin", "naukri"}, names)

	names, err = selectPlatforms(cfg, []string{"INDEED"})
	require.NoError(t, err)
	assert.Equal(t, []string{"indeed"}, names, "explicit selection runs disabled platforms too")

	_, err = selectPlatforms(cfg, []string{"monster"})
	assert.Error(t, err)

	_, err = selectPlatforms(&config.Config{}, nil)
	assert.ErrorContains(t, err, "no platform enabled")
}

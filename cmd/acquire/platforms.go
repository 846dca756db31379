package main

import (
	"fmt"

	"go-job-acquisition/internal/config"
	"go-job-acquisition/internal/listing"
	"go-job-acquisition/internal/scraper"
	"go-job-acquisition/internal/scraper/indeed"
	"go-job-acquisition/internal/scraper/linkedin"
	"go-job-acquisition/internal/scraper/naukri"
)

// descriptor returns the platform named in config, honouring per-platform overrides.
func descriptor(name string, pc config.PlatformConfig) (scraper.Platform, error) {
	p, _ := listing.ParsePlatform(name)
	switch p {
	case listing.LinkedIn:
		return linkedin.Platform(), nil
	case listing.Naukri:
		return naukri.Platform(), nil
	case listing.Indeed:
		if pc.BaseURL != "" {
			return indeed.PlatformAt(pc.BaseURL), nil
		}
		return indeed.Platform(), nil
	}
	return scraper.Platform{}, fmt.Errorf("unknown platform %q", name)
}

// selectPlatforms resolves --platform flags against config. No flags means every enabled platform.
func selectPlatforms(cfg *config.Config, requested []string) ([]string, error) {
	if len(requested) == 0 {
		names := cfg.Enabled()
		if len(names) == 0 {
			return nil, fmt.Errorf("no platform enabled in config")
		}
		return names, nil
	}
	var out []string
	for _, r := range requested {
		p, ok := listing.ParsePlatform(r)
		if !ok {
			return nil, fmt.Errorf("unknown platform %q", r)
		}
		if _, ok := cfg.Platforms[p.Key()]; !ok {
			return nil, fmt.Errorf("platform %q is not configured", r)
		}
		out = append(out, p.Key())
	}
	return out, nil
}

// Package server exposes the operator HTTP API: title preferences, pending
// challenges and recently stored listings.
package server

import (
	"context"
	"net/http"
	"strconv"

	"go-job-acquisition/internal/filter"
	"go-job-acquisition/internal/listing"
	"go-job-acquisition/internal/models"
	"go-job-acquisition/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ListingReader is the read side of the listing database.
type ListingReader interface {
	Recent(ctx context.Context, platform listing.Platform, limit int) ([]models.StoredListing, error)
}

type Server struct {
	prefs      filter.PreferenceStore
	challenges *session.SignalResolver
	listings   ListingReader
	log        zerolog.Logger
}

// New builds the API. listings may be nil when no database is configured.
func New(prefs filter.PreferenceStore, challenges *session.SignalResolver, listings ListingReader, log zerolog.Logger) *Server {
	return &Server{prefs: prefs, challenges: challenges, listings: listings, log: log}
}

type updatePreferencesRequest struct {
	Titles map[string]bool `json:"titles" binding:"required,min=1,dive,keys,required,endkeys"`
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Job acquisition API is running!",
			"status":  "healthy",
		})
	})

	r.GET("/preferences/:platform", s.getPreferences)
	r.PUT("/preferences/:platform", s.putPreferences)
	r.GET("/challenges", s.listChallenges)
	r.POST("/challenges/:platform/resolve", s.resolveChallenge)
	r.GET("/listings/:platform", s.recentListings)
	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Msg("request")
	}
}

func platformParam(c *gin.Context) (listing.Platform, bool) {
	p, ok := listing.ParsePlatform(c.Param("platform"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown platform " + c.Param("platform")})
	}
	return p, ok
}

func (s *Server) getPreferences(c *gin.Context) {
	p, ok := platformParam(c)
	if !ok {
		return
	}
	prefs, err := s.prefs.Load(p)
	if err != nil {
		s.log.Error().Err(err).Msg("❌ Failed to load preferences")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"platform": p,
		"titles":   prefs,
		"enabled":  prefs.Enabled(),
	})
}

// putPreferences merges the given flags into the stored preferences.
func (s *Server) putPreferences(c *gin.Context) {
	p, ok := platformParam(c)
	if !ok {
		return
	}
	var req updatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	prefs, err := s.prefs.Load(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if prefs == nil {
		prefs = filter.Preferences{}
	}
	for title, enabled := range req.Titles {
		prefs[title] = enabled
	}
	if err := s.prefs.Save(p, prefs); err != nil {
		s.log.Error().Err(err).Msg("❌ Failed to save preferences")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.log.Info().Str("platform", string(p)).Int("updated", len(req.Titles)).Msg("📝 Title preferences updated")
	c.JSON(http.StatusOK, gin.H{"platform": p, "titles": prefs, "enabled": prefs.Enabled()})
}

func (s *Server) listChallenges(c *gin.Context) {
	pending := map[listing.Platform]string{}
	if s.challenges != nil {
		pending = s.challenges.Pending()
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

func (s *Server) resolveChallenge(c *gin.Context) {
	p, ok := platformParam(c)
	if !ok {
		return
	}
	if s.challenges == nil || !s.challenges.Resolve(p) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no challenge pending for " + string(p)})
		return
	}
	s.log.Info().Str("platform", string(p)).Msg("✅ Challenge marked resolved by operator")
	c.JSON(http.StatusOK, gin.H{"platform": p, "resolved": true})
}

func (s *Server) recentListings(c *gin.Context) {
	p, ok := platformParam(c)
	if !ok {
		return
	}
	if s.listings == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "no listing database configured"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return
	}
	rows, err := s.listings.Recent(c.Request.Context(), p, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("❌ Failed to read listings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []models.StoredListing{}
	}
	c.JSON(http.StatusOK, gin.H{"platform": p, "listings": rows})
}

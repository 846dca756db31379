package database

import (
	"context"
	"os"
	"testing"
	"time"

	"go-job-acquisition/internal/filter"
	"go-job-acquisition/internal/listing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connect skips unless TEST_DATABASE_URL points at a disposable database.
func connect(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo, err := ConnectDB(ctx, url)
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(ctx))
	t.Cleanup(func() {
		_, _ = repo.db.Exec(context.Background(), "DELETE FROM listings WHERE listing_id LIKE 'test-%'")
		_, _ = repo.db.Exec(context.Background(), "DELETE FROM title_preferences WHERE platform = 'indeed'")
		repo.Close()
	})
	return repo
}

func TestRepository_UpsertListing(t *testing.T) {
	repo := connect(t)
	ctx := context.Background()
	rec := listing.Record{
		Title: "Go Developer", Company: "Acme", Location: "Pune", JobType: listing.Unknown,
		Description: "N/A", Salary: listing.Unknown, ApplyLink: listing.Unknown,
		Source: listing.Indeed, ListingID: "test-1", ListingURL: "https://www.indeed.com/viewjob?jk=1",
		ContentHash: listing.ContentHash("Acme", "Go Developer"),
	}

	require.NoError(t, repo.Write(ctx, rec))
	rec.Location = "Remote"
	require.NoError(t, repo.Write(ctx, rec))

	got, err := repo.Recent(ctx, listing.Indeed, 50)
	require.NoError(t, err)
	var matches int
	for _, l := range got {
		if l.ListingID == "test-1" {
			matches++
			assert.Equal(t, "Remote", l.Location)
			assert.Nil(t, l.ExperienceYears)
		}
	}
	assert.Equal(t, 1, matches)
}

func TestRepository_Preferences(t *testing.T) {
	repo := connect(t)

	require.NoError(t, repo.Save(listing.Indeed, filter.Preferences{"Go": true, "Sales": false}))
	require.NoError(t, repo.Seed(listing.Indeed, map[string]bool{"Go": false, "SRE": true}))

	got, err := repo.Load(listing.Indeed)
	require.NoError(t, err)
	assert.Equal(t, filter.Preferences{"Go": true, "Sales": false, "SRE": true}, got)
}

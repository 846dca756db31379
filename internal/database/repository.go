package database

import (
	"context"
	"fmt"
	"time"

	"go-job-acquisition/internal/filter"
	"go-job-acquisition/internal/listing"
	"go-job-acquisition/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS listings (
	id               BIGSERIAL PRIMARY KEY,
	source           TEXT NOT NULL,
	listing_id       TEXT NOT NULL,
	content_hash     TEXT NOT NULL,
	title            TEXT NOT NULL,
	company          TEXT NOT NULL,
	location         TEXT NOT NULL,
	footer           TEXT[] NOT NULL DEFAULT '{}',
	easy_apply       TEXT NOT NULL,
	job_type         TEXT NOT NULL,
	description      TEXT NOT NULL,
	experience_years INT,
	salary           TEXT NOT NULL,
	apply_link       TEXT NOT NULL,
	listing_url      TEXT NOT NULL,
	first_seen_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_seen_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source, listing_id)
);
CREATE INDEX IF NOT EXISTS listings_content_hash_idx ON listings (content_hash);

CREATE TABLE IF NOT EXISTS title_preferences (
	platform TEXT NOT NULL,
	title    TEXT NOT NULL,
	enabled  BOOLEAN NOT NULL,
	PRIMARY KEY (platform, title)
);`

// storeTimeout bounds preference calls, whose interface carries no context.
const storeTimeout = 10 * time.Second

type Repository struct {
	db *pgxpool.Pool
}

func ConnectDB(ctx context.Context, connString string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	// Poolers in transaction mode do not support prepared statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &Repository{db: pool}, nil
}

func (r *Repository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// Migrate creates the tables when they do not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ---------------- LISTING OPERATIONS ----------------

// Write upserts a listing on (source, listing_id), refreshing its content and last_seen_at.
func (r *Repository) Write(ctx context.Context, rec listing.Record) error {
	query := `
		INSERT INTO listings (source, listing_id, content_hash, title, company, location, footer,
			easy_apply, job_type, description, experience_years, salary, apply_link, listing_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (source, listing_id)
		DO UPDATE SET content_hash = EXCLUDED.content_hash, title = EXCLUDED.title, company = EXCLUDED.company,
			location = EXCLUDED.location, footer = EXCLUDED.footer, easy_apply = EXCLUDED.easy_apply,
			job_type = EXCLUDED.job_type, description = EXCLUDED.description,
			experience_years = EXCLUDED.experience_years, salary = EXCLUDED.salary,
			apply_link = EXCLUDED.apply_link, listing_url = EXCLUDED.listing_url, last_seen_at = now()`

	footer := rec.Footer
	if footer == nil {
		footer = []string{}
	}
	_, err := r.db.Exec(ctx, query,
		string(rec.Source), rec.ListingID, rec.ContentHash, rec.Title, rec.Company, rec.Location, footer,
		rec.EasyApply.String(), rec.JobType, rec.Description, rec.ExperienceYears, rec.Salary, rec.ApplyLink, rec.ListingURL,
	)
	if err != nil {
		return fmt.Errorf("failed to save listing %s/%s: %w", rec.Source, rec.ListingID, err)
	}
	return nil
}

// Recent returns the newest listings of a platform, most recently seen first.
func (r *Repository) Recent(ctx context.Context, platform listing.Platform, limit int) ([]models.StoredListing, error) {
	query := `
		SELECT id, source, listing_id, content_hash, title, company, location, easy_apply, salary,
			apply_link, listing_url, experience_years, first_seen_at, last_seen_at
		FROM listings WHERE source = $1 ORDER BY last_seen_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, string(platform), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var out []models.StoredListing
	for rows.Next() {
		var l models.StoredListing
		if err := rows.Scan(&l.ID, &l.Source, &l.ListingID, &l.ContentHash, &l.Title, &l.Company, &l.Location,
			&l.EasyApply, &l.Salary, &l.ApplyLink, &l.ListingURL, &l.ExperienceYears, &l.FirstSeenAt, &l.LastSeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ---------------- PREFERENCE OPERATIONS ----------------

func (r *Repository) Load(platform listing.Platform) (filter.Preferences, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, "SELECT title, enabled FROM title_preferences WHERE platform = $1", platform.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to load title preferences: %w", err)
	}
	defer rows.Close()

	prefs := filter.Preferences{}
	for rows.Next() {
		var title string
		var enabled bool
		if err := rows.Scan(&title, &enabled); err != nil {
			return nil, fmt.Errorf("failed to scan title preference: %w", err)
		}
		prefs[title] = enabled
	}
	return prefs, rows.Err()
}

// Save replaces the platform's preferences in one transaction.
func (r *Repository) Save(platform listing.Platform, prefs filter.Preferences) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue("DELETE FROM title_preferences WHERE platform = $1", platform.Key())
	for title, enabled := range prefs {
		batch.Queue("INSERT INTO title_preferences (platform, title, enabled) VALUES ($1, $2, $3)", platform.Key(), title, enabled)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save title preferences: %w", err)
	}
	return tx.Commit(ctx)
}

// Seed inserts configured titles without touching ones already stored.
func (r *Repository) Seed(platform listing.Platform, titles map[string]bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	batch := &pgx.Batch{}
	for title, enabled := range titles {
		batch.Queue(`INSERT INTO title_preferences (platform, title, enabled) VALUES ($1, $2, $3)
			ON CONFLICT (platform, title) DO NOTHING`, platform.Key(), title, enabled)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed title preferences: %w", err)
	}
	return nil
}

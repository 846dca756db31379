package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"go-job-acquisition/internal/dedup"
	"go-job-acquisition/internal/listing"
	"go-job-acquisition/internal/logger"

	"github.com/rs/zerolog"
)

// CSVSink appends rows in listing.Header order, writing the header once for a new file.
type CSVSink struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open csv sink: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	s := &CSVSink{f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := s.w.Write(listing.Header); err != nil {
			f.Close()
			return nil, err
		}
		s.w.Flush()
	}
	return s, nil
}

func (s *CSVSink) Write(_ context.Context, rec listing.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Write(rec.Row()); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	return errors.Join(s.w.Error(), s.f.Close())
}

// JSONSink collects records and writes them as one JSON array on Close.
type JSONSink struct {
	mu   sync.Mutex
	path string
	recs []listing.Record
}

func NewJSONSink(path string) *JSONSink {
	return &JSONSink{path: path}
}

func (s *JSONSink) Write(_ context.Context, rec listing.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func (s *JSONSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.recs
	if recs == nil {
		recs = []listing.Record{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(s.path, data, 0644)
}

// Sink is the write side shared by every destination.
type Sink interface {
	Write(ctx context.Context, rec listing.Record) error
}

// WriteError is returned by Multi when at least one sink rejected a record.
type WriteError struct {
	// Accepted counts the sinks that took the record anyway.
	Accepted int
	Errs     []error
}

func (e *WriteError) Error() string {
	return errors.Join(e.Errs...).Error()
}

func (e *WriteError) Unwrap() []error {
	return e.Errs
}

// Multi fans each record out to every sink and reports all failures.
type Multi []Sink

func (m Multi) Write(ctx context.Context, rec listing.Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &WriteError{Accepted: len(m) - len(errs), Errs: errs}
}

// Unique drops records whose content hash an earlier run already wrote.
// Within a run the engine dedups by listing id, so two ids sharing company and
// title (one role in two cities) both get through; this catches reposts across runs.
type Unique struct {
	next  Sink
	cache *dedup.HashCache
	log   zerolog.Logger
}

func NewUnique(next Sink, cache *dedup.HashCache) *Unique {
	return &Unique{next: next, cache: cache, log: logger.For("store")}
}

// Write remembers the hash once any sink has taken the record, so a partial
// failure is not replayed to the sinks that succeeded.
func (u *Unique) Write(ctx context.Context, rec listing.Record) error {
	if u.cache.SeenInEarlierRun(rec.ContentHash) {
		u.log.Debug().Str("company", rec.Company).Str("title", rec.Title).Msg("already written by an earlier run")
		return nil
	}
	err := u.next.Write(ctx, rec)
	var partial *WriteError
	if err != nil && !(errors.As(err, &partial) && partial.Accepted > 0) {
		return err
	}
	return errors.Join(err, u.cache.Add(rec.ContentHash))
}

// Package stats keeps cumulative per-subject statistics and renders them.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/verte-zerg/vistrain/internal/model"
)

// StatsKey names the durable entry holding the whole statistics mapping.
const StatsKey = "visualizationStats"

var (
	// ErrPersistence reports a durable read or write failure.
	ErrPersistence = errors.New("persistence error")
	// ErrInvalidSubject is returned by Update for an empty subject.
	ErrInvalidSubject = errors.New("invalid subject")
)

// Backend is the durable key-value store behind Store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Store maps subjects to cumulative statistics and persists on every update.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	subjects []model.Subject
	records  map[model.Subject]model.StatsRecord
}

// NewStore returns a Store for the known subjects. Call Load before use.
func NewStore(backend Backend, subjects []model.Subject) *Store {
	known := make([]model.Subject, len(subjects))
	copy(known, subjects)
	return &Store{
		backend:  backend,
		subjects: known,
		records:  zeroRecords(known),
	}
}

// Load reads the durable mapping. A missing entry yields zero records for every
// known subject. On failure the zero mapping is kept and an ErrPersistence error is
// returned so the caller can log it and carry on.
func (s *Store) Load(ctx context.Context) (map[model.Subject]model.StatsRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := zeroRecords(s.subjects)
	payload, ok, err := s.backend.Get(ctx, StatsKey)
	if err != nil {
		s.records = records
		return cloneRecords(records), fmt.Errorf("%w: read stats: %w", ErrPersistence, err)
	}
	if ok && len(payload) > 0 {
		stored := map[model.Subject]model.StatsRecord{}
		if err := json.Unmarshal(payload, &stored); err != nil {
			s.records = records
			return cloneRecords(records), fmt.Errorf("%w: decode stats: %w", ErrPersistence, err)
		}
		for subject, rec := range stored {
			records[subject] = rec
		}
	}
	s.records = records
	return cloneRecords(records), nil
}

// Update folds one finished session into the subject's record and persists the whole
// mapping. The in-memory mapping only changes after the write succeeds.
func (s *Store) Update(ctx context.Context, subject model.Subject, durationMinutes, bestStreakSeconds int) (model.StatsRecord, error) {
	if subject == "" {
		return model.StatsRecord{}, fmt.Errorf("%w: subject is empty", ErrInvalidSubject)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneRecords(s.records)
	rec := next[subject].Merge(durationMinutes, bestStreakSeconds)
	next[subject] = rec
	if err := s.persist(ctx, next); err != nil {
		return s.records[subject], err
	}
	s.records = next
	return rec, nil
}

// Save persists the current mapping.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx, s.records)
}

// Record returns the subject's record; unknown subjects yield a zero record.
func (s *Store) Record(subject model.Subject) model.StatsRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[subject]
}

// Records returns a copy of the whole mapping.
func (s *Store) Records() map[model.Subject]model.StatsRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.records)
}

// Subjects returns the known subjects followed by any extra subjects found in storage.
func (s *Store) Subjects() []model.Subject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return orderedSubjects(s.subjects, s.records)
}

func (s *Store) persist(ctx context.Context, records map[model.Subject]model.StatsRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: encode stats: %w", ErrPersistence, err)
	}
	if err := s.backend.Put(ctx, StatsKey, payload); err != nil {
		return fmt.Errorf("%w: write stats: %w", ErrPersistence, err)
	}
	return nil
}

func zeroRecords(subjects []model.Subject) map[model.Subject]model.StatsRecord {
	records := make(map[model.Subject]model.StatsRecord, len(subjects))
	for _, subject := range subjects {
		records[subject] = model.StatsRecord{}
	}
	return records
}

func cloneRecords(records map[model.Subject]model.StatsRecord) map[model.Subject]model.StatsRecord {
	out := make(map[model.Subject]model.StatsRecord, len(records))
	for subject, rec := range records {
		out[subject] = rec
	}
	return out
}

func orderedSubjects(known []model.Subject, records map[model.Subject]model.StatsRecord) []model.Subject {
	out := make([]model.Subject, 0, len(records))
	seen := make(map[model.Subject]struct{}, len(known))
	for _, subject := range known {
		if _, ok := seen[subject]; ok {
			continue
		}
		seen[subject] = struct{}{}
		out = append(out, subject)
	}
	var extra []model.Subject
	for subject := range records {
		if _, ok := seen[subject]; !ok {
			extra = append(extra, subject)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

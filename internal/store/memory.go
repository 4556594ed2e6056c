package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ppiankov/tenscan/internal/model"
)

// MemoryStore keeps tables in process; used for dry runs and tests
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[Table]*memTable
	now    func() time.Time
}

type memTable struct {
	records []model.Record // insertion order
	links   map[string]int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[Table]*memTable),
		now:    time.Now,
	}
}

// Insert adds a record
func (s *MemoryStore) Insert(ctx context.Context, table Table, rec model.Record) error {
	return s.InsertAll(ctx, rec, table)
}

// InsertAll adds rec to every table under one lock
func (s *MemoryStore) InsertAll(ctx context.Context, rec model.Record, tables ...Table) error {
	for _, table := range tables {
		if err := table.Validate(); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range tables {
		if t, ok := s.tables[table]; ok {
			if _, exists := t.links[rec.Link]; exists {
				return fmt.Errorf("%w: %s in %s", ErrDuplicateLink, rec.Link, table)
			}
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	for _, table := range tables {
		t, ok := s.tables[table]
		if !ok {
			t = &memTable{links: make(map[string]int)}
			s.tables[table] = t
		}
		t.links[rec.Link] = len(t.records)
		t.records = append(t.records, rec)
	}
	return nil
}

// ExistsByLink reports whether link is stored in table
func (s *MemoryStore) ExistsByLink(ctx context.Context, table Table, link string) (bool, error) {
	if err := table.Validate(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return false, nil
	}
	_, exists := t.links[link]
	return exists, nil
}

// RecentTitles returns recent titles, newest first
func (s *MemoryStore) RecentTitles(ctx context.Context, table Table, window time.Duration, limit int) ([]model.Ref, error) {
	return s.recentRefs(table, window, limit)
}

// RecentHashes returns recent content hashes, newest first
func (s *MemoryStore) RecentHashes(ctx context.Context, table Table, window time.Duration, limit int) ([]model.Ref, error) {
	return s.recentRefs(table, window, limit)
}

func (s *MemoryStore) recentRefs(table Table, window time.Duration, limit int) ([]model.Ref, error) {
	records, err := s.recent(table, s.now().Add(-window), limit)
	if err != nil {
		return nil, err
	}
	refs := make([]model.Ref, len(records))
	for i, rec := range records {
		refs[i] = model.Ref{Link: rec.Link, Title: rec.Title, Hash: rec.ContentHash}
	}
	return refs, nil
}

// Count returns the number of matching records
func (s *MemoryStore) Count(ctx context.Context, filter Filter) (int, error) {
	records, err := s.recent(filter.Table, filter.Since, 0)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Recent returns full records, newest first
func (s *MemoryStore) Recent(ctx context.Context, table Table, since time.Time, limit int) ([]model.Record, error) {
	return s.recent(table, since, limit)
}

func (s *MemoryStore) recent(table Table, since time.Time, limit int) ([]model.Record, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return nil, nil
	}

	var out []model.Record
	for _, rec := range t.records {
		if !since.IsZero() && rec.CreatedAt.Before(since) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateScores rewrites a record's scores
func (s *MemoryStore) UpdateScores(ctx context.Context, table Table, id string, scores model.Scores) error {
	if err := table.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tables[table]; ok {
		for i := range t.records {
			if t.records[i].ID == id {
				t.records[i].Tension = scores.Tension
				t.records[i].Spike = scores.Spike
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s in %s", ErrNotFound, id, table)
}

// Tables lists the tables holding records
func (s *MemoryStore) Tables() []Table {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tables := make([]Table, 0, len(s.tables))
	for t := range s.tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].String() < tables[j].String()
	})
	return tables
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

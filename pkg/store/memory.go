package store

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/matzehuels/skillindex/pkg/skill"
)

// MemoryStore keeps records in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]skill.Record
	audit   []skill.AuditEntry
	writes  int
	fail    map[string]error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]skill.Record),
		fail:    make(map[string]error),
	}
}

func (s *MemoryStore) Lookup(ctx context.Context, urls []string) (map[string]skill.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]skill.Record)
	for _, u := range urls {
		if rec, ok := s.records[u]; ok {
			out[u] = clone(rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, rec skill.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.RepoURL == "" {
		return errors.New("record has no repo_url")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail[rec.RepoURL]; err != nil {
		return err
	}
	s.records[rec.RepoURL] = clone(rec)
	s.writes++
	return nil
}

func (s *MemoryStore) AppendAudit(ctx context.Context, e skill.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	s.writes++
	return nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// FailOn makes every later Upsert of url return err. A nil err clears it.
func (s *MemoryStore) FailOn(url string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, url)
		return
	}
	s.fail[url] = err
}

// Records returns a copy of every stored record.
func (s *MemoryStore) Records() map[string]skill.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]skill.Record, len(s.records))
	for k, v := range s.records {
		out[k] = clone(v)
	}
	return out
}

// Audit returns the audit entries in insertion order.
func (s *MemoryStore) Audit() []skill.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.audit)
}

// Writes counts successful Upsert and AppendAudit calls.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func clone(r skill.Record) skill.Record {
	r.Tags = slices.Clone(r.Tags)
	r.Categories = slices.Clone(r.Categories)
	return r
}

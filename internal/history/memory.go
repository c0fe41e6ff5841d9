package history

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore 进程内存储，进程退出即丢失
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Save(ctx context.Context, rec *Record) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	prepare(rec)

	cp := *rec
	cp.ID = uuid.NewString()

	s.mu.Lock()
	s.records[cp.ID] = &cp
	s.mu.Unlock()

	rec.ID = cp.ID
	return cp.ID, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Record, error) {
	s.mu.RLock()
	out := make([]*Record, 0)
	for _, r := range s.records {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit = normalizeLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

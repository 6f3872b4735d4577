package challenges

import (
	"context"
	"sync"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/common"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
)

// MemoryStore keeps challenges in process memory. It does not survive a
// restart and is not shared between instances.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]models.Challenge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]models.Challenge)}
}

func (s *MemoryStore) Create(_ context.Context, c *models.Challenge, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.items[c.Email]; ok && !cur.Expired(now) {
		return common.ErrChallengeActive
	}

	s.items[c.Email] = *c
	return nil
}

func (s *MemoryStore) Get(_ context.Context, email string) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.items[email]
	if !ok {
		return nil, common.ErrChallengeNotFound
	}
	return &c, nil
}

func (s *MemoryStore) Update(_ context.Context, email string, fn MutateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.items[email]
	if !ok {
		return common.ErrChallengeNotFound
	}

	keep, err := fn(&c)
	if keep {
		s.items[email] = c
	} else {
		delete(s.items, email)
	}
	return err
}

func (s *MemoryStore) Purge(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for email, c := range s.items {
		if c.Expired(now) {
			delete(s.items, email)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }

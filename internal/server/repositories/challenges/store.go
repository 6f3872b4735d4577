// Package challenges stores live OTP challenges, at most one per email.
//
// Every backend makes Create and Update atomic per email, so the challenge
// state machine built on top of it stays linearizable when several server
// instances share one store.
package challenges

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/common"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
)

// Backend names accepted by the challenge-store setting.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBolt   = "bbolt"
)

// MutateFunc inspects and may modify a stored challenge. Returning keep=false
// deletes the challenge; otherwise the modified value is written back. The
// returned error is passed through to the caller of Update after the write.
type MutateFunc func(c *models.Challenge) (keep bool, err error)

type Store interface {
	// Create stores c unless a challenge that has not expired at now exists
	// for the same email, in which case it fails with common.ErrChallengeActive.
	// An expired challenge is replaced.
	Create(ctx context.Context, c *models.Challenge, now time.Time) error
	// Get returns the stored challenge or common.ErrChallengeNotFound.
	Get(ctx context.Context, email string) (*models.Challenge, error)
	// Update runs fn against the stored challenge atomically. It fails with
	// common.ErrChallengeNotFound without calling fn if none is stored.
	Update(ctx context.Context, email string, fn MutateFunc) error
	// Purge deletes challenges expired at now and reports how many were removed.
	Purge(ctx context.Context, now time.Time) (int, error)
	Close() error
}

func encode(c *models.Challenge) ([]byte, error) {
	return json.Marshal(c)
}

func decode(data []byte) (*models.Challenge, error) {
	var c models.Challenge
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrChallengeMalformed, err)
	}
	return &c, nil
}

// Open builds the configured backend.
func Open(ctx context.Context, backend, redisURL, boltPath string) (Store, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendRedis:
		if redisURL == "" {
			return nil, fmt.Errorf("challenge store %q needs a redis url", backend)
		}
		return NewRedisStore(ctx, redisURL)
	case BackendBolt:
		if boltPath == "" {
			return nil, fmt.Errorf("challenge store %q needs a file path", backend)
		}
		return NewBoltStore(boltPath)
	default:
		return nil, fmt.Errorf("unsupported challenge store %q", backend)
	}
}

package challenges

import (
	"context"
	"fmt"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/common"
	"github.com/okhaimie-dev/PallyApp/internal/filex"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
	"go.etcd.io/bbolt"
)

var challengeBucket = []byte("challenges")

// BoltStore keeps challenges in a single bbolt file, one JSON value per
// email in one bucket. bbolt takes an exclusive file lock, so the file
// cannot be shared between processes; use the redis backend for that.
type BoltStore struct {
	bdb *bbolt.DB
}

// NewBoltStore opens (or creates) the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := filex.EnsureParentDir(path); err != nil {
		return nil, err
	}

	bdb, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("can't open bbolt database %s: %w", path, err)
	}

	if err := bdb.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(challengeBucket)
		return err
	}); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("can't create bucket: %w", err)
	}

	return &BoltStore{bdb: bdb}, nil
}

func (s *BoltStore) Create(_ context.Context, c *models.Challenge, now time.Time) error {
	data, err := encode(c)
	if err != nil {
		return err
	}

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(challengeBucket)

		if raw := b.Get([]byte(c.Email)); raw != nil {
			cur, err := decode(raw)
			if err == nil && !cur.Expired(now) {
				return common.ErrChallengeActive
			}
		}

		return b.Put([]byte(c.Email), data)
	})
}

func (s *BoltStore) Get(_ context.Context, email string) (*models.Challenge, error) {
	var c *models.Challenge

	err := s.bdb.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(challengeBucket).Get([]byte(email))
		if raw == nil {
			return common.ErrChallengeNotFound
		}

		var err error
		c, err = decode(raw)
		return err
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (s *BoltStore) Update(_ context.Context, email string, fn MutateFunc) error {
	var fnErr error

	err := s.bdb.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(challengeBucket)

		raw := b.Get([]byte(email))
		if raw == nil {
			return common.ErrChallengeNotFound
		}

		c, err := decode(raw)
		if err != nil {
			// unreadable records are dropped so the email is not stuck
			_ = b.Delete([]byte(email))
			fnErr = err
			return nil
		}

		keep, ferr := fn(c)
		fnErr = ferr

		if !keep {
			return b.Delete([]byte(email))
		}

		data, err := encode(c)
		if err != nil {
			return err
		}
		return b.Put([]byte(email), data)
	})
	if err != nil {
		return err
	}

	return fnErr
}

func (s *BoltStore) Purge(_ context.Context, now time.Time) (int, error) {
	n := 0

	err := s.bdb.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(challengeBucket)

		var expired [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			c, err := decode(v)
			if err != nil || c.Expired(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}

		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = len(expired)
		return nil
	})

	return n, err
}

func (s *BoltStore) Close() error {
	return s.bdb.Close()
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("key not found")
	ErrVersionConflict = errors.New("version conflict")
)

// ProgressStore is a versioned string key/value table. Every successful Put
// bumps the version by one; a Put made with a stale version is rejected.
type ProgressStore struct {
	queue *DBQueue
}

func NewProgressStore(queue *DBQueue) *ProgressStore {
	return &ProgressStore{queue: queue}
}

func (s *ProgressStore) Get(key string) (string, int64, error) {
	type entry struct {
		value   string
		version int64
	}
	result, err := s.queue.Execute(func(db *sql.DB) (interface{}, error) {
		var e entry
		err := db.QueryRow(`SELECT value, version FROM progress_store WHERE key = ?`, key).Scan(&e.value, &e.version)
		return e, err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, ErrNotFound
		}
		return "", 0, err
	}
	e := result.(entry)
	return e.value, e.version, nil
}

// Put writes value under key if the stored version equals expectedVersion.
// expectedVersion 0 means the key must not exist yet.
func (s *ProgressStore) Put(key, value string, expectedVersion int64, updatedAt time.Time) (int64, error) {
	_, err := s.queue.Execute(func(db *sql.DB) (interface{}, error) {
		var res sql.Result
		var err error
		if expectedVersion == 0 {
			res, err = db.Exec(`
				INSERT INTO progress_store (key, value, version, updated_at)
				VALUES (?, ?, 1, ?)
				ON CONFLICT(key) DO NOTHING
			`, key, value, updatedAt.UnixMilli())
		} else {
			res, err = db.Exec(`
				UPDATE progress_store SET value = ?, version = version + 1, updated_at = ?
				WHERE key = ? AND version = ?
			`, value, updatedAt.UnixMilli(), key, expectedVersion)
		}
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrVersionConflict
		}
		return nil, nil
	})
	if err != nil {
		return 0, err
	}
	return expectedVersion + 1, nil
}

// DeleteOlderThan removes keys starting with prefix whose last write is before cutoff.
func (s *ProgressStore) DeleteOlderThan(ctx context.Context, prefix string, cutoff time.Time) (int, error) {
	result, err := s.queue.ExecuteContext(ctx, func(db *sql.DB) (interface{}, error) {
		res, err := db.Exec(`
			DELETE FROM progress_store
			WHERE substr(key, 1, ?) = ? AND updated_at < ?
		`, len(prefix), prefix, cutoff.UnixMilli())
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		return int(n), err
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

func (s *ProgressStore) Count(prefix string) (int, error) {
	result, err := s.queue.Execute(func(db *sql.DB) (interface{}, error) {
		var count int
		err := db.QueryRow(`
			SELECT COUNT(*) FROM progress_store WHERE substr(key, 1, ?) = ?
		`, len(prefix), prefix).Scan(&count)
		return count, err
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

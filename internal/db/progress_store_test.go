package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"
)

type versionedStore interface {
	Get(key string) (string, int64, error)
	Put(key, value string, expectedVersion int64, updatedAt time.Time) (int64, error)
	Count(prefix string) (int, error)
	DeleteOlderThan(ctx context.Context, prefix string, cutoff time.Time) (int, error)
}

func stores(t *testing.T) map[string]versionedStore {
	_, queue := setupTestDB(t)
	return map[string]versionedStore{
		"sqlite": NewProgressStore(queue),
		"memory": NewMemoryStore(),
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := store.Get("candidature_progress_missing")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_PutVersioning(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now()

			v1, err := store.Put("k", "one", 0, now)
			if err != nil {
				t.Fatalf("first Put failed: %v", err)
			}
			if v1 != 1 {
				t.Errorf("Expected version 1, got %d", v1)
			}

			if _, err := store.Put("k", "again", 0, now); !errors.Is(err, ErrVersionConflict) {
				t.Errorf("Expected conflict when creating an existing key, got %v", err)
			}

			v2, err := store.Put("k", "two", v1, now)
			if err != nil {
				t.Fatalf("second Put failed: %v", err)
			}

			if _, err := store.Put("k", "stale", v1, now); !errors.Is(err, ErrVersionConflict) {
				t.Errorf("Expected conflict on stale version, got %v", err)
			}

			value, version, err := store.Get("k")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if value != "two" || version != v2 {
				t.Errorf("Expected (two, %d), got (%s, %d)", v2, value, version)
			}
		})
	}
}

func TestStore_DeleteOlderThan(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now()
			old := now.Add(-48 * time.Hour)

			mustPut(t, store, "candidature_progress_A", old)
			mustPut(t, store, "candidature_progress_B", now)
			mustPut(t, store, "other_C", old)

			removed, err := store.DeleteOlderThan(context.Background(), "candidature_progress_", now.Add(-24*time.Hour))
			if err != nil {
				t.Fatalf("DeleteOlderThan failed: %v", err)
			}
			if removed != 1 {
				t.Errorf("Expected 1 removed key, got %d", removed)
			}

			if _, _, err := store.Get("candidature_progress_A"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected stale key to be removed, got %v", err)
			}
			if _, _, err := store.Get("candidature_progress_B"); err != nil {
				t.Errorf("Expected fresh key to survive, got %v", err)
			}
			if _, _, err := store.Get("other_C"); err != nil {
				t.Errorf("Expected key outside prefix to survive, got %v", err)
			}
		})
	}
}

func TestStore_DeleteOlderThanCancelled(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			if _, err := store.DeleteOlderThan(ctx, "p", time.Now()); !errors.Is(err, context.Canceled) {
				t.Errorf("Expected context.Canceled, got %v", err)
			}
		})
	}
}

func TestStore_Count(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				if _, err := store.Put(fmt.Sprintf("candidature_progress_%d", i), "{}", 0, time.Now()); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := store.Put("draft_1", "{}", 0, time.Now()); err != nil {
				t.Fatal(err)
			}

			count, err := store.Count("candidature_progress_")
			if err != nil {
				t.Fatalf("Count failed: %v", err)
			}
			if count != 3 {
				t.Errorf("Expected 3, got %d", count)
			}
		})
	}
}

func TestStore_UpdateOfMissingKeyConflicts(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Put("gone", "value", 4, time.Now()); !errors.Is(err, ErrVersionConflict) {
				t.Errorf("Expected ErrVersionConflict, got %v", err)
			}
		})
	}
}

func TestProperty3_SequentialWritesBumpVersion(t *testing.T) {
	_, queue := setupTestDB(t)
	store := NewProgressStore(queue)

	run := 0
	rapid.Check(t, func(rt *rapid.T) {
		run++
		key := fmt.Sprintf("%s_%d", rapid.StringMatching(`[a-z]{1,12}`).Draw(rt, "key"), run)
		writes := rapid.SliceOfN(rapid.String(), 1, 10).Draw(rt, "writes")

		var version int64
		for _, w := range writes {
			next, err := store.Put(key, w, version, time.Now())
			if err != nil {
				rt.Fatalf("Put at version %d failed: %v", version, err)
			}
			if next != version+1 {
				rt.Fatalf("Expected version %d, got %d", version+1, next)
			}
			version = next
		}

		value, stored, err := store.Get(key)
		if err != nil {
			rt.Fatal(err)
		}
		if value != writes[len(writes)-1] || stored != version {
			rt.Fatalf("Expected (%q, %d), got (%q, %d)", writes[len(writes)-1], version, value, stored)
		}
	})
}

func mustPut(t *testing.T, store versionedStore, key string, at time.Time) {
	t.Helper()
	if _, err := store.Put(key, "{}", 0, at); err != nil {
		t.Fatalf("Put(%s) failed: %v", key, err)
	}
}

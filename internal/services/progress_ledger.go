package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ad/go-concours-candidature/internal/db"
	"github.com/ad/go-concours-candidature/internal/models"
)

const (
	ProgressKeyPrefix = "candidature_progress_"
	maxMergeAttempts  = 3
)

var (
	ErrInvalidStep     = errors.New("invalid step")
	ErrVersionConflict = db.ErrVersionConflict
)

type ProgressStore interface {
	Get(key string) (string, int64, error)
	Put(key, value string, expectedVersion int64, updatedAt time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, prefix string, cutoff time.Time) (int, error)
	Count(prefix string) (int, error)
}

// ProgressLedger keeps one progression record per NUPCAN.
//
// Reads never fail: a missing, unreadable or foreign payload is reported as
// absent. Writes are optimistic: a record carries the version it was read at
// and saving it over a newer version fails with ErrVersionConflict.
type ProgressLedger struct {
	store ProgressStore
	now   func() time.Time
}

func NewProgressLedger(store ProgressStore) *ProgressLedger {
	return NewProgressLedgerWithClock(store, time.Now)
}

func NewProgressLedgerWithClock(store ProgressStore, now func() time.Time) *ProgressLedger {
	return &ProgressLedger{store: store, now: now}
}

func ProgressKey(nupcan string) string {
	return ProgressKeyPrefix + nupcan
}

func (l *ProgressLedger) GetProgress(nupcan string) (*models.ProgressionRecord, bool) {
	rec, _, ok := l.load(nupcan)
	return rec, ok
}

// load also returns the stored version when the payload is unreadable so a
// later write can replace it.
func (l *ProgressLedger) load(nupcan string) (*models.ProgressionRecord, int64, bool) {
	value, version, err := l.store.Get(ProgressKey(nupcan))
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.Printf("[PROGRESS] Failed to read progress for %s: %v", nupcan, err)
		}
		return nil, 0, false
	}

	rec, err := models.DecodeProgressionRecord([]byte(value))
	if err != nil {
		log.Printf("[PROGRESS] Ignoring unreadable progress for %s: %v", nupcan, err)
		return nil, version, false
	}
	rec.Version = version

	stored, count := rec.CurrentStep, len(rec.CompletedSteps)
	if err := rec.Normalize(); err != nil {
		log.Printf("[PROGRESS] Ignoring unreadable progress for %s: %v", nupcan, err)
		return nil, version, false
	}
	if len(rec.CompletedSteps) != count {
		log.Printf("[PROGRESS] Dropped %d duplicate completed steps for %s", count-len(rec.CompletedSteps), nupcan)
	}
	if rec.CurrentStep != stored {
		log.Printf("[PROGRESS] Stored current step %s for %s does not follow completed steps, using %s", stored, nupcan, rec.CurrentStep)
	}
	if d := rec.Discrepancies(); len(d) > 0 {
		log.Printf("[PROGRESS] Milestone flags disagree with steps for %s: %v", nupcan, d)
	}

	return rec, version, true
}

func (l *ProgressLedger) CreateInitialProgress() *models.ProgressionRecord {
	return models.NewProgressionRecord(l.now())
}

// SaveProgress stamps LastAccessedAt and stores rec in full. A record read
// from the ledger is saved only if nobody wrote in between; a record that was
// never stored (Version 0) overwrites whatever is there. A record whose row
// was evicted since it was read is stored again.
func (l *ProgressLedger) SaveProgress(nupcan string, rec *models.ProgressionRecord) error {
	if rec == nil {
		return fmt.Errorf("save progress %s: nil record", nupcan)
	}
	if err := rec.Normalize(); err != nil {
		return fmt.Errorf("save progress %s: %w: %v", nupcan, ErrInvalidStep, err)
	}

	if rec.Version > 0 {
		err := l.put(nupcan, rec, rec.Version)
		if errors.Is(err, ErrVersionConflict) {
			if _, current, found := l.load(nupcan); !found && current == 0 {
				log.Printf("[PROGRESS] Record for %s was evicted since it was read, storing it again", nupcan)
				return l.put(nupcan, rec, 0)
			}
		}
		return err
	}

	var err error
	for attempt := 0; attempt < maxMergeAttempts; attempt++ {
		_, current, _ := l.load(nupcan)
		err = l.put(nupcan, rec, current)
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
	}
	return err
}

func (l *ProgressLedger) put(nupcan string, rec *models.ProgressionRecord, expectedVersion int64) error {
	rec.LastAccessedAt = l.now()

	data, err := models.EncodeProgressionRecord(rec)
	if err != nil {
		return fmt.Errorf("encode progress %s: %w", nupcan, err)
	}

	version, err := l.store.Put(ProgressKey(nupcan), string(data), expectedVersion, rec.LastAccessedAt)
	if err != nil {
		return fmt.Errorf("save progress %s: %w", nupcan, err)
	}
	rec.Version = version
	return nil
}

// MarkStepComplete adds step to the completed set and recomputes the current
// step. Completing documents or paiement also raises the matching milestone flag.
func (l *ProgressLedger) MarkStepComplete(nupcan string, step models.Step) (*models.ProgressionRecord, error) {
	if !step.IsTracked() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStep, step)
	}
	return l.update(nupcan, func(rec *models.ProgressionRecord) {
		rec.Complete(step)
		switch step {
		case models.StepDocuments:
			rec.DocumentsUploaded = true
		case models.StepPayment:
			rec.PaymentCompleted = true
		}
	})
}

// MarkDocumentsUploaded records that documents were received without
// validating the documents step.
func (l *ProgressLedger) MarkDocumentsUploaded(nupcan string) (*models.ProgressionRecord, error) {
	return l.update(nupcan, func(rec *models.ProgressionRecord) {
		rec.DocumentsUploaded = true
	})
}

func (l *ProgressLedger) MarkPaymentCompleted(nupcan string) (*models.ProgressionRecord, error) {
	return l.update(nupcan, func(rec *models.ProgressionRecord) {
		rec.PaymentCompleted = true
	})
}

// update re-reads and re-applies mutate when another writer got in first.
func (l *ProgressLedger) update(nupcan string, mutate func(*models.ProgressionRecord)) (*models.ProgressionRecord, error) {
	var err error
	for attempt := 0; attempt < maxMergeAttempts; attempt++ {
		rec, version, ok := l.load(nupcan)
		if !ok {
			rec = l.CreateInitialProgress()
		}
		mutate(rec)
		if err := rec.Normalize(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStep, err)
		}

		err = l.put(nupcan, rec, version)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		log.Printf("[PROGRESS] Concurrent write on %s, retrying (attempt %d/%d)", nupcan, attempt+1, maxMergeAttempts)
	}
	return nil, err
}

func (l *ProgressLedger) IsStepComplete(nupcan string, step models.Step) bool {
	rec, ok := l.GetProgress(nupcan)
	if !ok {
		return false
	}
	return rec.HasCompleted(step)
}

func (l *ProgressLedger) GetCompletionPercentage(nupcan string) int {
	rec, ok := l.GetProgress(nupcan)
	if !ok {
		return 0
	}
	return rec.Percentage()
}

// CountRecords returns how many progression records are stored.
func (l *ProgressLedger) CountRecords() (int, error) {
	return l.store.Count(ProgressKeyPrefix)
}

// EvictStale deletes records not accessed within ttl.
func (l *ProgressLedger) EvictStale(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := l.now().Add(-ttl)
	removed, err := l.store.DeleteOlderThan(ctx, ProgressKeyPrefix, cutoff)
	if err != nil {
		return 0, fmt.Errorf("evict progress older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return removed, nil
}

package services

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ad/go-concours-candidature/internal/models"
	"github.com/google/uuid"
)

var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrInvalidNupcan = errors.New("invalid NUPCAN format")
)

type StepCompleter interface {
	MarkStepComplete(nupcan string, step models.Step) (*models.ProgressionRecord, error)
}

// DraftManager holds candidacies that are being filled in before the backend
// has assigned a NUPCAN, keyed by a temporary id. Callers get copies.
type DraftManager struct {
	mu       sync.Mutex
	drafts   map[string]*models.Draft
	progress StepCompleter
	now      func() time.Time
}

func NewDraftManager(progress StepCompleter) *DraftManager {
	return &DraftManager{
		drafts:   make(map[string]*models.Draft),
		progress: progress,
		now:      time.Now,
	}
}

func NewTempCandidatureID(concoursID string) string {
	return fmt.Sprintf("temp_%s_%s", concoursID, uuid.NewString())
}

func (m *DraftManager) Create(concoursID string) *models.Draft {
	now := m.now()
	draft := &models.Draft{
		ID:         NewTempCandidatureID(concoursID),
		ConcoursID: concoursID,
		Fields:     make(map[string]string),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	m.mu.Lock()
	m.drafts[draft.ID] = draft
	m.mu.Unlock()

	log.Printf("[DRAFTS] Created draft %s for concours %s", draft.ID, concoursID)
	return draft.Clone()
}

func (m *DraftManager) Get(id string) (*models.Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	draft, ok := m.drafts[id]
	if !ok {
		return nil, false
	}
	return draft.Clone(), true
}

func (m *DraftManager) Update(id string, fn func(*models.Draft)) (*models.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	draft, ok := m.drafts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	fn(draft)
	draft.UpdatedAt = m.now()
	return draft.Clone(), nil
}

func (m *DraftManager) Remove(id string) {
	m.mu.Lock()
	delete(m.drafts, id)
	m.mu.Unlock()
}

func (m *DraftManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drafts)
}

// Promote turns a draft into a registered candidacy under nupcan. The draft
// is kept if the ledger write fails.
func (m *DraftManager) Promote(tempID, nupcan string) (*models.ProgressionRecord, error) {
	if !IsValidNupcanFormat(nupcan) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNupcan, nupcan)
	}

	m.mu.Lock()
	draft, ok := m.drafts[tempID]
	if ok {
		delete(m.drafts, tempID)
	}
	m.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, tempID)
	}

	rec, err := m.progress.MarkStepComplete(nupcan, models.StepRegistration)
	if err != nil {
		m.mu.Lock()
		m.drafts[tempID] = draft
		m.mu.Unlock()
		return nil, fmt.Errorf("promote %s to %s: %w", tempID, nupcan, err)
	}

	log.Printf("[DRAFTS] Promoted draft %s to NUPCAN %s", tempID, nupcan)
	return rec, nil
}

// PruneOlderThan drops drafts not updated since cutoff.
func (m *DraftManager) PruneOlderThan(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, draft := range m.drafts {
		if draft.UpdatedAt.Before(cutoff) {
			delete(m.drafts, id)
			removed++
		}
	}
	return removed
}

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

type ProgressionRecord struct {
	CurrentStep       Step      `json:"etapeActuelle"`
	CompletedSteps    []Step    `json:"etapesCompletes"`
	DocumentsUploaded bool      `json:"documentsUploads"`
	PaymentCompleted  bool      `json:"paiementEffectue"`
	RegisteredAt      time.Time `json:"dateInscription"`
	LastAccessedAt    time.Time `json:"dernierAcces"`

	// Version is the store revision the record was read at. Zero means never stored.
	Version int64 `json:"-"`
}

func NewProgressionRecord(now time.Time) *ProgressionRecord {
	return &ProgressionRecord{
		CurrentStep:    StepRegistration,
		CompletedSteps: []Step{},
		RegisteredAt:   now,
		LastAccessedAt: now,
	}
}

func (r *ProgressionRecord) HasCompleted(step Step) bool {
	for _, s := range r.CompletedSteps {
		if s == step {
			return true
		}
	}
	return false
}

// Complete adds step to the completed set and recomputes the current step.
// It reports whether the set changed.
func (r *ProgressionRecord) Complete(step Step) bool {
	if r.HasCompleted(step) {
		r.CurrentStep = DeriveCurrentStep(r.CompletedSteps)
		return false
	}
	r.CompletedSteps = append(r.CompletedSteps, step)
	r.CurrentStep = DeriveCurrentStep(r.CompletedSteps)
	return true
}

// Normalize drops duplicate steps, rejects steps that cannot be completed and
// recomputes CurrentStep.
func (r *ProgressionRecord) Normalize() error {
	seen := make(map[Step]bool, len(r.CompletedSteps))
	steps := make([]Step, 0, len(r.CompletedSteps))
	for _, s := range r.CompletedSteps {
		if !s.IsTracked() {
			return fmt.Errorf("step %q cannot be completed", s)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		steps = append(steps, s)
	}
	r.CompletedSteps = steps
	r.CurrentStep = DeriveCurrentStep(steps)
	return nil
}

func (r *ProgressionRecord) Percentage() int {
	return int(math.Round(100 * float64(len(r.CompletedSteps)) / float64(len(TrackedSteps))))
}

// Discrepancies lists the places where the independent milestone flags
// disagree with the completed steps.
func (r *ProgressionRecord) Discrepancies() []string {
	var out []string
	if r.HasCompleted(StepDocuments) && !r.DocumentsUploaded {
		out = append(out, "documents step completed without documentsUploads")
	}
	if r.DocumentsUploaded && !r.HasCompleted(StepDocuments) {
		out = append(out, "documentsUploads set but documents step not completed")
	}
	if r.HasCompleted(StepPayment) && !r.PaymentCompleted {
		out = append(out, "paiement step completed without paiementEffectue")
	}
	if r.PaymentCompleted && !r.HasCompleted(StepPayment) {
		out = append(out, "paiementEffectue set but paiement step not completed")
	}
	return out
}

// DeriveCurrentStep returns the first tracked step not in completed, or StepDone.
func DeriveCurrentStep(completed []Step) Step {
	for _, step := range TrackedSteps {
		found := false
		for _, s := range completed {
			if s == step {
				found = true
				break
			}
		}
		if !found {
			return step
		}
	}
	return StepDone
}

var ErrMalformedRecord = errors.New("malformed progression record")

// DecodeProgressionRecord parses a stored payload, rejecting anything that is
// not a progression record.
func DecodeProgressionRecord(data []byte) (*ProgressionRecord, error) {
	var rec ProgressionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if !rec.CurrentStep.IsValid() {
		return nil, fmt.Errorf("%w: current step %q", ErrMalformedRecord, rec.CurrentStep)
	}
	if rec.CompletedSteps == nil {
		return nil, fmt.Errorf("%w: missing etapesCompletes", ErrMalformedRecord)
	}
	for _, s := range rec.CompletedSteps {
		if !s.IsTracked() {
			return nil, fmt.Errorf("%w: completed step %q", ErrMalformedRecord, s)
		}
	}
	if rec.RegisteredAt.IsZero() {
		return nil, fmt.Errorf("%w: missing dateInscription", ErrMalformedRecord)
	}
	return &rec, nil
}

func EncodeProgressionRecord(rec *ProgressionRecord) ([]byte, error) {
	return json.Marshal(rec)
}

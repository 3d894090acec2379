package services

import (
	"context"
	"testing"
	"time"

	"github.com/ad/go-concours-candidature/internal/db"
	"github.com/ad/go-concours-candidature/internal/models"
	"go.uber.org/goleak"
)

func TestProgressSweeper_SweepOnce(t *testing.T) {
	clock := newStepClock()
	ledger := NewProgressLedgerWithClock(db.NewMemoryStore(), clock.Now)
	drafts := NewDraftManager(ledger)
	drafts.now = clock.Now

	if _, err := ledger.MarkStepComplete("20250101-1", models.StepRegistration); err != nil {
		t.Fatal(err)
	}
	drafts.Create("3")

	clock.mu.Lock()
	clock.now = clock.now.Add(10 * 24 * time.Hour)
	clock.mu.Unlock()

	if _, err := ledger.MarkStepComplete("20250630-15", models.StepRegistration); err != nil {
		t.Fatal(err)
	}

	sweeper := NewProgressSweeper(ledger, drafts, 7*24*time.Hour, time.Hour)
	removed, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 1 record and 1 draft removed, got %d", removed)
	}
	if drafts.Len() != 0 {
		t.Errorf("Expected stale draft pruned, %d left", drafts.Len())
	}
	if _, ok := ledger.GetProgress("20250630-15"); !ok {
		t.Error("Expected recent record to survive")
	}
}

func TestProgressSweeper_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ledger, _ := newTestLedger()
	sweeper := NewProgressSweeper(ledger, nil, time.Hour, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil on cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

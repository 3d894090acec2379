package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/ad/go-concours-candidature/internal/models"
)

func TestAdmin_ValidateStepNotifiesFollowers(t *testing.T) {
	env := setupHandler(t)
	ctx := context.Background()
	env.links.Link(5, "20250630-15")
	env.links.Link(6, "20250630-15")
	env.links.Link(7, "20250701-2")

	env.handler.HandleUpdate(ctx, nil, message(testAdminID, "/valider 20250630-15 inscription"))

	if !env.ledger.IsStepComplete("20250630-15", models.StepRegistration) {
		t.Fatal("Expected registration to be validated")
	}
	if got := env.sender.last(t); got.ChatID != int64(6) && got.ChatID != int64(5) {
		t.Errorf("Expected last message to a follower, got chat %v", got.ChatID)
	}
	for _, chatID := range []int64{5, 6} {
		texts := env.sender.to(chatID)
		if len(texts) != 1 || !strings.Contains(texts[0], "a progressé") {
			t.Errorf("Expected one notification for chat %d, got %q", chatID, texts)
		}
	}
	if texts := env.sender.to(7); len(texts) != 0 {
		t.Errorf("Expected no notification for unrelated chat, got %q", texts)
	}
	admin := env.sender.to(testAdminID)
	if len(admin) != 1 || !strings.Contains(admin[0], "Inscription validée") {
		t.Errorf("Expected admin confirmation, got %q", admin)
	}
}

func TestAdmin_ValidateRejectsDoneAndUnknownSteps(t *testing.T) {
	env := setupHandler(t)
	ctx := context.Background()

	env.handler.HandleUpdate(ctx, nil, message(testAdminID, "/valider 20250630-15 termine"))
	if got := env.sender.last(t).Text; !strings.Contains(got, "ne peut pas être validée") {
		t.Errorf("Expected rejection of the final step, got %q", got)
	}

	env.handler.HandleUpdate(ctx, nil, message(testAdminID, "/valider 20250630-15 entretien"))
	if got := env.sender.last(t).Text; !strings.Contains(got, "Étape inconnue") {
		t.Errorf("Expected unknown step reply, got %q", got)
	}

	if _, ok := env.ledger.GetProgress("20250630-15"); ok {
		t.Error("Expected no record to be created")
	}
}

func TestAdmin_CompletingEveryStepAppendsCompletedMessage(t *testing.T) {
	env := setupHandler(t)
	ctx := context.Background()

	for _, step := range []string{"inscription", "documents", "paiement"} {
		env.handler.HandleUpdate(ctx, nil, message(testAdminID, "/valider 20250630-15 "+step))
	}

	rec, ok := env.ledger.GetProgress("20250630-15")
	if !ok {
		t.Fatal("Expected record")
	}
	if rec.CurrentStep != models.StepDone {
		t.Errorf("Expected done, got %s", rec.CurrentStep)
	}
	if !rec.DocumentsUploaded || !rec.PaymentCompleted {
		t.Error("Expected validated steps to raise their flags")
	}
	got := env.sender.last(t).Text
	if !strings.Contains(got, "100%") || !strings.Contains(got, "complète") {
		t.Errorf("Expected completed summary, got %q", got)
	}
	if !strings.Contains(got, "/succes/continue/20250630-15") {
		t.Errorf("Expected success link, got %q", got)
	}
}

func TestAdmin_MilestonesSetFlagsOnly(t *testing.T) {
	env := setupHandler(t)
	ctx := context.Background()

	env.handler.HandleUpdate(ctx, nil, message(testAdminID, "/documents_recus 20250630-15"))
	env.handler.HandleUpdate(ctx, nil, message(testAdminID, "/paiement_recu 20250630-15"))

	rec, ok := env.ledger.GetProgress("20250630-15")
	if !ok {
		t.Fatal("Expected record")
	}
	if !rec.DocumentsUploaded || !rec.PaymentCompleted {
		t.Error("Expected both flags to be set")
	}
	if len(rec.CompletedSteps) != 0 {
		t.Errorf("Expected no completed steps, got %v", rec.CompletedSteps)
	}
	if got := env.sender.last(t).Text; !strings.Contains(got, "Paiement reçu, en attente de validation") {
		t.Errorf("Expected pending payment notice, got %q", got)
	}
}

func TestAdmin_Purge(t *testing.T) {
	env := setupHandler(t)
	env.drafts.Create("3")
	env.ledger.MarkStepComplete("20250630-15", models.StepRegistration)

	env.handler.HandleUpdate(context.Background(), nil, message(testAdminID, "/purger"))

	if env.drafts.Len() != 1 {
		t.Errorf("Expected fresh draft to survive, got %d drafts", env.drafts.Len())
	}
	got := env.sender.last(t).Text
	if !strings.Contains(got, "0 entrée(s) supprimée(s)") {
		t.Errorf("Expected purge report, got %q", got)
	}
	if !strings.Contains(got, "1 candidature(s) conservée(s)") {
		t.Errorf("Expected remaining count, got %q", got)
	}
}

func TestAdmin_CommandsIgnoredForCandidates(t *testing.T) {
	env := setupHandler(t)

	env.handler.HandleUpdate(context.Background(), nil, message(5, "/valider 20250630-15 inscription"))

	if env.ledger.IsStepComplete("20250630-15", models.StepRegistration) {
		t.Error("Expected candidate to be unable to validate steps")
	}
	if got := env.sender.last(t).Text; !strings.HasPrefix(got, "Commande inconnue") {
		t.Errorf("Expected unknown command reply, got %q", got)
	}
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ad/go-concours-candidature/internal/db"
	"github.com/ad/go-concours-candidature/internal/models"
	"github.com/ad/go-concours-candidature/internal/services"
)

type AdminHandler struct {
	adminID      int64
	msgManager   *services.MessageManager
	ledger       *services.ProgressLedger
	sweeper      *services.ProgressSweeper
	chatLinkRepo *db.ChatLinkRepository
	progressText func(nupcan string) string
}

func NewAdminHandler(
	adminID int64,
	msgManager *services.MessageManager,
	ledger *services.ProgressLedger,
	sweeper *services.ProgressSweeper,
	chatLinkRepo *db.ChatLinkRepository,
	progressText func(nupcan string) string,
) *AdminHandler {
	return &AdminHandler{
		adminID:      adminID,
		msgManager:   msgManager,
		ledger:       ledger,
		sweeper:      sweeper,
		chatLinkRepo: chatLinkRepo,
		progressText: progressText,
	}
}

// HandleCommand reports whether command was an admin command.
func (h *AdminHandler) HandleCommand(ctx context.Context, chatID int64, command string, args []string) bool {
	switch command {
	case "/valider":
		h.validateStep(ctx, chatID, args)
	case "/documents_recus":
		h.markMilestone(ctx, chatID, args, h.ledger.MarkDocumentsUploaded, "📎 Documents reçus")
	case "/paiement_recu":
		h.markMilestone(ctx, chatID, args, h.ledger.MarkPaymentCompleted, "💳 Paiement reçu")
	case "/purger":
		h.purge(ctx, chatID)
	default:
		return false
	}
	return true
}

func (h *AdminHandler) validateStep(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		h.msgManager.SendHTML(ctx, chatID, "Usage : /valider "+services.FormatCode("NUPCAN")+" inscription|documents|paiement")
		return
	}
	nupcan := args[0]
	if !services.IsValidNupcanFormat(nupcan) {
		h.msgManager.SendHTML(ctx, chatID, invalidNupcanText)
		return
	}
	step, err := models.ParseStep(args[1])
	if err != nil {
		h.msgManager.SendHTML(ctx, chatID, "❌ Étape inconnue : "+services.FormatCode(args[1]))
		return
	}

	if _, err := h.ledger.MarkStepComplete(nupcan, step); err != nil {
		if errors.Is(err, services.ErrInvalidStep) {
			h.msgManager.SendHTML(ctx, chatID, "❌ L'étape "+services.FormatCode(string(step))+" ne peut pas être validée")
			return
		}
		log.Printf("[PROGRESS] Failed to validate %s for %s: %v", step, nupcan, err)
		h.msgManager.SendHTML(ctx, chatID, "Erreur lors de la validation : "+services.FormatCode(err.Error()))
		return
	}

	log.Printf("[PROGRESS] Admin validated %s for %s", step, nupcan)
	h.msgManager.SendHTML(ctx, chatID, fmt.Sprintf("✅ %s validée\n\n%s", step.Label(), h.progressText(nupcan)))
	h.notifyFollowers(ctx, nupcan, chatID)
}

func (h *AdminHandler) markMilestone(ctx context.Context, chatID int64, args []string, mark func(string) (*models.ProgressionRecord, error), title string) {
	if len(args) != 1 || !services.IsValidNupcanFormat(args[0]) {
		h.msgManager.SendHTML(ctx, chatID, invalidNupcanText)
		return
	}
	nupcan := args[0]

	if _, err := mark(nupcan); err != nil {
		log.Printf("[PROGRESS] Failed to record milestone for %s: %v", nupcan, err)
		h.msgManager.SendHTML(ctx, chatID, "Erreur lors de l'enregistrement : "+services.FormatCode(err.Error()))
		return
	}

	h.msgManager.SendHTML(ctx, chatID, title+"\n\n"+h.progressText(nupcan))
	h.notifyFollowers(ctx, nupcan, chatID)
}

func (h *AdminHandler) notifyFollowers(ctx context.Context, nupcan string, skipChatID int64) {
	links, err := h.chatLinkRepo.GetByNupcan(nupcan)
	if err != nil {
		log.Printf("[BOT] Failed to load followers of %s: %v", nupcan, err)
		return
	}

	text := "🔔 Votre candidature a progressé\n\n" + h.progressText(nupcan)
	for _, link := range links {
		if link.ChatID == skipChatID {
			continue
		}
		h.msgManager.SendHTML(ctx, link.ChatID, text)
	}
}

func (h *AdminHandler) purge(ctx context.Context, chatID int64) {
	removed, err := h.sweeper.SweepOnce(ctx)
	if err != nil {
		h.msgManager.SendHTML(ctx, chatID, "Erreur lors de la purge : "+services.FormatCode(err.Error()))
		return
	}
	text := fmt.Sprintf("🧹 %d entrée(s) supprimée(s), inactives depuis plus de %s",
		removed, services.FormatDurationFrench(h.sweeper.TTL()))
	if remaining, err := h.ledger.CountRecords(); err != nil {
		log.Printf("[PROGRESS] Failed to count records: %v", err)
	} else {
		text += fmt.Sprintf("\n%d candidature(s) conservée(s)", remaining)
	}
	h.msgManager.SendHTML(ctx, chatID, text)
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/ad/go-concours-candidature/internal/db"
	"github.com/ad/go-concours-candidature/internal/models"
	"github.com/ad/go-concours-candidature/internal/services"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

const invalidNupcanText = "❌ Référence invalide. Le NUPCAN a la forme AAAAMMJJ-N, par exemple 20250630-15."

type BotHandler struct {
	adminID      int64
	baseURL      string
	errorManager *services.ErrorManager
	msgManager   *services.MessageManager
	ledger       *services.ProgressLedger
	resolver     *services.RouteResolver
	drafts       *services.DraftManager
	chatLinkRepo *db.ChatLinkRepository
	settingsRepo *db.SettingsRepository
	adminHandler *AdminHandler
}

func NewBotHandler(
	adminID int64,
	baseURL string,
	errorManager *services.ErrorManager,
	msgManager *services.MessageManager,
	ledger *services.ProgressLedger,
	resolver *services.RouteResolver,
	drafts *services.DraftManager,
	sweeper *services.ProgressSweeper,
	chatLinkRepo *db.ChatLinkRepository,
	settingsRepo *db.SettingsRepository,
) *BotHandler {
	h := &BotHandler{
		adminID:      adminID,
		baseURL:      strings.TrimRight(baseURL, "/"),
		errorManager: errorManager,
		msgManager:   msgManager,
		ledger:       ledger,
		resolver:     resolver,
		drafts:       drafts,
		chatLinkRepo: chatLinkRepo,
		settingsRepo: settingsRepo,
	}
	h.adminHandler = NewAdminHandler(adminID, msgManager, ledger, sweeper, chatLinkRepo, h.progressText)
	return h
}

func (h *BotHandler) HandleUpdate(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	defer h.recoverPanic(ctx, update)

	if update.Message != nil {
		h.handleMessage(ctx, update.Message)
	}
}

func (h *BotHandler) recoverPanic(ctx context.Context, update *tgmodels.Update) {
	if r := recover(); r != nil {
		h.errorManager.NotifyAdmin(ctx, r, update)
	}
}

func (h *BotHandler) handleMessage(ctx context.Context, msg *tgmodels.Message) {
	if msg.From == nil {
		return
	}

	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return
	}
	command := commandName(fields[0])
	args := fields[1:]
	chatID := msg.Chat.ID

	if msg.From.ID == h.adminID && h.adminHandler.HandleCommand(ctx, chatID, command, args) {
		return
	}

	switch command {
	case "/start":
		h.handleStart(ctx, chatID)
	case "/suivre":
		h.handleFollow(ctx, chatID, args)
	case "/progression":
		h.handleProgress(ctx, chatID)
	case "/oublier":
		h.handleUnfollow(ctx, chatID, args)
	case "/statut":
		h.handleStatus(ctx, chatID, args)
	case "/candidater":
		h.handleApply(ctx, chatID, args)
	case "/confirmer":
		h.handleConfirm(ctx, chatID, args)
	case "/renseigner":
		h.handleFillDraft(ctx, chatID, args)
	case "/abandonner":
		h.handleDropDraft(ctx, chatID, args)
	default:
		if len(fields) == 1 && services.IsValidNupcanFormat(fields[0]) {
			h.handleFollow(ctx, chatID, fields)
			return
		}
		h.sendSetting(ctx, chatID, func(s *models.Settings) string { return s.UnknownCommandMessage },
			"Commande inconnue. Commandes : /suivre, /oublier, /progression, /statut, /candidater, /confirmer, /renseigner, /abandonner")
	}
}

// commandName strips the @botname suffix Telegram adds in group chats.
func commandName(word string) string {
	if i := strings.Index(word, "@"); i > 0 {
		word = word[:i]
	}
	return strings.ToLower(word)
}

func (h *BotHandler) handleStart(ctx context.Context, chatID int64) {
	h.sendSetting(ctx, chatID, func(s *models.Settings) string { return s.WelcomeMessage },
		"Bienvenue ! Envoyez /suivre <NUPCAN> pour suivre votre candidature.")
}

func (h *BotHandler) sendSetting(ctx context.Context, chatID int64, pick func(*models.Settings) string, fallback string) {
	text := fallback
	if settings, err := h.settingsRepo.GetAll(); err == nil {
		if value := pick(settings); value != "" {
			text = value
		}
	}
	h.msgManager.SendWithRetry(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
}

func (h *BotHandler) handleFollow(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		h.sendHTML(ctx, chatID, "Usage : /suivre "+services.FormatCode("NUPCAN"))
		return
	}
	nupcan := args[0]
	if !services.IsValidNupcanFormat(nupcan) {
		h.sendHTML(ctx, chatID, invalidNupcanText)
		return
	}

	if err := h.chatLinkRepo.Link(chatID, nupcan); err != nil {
		log.Printf("[BOT] Failed to link chat %d to %s: %v", chatID, nupcan, err)
		h.sendHTML(ctx, chatID, "Erreur lors de l'enregistrement du suivi")
		return
	}

	h.sendHTML(ctx, chatID, h.progressText(nupcan))
}

func (h *BotHandler) handleUnfollow(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		h.sendHTML(ctx, chatID, "Usage : /oublier "+services.FormatCode("NUPCAN"))
		return
	}

	if err := h.chatLinkRepo.Unlink(chatID, args[0]); err != nil {
		log.Printf("[BOT] Failed to unlink chat %d from %s: %v", chatID, args[0], err)
		h.sendHTML(ctx, chatID, "Erreur lors de la suppression du suivi")
		return
	}
	h.sendHTML(ctx, chatID, "Vous ne suivez plus "+services.FormatCode(args[0])+". "+
		services.FormatItalic("La candidature elle-même est conservée."))
}

func (h *BotHandler) handleProgress(ctx context.Context, chatID int64) {
	links, err := h.chatLinkRepo.GetByChat(chatID)
	if err != nil {
		log.Printf("[BOT] Failed to load followed candidacies for chat %d: %v", chatID, err)
		h.sendHTML(ctx, chatID, "Erreur lors du chargement de vos candidatures")
		return
	}
	if len(links) == 0 {
		h.sendHTML(ctx, chatID, "Vous ne suivez aucune candidature. Envoyez /suivre "+services.FormatCode("NUPCAN")+".")
		return
	}

	parts := make([]string, 0, len(links))
	for _, link := range links {
		parts = append(parts, h.progressText(link.Nupcan))
	}
	h.sendHTML(ctx, chatID, strings.Join(parts, "\n\n"))
}

func (h *BotHandler) handleStatus(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		h.sendHTML(ctx, chatID, "Usage : /statut "+services.FormatCode("NUPCAN"))
		return
	}
	nupcan := args[0]
	if !services.IsValidNupcanFormat(nupcan) {
		h.sendHTML(ctx, chatID, invalidNupcanText)
		return
	}

	text := fmt.Sprintf("Candidature %s : %d%%\n%s",
		services.FormatCode(nupcan),
		h.ledger.GetCompletionPercentage(nupcan),
		services.FormatLink("Consulter le statut", h.link(h.resolver.StatusPath(nupcan))))
	h.sendHTML(ctx, chatID, text)
}

func (h *BotHandler) handleApply(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		h.sendHTML(ctx, chatID, "Usage : /candidater "+services.FormatCode("ID_CONCOURS"))
		return
	}
	concoursID, err := strconv.Atoi(args[0])
	if err != nil || concoursID <= 0 {
		h.sendHTML(ctx, chatID, "❌ Identifiant de concours invalide")
		return
	}

	draft := h.drafts.Create(strconv.Itoa(concoursID))
	path, err := h.resolver.VerifiedDocumentsPath(models.RouteParams{
		CandidatureID: draft.ID,
		ConcoursID:    draft.ConcoursID,
	})
	if err != nil {
		log.Printf("[BOT] Failed to build documents path for draft %s: %v", draft.ID, err)
		h.sendHTML(ctx, chatID, "Erreur lors de la création de la candidature")
		return
	}

	text := fmt.Sprintf("📝 Candidature provisoire %s créée.\n%s\n\nUne fois votre NUPCAN reçu, envoyez /confirmer %s %s",
		services.FormatCode(draft.ID),
		services.FormatLink("Déposer les documents", h.link(path)),
		services.FormatCode(draft.ID),
		services.FormatCode("NUPCAN"))
	h.sendHTML(ctx, chatID, text)
}

func (h *BotHandler) handleConfirm(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		h.sendHTML(ctx, chatID, "Usage : /confirmer "+services.FormatCode("ID_PROVISOIRE")+" "+services.FormatCode("NUPCAN"))
		return
	}
	tempID, nupcan := args[0], args[1]

	if _, err := h.drafts.Promote(tempID, nupcan); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidNupcan):
			h.sendHTML(ctx, chatID, invalidNupcanText)
		case errors.Is(err, services.ErrDraftNotFound):
			h.sendHTML(ctx, chatID, "❌ Candidature provisoire introuvable ou expirée")
		default:
			log.Printf("[BOT] Failed to promote draft %s: %v", tempID, err)
			h.sendHTML(ctx, chatID, "Erreur lors de la confirmation")
		}
		return
	}

	if err := h.chatLinkRepo.Link(chatID, nupcan); err != nil {
		log.Printf("[BOT] Failed to link chat %d to %s: %v", chatID, nupcan, err)
	}
	h.sendHTML(ctx, chatID, "✅ Inscription confirmée\n\n"+h.progressText(nupcan))
}

// handleFillDraft stores one form field on a draft: /renseigner <id> <champ> <valeur...>.
func (h *BotHandler) handleFillDraft(ctx context.Context, chatID int64, args []string) {
	if len(args) < 3 {
		h.sendHTML(ctx, chatID, "Usage : /renseigner "+services.FormatCode("ID_PROVISOIRE")+" "+
			services.FormatCode("champ")+" "+services.FormatCode("valeur"))
		return
	}
	field := strings.ToLower(args[1])
	value := strings.Join(args[2:], " ")

	draft, err := h.drafts.Update(args[0], func(d *models.Draft) {
		d.Fields[field] = value
	})
	if err != nil {
		if errors.Is(err, services.ErrDraftNotFound) {
			h.sendHTML(ctx, chatID, "❌ Candidature provisoire introuvable ou expirée")
			return
		}
		log.Printf("[DRAFTS] Failed to update draft %s: %v", args[0], err)
		h.sendHTML(ctx, chatID, "Erreur lors de l'enregistrement")
		return
	}

	h.sendHTML(ctx, chatID, services.FormatDraft(draft))
}

func (h *BotHandler) handleDropDraft(ctx context.Context, chatID int64, args []string) {
	if len(args) != 1 {
		h.sendHTML(ctx, chatID, "Usage : /abandonner "+services.FormatCode("ID_PROVISOIRE"))
		return
	}
	if _, ok := h.drafts.Get(args[0]); !ok {
		h.sendHTML(ctx, chatID, "❌ Candidature provisoire introuvable ou expirée")
		return
	}

	h.drafts.Remove(args[0])
	h.sendHTML(ctx, chatID, "🗑 Candidature provisoire "+services.FormatCode(args[0])+" abandonnée")
}

// progressText describes nupcan's progression with a link to its next page.
func (h *BotHandler) progressText(nupcan string) string {
	rec, ok := h.ledger.GetProgress(nupcan)
	if !ok {
		return fmt.Sprintf("Aucune progression enregistrée pour %s.\n%s",
			services.FormatCode(nupcan),
			services.FormatLink("Consulter le statut", h.link(h.resolver.StatusPath(nupcan))))
	}

	link := ""
	path, err := h.resolver.NextStepPath(models.RouteParams{Nupcan: nupcan}, rec.CurrentStep)
	if err != nil {
		log.Printf("[ROUTES] No next page for %s at %s: %v", nupcan, rec.CurrentStep, err)
	} else {
		link = h.link(path)
	}
	text := services.FormatProgress(nupcan, rec, link)
	if rec.CurrentStep == models.StepDone {
		if settings, err := h.settingsRepo.GetAll(); err == nil && settings.CompletedMessage != "" {
			text += "\n\n" + settings.CompletedMessage
		}
	}
	return text
}

func (h *BotHandler) link(path string) string {
	return h.baseURL + path
}

func (h *BotHandler) sendHTML(ctx context.Context, chatID int64, text string) {
	h.msgManager.SendHTML(ctx, chatID, text)
}

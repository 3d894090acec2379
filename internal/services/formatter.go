package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ad/go-concours-candidature/internal/models"
)

const progressBarWidth = 20

func FormatDurationFrench(d time.Duration) string {
	if d <= 0 {
		return "0 s"
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d j", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d h", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d min", minutes))
	}
	if seconds > 0 && days == 0 && hours == 0 {
		parts = append(parts, fmt.Sprintf("%d s", seconds))
	}

	if len(parts) == 0 {
		return "0 s"
	}
	return strings.Join(parts, " ")
}

func FormatDateTime(t time.Time) string {
	months := []string{
		"janv.", "févr.", "mars", "avr.", "mai", "juin",
		"juil.", "août", "sept.", "oct.", "nov.", "déc.",
	}

	return fmt.Sprintf("%d %s %d, %02d:%02d", t.Day(), months[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

func ProgressBar(percentage int) string {
	barLength := percentage * progressBarWidth / 100
	if barLength > progressBarWidth {
		barLength = progressBarWidth
	}
	if barLength < 0 {
		barLength = 0
	}
	return strings.Repeat("▰", barLength) + strings.Repeat("▱", progressBarWidth-barLength)
}

// FormatProgress renders a progression record as an HTML message. link may be
// empty.
func FormatProgress(nupcan string, rec *models.ProgressionRecord, link string) string {
	var sb strings.Builder

	sb.WriteString(FormatBold("Candidature") + " " + FormatCode(nupcan) + "\n")
	sb.WriteString(fmt.Sprintf("%s %d%%\n\n", ProgressBar(rec.Percentage()), rec.Percentage()))

	for _, step := range models.TrackedSteps {
		mark := "⬜"
		if rec.HasCompleted(step) {
			mark = "✅"
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", mark, step.Label()))
	}

	if rec.DocumentsUploaded && !rec.HasCompleted(models.StepDocuments) {
		sb.WriteString("\n📎 Documents reçus, en attente de validation\n")
	}
	if rec.PaymentCompleted && !rec.HasCompleted(models.StepPayment) {
		sb.WriteString("\n💳 Paiement reçu, en attente de validation\n")
	}

	sb.WriteString(fmt.Sprintf("\nÉtape actuelle : %s\n", FormatBold(rec.CurrentStep.Label())))
	sb.WriteString(fmt.Sprintf("Dernier accès : %s\n", FormatDateTime(rec.LastAccessedAt)))

	if link != "" {
		text := "Continuer"
		if rec.CurrentStep == models.StepDone {
			text = "Voir le récapitulatif"
		}
		sb.WriteString("\n" + FormatLink(text, link))
	}

	return sb.String()
}

// FormatDraft lists a draft's filled-in fields in name order.
func FormatDraft(draft *models.Draft) string {
	var sb strings.Builder

	sb.WriteString(FormatBold("Candidature provisoire") + " " + FormatCode(draft.ID) + "\n")
	sb.WriteString(fmt.Sprintf("Concours : %s\n", FormatCode(draft.ConcoursID)))

	if len(draft.Fields) == 0 {
		sb.WriteString("\n" + FormatItalic("Aucun champ renseigné"))
		return sb.String()
	}

	names := make([]string, 0, len(draft.Fields))
	for name := range draft.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	sb.WriteString("\n")
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("• %s : %s\n", FormatBold(name), EscapeHTML(draft.Fields[name])))
	}
	return sb.String()
}

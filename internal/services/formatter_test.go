package services

import (
	"strings"
	"testing"
	"time"

	"github.com/ad/go-concours-candidature/internal/models"
	"pgregory.net/rapid"
)

func TestProperty10_DurationFormatting(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seconds := rapid.Int64Range(0, 365*24*3600).Draw(rt, "seconds")
		duration := time.Duration(seconds) * time.Second

		result := FormatDurationFrench(duration)
		if result == "" {
			rt.Fatalf("empty result for %v", duration)
		}

		hasUnit := false
		for _, unit := range []string{" j", " h", " min", " s"} {
			if strings.Contains(result, unit) {
				hasUnit = true
				break
			}
		}
		if !hasUnit {
			rt.Fatalf("%q has no time unit", result)
		}

		if duration == 0 && result != "0 s" {
			rt.Fatalf("Expected '0 s' for zero duration, got %q", result)
		}
	})
}

func TestFormatDurationFrench(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{180 * 24 * time.Hour, "180 j"},
		{26*time.Hour + 5*time.Minute, "1 j 2 h 5 min"},
		{90 * time.Second, "1 min 30 s"},
	}

	for _, tt := range tests {
		if got := FormatDurationFrench(tt.d); got != tt.want {
			t.Errorf("FormatDurationFrench(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	if got := ProgressBar(0); got != strings.Repeat("▱", 20) {
		t.Errorf("unexpected empty bar %q", got)
	}
	if got := ProgressBar(100); got != strings.Repeat("▰", 20) {
		t.Errorf("unexpected full bar %q", got)
	}
	if got := ProgressBar(150); got != strings.Repeat("▰", 20) {
		t.Errorf("Expected overflow to be clamped, got %q", got)
	}
}

func TestFormatLinkEscapes(t *testing.T) {
	got := FormatLink("a & b", "https://example.com/?a=1&b=2")
	want := `<a href="https://example.com/?a=1&amp;b=2">a &amp; b</a>`
	if got != want {
		t.Errorf("FormatLink = %q, want %q", got, want)
	}
}

func TestFormatProgress(t *testing.T) {
	rec := models.NewProgressionRecord(time.Date(2025, 6, 30, 10, 0, 0, 0, time.UTC))
	rec.Complete(models.StepRegistration)
	rec.DocumentsUploaded = true

	text := FormatProgress("20250630-15", rec, "https://concours.example/documents/continue/20250630-15")

	for _, want := range []string{
		"<code>20250630-15</code>",
		"33%",
		"✅ Inscription",
		"⬜ Documents",
		"Documents reçus",
		"Étape actuelle : <b>Documents</b>",
		"30 juin 2025, 10:00",
		`<a href="https://concours.example/documents/continue/20250630-15">Continuer</a>`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}
}

func TestFormatDraft(t *testing.T) {
	draft := &models.Draft{
		ID:         "temp_3_abc",
		ConcoursID: "3",
		Fields:     map[string]string{"nom": "Mba <Léon>", "etablissement": "Lycée"},
	}

	got := FormatDraft(draft)

	if !strings.Contains(got, "Mba &lt;Léon&gt;") {
		t.Errorf("Expected escaped field value, got %q", got)
	}
	if strings.Index(got, "etablissement") > strings.Index(got, "nom") {
		t.Errorf("Expected fields sorted by name, got %q", got)
	}

	empty := FormatDraft(&models.Draft{ID: "temp_3_def", ConcoursID: "3"})
	if !strings.Contains(empty, "Aucun champ renseigné") {
		t.Errorf("Expected empty notice, got %q", empty)
	}
}

package models

import "fmt"

type Step string

const (
	StepRegistration Step = "inscription"
	StepDocuments    Step = "documents"
	StepPayment      Step = "paiement"
	StepDone         Step = "termine"
)

// TrackedSteps lists the steps that can be completed, in priority order.
// StepDone is a derived terminal marker and never appears here.
var TrackedSteps = []Step{StepRegistration, StepDocuments, StepPayment}

func (s Step) IsTracked() bool {
	switch s {
	case StepRegistration, StepDocuments, StepPayment:
		return true
	default:
		return false
	}
}

func (s Step) IsValid() bool {
	return s.IsTracked() || s == StepDone
}

func (s Step) Label() string {
	switch s {
	case StepRegistration:
		return "Inscription"
	case StepDocuments:
		return "Documents"
	case StepPayment:
		return "Paiement"
	case StepDone:
		return "Terminé"
	default:
		return string(s)
	}
}

func ParseStep(value string) (Step, error) {
	step := Step(value)
	if !step.IsValid() {
		return "", fmt.Errorf("unknown step %q", value)
	}
	return step, nil
}

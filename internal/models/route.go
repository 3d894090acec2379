package models

type Mode string

const (
	ModeNew      Mode = "new"
	ModeContinue Mode = "continue"
)

// RouteParams carries at most one of CandidatureID or Nupcan.
type RouteParams struct {
	CandidatureID string
	Nupcan        string
	ConcoursID    string
}

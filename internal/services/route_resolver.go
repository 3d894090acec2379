package services

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/ad/go-concours-candidature/internal/models"
)

var (
	ErrMissingIdentifier = errors.New("missing candidature identifier")
	ErrUnknownNupcan     = errors.New("no progression recorded for NUPCAN")
)

const (
	routeDocuments = "documents"
	routePayment   = "paiement"
	routeSuccess   = "succes"
	routeStatus    = "statut"
)

type ProgressLookup interface {
	GetProgress(nupcan string) (*models.ProgressionRecord, bool)
}

// RouteResolver builds front-end paths for a candidacy. It never navigates.
type RouteResolver struct {
	progress ProgressLookup
}

func NewRouteResolver(progress ProgressLookup) *RouteResolver {
	return &RouteResolver{progress: progress}
}

// ResolveMode only looks at whether a NUPCAN was supplied.
func (r *RouteResolver) ResolveMode(params models.RouteParams) models.Mode {
	if params.Nupcan != "" {
		return models.ModeContinue
	}
	return models.ModeNew
}

func (r *RouteResolver) ResolveIdentifier(params models.RouteParams) (string, error) {
	if params.Nupcan != "" {
		return params.Nupcan, nil
	}
	if params.CandidatureID != "" {
		return params.CandidatureID, nil
	}
	return "", ErrMissingIdentifier
}

func (r *RouteResolver) DocumentsPath(params models.RouteParams) (string, error) {
	return r.stepPath(routeDocuments, params)
}

func (r *RouteResolver) PaymentPath(params models.RouteParams) (string, error) {
	return r.stepPath(routePayment, params)
}

func (r *RouteResolver) SuccessPath(params models.RouteParams) (string, error) {
	return r.stepPath(routeSuccess, params)
}

func (r *RouteResolver) StatusPath(nupcan string) string {
	return "/" + routeStatus + "/" + url.PathEscape(nupcan)
}

func (r *RouteResolver) stepPath(route string, params models.RouteParams) (string, error) {
	id, err := r.ResolveIdentifier(params)
	if err != nil {
		return "", fmt.Errorf("%s path: %w", route, err)
	}
	return buildPath(route, r.ResolveMode(params), id), nil
}

// ResolveVerifiedMode answers Continue only for a well-formed NUPCAN the
// ledger already holds a record for.
func (r *RouteResolver) ResolveVerifiedMode(params models.RouteParams) models.Mode {
	if params.Nupcan == "" || !IsValidNupcanFormat(params.Nupcan) || r.progress == nil {
		return models.ModeNew
	}
	if _, ok := r.progress.GetProgress(params.Nupcan); !ok {
		return models.ModeNew
	}
	return models.ModeContinue
}

func (r *RouteResolver) VerifiedDocumentsPath(params models.RouteParams) (string, error) {
	return r.verifiedStepPath(routeDocuments, params)
}

func (r *RouteResolver) VerifiedPaymentPath(params models.RouteParams) (string, error) {
	return r.verifiedStepPath(routePayment, params)
}

func (r *RouteResolver) VerifiedSuccessPath(params models.RouteParams) (string, error) {
	return r.verifiedStepPath(routeSuccess, params)
}

func (r *RouteResolver) verifiedStepPath(route string, params models.RouteParams) (string, error) {
	mode := r.ResolveVerifiedMode(params)
	if mode == models.ModeContinue {
		return buildPath(route, mode, params.Nupcan), nil
	}
	if params.CandidatureID != "" {
		return buildPath(route, mode, params.CandidatureID), nil
	}
	if params.Nupcan != "" {
		return "", fmt.Errorf("%s path for %q: %w", route, params.Nupcan, ErrUnknownNupcan)
	}
	return "", fmt.Errorf("%s path: %w", route, ErrMissingIdentifier)
}

// NextStepPath returns the page where a candidacy at step moves forward.
// Registration has no page once a NUPCAN exists and maps to the status page.
func (r *RouteResolver) NextStepPath(params models.RouteParams, step models.Step) (string, error) {
	switch step {
	case models.StepDocuments:
		return r.VerifiedDocumentsPath(params)
	case models.StepPayment:
		return r.VerifiedPaymentPath(params)
	case models.StepDone:
		return r.VerifiedSuccessPath(params)
	case models.StepRegistration:
		if params.Nupcan == "" {
			return "", fmt.Errorf("%s path: %w", routeStatus, ErrMissingIdentifier)
		}
		return r.StatusPath(params.Nupcan), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStep, step)
	}
}

func buildPath(route string, mode models.Mode, id string) string {
	if mode == models.ModeContinue {
		return "/" + route + "/continue/" + url.PathEscape(id)
	}
	return "/" + route + "/" + url.PathEscape(id)
}

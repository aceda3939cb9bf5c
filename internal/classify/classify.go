// Package classify maps raw portal markup onto a login Outcome.
//
// Classification is an ordered table of rules; the first rule whose predicate
// holds decides the outcome. UI strings are matched on the raw markup,
// human-readable error phrases on the lower-cased markup.
package classify

import (
	"strings"

	"anefwatch/internal/types"
)

// Marker sets. Adding a marker never changes the rule order.
var (
	// ResetMarkers signal a Keycloak UPDATE_PASSWORD required action (raw case).
	ResetMarkers = []string{
		"UPDATE_PASSWORD",
		"required-action",
		"Réinitialisez votre mot de passe",
	}

	// SSOErrorMarkers are UI classes shown by the SSO form on failure (raw case).
	SSOErrorMarkers = []string{
		"fr-alert--error",
	}

	// SSOErrorPhrases are error phrases matched on lower-cased markup.
	SSOErrorPhrases = []string{
		"mot de passe invalide",
		"invalid",
	}

	// DashboardMarkers only appear on the authenticated landing page (raw case).
	DashboardMarkers = []string{
		"notification-table",
		"fa-bell",
		"tableau-de-bord",
		"mes-dossiers",
	}

	// LoginMarkers only appear on the SSO login page (lower case).
	LoginMarkers = []string{
		`name="username"`,
		`name="password"`,
		"kc-login",
		"kc-form-login",
		"fr-alert--error",
		"mot de passe invalide",
		"mot de passe oubli",
	}

	failureKeywords     = []string{"error", "erreur"}
	maintenanceKeywords = []string{"maintenance"}
)

// page is the markup under classification, pre-folded once.
type page struct {
	raw       string
	lower     string
	dashboard bool
}

func newPage(markup string, reachedDashboard bool) page {
	return page{raw: markup, lower: strings.ToLower(markup), dashboard: reachedDashboard}
}

type rule struct {
	name    string
	matches func(p page) bool
	outcome func(p page) types.Outcome
}

// rules is evaluated top to bottom.
var rules = []rule{
	{
		name:    "password-reset",
		matches: func(p page) bool { return containsAny(p.raw, ResetMarkers) },
		outcome: func(page) types.Outcome { return types.PasswordResetRequired() },
	},
	{
		name: "sso-error",
		matches: func(p page) bool {
			return containsAny(p.raw, SSOErrorMarkers) || containsAny(p.lower, SSOErrorPhrases)
		},
		outcome: func(page) types.Outcome { return types.InvalidCredentials() },
	},
	{
		// Refined into one of the two authenticated outcomes by the
		// notification extractor.
		name: "dashboard",
		matches: func(p page) bool {
			return p.dashboard && containsAny(p.raw, DashboardMarkers) && !containsAny(p.lower, LoginMarkers)
		},
		outcome: func(page) types.Outcome { return types.AuthenticatedNoNotification() },
	},
	{
		name: "login-form",
		matches: func(p page) bool {
			return p.dashboard && containsAny(p.lower, LoginMarkers)
		},
		outcome: func(page) types.Outcome { return types.InvalidCredentials() },
	},
}

const fallbackRule = "indeterminate"

// Classify returns the outcome of one attempt from its final markup.
// reachedDashboard is true when the markup comes from the dashboard fetch.
// Classify never fails: unrecognized markup yields an Indeterminate outcome.
func Classify(markup string, reachedDashboard bool) types.Outcome {
	_, outcome := evaluate(newPage(markup, reachedDashboard))
	return outcome
}

// Explain returns the name of the rule that decided the outcome along with it.
func Explain(markup string, reachedDashboard bool) (string, types.Outcome) {
	return evaluate(newPage(markup, reachedDashboard))
}

// IsTerminal reports whether login-phase markup already decides the outcome,
// making the dashboard fetch unnecessary.
func IsTerminal(markup string) bool {
	p := newPage(markup, false)
	return rules[0].matches(p) || rules[1].matches(p)
}

func evaluate(p page) (string, types.Outcome) {
	for _, r := range rules {
		if r.matches(p) {
			return r.name, r.outcome(p)
		}
	}
	return fallbackRule, types.Indeterminate(indeterminateReason(p))
}

func indeterminateReason(p page) string {
	switch {
	case containsAny(p.lower, failureKeywords):
		return types.ReasonLikelyCredentials
	case containsAny(p.lower, maintenanceKeywords):
		return types.ReasonSiteMaintenance
	default:
		return types.ReasonUnclassified
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

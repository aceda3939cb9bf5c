package types

import "fmt"

// OutcomeTag is the closed set of classified login results.
type OutcomeTag int

const (
	// OutcomeIndeterminate is the zero value: nothing recognizable was found.
	OutcomeIndeterminate OutcomeTag = iota
	OutcomeAuthenticatedNoNotification
	OutcomeAuthenticatedWithNotification
	OutcomePasswordResetRequired
	OutcomeInvalidCredentials
)

func (t OutcomeTag) String() string {
	switch t {
	case OutcomeAuthenticatedNoNotification:
		return "authenticated_no_notification"
	case OutcomeAuthenticatedWithNotification:
		return "authenticated_with_notification"
	case OutcomePasswordResetRequired:
		return "password_reset_required"
	case OutcomeInvalidCredentials:
		return "invalid_credentials"
	default:
		return "indeterminate"
	}
}

// Indeterminate reasons.
const (
	ReasonLikelyCredentials = "likely-credentials"
	ReasonSiteMaintenance   = "site-maintenance"
	ReasonUnclassified      = "unclassified-markup"
	ReasonDriverError       = "driver-error"
)

// Outcome is the classified result of one authentication attempt.
// Build values with the constructors below; NotificationType is only set for
// OutcomeAuthenticatedWithNotification and Reason only for OutcomeIndeterminate.
type Outcome struct {
	Tag              OutcomeTag `json:"tag"`
	NotificationType string     `json:"notification_type,omitempty"`
	Reason           string     `json:"reason,omitempty"`
}

func AuthenticatedNoNotification() Outcome {
	return Outcome{Tag: OutcomeAuthenticatedNoNotification}
}

func AuthenticatedWithNotification(notificationType string) Outcome {
	return Outcome{Tag: OutcomeAuthenticatedWithNotification, NotificationType: notificationType}
}

func PasswordResetRequired() Outcome {
	return Outcome{Tag: OutcomePasswordResetRequired}
}

func InvalidCredentials() Outcome {
	return Outcome{Tag: OutcomeInvalidCredentials}
}

func Indeterminate(reason string) Outcome {
	return Outcome{Tag: OutcomeIndeterminate, Reason: reason}
}

// Authenticated reports whether the session reached the client dashboard.
func (o Outcome) Authenticated() bool {
	return o.Tag == OutcomeAuthenticatedNoNotification || o.Tag == OutcomeAuthenticatedWithNotification
}

func (o Outcome) String() string {
	switch o.Tag {
	case OutcomeAuthenticatedWithNotification:
		return fmt.Sprintf("%s{%q}", o.Tag, o.NotificationType)
	case OutcomeIndeterminate:
		return fmt.Sprintf("%s{%s}", o.Tag, o.Reason)
	default:
		return o.Tag.String()
	}
}

// Message is the operator-facing status written back to the record store.
func (o Outcome) Message() string {
	switch o.Tag {
	case OutcomeAuthenticatedNoNotification, OutcomeAuthenticatedWithNotification:
		return "Connexion réussie"
	case OutcomePasswordResetRequired:
		return "Mise à jour du mot de passe requise"
	case OutcomeInvalidCredentials:
		return "Erreur de connexion - Identifiants incorrects"
	}
	switch o.Reason {
	case ReasonLikelyCredentials:
		return "Erreur de connexion - Identifiants incorrects"
	case ReasonSiteMaintenance:
		return "Page de maintenance - Site indisponible"
	case ReasonDriverError:
		return "Erreur technique - Vérifier manuellement"
	default:
		return "Dashboard non atteint - Vérifier manuellement"
	}
}

// NotificationFlag is the value of the "notifications" report column.
func (o Outcome) NotificationFlag() string {
	switch o.Tag {
	case OutcomeAuthenticatedWithNotification:
		return "OUI"
	case OutcomeAuthenticatedNoNotification:
		return "NON"
	case OutcomePasswordResetRequired:
		return "UPDATE_PASSWORD"
	default:
		return "N/A"
	}
}

// Case is the label sent to the notification webhook. The four cases
// partition every Outcome.
type Case string

const (
	CaseNoNotification     Case = "Aucune notification"
	CaseNewNotification    Case = "Nouvelle notification"
	CaseResetRequired      Case = "Réinitialisation mot de passe requise"
	CaseInvalidCredentials Case = "Identifiants incorrects"
)

// Case maps the outcome onto its webhook case. Indeterminate outcomes are
// reported with the invalid-credentials case so the firm follows up manually.
func (o Outcome) Case() Case {
	switch o.Tag {
	case OutcomeAuthenticatedNoNotification:
		return CaseNoNotification
	case OutcomeAuthenticatedWithNotification:
		return CaseNewNotification
	case OutcomePasswordResetRequired:
		return CaseResetRequired
	default:
		return CaseInvalidCredentials
	}
}

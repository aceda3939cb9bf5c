package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func allOutcomes() []Outcome {
	return []Outcome{
		AuthenticatedNoNotification(),
		AuthenticatedWithNotification("Nouvelle pièce"),
		PasswordResetRequired(),
		InvalidCredentials(),
		Indeterminate(ReasonLikelyCredentials),
		Indeterminate(ReasonSiteMaintenance),
		Indeterminate(ReasonUnclassified),
		Indeterminate(ReasonDriverError),
	}
}

func TestOutcomeCase(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    Case
	}{
		{AuthenticatedNoNotification(), CaseNoNotification},
		{AuthenticatedWithNotification("x"), CaseNewNotification},
		{PasswordResetRequired(), CaseResetRequired},
		{InvalidCredentials(), CaseInvalidCredentials},
		{Indeterminate(ReasonUnclassified), CaseInvalidCredentials},
		{Indeterminate(ReasonDriverError), CaseInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.outcome.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.outcome.Case())
		})
	}
}

func TestOutcomeCaseIsTotal(t *testing.T) {
	valid := map[Case]bool{
		CaseNoNotification:     true,
		CaseNewNotification:    true,
		CaseResetRequired:      true,
		CaseInvalidCredentials: true,
	}
	for _, o := range allOutcomes() {
		assert.True(t, valid[o.Case()], "outcome %s mapped to unknown case %q", o, o.Case())
		assert.NotEmpty(t, o.Message())
	}
}

func TestOutcomeAuthenticated(t *testing.T) {
	assert.True(t, AuthenticatedNoNotification().Authenticated())
	assert.True(t, AuthenticatedWithNotification("").Authenticated())
	assert.False(t, PasswordResetRequired().Authenticated())
	assert.False(t, InvalidCredentials().Authenticated())
	assert.False(t, Indeterminate(ReasonUnclassified).Authenticated())

	var zero Outcome
	assert.Equal(t, OutcomeIndeterminate, zero.Tag)
}

func TestOutcomeMessages(t *testing.T) {
	assert.Equal(t, "Page de maintenance - Site indisponible", Indeterminate(ReasonSiteMaintenance).Message())
	assert.Equal(t, InvalidCredentials().Message(), Indeterminate(ReasonLikelyCredentials).Message())
	assert.Equal(t, "Dashboard non atteint - Vérifier manuellement", Indeterminate(ReasonUnclassified).Message())
}

func TestNotificationFlag(t *testing.T) {
	assert.Equal(t, "OUI", AuthenticatedWithNotification("x").NotificationFlag())
	assert.Equal(t, "NON", AuthenticatedNoNotification().NotificationFlag())
	assert.Equal(t, "UPDATE_PASSWORD", PasswordResetRequired().NotificationFlag())
	assert.Equal(t, "N/A", InvalidCredentials().NotificationFlag())
	assert.Equal(t, "N/A", Indeterminate(ReasonDriverError).NotificationFlag())
}

func TestCredentialRecordComplete(t *testing.T) {
	assert.True(t, CredentialRecord{Username: "u", Password: "p"}.Complete())
	assert.False(t, CredentialRecord{Username: "u"}.Complete())
	assert.False(t, CredentialRecord{Password: "p"}.Complete())
	assert.False(t, CredentialRecord{Username: "  ", Password: "p"}.Complete())
}

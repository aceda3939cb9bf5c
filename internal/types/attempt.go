package types

import "time"

// Attempt is one entry of a batch result: the account, its classified
// outcome and the status message recorded against it.
type Attempt struct {
	Record    CredentialRecord `json:"record"`
	Outcome   Outcome          `json:"outcome"`
	Message   string           `json:"message"`
	SessionID string           `json:"session_id"`
	Duration  time.Duration    `json:"duration"`
}

// Succeeded reports whether the account reached its dashboard.
func (a Attempt) Succeeded() bool {
	return a.Outcome.Authenticated()
}

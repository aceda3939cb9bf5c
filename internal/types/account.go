// Package types holds the domain model shared by the driver, classifier,
// orchestrator and dispatcher: client credential records and the classified
// outcome of one login attempt.
package types

import "strings"

// CredentialRecord identifies one client account under test.
// Records are read once per run and never mutated by the engine; only the
// derived status column is written back by the record store.
type CredentialRecord struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	Password    string `json:"-"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`

	// Row is the zero-based position of the record in its source store.
	Row int `json:"row"`
}

// Complete reports whether the record carries both a username and a password.
func (r CredentialRecord) Complete() bool {
	return strings.TrimSpace(r.Username) != "" && strings.TrimSpace(r.Password) != ""
}

// Label returns a short identity for logs and summaries.
func (r CredentialRecord) Label() string {
	if r.DisplayName != "" {
		return r.DisplayName + " (" + r.Username + ")"
	}
	return r.Username
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"anefwatch/internal/batch"
	"anefwatch/internal/config"
	"anefwatch/internal/store"
	"anefwatch/internal/types"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"oui\n", true},
		{" YES \n", true},
		{"o", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		assert.Equal(t, tt.want, confirm(strings.NewReader(tt.input), &out, 3, "2s"), "input %q", tt.input)
		assert.Contains(t, out.String(), "Process 3 account(s), 2s apart?")
	}
}

func TestApplyBatchFlags(t *testing.T) {
	t.Cleanup(func() {
		batchInput, batchResults, batchLimit = "", "", ""
		batchHeadless = true
	})

	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(batchCmd.Flags())
	require.NoError(t, cmd.Flags().Set("limit", "3"))
	require.NoError(t, cmd.Flags().Set("headless", "false"))
	batchInput = "/tmp/clients.csv"
	batchResults = "/tmp/out"

	c := config.DefaultConfig()
	require.NoError(t, applyBatchFlags(cmd, c))
	assert.Equal(t, 3, c.Batch.MaxAccounts)
	assert.False(t, c.Browser.Headless)
	assert.Equal(t, "/tmp/clients.csv", c.Input.CSVPath)
	assert.Equal(t, "/tmp/out", c.Input.ResultsDir)

	require.NoError(t, cmd.Flags().Set("limit", "all"))
	require.NoError(t, applyBatchFlags(cmd, c))
	assert.Zero(t, c.Batch.MaxAccounts)

	require.NoError(t, cmd.Flags().Set("limit", "beaucoup"))
	assert.Error(t, applyBatchFlags(cmd, c))
}

func TestBrowserConfig(t *testing.T) {
	c := config.DefaultConfig()
	c.Browser.LoginTimeout = "15s"
	c.Browser.ViewportWidth = 0

	bc := browserConfig(c)
	assert.Equal(t, c.Portal.LoginURL, bc.LoginURL)
	assert.Equal(t, c.Portal.HomeURL, bc.HomeURL)
	assert.Equal(t, 15*time.Second, bc.LoginTimeout)
	assert.Equal(t, 40*time.Second, bc.DashboardTimeout)
	assert.Equal(t, 1920, bc.ViewportWidth, "incomplete viewport keeps the driver default")
	assert.Equal(t, c.Browser.UserAgent, bc.UserAgent)
}

func TestRenderSummary(t *testing.T) {
	start := time.Now()
	r := &batch.Result{
		RunID:      "0f8e2c1a-0000-4000-8000-000000000000",
		Skipped:    2,
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		Entries: []types.Attempt{
			{Record: types.CredentialRecord{DisplayName: "Awa", Username: "u1"}, Outcome: types.AuthenticatedWithNotification("Décision"), Message: "Connexion réussie"},
			{Record: types.CredentialRecord{Username: "u2"}, Outcome: types.InvalidCredentials(), Message: "Erreur de connexion - Identifiants incorrects"},
		},
	}

	out := renderSummary(r)
	assert.Contains(t, out, "Processed: 2")
	assert.Contains(t, out, "succeeded: 1")
	assert.Contains(t, out, "failed: 1")
	assert.Contains(t, out, "skipped: 2")
	assert.Contains(t, out, "OUI")
	assert.Contains(t, out, "u2: Erreur de connexion - Identifiants incorrects")
	assert.NotContains(t, out, "Awa (u1):")
}

func TestRunClassify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	markup := `<h1 class="tableau-de-bord">Mon espace</h1>
<table class="notification-table"><tr><td><span class="ui-msg-not-read">  Nouvelle   pièce  </span></td></tr></table>`
	require.NoError(t, os.WriteFile(path, []byte(markup), 0644))

	t.Cleanup(func() { classifyDashboard = false })
	classifyDashboard = true

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, runClassify(cmd, []string{path}))

	assert.Contains(t, out.String(), "rule:     dashboard")
	assert.Contains(t, out.String(), "case:     Nouvelle notification")
	assert.Contains(t, out.String(), "type:     Nouvelle pièce")

	out.Reset()
	classifyDashboard = false
	cmd.SetIn(strings.NewReader(`<div class="fr-alert--error">mot de passe invalide</div>`))
	require.NoError(t, runClassify(cmd, []string{"-"}))
	assert.Contains(t, out.String(), "rule:     sso-error")
	assert.Contains(t, out.String(), "case:     Identifiants incorrects")
}

func TestRunHistory(t *testing.T) {
	logger = zap.NewNop()
	cfg = config.DefaultConfig()
	t.Cleanup(func() { cfg = nil })

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	assert.ErrorContains(t, runHistory(cmd, []string{"7"}), "history is disabled")

	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	h, err := store.OpenHistory(cfg.History.Path)
	require.NoError(t, err)
	require.NoError(t, h.Record(context.Background(), "9c1d3f5e-run", types.Attempt{
		Record:  types.CredentialRecord{AccountID: "7", Username: "u7"},
		Outcome: types.PasswordResetRequired(),
		Message: "Mise à jour du mot de passe requise",
	}))
	require.NoError(t, h.Close())

	require.NoError(t, runHistory(cmd, []string{"7"}))
	assert.Contains(t, out.String(), "password_reset_required")
	assert.Contains(t, out.String(), "9c1d3f5e")

	out.Reset()
	require.NoError(t, runHistory(cmd, []string{"8"}))
	assert.Contains(t, out.String(), "No attempts recorded for 8")
}

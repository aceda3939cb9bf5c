package store

import (
	"context"
	"path/filepath"
	"testing"

	"anefwatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_RecordAndQuery(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history", "anefwatch.db"))
	require.NoError(t, err)
	defer h.Close()
	ctx := context.Background()

	rec := types.CredentialRecord{AccountID: "7", DisplayName: "Awa", Username: "u7", Password: "secret"}
	require.NoError(t, h.Record(ctx, "run-1", types.Attempt{Record: rec, Outcome: types.AuthenticatedNoNotification(), Message: "Connexion réussie"}))
	require.NoError(t, h.Record(ctx, "run-2", types.Attempt{Record: rec, Outcome: types.AuthenticatedWithNotification("Décision"), Message: "Connexion réussie"}))
	require.NoError(t, h.Record(ctx, "run-2", types.Attempt{
		Record:  types.CredentialRecord{AccountID: "8", Username: "u8"},
		Outcome: types.Indeterminate(types.ReasonDriverError),
	}))

	entries, err := h.ForAccount(ctx, "7", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "run-2", entries[0].RunID)
	assert.Equal(t, "authenticated_with_notification", entries[0].Outcome)
	assert.Equal(t, "Décision", entries[0].NotificationType)
	assert.Equal(t, "run-1", entries[1].RunID)
	assert.False(t, entries[0].RecordedAt.IsZero())

	n, err := h.RunCount(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	other, err := h.ForAccount(ctx, "8", 0)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, types.ReasonDriverError, other[0].Reason)
}

func TestHistory_InMemory(t *testing.T) {
	h, err := OpenHistory(":memory:")
	require.NoError(t, err)
	defer h.Close()

	n, err := h.RunCount(context.Background(), "none")
	require.NoError(t, err)
	assert.Zero(t, n)
}

package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"anefwatch/internal/metrics"
	"anefwatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var client = types.CredentialRecord{
	AccountID:   "4",
	DisplayName: "Awa Diallo",
	Username:    "7512345678",
	Password:    "s3cret!",
	Email:       "awa@example.test",
	Phone:       "+33612345678",
}

func TestPayloadFor(t *testing.T) {
	tests := []struct {
		name     string
		outcome  types.Outcome
		wantCase types.Case
		wantType string
	}{
		{"no notification", types.AuthenticatedNoNotification(), types.CaseNoNotification, ""},
		{"new notification", types.AuthenticatedWithNotification("Nouvelle pièce"), types.CaseNewNotification, "Nouvelle pièce"},
		{"reset", types.PasswordResetRequired(), types.CaseResetRequired, ""},
		{"invalid", types.InvalidCredentials(), types.CaseInvalidCredentials, ""},
		{"indeterminate", types.Indeterminate(types.ReasonDriverError), types.CaseInvalidCredentials, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PayloadFor(client, tt.outcome)
			assert.Equal(t, tt.wantCase, p.Case)
			assert.Equal(t, tt.wantType, p.NotificationType)
			assert.Equal(t, "Awa Diallo", p.ClientName)
			assert.Equal(t, "+33612345678", p.Mobile)
		})
	}
}

func TestNotify_PostsJSON(t *testing.T) {
	var got map[string]string
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := metrics.New()
	d := New(srv.URL, time.Second, zap.NewNop(), m)
	d.Notify(context.Background(), PayloadFor(client, types.AuthenticatedWithNotification("Convocation")))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, map[string]string{
		"client_name":       "Awa Diallo",
		"username":          "7512345678",
		"password":          "s3cret!",
		"email":             "awa@example.test",
		"mobile":            "+33612345678",
		"case":              "Nouvelle notification",
		"notification_type": "Convocation",
	}, got)
}

func TestNotify_NonOKIsLoggedNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 500)))
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	d := New(srv.URL, time.Second, zap.New(core), nil)
	d.Notify(context.Background(), PayloadFor(client, types.InvalidCredentials()))

	assert.Equal(t, int32(1), calls.Load())
	entries := logs.FilterMessage("Webhook rejected notification").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 500, fields["status"])
	assert.Len(t, fields["response"], responseExcerpt)
}

func TestNotify_TransportErrorIsLogged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	d := New(url, time.Second, zap.New(core), nil)
	d.Notify(context.Background(), PayloadFor(client, types.PasswordResetRequired()))

	assert.Equal(t, 1, logs.FilterMessage("Webhook delivery failed").Len())
}

func TestNotify_PasswordNeverLogged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	d := New(srv.URL, time.Second, zap.New(core), nil)
	d.Notify(context.Background(), PayloadFor(client, types.AuthenticatedNoNotification()))

	for _, e := range logs.All() {
		for _, v := range e.ContextMap() {
			assert.NotEqual(t, client.Password, v)
		}
	}
}

func TestNotify_DisabledWithoutURL(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := New("", time.Second, zap.New(core), nil)
	d.Notify(context.Background(), PayloadFor(client, types.InvalidCredentials()))

	assert.Equal(t, 1, logs.FilterMessage("Webhook URL not configured, notification skipped").Len())
}

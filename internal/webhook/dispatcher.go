// Package webhook delivers one JSON notification per processed account to the
// firm's automation endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"anefwatch/internal/metrics"
	"anefwatch/internal/types"

	"go.uber.org/zap"
)

// Payload is the JSON body posted for each account.
type Payload struct {
	ClientName       string     `json:"client_name"`
	Username         string     `json:"username"`
	Password         string     `json:"password"`
	Email            string     `json:"email"`
	Mobile           string     `json:"mobile"`
	Case             types.Case `json:"case"`
	NotificationType string     `json:"notification_type"`
}

// PayloadFor builds the payload for a record and its outcome.
// notification_type is only filled for the new-notification case.
func PayloadFor(rec types.CredentialRecord, outcome types.Outcome) Payload {
	p := Payload{
		ClientName: rec.DisplayName,
		Username:   rec.Username,
		Password:   rec.Password,
		Email:      rec.Email,
		Mobile:     rec.Phone,
		Case:       outcome.Case(),
	}
	if p.Case == types.CaseNewNotification {
		p.NotificationType = outcome.NotificationType
	}
	return p
}

// Delivery results reported to metrics.
const (
	resultDelivered = "delivered"
	resultRejected  = "rejected"
	resultFailed    = "failed"
	resultDisabled  = "disabled"
)

const responseExcerpt = 200

// Dispatcher posts payloads to a webhook URL. Delivery is best effort: failures
// are logged and never retried.
type Dispatcher struct {
	url     string
	client  *http.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a dispatcher. An empty url disables delivery.
func New(url string, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: m,
	}
}

// Notify sends the payload once.
func (d *Dispatcher) Notify(ctx context.Context, p Payload) {
	log := d.logger.With(zap.String("username", p.Username), zap.String("case", string(p.Case)))

	if d.url == "" {
		log.Warn("Webhook URL not configured, notification skipped")
		d.metrics.ObserveDelivery(resultDisabled)
		return
	}

	body, err := json.Marshal(p)
	if err != nil {
		log.Error("Failed to encode webhook payload", zap.Error(err))
		d.metrics.ObserveDelivery(resultFailed)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		log.Error("Failed to build webhook request", zap.Error(err))
		d.metrics.ObserveDelivery(resultFailed)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		log.Error("Webhook delivery failed", zap.Error(err))
		d.metrics.ObserveDelivery(resultFailed)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, responseExcerpt))
		log.Warn("Webhook rejected notification",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(excerpt)))
		d.metrics.ObserveDelivery(resultRejected)
		return
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	log.Info("Webhook sent")
	d.metrics.ObserveDelivery(resultDelivered)
}

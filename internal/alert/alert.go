// Package alert delivers security notifications to an external ops channel.
// Dispatch is fire-and-forget from the engine's point of view: failures are
// reported to the caller for logging but must never fail the operation that
// triggered the alert.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"custodia/internal/models"
)

// Notifier is the external alerting collaborator.
type Notifier interface {
	// SendSecurityAlert notifies the security channel about a HIGH or
	// CRITICAL audit event.
	SendSecurityAlert(ctx context.Context, event *models.AuditEvent) error

	// SendCriticalAlert raises an out-of-band ops alert for critical events.
	SendCriticalAlert(ctx context.Context, message, source string, severity models.Severity) error
}

// WebhookNotifier posts alert payloads as JSON to a configured webhook,
// e.g. a Teams or Slack incoming webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier for the given webhook URL. The
// timeout bounds each dispatch; a timed-out dispatch must not block or roll
// back the recording that triggered it.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookPayload struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Source    string `json:"source"`
	Severity  string `json:"severity"`
	EventID   string `json:"event_id,omitempty"`
	Action    string `json:"action,omitempty"`
	Resource  string `json:"resource,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	RiskLevel string `json:"risk_level,omitempty"`
}

// SendSecurityAlert implements Notifier.
func (n *WebhookNotifier) SendSecurityAlert(ctx context.Context, event *models.AuditEvent) error {
	return n.post(ctx, webhookPayload{
		Kind:      "security_alert",
		Message:   fmt.Sprintf("Security-relevant audit event: %s on %s", event.Action, event.Resource),
		Source:    "audit",
		Severity:  string(event.RiskLevel),
		EventID:   event.ID,
		Action:    event.Action,
		Resource:  event.Resource,
		UserID:    event.UserID,
		RiskLevel: string(event.RiskLevel),
	})
}

// SendCriticalAlert implements Notifier.
func (n *WebhookNotifier) SendCriticalAlert(ctx context.Context, message, source string, severity models.Severity) error {
	return n.post(ctx, webhookPayload{
		Kind:     "critical_alert",
		Message:  message,
		Source:   source,
		Severity: string(severity),
	})
}

func (n *WebhookNotifier) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("alert dispatch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// NopNotifier discards all alerts. Used when no webhook is configured.
type NopNotifier struct{}

// SendSecurityAlert implements Notifier.
func (NopNotifier) SendSecurityAlert(context.Context, *models.AuditEvent) error { return nil }

// SendCriticalAlert implements Notifier.
func (NopNotifier) SendCriticalAlert(context.Context, string, string, models.Severity) error {
	return nil
}

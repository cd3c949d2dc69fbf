package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/rs/zerolog"
)

// ConsoleTransport logs every notification through the process logger,
// the Go equivalent of the reference implementation's stdout println.
type ConsoleTransport struct {
	log zerolog.Logger
}

// NewConsoleTransport constructs a ConsoleTransport.
func NewConsoleTransport(log zerolog.Logger) *ConsoleTransport {
	return &ConsoleTransport{log: log.With().Str("component", "alerts.console").Logger()}
}

func (t *ConsoleTransport) Kind() domain.ChannelKind { return domain.ChannelConsole }

func (t *ConsoleTransport) Send(ctx context.Context, channel domain.NotificationChannel, alert domain.RiskAlert, isEscalation bool, escalationLevel int) error {
	event := t.log.Info()
	if isEscalation {
		event = t.log.Warn()
	}

	event.
		Str("alert_id", alert.ID.String()).
		Str("position_id", alert.PositionID.String()).
		Str("level", strings.ToUpper(string(alert.Level))).
		Bool("is_escalation", isEscalation).
		Int("escalation_level", escalationLevel).
		Msg(alert.Message)

	if alert.Level == domain.RiskLevelEmergency {
		t.log.Warn().Str("alert_id", alert.ID.String()).Msg("immediate action required")
	}
	return nil
}

// WebhookTransport posts a JSON payload to the channel's configured
// endpoint, with a short per-request timeout so a slow receiver never
// stalls the notification worker.
type WebhookTransport struct {
	client *http.Client
}

// NewWebhookTransport constructs a WebhookTransport using a client with
// a bounded per-request timeout.
func NewWebhookTransport() *WebhookTransport {
	return &WebhookTransport{client: &http.Client{Timeout: 5 * time.Second}}
}

func (t *WebhookTransport) Kind() domain.ChannelKind { return domain.ChannelWebhook }

type webhookPayload struct {
	AlertID         string          `json:"alert_id"`
	PositionID      string          `json:"position_id"`
	Level           domain.RiskLevel `json:"level"`
	Message         string          `json:"message"`
	IsEscalation    bool            `json:"is_escalation"`
	EscalationLevel int             `json:"escalation_level"`
}

func (t *WebhookTransport) Send(ctx context.Context, channel domain.NotificationChannel, alert domain.RiskAlert, isEscalation bool, escalationLevel int) error {
	if channel.Config.Endpoint == "" {
		return fmt.Errorf("webhook channel has no endpoint configured")
	}

	body, err := json.Marshal(webhookPayload{
		AlertID:         alert.ID.String(),
		PositionID:      alert.PositionID.String(),
		Level:           alert.Level,
		Message:         alert.Message,
		IsEscalation:    isEscalation,
		EscalationLevel: escalationLevel,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, channel.Config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if channel.Config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+channel.Config.AuthToken)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

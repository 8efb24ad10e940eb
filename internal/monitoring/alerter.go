package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cuartodemilla/fuel-etl/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertStaleData       AlertType = "stale_data"
	AlertRepeatedFailure AlertType = "repeated_failure"
	AlertEmptyLoad       AlertType = "empty_load"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := snap.CollectedAt
	maxAge := time.Duration(a.cfg.MaxAgeHours) * time.Hour

	// Check data freshness.
	switch {
	case snap.LastSuccess == nil:
		alerts = append(alerts, Alert{
			Type:      AlertStaleData,
			Severity:  "high",
			Message:   "No successful run recorded",
			Timestamp: now,
		})
	case now.Sub(*snap.LastSuccess) > maxAge:
		age := now.Sub(*snap.LastSuccess).Round(time.Minute)
		alerts = append(alerts, Alert{
			Type:     AlertStaleData,
			Severity: "high",
			Message: fmt.Sprintf(
				"Last successful run was %s ago, exceeding %dh",
				age, a.cfg.MaxAgeHours,
			),
			Details: map[string]any{
				"last_success":  snap.LastSuccess.Format(time.RFC3339),
				"max_age_hours": a.cfg.MaxAgeHours,
			},
			Timestamp: now,
		})
	}

	// Check failure streak.
	if a.cfg.MaxConsecutiveFailures > 0 && snap.ConsecutiveFailures >= a.cfg.MaxConsecutiveFailures {
		alerts = append(alerts, Alert{
			Type:     AlertRepeatedFailure,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d consecutive runs failed",
				snap.ConsecutiveFailures,
			),
			Details: map[string]any{
				"consecutive_failures": snap.ConsecutiveFailures,
				"last_error":           snap.LastError,
			},
			Timestamp: now,
		})
	}

	// A completed run that loaded nothing usually means the feed changed shape.
	if snap.ConsecutiveFailures == 0 && snap.Complete > 0 && snap.LastStations == 0 {
		alerts = append(alerts, Alert{
			Type:      AlertEmptyLoad,
			Severity:  "medium",
			Message:   "Most recent run completed without loading any stations",
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

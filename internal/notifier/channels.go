package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// Alert is the ephemeral notification event for one flagged transaction.
type Alert struct {
	EventID          uuid.UUID
	TransactionID    string
	AccountID        string
	Amount           decimal.Decimal
	MerchantCategory string
	Location         string
	Timestamp        time.Time
	AlertReason      string
	Score            float64
	Severity         Severity
}

// Channel delivers one alert to one external destination. Send returns
// backoff.Permanent-wrapped errors for failures that retrying cannot fix.
type Channel interface {
	Name() string
	Send(ctx context.Context, alert Alert) error
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(fmt.Errorf("webhook returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

// -- Slack --

type SlackChannel struct {
	URL    string
	Client *http.Client
}

func (c *SlackChannel) Name() string { return "slack" }

func (c *SlackChannel) Send(ctx context.Context, alert Alert) error {
	colors := map[Severity]string{
		SeverityCritical: "#FF0000",
		SeverityHigh:     "#FF6600",
		SeverityWarning:  "#FFCC00",
		SeverityInfo:     "#0099FF",
	}

	field := func(title, value string, short bool) map[string]any {
		return map[string]any{"title": title, "value": value, "short": short}
	}

	payload := map[string]any{
		"text": fmt.Sprintf("*Fraud Alert - %s*", strings.ToUpper(string(alert.Severity))),
		"attachments": []map[string]any{{
			"color": colors[alert.Severity],
			"fields": []map[string]any{
				field("Transaction ID", alert.TransactionID, true),
				field("Anomaly Score", fmt.Sprintf("%.2f%%", alert.Score*100), true),
				field("Amount", "€"+alert.Amount.StringFixed(2), true),
				field("Account ID", alert.AccountID, true),
				field("Merchant Category", alert.MerchantCategory, true),
				field("Location", alert.Location, true),
				field("Timestamp", alert.Timestamp.Format(time.RFC3339), false),
				field("Alert Reason", alert.AlertReason, false),
			},
			"footer": "Fraud Detection System",
			"ts":     time.Now().Unix(),
		}},
	}

	return postJSON(ctx, c.Client, c.URL, payload)
}

// -- Discord --

type DiscordChannel struct {
	URL    string
	Client *http.Client
}

func (c *DiscordChannel) Name() string { return "discord" }

func (c *DiscordChannel) Send(ctx context.Context, alert Alert) error {
	colors := map[Severity]int{
		SeverityCritical: 16711680,
		SeverityHigh:     16737792,
		SeverityWarning:  16776960,
		SeverityInfo:     43775,
	}

	field := func(name, value string, inline bool) map[string]any {
		return map[string]any{"name": name, "value": value, "inline": inline}
	}

	payload := map[string]any{
		"embeds": []map[string]any{{
			"title": fmt.Sprintf("Fraud Alert - %s", strings.ToUpper(string(alert.Severity))),
			"color": colors[alert.Severity],
			"fields": []map[string]any{
				field("Transaction ID", alert.TransactionID, true),
				field("Anomaly Score", fmt.Sprintf("%.2f%%", alert.Score*100), true),
				field("Amount", "€"+alert.Amount.StringFixed(2), true),
				field("Account ID", alert.AccountID, true),
				field("Category", alert.MerchantCategory, true),
				field("Location", alert.Location, true),
				field("Alert Reason", alert.AlertReason, false),
			},
			"timestamp": time.Now().Format(time.RFC3339),
			"footer":    map[string]string{"text": "Fraud Detection System"},
		}},
	}

	return postJSON(ctx, c.Client, c.URL, payload)
}

// -- Microsoft Teams --

type TeamsChannel struct {
	URL    string
	Client *http.Client
}

func (c *TeamsChannel) Name() string { return "teams" }

func (c *TeamsChannel) Send(ctx context.Context, alert Alert) error {
	colors := map[Severity]string{
		SeverityCritical: "attention",
		SeverityHigh:     "warning",
		SeverityWarning:  "warning",
		SeverityInfo:     "accent",
	}

	fact := func(name, value string) map[string]string {
		return map[string]string{"name": name, "value": value}
	}

	title := fmt.Sprintf("Fraud Alert - %s", strings.ToUpper(string(alert.Severity)))
	payload := map[string]any{
		"@type":      "MessageCard",
		"@context":   "https://schema.org/extensions",
		"summary":    title,
		"themeColor": colors[alert.Severity],
		"title":      title,
		"sections": []map[string]any{{
			"facts": []map[string]string{
				fact("Transaction ID", alert.TransactionID),
				fact("Anomaly Score", fmt.Sprintf("%.2f%%", alert.Score*100)),
				fact("Amount", "€"+alert.Amount.StringFixed(2)),
				fact("Account ID", alert.AccountID),
				fact("Category", alert.MerchantCategory),
				fact("Location", alert.Location),
				fact("Alert Reason", alert.AlertReason),
			},
		}},
	}

	return postJSON(ctx, c.Client, c.URL, payload)
}

// -- Generic HTTP webhook --

type WebhookChannel struct {
	URL    string
	Client *http.Client
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) Send(ctx context.Context, alert Alert) error {
	payload := map[string]any{
		"event":    "fraud_alert",
		"event_id": alert.EventID.String(),
		"severity": string(alert.Severity),
		"transaction": map[string]any{
			"transaction_id":    alert.TransactionID,
			"account_id":        alert.AccountID,
			"amount":            alert.Amount,
			"merchant_category": alert.MerchantCategory,
			"location":          alert.Location,
			"timestamp":         alert.Timestamp.Format(time.RFC3339),
			"alert_reason":      alert.AlertReason,
		},
		"anomaly_score": alert.Score,
		"timestamp":     time.Now().Format(time.RFC3339),
	}

	return postJSON(ctx, c.Client, c.URL, payload)
}

// -- Email --

type EmailChannel struct {
	Server   string
	Port     string
	Username string
	Password string
	From     string
	To       []string
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, alert Alert) error {
	subject := fmt.Sprintf("Fraud Alert - %s: €%s", strings.ToUpper(string(alert.Severity)), alert.Amount.StringFixed(2))
	body := fmt.Sprintf(`High-risk fraud transaction detected:

Transaction ID: %s
Anomaly Score: %.2f%%
Amount: €%s
Account ID: %s
Merchant Category: %s
Location: %s
Timestamp: %s
Alert Reason: %s

Severity: %s

Please investigate immediately.`,
		alert.TransactionID,
		alert.Score*100,
		alert.Amount.StringFixed(2),
		alert.AccountID,
		alert.MerchantCategory,
		alert.Location,
		alert.Timestamp.Format(time.RFC3339),
		alert.AlertReason,
		strings.ToUpper(string(alert.Severity)),
	)

	message := strings.Join([]string{
		"From: " + c.From,
		"To: " + strings.Join(c.To, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	auth := smtp.PlainAuth("", c.Username, c.Password, c.Server)
	return smtp.SendMail(c.Server+":"+c.Port, auth, c.From, c.To, []byte(message))
}

package notifier

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/nordlys-fintech/fraud-detector/internal/config"
	"github.com/nordlys-fintech/fraud-detector/internal/metrics"
)

const sendAttempts = 3

// Notifier fans fraud alerts out to the configured channels. Channel failures
// are isolated from each other and never surface to the caller: the contract
// is best effort, always returns.
type Notifier struct {
	channels   []Channel
	thresholds Thresholds
	logger     *logrus.Logger
	newBackOff func() backoff.BackOff
}

// NewNotifier resolves the enabled channel set from configuration. A channel
// with no endpoint configured is disabled.
func NewNotifier(env *config.Config, logger *logrus.Logger) *Notifier {
	client := &http.Client{Timeout: 10 * time.Second}

	var channels []Channel
	if env.SlackWebhookURL != "" {
		channels = append(channels, &SlackChannel{URL: env.SlackWebhookURL, Client: client})
	}
	if env.DiscordWebhookURL != "" {
		channels = append(channels, &DiscordChannel{URL: env.DiscordWebhookURL, Client: client})
	}
	if env.TeamsWebhookURL != "" {
		channels = append(channels, &TeamsChannel{URL: env.TeamsWebhookURL, Client: client})
	}
	if env.CustomWebhookURL != "" {
		channels = append(channels, &WebhookChannel{URL: env.CustomWebhookURL, Client: client})
	}
	if env.SMTPUsername != "" && env.SMTPPassword != "" {
		channels = append(channels, &EmailChannel{
			Server:   env.SMTPServer,
			Port:     env.SMTPPort,
			Username: env.SMTPUsername,
			Password: env.SMTPPassword,
			From:     env.EmailFrom,
			To:       strings.Split(env.EmailTo, ","),
		})
	}

	notifier := New(channels, DefaultThresholds(), logger)

	names := make([]string, len(channels))
	for i, channel := range channels {
		names[i] = channel.Name()
	}
	logger.WithField("channels", names).Info("Notifier.NewNotifier.enabled channels")

	return notifier
}

func New(channels []Channel, thresholds Thresholds, logger *logrus.Logger) *Notifier {
	return &Notifier{
		channels:   channels,
		thresholds: thresholds,
		logger:     logger,
		newBackOff: func() backoff.BackOff {
			policy := backoff.NewExponentialBackOff()
			policy.InitialInterval = 2 * time.Second
			policy.MaxInterval = 10 * time.Second
			return policy
		},
	}
}

// SendFraudAlert determines severity, suppresses alerts below the delivery
// threshold, and attempts every enabled channel independently. The returned
// map records each attempted channel's outcome; it is empty for suppressed
// severities. This method never returns an error.
func (n *Notifier) SendFraudAlert(ctx context.Context, alert Alert) map[string]bool {
	amount, _ := alert.Amount.Float64()
	alert.Severity = DetermineSeverity(alert.Score, amount, n.thresholds)

	if !alert.Severity.Notifiable() {
		n.logger.WithFields(logrus.Fields{
			"transaction_id": alert.TransactionID,
			"severity":       alert.Severity,
		}).Debug("Notifier.SendFraudAlert.suppressed")
		return map[string]bool{}
	}

	results := make(map[string]bool, len(n.channels))
	for _, channel := range n.channels {
		results[channel.Name()] = n.sendWithRetry(ctx, channel, alert)
	}

	n.logger.WithFields(logrus.Fields{
		"transaction_id": alert.TransactionID,
		"severity":       alert.Severity,
		"results":        results,
	}).Info("Notifier.SendFraudAlert.done")

	return results
}

// sendWithRetry retries transient transport failures with exponential backoff
// up to the attempt ceiling. Permanent failures stop immediately.
func (n *Notifier) sendWithRetry(ctx context.Context, channel Channel, alert Alert) bool {
	operation := func() error {
		return channel.Send(ctx, alert)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(n.newBackOff(), sendAttempts-1), ctx)
	err := backoff.Retry(operation, policy)
	if err != nil {
		n.logger.WithError(err).WithFields(logrus.Fields{
			"transaction_id": alert.TransactionID,
			"channel":        channel.Name(),
		}).Error("Notifier.SendFraudAlert.channel failed")
		metrics.NotificationsSent.WithLabelValues(channel.Name(), "error").Inc()
		return false
	}

	metrics.NotificationsSent.WithLabelValues(channel.Name(), "success").Inc()
	return true
}

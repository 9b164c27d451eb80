package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/nordlys-fintech/fraud-detector/internal/logging"
)

// fakeChannel records send attempts and fails according to its script.
type fakeChannel struct {
	name string

	mu       sync.Mutex
	attempts int
	script   []error // error per attempt; attempts beyond the script succeed
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(ctx context.Context, alert Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	attempt := c.attempts
	c.attempts++
	if attempt < len(c.script) {
		return c.script[attempt]
	}
	return nil
}

func (c *fakeChannel) sendAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func newTestNotifier(channels ...Channel) *Notifier {
	n := New(channels, DefaultThresholds(), logging.SetupLogging())
	n.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return n
}

func testAlert(score float64, amount string) Alert {
	return Alert{
		TransactionID:    "TRX_001",
		AccountID:        "ACC_042",
		Amount:           decimal.RequireFromString(amount),
		MerchantCategory: "Gambling",
		Location:         "Turku",
		Timestamp:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		AlertReason:      "High Value & Suspicious Combo",
		Score:            score,
	}
}

// -- Severity tests --

func TestDetermineSeverity(t *testing.T) {
	thresholds := DefaultThresholds()

	tests := []struct {
		name     string
		score    float64
		amount   float64
		expected Severity
	}{
		{"critical by score", 0.95, 50, SeverityCritical},
		{"high by score", 0.85, 50, SeverityHigh},
		{"high by amount", 0.1, 5000, SeverityHigh},
		{"warning", 0.65, 50, SeverityWarning},
		{"info", 0.2, 50, SeverityInfo},
		{"critical boundary", 0.9, 50, SeverityCritical},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DetermineSeverity(tc.score, tc.amount, thresholds))
		})
	}
}

func TestSeverityNotifiable(t *testing.T) {
	assert.True(t, SeverityCritical.Notifiable())
	assert.True(t, SeverityHigh.Notifiable())
	assert.False(t, SeverityWarning.Notifiable())
	assert.False(t, SeverityInfo.Notifiable())
}

// -- Notifier tests --

func TestSendFraudAlert_CriticalDelivers(t *testing.T) {
	channel := &fakeChannel{name: "slack"}
	n := newTestNotifier(channel)

	results := n.SendFraudAlert(context.Background(), testAlert(0.95, "50"))

	assert.Equal(t, map[string]bool{"slack": true}, results)
	assert.Equal(t, 1, channel.sendAttempts())
}

func TestSendFraudAlert_LowSeveritySuppressed(t *testing.T) {
	channel := &fakeChannel{name: "slack"}
	n := newTestNotifier(channel)

	results := n.SendFraudAlert(context.Background(), testAlert(0.5, "50"))

	assert.Empty(t, results)
	assert.Zero(t, channel.sendAttempts(), "suppressed severity must not attempt delivery")
}

func TestSendFraudAlert_ChannelFailureIsolated(t *testing.T) {
	broken := &fakeChannel{name: "webhook", script: []error{
		errors.New("timeout"), errors.New("timeout"), errors.New("timeout"),
	}}
	healthy := &fakeChannel{name: "slack"}
	n := newTestNotifier(broken, healthy)

	results := n.SendFraudAlert(context.Background(), testAlert(0.95, "50"))

	assert.Equal(t, map[string]bool{"webhook": false, "slack": true}, results)
	assert.Equal(t, 1, healthy.sendAttempts())
}

func TestSendFraudAlert_TransientFailureRetried(t *testing.T) {
	flaky := &fakeChannel{name: "slack", script: []error{
		errors.New("connection reset"), errors.New("connection reset"),
	}}
	n := newTestNotifier(flaky)

	results := n.SendFraudAlert(context.Background(), testAlert(0.95, "50"))

	assert.Equal(t, map[string]bool{"slack": true}, results)
	assert.Equal(t, sendAttempts, flaky.sendAttempts())
}

func TestSendFraudAlert_PermanentFailureNotRetried(t *testing.T) {
	rejected := &fakeChannel{name: "slack", script: []error{
		backoff.Permanent(errors.New("webhook returned 400")),
	}}
	n := newTestNotifier(rejected)

	results := n.SendFraudAlert(context.Background(), testAlert(0.95, "50"))

	assert.Equal(t, map[string]bool{"slack": false}, results)
	assert.Equal(t, 1, rejected.sendAttempts(), "permanent failure must not be retried")
}

func TestSendFraudAlert_HighByAmountDelivers(t *testing.T) {
	channel := &fakeChannel{name: "teams"}
	n := newTestNotifier(channel)

	results := n.SendFraudAlert(context.Background(), testAlert(0.1, "9500"))

	assert.Equal(t, map[string]bool{"teams": true}, results)
}

// -- Dispatcher tests --

type recordingSender struct {
	mu     sync.Mutex
	alerts []Alert
}

func (s *recordingSender) SendFraudAlert(ctx context.Context, alert Alert) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return map[string]bool{}
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func TestDispatcher_DeliversAndDrainsOnStop(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 2, 16)
	d.Start()

	for i := 0; i < 5; i++ {
		assert.True(t, d.Dispatch(testAlert(0.95, "50")))
	}
	d.Stop()

	assert.Equal(t, 5, sender.count())
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	// No workers started, so the queue fills immediately.
	d := NewDispatcher(&recordingSender{}, 1, 1)

	assert.True(t, d.Dispatch(testAlert(0.95, "50")))
	assert.False(t, d.Dispatch(testAlert(0.95, "50")))
}

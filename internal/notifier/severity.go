package notifier

// Severity classifies an alert for notification purposes. It is distinct
// from the analyst-assigned review status on the stored transaction.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Thresholds are the risk-score and amount cutoffs for severity.
type Thresholds struct {
	CriticalRisk float64
	HighRisk     float64
	WarningRisk  float64
	HighValue    float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		CriticalRisk: 0.9,
		HighRisk:     0.8,
		WarningRisk:  0.6,
		HighValue:    5000.0,
	}
}

// DetermineSeverity derives the alert severity from the risk score and the
// transaction amount.
func DetermineSeverity(score float64, amount float64, t Thresholds) Severity {
	switch {
	case score >= t.CriticalRisk:
		return SeverityCritical
	case score >= t.HighRisk || amount >= t.HighValue:
		return SeverityHigh
	case score >= t.WarningRisk:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Notifiable reports whether outbound delivery happens for this severity.
// Lower severities are computed but suppressed to limit alert noise.
func (s Severity) Notifiable() bool {
	return s == SeverityHigh || s == SeverityCritical
}

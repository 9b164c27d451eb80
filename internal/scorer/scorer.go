package scorer

import (
	"errors"
	"fmt"
	"strings"
)

// epsilon keeps the deviation feature finite for tiny averages.
const epsilon = 1e-6

// Rule reason candidates and the reasons reported after priority resolution.
const (
	ReasonHighValue       = "High Value"
	ReasonSuspiciousCombo = "Suspicious Combo"
	ReasonHighDeviation   = "High Deviation"
	ReasonMLRisk          = "ML Risk"

	ReportedMLAnomaly     = "ML Anomaly"
	ReportedHighDeviation = "High Deviation from Avg"
)

// ErrNotCalibrated is returned when the scorer is missing its model or the
// training-time decision-score bounds.
var ErrNotCalibrated = errors.New("scorer: model or score boundaries are not provided")

// Model produces a raw decision score for a feature vector. Lower raw scores
// mean more anomalous, matching the decision_function convention of the
// training pipeline.
type Model interface {
	DecisionFunction(features []float64) (float64, error)
}

// Calibration bundles the loaded model with the min/max decision scores
// observed during training. It is built once at startup and never mutated.
type Calibration struct {
	Model    Model
	MinScore *float64
	MaxScore *float64
}

// Config carries the deterministic rule thresholds.
type Config struct {
	HighValueThreshold float64
	SuspiciousMerchant string
	StandardLocation   string
	DeviationThreshold float64
	MinHistoryCount    int64
	MLRiskThreshold    float64
}

// DefaultConfig returns the production rule thresholds.
func DefaultConfig() Config {
	return Config{
		HighValueThreshold: 5000.00,
		SuspiciousMerchant: "Gambling",
		StandardLocation:   "Helsinki",
		DeviationThreshold: 5.0,
		MinHistoryCount:    5,
		MLRiskThreshold:    0.7,
	}
}

// Input is the per-transaction data the scorer needs.
type Input struct {
	Amount           float64
	MerchantCategory string
	Location         string
}

// Aggregates is the account history context for one scoring request.
type Aggregates struct {
	TxCount   int64
	AvgAmount float64
}

// Result is the outcome of scoring one transaction. Reason is empty when the
// transaction is not anomalous. Fallback marks results substituted after a
// scoring failure; Cause then holds the original error.
type Result struct {
	Score    float64
	Reason   string
	Fallback bool
	Cause    error
}

// Anomalous reports whether the transaction should be flagged.
func (r Result) Anomalous() bool {
	return r.Reason != ""
}

// Fallback is the result used when scoring fails: default risk score 0 and no
// alert reason, so a transaction is never lost to a scoring error.
func Fallback(cause error) Result {
	return Result{Score: 0, Fallback: true, Cause: cause}
}

type Scorer struct {
	calibration Calibration
	conf        Config
}

func New(calibration Calibration, conf Config) *Scorer {
	return &Scorer{calibration: calibration, conf: conf}
}

// Score combines the model decision score with the deterministic rules.
//
// The scaled score is 1 - (raw - min) / (max - min) and is intentionally not
// clamped: a live decision score outside the training-time bounds yields a
// value outside [0,1].
func (s *Scorer) Score(tx Input, aggregates Aggregates) (Result, error) {
	if s.calibration.Model == nil || s.calibration.MinScore == nil || s.calibration.MaxScore == nil {
		return Result{}, ErrNotCalibrated
	}
	minScore := *s.calibration.MinScore
	maxScore := *s.calibration.MaxScore
	if maxScore == minScore {
		return Result{}, fmt.Errorf("scorer: degenerate score boundaries [%v, %v]", minScore, maxScore)
	}

	deviation := 0.0
	if aggregates.AvgAmount > 0 {
		deviation = (tx.Amount - aggregates.AvgAmount) / (aggregates.AvgAmount + epsilon)
	}

	rawScore, err := s.calibration.Model.DecisionFunction([]float64{tx.Amount, aggregates.AvgAmount, deviation})
	if err != nil {
		return Result{}, fmt.Errorf("scorer: decision function: %w", err)
	}
	scaledScore := 1 - (rawScore-minScore)/(maxScore-minScore)

	var reasons []string
	if tx.Amount >= s.conf.HighValueThreshold {
		reasons = append(reasons, ReasonHighValue)
	}
	if tx.MerchantCategory == s.conf.SuspiciousMerchant && tx.Location != s.conf.StandardLocation {
		reasons = append(reasons, ReasonSuspiciousCombo)
	}
	if deviation >= s.conf.DeviationThreshold && aggregates.TxCount > s.conf.MinHistoryCount {
		reasons = append(reasons, ReasonHighDeviation)
	}
	mlRisk := scaledScore >= s.conf.MLRiskThreshold
	if mlRisk {
		reasons = append(reasons, ReasonMLRisk)
	}

	return Result{Score: scaledScore, Reason: resolveReason(reasons)}, nil
}

// resolveReason collapses all firing rule candidates into the single reported
// reason: ML risk wins, then high deviation, then the remaining candidates
// joined together.
func resolveReason(reasons []string) string {
	if len(reasons) == 0 {
		return ""
	}
	for _, reason := range reasons {
		if reason == ReasonMLRisk {
			return ReportedMLAnomaly
		}
	}
	for _, reason := range reasons {
		if reason == ReasonHighDeviation {
			return ReportedHighDeviation
		}
	}
	return strings.Join(reasons, " & ")
}

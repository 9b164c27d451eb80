package scorer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubModel returns a fixed raw decision score.
type stubModel struct {
	raw float64
	err error
}

func (m *stubModel) DecisionFunction(features []float64) (float64, error) {
	return m.raw, m.err
}

func floatPtr(v float64) *float64 { return &v }

// newTestScorer builds a scorer with bounds [-0.5, 0.5], so the scaled score
// is 0.5 - raw.
func newTestScorer(raw float64) *Scorer {
	return New(Calibration{
		Model:    &stubModel{raw: raw},
		MinScore: floatPtr(-0.5),
		MaxScore: floatPtr(0.5),
	}, DefaultConfig())
}

func TestScore_NormalTransactionLowScore(t *testing.T) {
	s := newTestScorer(0.4) // scaled 0.1

	result, err := s.Score(
		Input{Amount: 120, MerchantCategory: "Groceries", Location: "Helsinki"},
		Aggregates{TxCount: 20, AvgAmount: 100},
	)

	assert.NoError(t, err)
	assert.InDelta(t, 0.1, result.Score, 1e-9)
	assert.Empty(t, result.Reason)
	assert.False(t, result.Anomalous())
	assert.False(t, result.Fallback)
}

func TestScore_HighValueFlagged(t *testing.T) {
	s := newTestScorer(0.4)

	result, err := s.Score(
		Input{Amount: 5000, MerchantCategory: "Electronics", Location: "Helsinki"},
		Aggregates{TxCount: 20, AvgAmount: 4000},
	)

	assert.NoError(t, err)
	assert.Equal(t, ReasonHighValue, result.Reason)
	assert.True(t, result.Anomalous())
}

func TestScore_SuspiciousCombo(t *testing.T) {
	s := newTestScorer(0.4)

	result, err := s.Score(
		Input{Amount: 200, MerchantCategory: "Gambling", Location: "Turku"},
		Aggregates{TxCount: 20, AvgAmount: 180},
	)

	assert.NoError(t, err)
	assert.Equal(t, ReasonSuspiciousCombo, result.Reason)
}

func TestScore_GamblingAtHomeLocationNotFlagged(t *testing.T) {
	s := newTestScorer(0.4)

	result, err := s.Score(
		Input{Amount: 200, MerchantCategory: "Gambling", Location: "Helsinki"},
		Aggregates{TxCount: 20, AvgAmount: 180},
	)

	assert.NoError(t, err)
	assert.Empty(t, result.Reason)
}

func TestScore_JoinedReasons(t *testing.T) {
	s := newTestScorer(0.4)

	// Average high enough that the deviation rule stays quiet.
	result, err := s.Score(
		Input{Amount: 9500, MerchantCategory: "Gambling", Location: "Turku"},
		Aggregates{TxCount: 10, AvgAmount: 8000},
	)

	assert.NoError(t, err)
	assert.Equal(t, "High Value & Suspicious Combo", result.Reason)
}

func TestScore_HighDeviationSupersedesJoin(t *testing.T) {
	s := newTestScorer(0.4)

	// amount 9500 against avg 150 deviates by ~62x with sufficient history,
	// so the deviation priority wins over the joined candidates.
	result, err := s.Score(
		Input{Amount: 9500, MerchantCategory: "Gambling", Location: "Turku"},
		Aggregates{TxCount: 10, AvgAmount: 150},
	)

	assert.NoError(t, err)
	assert.Equal(t, ReportedHighDeviation, result.Reason)
}

func TestScore_InsufficientHistorySkipsDeviationRule(t *testing.T) {
	s := newTestScorer(0.4)

	result, err := s.Score(
		Input{Amount: 2000, MerchantCategory: "Electronics", Location: "Helsinki"},
		Aggregates{TxCount: 3, AvgAmount: 100},
	)

	assert.NoError(t, err)
	assert.Empty(t, result.Reason, "deviation rule must not fire with 5 or fewer historical transactions")
}

func TestScore_MLRiskSupersedesEverything(t *testing.T) {
	s := newTestScorer(-0.4) // scaled 0.9

	result, err := s.Score(
		Input{Amount: 9500, MerchantCategory: "Gambling", Location: "Turku"},
		Aggregates{TxCount: 10, AvgAmount: 150},
	)

	assert.NoError(t, err)
	assert.Equal(t, ReportedMLAnomaly, result.Reason)
	assert.InDelta(t, 0.9, result.Score, 1e-9)
}

func TestScore_ZeroAverageYieldsZeroDeviation(t *testing.T) {
	s := newTestScorer(0.4)

	result, err := s.Score(
		Input{Amount: 100, MerchantCategory: "Groceries", Location: "Helsinki"},
		Aggregates{TxCount: 0, AvgAmount: 0},
	)

	assert.NoError(t, err)
	assert.Empty(t, result.Reason)
}

func TestScore_Deterministic(t *testing.T) {
	s := newTestScorer(0.12)
	input := Input{Amount: 777, MerchantCategory: "Travel", Location: "Oulu"}
	aggregates := Aggregates{TxCount: 42, AvgAmount: 310.5}

	first, err := s.Score(input, aggregates)
	assert.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := s.Score(input, aggregates)
		assert.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScore_UnclampedOutsideBounds(t *testing.T) {
	// Raw score below the training-time minimum scales above 1.
	s := newTestScorer(-1.5)

	result, err := s.Score(
		Input{Amount: 100, MerchantCategory: "Groceries", Location: "Helsinki"},
		Aggregates{TxCount: 10, AvgAmount: 100},
	)

	assert.NoError(t, err)
	assert.Greater(t, result.Score, 1.0)
	assert.Equal(t, ReportedMLAnomaly, result.Reason)
}

func TestScore_MissingModelFails(t *testing.T) {
	s := New(Calibration{Model: nil, MinScore: floatPtr(-0.5), MaxScore: floatPtr(0.5)}, DefaultConfig())

	_, err := s.Score(Input{Amount: 100}, Aggregates{})
	assert.ErrorIs(t, err, ErrNotCalibrated)
}

func TestScore_MissingBoundsFail(t *testing.T) {
	s := New(Calibration{Model: &stubModel{}, MinScore: nil, MaxScore: floatPtr(0.5)}, DefaultConfig())
	_, err := s.Score(Input{Amount: 100}, Aggregates{})
	assert.ErrorIs(t, err, ErrNotCalibrated)

	s = New(Calibration{Model: &stubModel{}, MinScore: floatPtr(-0.5), MaxScore: nil}, DefaultConfig())
	_, err = s.Score(Input{Amount: 100}, Aggregates{})
	assert.ErrorIs(t, err, ErrNotCalibrated)
}

func TestScore_ModelErrorPropagates(t *testing.T) {
	s := New(Calibration{
		Model:    &stubModel{err: errors.New("feature mismatch")},
		MinScore: floatPtr(-0.5),
		MaxScore: floatPtr(0.5),
	}, DefaultConfig())

	_, err := s.Score(Input{Amount: 100}, Aggregates{TxCount: 1, AvgAmount: 50})
	assert.Error(t, err)
}

func TestFallback(t *testing.T) {
	cause := errors.New("model unavailable")
	result := Fallback(cause)

	assert.Zero(t, result.Score)
	assert.Empty(t, result.Reason)
	assert.True(t, result.Fallback)
	assert.Equal(t, cause, result.Cause)
	assert.False(t, result.Anomalous())
}

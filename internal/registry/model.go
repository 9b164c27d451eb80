package registry

import (
	"fmt"
)

// LinearModel scores a feature vector as intercept + weights · features.
// It is the exported form of the anomaly detector's decision function,
// published to the registry by the training pipeline.
type LinearModel struct {
	weights   []float64
	intercept float64
}

func NewLinearModel(weights []float64, intercept float64) *LinearModel {
	w := make([]float64, len(weights))
	copy(w, weights)
	return &LinearModel{weights: w, intercept: intercept}
}

func (m *LinearModel) DecisionFunction(features []float64) (float64, error) {
	if len(features) != len(m.weights) {
		return 0, fmt.Errorf("registry: feature vector has %d values, model expects %d", len(features), len(m.weights))
	}

	score := m.intercept
	for i, w := range m.weights {
		score += w * features[i]
	}
	return score, nil
}

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/nordlys-fintech/fraud-detector/internal/scorer"
)

const (
	loadAttempts  = 5
	retryInterval = 10 * time.Second
)

// modelVersion is the registry's wire representation of the latest version of
// a registered model: the exported decision function plus the metrics logged
// on its training run.
type modelVersion struct {
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
	Metrics   struct {
		MinDecisionScore *float64 `json:"min_decision_score"`
		MaxDecisionScore *float64 `json:"max_decision_score"`
	} `json:"metrics"`
}

// Client resolves scoring models from the model registry.
type Client struct {
	baseURL       string
	http          *http.Client
	logger        *logrus.Logger
	retryInterval time.Duration
}

func NewClient(baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:       baseURL,
		http:          &http.Client{Timeout: 10 * time.Second},
		logger:        logger,
		retryInterval: retryInterval,
	}
}

// LoadCalibration resolves the latest version of the named model and its
// score-normalization bounds, retrying transient registry errors with a fixed
// interval. After the attempts are exhausted the error is returned for
// the caller to treat as fatal: scoring is impossible without a model.
func (c *Client) LoadCalibration(ctx context.Context, modelName string) (scorer.Calibration, error) {
	var calibration scorer.Calibration
	attempt := 0

	operation := func() error {
		attempt++
		c.logger.WithFields(logrus.Fields{
			"registry_uri": c.baseURL,
			"model_name":   modelName,
			"attempt":      attempt,
		}).Info("ModelRegistry.LoadCalibration.attempt")

		loaded, err := c.fetchLatest(ctx, modelName)
		if err != nil {
			c.logger.WithError(err).Warn("ModelRegistry.LoadCalibration.retrying")
			return err
		}
		calibration = loaded
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryInterval), loadAttempts-1),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return scorer.Calibration{}, fmt.Errorf("registry: could not load model %q after %d attempts: %w", modelName, loadAttempts, err)
	}

	return calibration, nil
}

func (c *Client) fetchLatest(ctx context.Context, modelName string) (scorer.Calibration, error) {
	url := fmt.Sprintf("%s/api/v1/models/%s/latest", c.baseURL, modelName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return scorer.Calibration{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return scorer.Calibration{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("registry: %s returned %d: %s", url, resp.StatusCode, body)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// A 404 means the model name is wrong; retrying cannot fix it.
			return scorer.Calibration{}, backoff.Permanent(err)
		}
		return scorer.Calibration{}, err
	}

	var version modelVersion
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return scorer.Calibration{}, fmt.Errorf("registry: decoding model version: %w", err)
	}

	if len(version.Weights) == 0 {
		return scorer.Calibration{}, fmt.Errorf("registry: model %q version %d has no weights", modelName, version.Version)
	}
	if version.Metrics.MinDecisionScore == nil || version.Metrics.MaxDecisionScore == nil {
		return scorer.Calibration{}, fmt.Errorf("registry: min/max decision scores not found in run metrics for model %q", modelName)
	}

	c.logger.WithFields(logrus.Fields{
		"model_version": version.Version,
		"run_id":        version.RunID,
		"min_score":     *version.Metrics.MinDecisionScore,
		"max_score":     *version.Metrics.MaxDecisionScore,
	}).Info("ModelRegistry.LoadCalibration.loaded")

	return scorer.Calibration{
		Model:    NewLinearModel(version.Weights, version.Intercept),
		MinScore: version.Metrics.MinDecisionScore,
		MaxScore: version.Metrics.MaxDecisionScore,
	}, nil
}

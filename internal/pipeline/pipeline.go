package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/uuid/v5"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/nordlys-fintech/fraud-detector/internal/config"
	"github.com/nordlys-fintech/fraud-detector/internal/metrics"
	"github.com/nordlys-fintech/fraud-detector/internal/notifier"
	"github.com/nordlys-fintech/fraud-detector/internal/scorer"
	"github.com/nordlys-fintech/fraud-detector/internal/storage"
)

const (
	connectAttempts = 5
	connectInterval = 10 * time.Second
)

// messageReader is satisfied by *kafka.Reader.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// alertDispatcher is satisfied by *notifier.Dispatcher.
type alertDispatcher interface {
	Dispatch(alert notifier.Alert) bool
}

// eventTime accepts both RFC 3339 and the space-separated form the producers
// emit for the timestamp field.
type eventTime struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *eventTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}

// transactionEvent is the wire format of one transaction on the topic.
// Pointer fields distinguish absent values from zero values.
type transactionEvent struct {
	TransactionID    string           `json:"transaction_id"`
	AccountID        string           `json:"account_id"`
	Timestamp        *eventTime       `json:"timestamp"`
	Amount           *decimal.Decimal `json:"amount"`
	MerchantCategory string           `json:"merchant_category"`
	Location         string           `json:"location"`
}

func (e *transactionEvent) validate() error {
	switch {
	case e.TransactionID == "":
		return errors.New("missing required field: transaction_id")
	case e.AccountID == "":
		return errors.New("missing required field: account_id")
	case e.Amount == nil:
		return errors.New("missing required field: amount")
	case e.MerchantCategory == "":
		return errors.New("missing required field: merchant_category")
	case e.Location == "":
		return errors.New("missing required field: location")
	case e.Timestamp == nil:
		return errors.New("missing required field: timestamp")
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("invalid amount: %s (must be positive)", e.Amount)
	}
	return nil
}

// Connect probes the Kafka brokers and returns a consumer-group reader.
// Brokers that are not reachable are retried on a fixed interval up to a
// bounded attempt count; exhausting the attempts is fatal to the caller.
func Connect(ctx context.Context, env *config.Config, logger *logrus.Logger) (*kafka.Reader, error) {
	attempt := 0
	probe := func() error {
		attempt++
		conn, err := kafka.DialContext(ctx, "tcp", env.KafkaBootstrapServers)
		if err != nil {
			return err
		}
		defer conn.Close()
		_, err = conn.Brokers()
		return err
	}
	notify := func(err error, _ time.Duration) {
		logger.WithFields(logrus.Fields{
			"bootstrap_servers": env.KafkaBootstrapServers,
			"attempt":           fmt.Sprintf("%d/%d", attempt, connectAttempts),
			"error":             err.Error(),
		}).Warning("Pipeline.Connect.waitingForBrokers")
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(connectInterval), connectAttempts-1), ctx)
	if err := backoff.RetryNotify(probe, policy, notify); err != nil {
		return nil, fmt.Errorf("could not connect to Kafka brokers after %d attempts: %w", connectAttempts, err)
	}

	logger.WithFields(logrus.Fields{
		"bootstrap_servers": env.KafkaBootstrapServers,
		"topic":             env.KafkaTopic,
		"group_id":          env.KafkaGroupID,
	}).Info("Pipeline.Connect.connected")

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{env.KafkaBootstrapServers},
		GroupID:     env.KafkaGroupID,
		Topic:       env.KafkaTopic,
		StartOffset: kafka.FirstOffset,
	}), nil
}

// Pipeline drains the transaction topic and turns each event into a scored,
// persisted record, dispatching alerts for anomalies.
type Pipeline struct {
	reader     messageReader
	table      storage.ITransactionTable
	scorer     *scorer.Scorer
	dispatcher alertDispatcher
	logger     *logrus.Logger
}

func New(reader messageReader, table storage.ITransactionTable, sc *scorer.Scorer, dispatcher alertDispatcher, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		reader:     reader,
		table:      table,
		scorer:     sc,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Run consumes messages until ctx is cancelled or the reader is closed.
// Offsets are committed after a message is fully handled, so a crash before
// commit surfaces as broker redelivery rather than data loss. Per-message
// failures never stop the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("Pipeline.Run.started")
	for {
		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				p.logger.Info("Pipeline.Run.stopped")
				return nil
			}
			return fmt.Errorf("fetching message: %w", err)
		}

		if p.processMessage(ctx, msg) {
			if err := p.reader.CommitMessages(ctx, msg); err != nil {
				p.logger.WithFields(logrus.Fields{
					"offset": msg.Offset,
					"error":  err.Error(),
				}).Error("Pipeline.Run.commitFailed")
			}
		}
	}
}

// Close shuts down the underlying reader. In-flight FetchMessage calls
// return io.EOF, which Run treats as a clean stop.
func (p *Pipeline) Close() error {
	return p.reader.Close()
}

// processMessage handles one event end to end and reports whether its offset
// should be committed. Malformed events are dropped and committed; transient
// storage failures leave the offset uncommitted so the broker redelivers.
func (p *Pipeline) processMessage(ctx context.Context, msg kafka.Message) bool {
	metrics.TransactionsProcessed.Inc()

	var event transactionEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		metrics.TransactionProcessingErrors.Inc()
		p.logger.WithFields(logrus.Fields{
			"offset": msg.Offset,
			"error":  err.Error(),
		}).Error("Pipeline.processMessage.malformedEvent")
		return true
	}
	if err := event.validate(); err != nil {
		metrics.TransactionProcessingErrors.Inc()
		p.logger.WithFields(logrus.Fields{
			"transaction_id": event.TransactionID,
			"error":          err.Error(),
		}).Error("Pipeline.processMessage.validationFailed")
		return true
	}

	p.logger.WithFields(logrus.Fields{
		"transaction_id": event.TransactionID,
		"account_id":     event.AccountID,
		"amount":         event.Amount.String(),
	}).Info("Pipeline.processMessage.processing")

	aggregates, err := p.table.AccountAggregates(ctx, event.AccountID)
	if err != nil {
		metrics.TransactionProcessingErrors.Inc()
		p.logger.WithFields(logrus.Fields{
			"transaction_id": event.TransactionID,
			"account_id":     event.AccountID,
			"error":          err.Error(),
		}).Error("Pipeline.processMessage.aggregatesFailed")
		return false
	}

	amount, _ := event.Amount.Float64()
	result, err := p.scorer.Score(
		scorer.Input{
			Amount:           amount,
			MerchantCategory: event.MerchantCategory,
			Location:         event.Location,
		},
		scorer.Aggregates{TxCount: aggregates.TxCount, AvgAmount: aggregates.AvgAmount},
	)
	if err != nil {
		metrics.ScoringFallbacks.Inc()
		result = scorer.Fallback(err)
		p.logger.WithFields(logrus.Fields{
			"transaction_id": event.TransactionID,
			"error":          err.Error(),
		}).Error("Pipeline.processMessage.scoringFallback")
	}

	create := &storage.TransactionCreate{
		TransactionID:    event.TransactionID,
		AccountID:        event.AccountID,
		Timestamp:        event.Timestamp.Time,
		Amount:           *event.Amount,
		MerchantCategory: event.MerchantCategory,
		Location:         event.Location,
		MLAnomalyScore:   result.Score,
		IsAnomaly:        result.Anomalous(),
	}
	if result.Anomalous() {
		reason := result.Reason
		status := storage.StatusNew
		create.AlertReason = &reason
		create.Status = &status
	}

	if err := p.table.Insert(ctx, create); err != nil {
		metrics.TransactionProcessingErrors.Inc()
		p.logger.WithFields(logrus.Fields{
			"transaction_id": event.TransactionID,
			"error":          err.Error(),
		}).Error("Pipeline.processMessage.insertFailed")
		return false
	}

	if result.Anomalous() {
		metrics.AnomaliesDetected.Inc()
		p.logger.WithFields(logrus.Fields{
			"transaction_id": event.TransactionID,
			"account_id":     event.AccountID,
			"score":          result.Score,
			"reason":         result.Reason,
		}).Warning("Pipeline.processMessage.anomalyDetected")

		p.dispatcher.Dispatch(notifier.Alert{
			EventID:          uuid.Must(uuid.NewV4()),
			TransactionID:    event.TransactionID,
			AccountID:        event.AccountID,
			Amount:           *event.Amount,
			MerchantCategory: event.MerchantCategory,
			Location:         event.Location,
			Timestamp:        event.Timestamp.Time,
			AlertReason:      result.Reason,
			Score:            result.Score,
		})
	}

	p.logger.WithFields(logrus.Fields{
		"transaction_id": event.TransactionID,
		"is_anomaly":     result.Anomalous(),
	}).Info("Pipeline.processMessage.inserted")
	return true
}

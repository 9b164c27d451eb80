package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/nordlys-fintech/fraud-detector/api"
	"github.com/nordlys-fintech/fraud-detector/internal/cache"
	"github.com/nordlys-fintech/fraud-detector/internal/config"
	"github.com/nordlys-fintech/fraud-detector/internal/logging"
	"github.com/nordlys-fintech/fraud-detector/internal/notifier"
	"github.com/nordlys-fintech/fraud-detector/internal/pipeline"
	"github.com/nordlys-fintech/fraud-detector/internal/registry"
	"github.com/nordlys-fintech/fraud-detector/internal/scorer"
	"github.com/nordlys-fintech/fraud-detector/internal/service"
	"github.com/nordlys-fintech/fraud-detector/internal/storage"
)

const (
	dispatchWorkers = 4
	dispatchDepth   = 256
)

func main() {
	logger := logging.SetupLogging()
	logrus.Info("fraud-detector starting")

	envConfig, err := config.ProcessEnvironmentVariables()
	if err != nil {
		logrus.WithError(err).Fatal("config.ProcessEnvironmentVariables")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbStorage := storage.NewStorage(envConfig)
	defer dbStorage.Close()

	queryCache := cache.NewService(envConfig, logger)
	defer queryCache.Close()

	// The model calibration and the broker connection are both required to
	// process transactions; failing either after the bounded retries exits.
	registryClient := registry.NewClient(envConfig.ModelRegistryURI, logger)
	calibration, err := registryClient.LoadCalibration(ctx, envConfig.ModelName)
	if err != nil {
		logrus.WithError(err).Fatal("registry.LoadCalibration")
		return
	}
	riskScorer := scorer.New(calibration, scorer.DefaultConfig())

	alertNotifier := notifier.NewNotifier(envConfig, logger)
	dispatcher := notifier.NewDispatcher(alertNotifier, dispatchWorkers, dispatchDepth)
	dispatcher.Start()

	reader, err := pipeline.Connect(ctx, envConfig, logger)
	if err != nil {
		logrus.WithError(err).Fatal("pipeline.Connect")
		return
	}

	consumer := pipeline.New(reader, dbStorage.Transactions, riskScorer, dispatcher, logger)
	runDone := make(chan error, 1)
	go func() {
		runDone <- consumer.Run(ctx)
	}()

	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		logger.WithField("port", envConfig.MetricsPort).Info("Metrics.Serve.listening")
		if err := http.ListenAndServe(":"+envConfig.MetricsPort, metricsMux); err != nil {
			logger.WithError(err).Error("Metrics.Serve.listen error")
		}
	}()

	svc := service.NewService(dbStorage, queryCache, logger)
	go func() {
		httpRest := api.Rest{
			Logger:  logger,
			Port:    envConfig.HTTPPort,
			APIKey:  envConfig.APIKey,
			Service: svc,
			Cache:   queryCache,
		}
		httpRest.Serve()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.WithField("signal", sig.String()).Info("fraud-detector shutting down")

	// Close the reader so the loop stops fetching, wait for any in-flight
	// message to finish and commit, then cancel and drain the dispatcher.
	if err := consumer.Close(); err != nil {
		logger.WithError(err).Error("Pipeline.Close")
	}
	if err := <-runDone; err != nil {
		logger.WithError(err).Error("Pipeline.Run.exited")
	}
	cancel()
	dispatcher.Stop()
	logger.Info("fraud-detector stopped")
}

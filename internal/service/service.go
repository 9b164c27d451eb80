package service

import (
	"github.com/sirupsen/logrus"

	"github.com/nordlys-fintech/fraud-detector/internal/cache"
	"github.com/nordlys-fintech/fraud-detector/internal/storage"
)

// Service holds all business logic services.
type Service struct {
	Anomaly *AnomalyService
}

// NewService creates a new Service with the given storage and cache.
func NewService(store *storage.Storage, queries *cache.Service, logger *logrus.Logger) *Service {
	return &Service{
		Anomaly: NewAnomalyService(store, queries, logger),
	}
}

package storage

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq"

	"github.com/nordlys-fintech/fraud-detector/internal/config"
)

type Storage struct {
	DB           *sql.DB
	Transactions ITransactionTable
}

func NewStorage(env *config.Config) *Storage {
	db, err := sql.Open("postgres", env.PostgresURL())
	if err != nil {
		log.Fatal(err)
	}

	return &Storage{
		DB:           db,
		Transactions: NewTransactionsTable(db),
	}
}

func (s *Storage) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

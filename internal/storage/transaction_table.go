package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/stephenafamo/bob/mods"
	"github.com/stephenafamo/scan"
)

const tableName = "transactions"

var transactionColumns = []any{
	"transaction_id", "account_id", "timestamp", "amount",
	"merchant_category", "location", "ml_anomaly_score",
	"alert_reason", "is_anomaly", "status", "created_at",
}

var _ ITransactionTable = (*TransactionsTable)(nil)

type TransactionsTable struct {
	exec bob.Executor
}

func NewTransactionsTable(db *sql.DB) *TransactionsTable {
	return &TransactionsTable{exec: bob.NewDB(db)}
}

// FindByID retrieves a transaction by primary key. Returns nil when the row
// does not exist.
func (t *TransactionsTable) FindByID(ctx context.Context, id string) (*Transaction, error) {
	query := psql.Select(
		sm.Columns(transactionColumns...),
		sm.From(tableName),
		sm.Where(psql.Quote("transaction_id").EQ(psql.Arg(id))),
	)

	row, err := bob.One(ctx, t.exec, query, scan.StructMapper[*Transaction]())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

// Insert persists a scored transaction as a single atomic statement.
func (t *TransactionsTable) Insert(ctx context.Context, create *TransactionCreate) error {
	query := psql.Insert(
		im.Into(tableName,
			"transaction_id", "account_id", "timestamp", "amount",
			"merchant_category", "location", "ml_anomaly_score",
			"alert_reason", "is_anomaly", "status",
		),
		im.Values(psql.Arg(
			create.TransactionID,
			create.AccountID,
			create.Timestamp,
			create.Amount,
			create.MerchantCategory,
			create.Location,
			create.MLAnomalyScore,
			create.AlertReason,
			create.IsAnomaly,
			create.Status,
		)),
	)

	_, err := bob.Exec(ctx, t.exec, query)
	return err
}

// AccountAggregates computes the historical transaction count and average
// amount for an account over whatever is committed at query time.
func (t *TransactionsTable) AccountAggregates(ctx context.Context, accountID string) (*AccountAggregates, error) {
	query := psql.RawQuery(
		"SELECT COUNT(*) AS tx_count, COALESCE(AVG(amount), 0)::float8 AS avg_amount FROM transactions WHERE account_id = ?",
		accountID,
	)

	aggregates, err := bob.One(ctx, t.exec, query, scan.StructMapper[*AccountAggregates]())
	if err != nil {
		return nil, err
	}
	return aggregates, nil
}

// ListAnomalies returns flagged transactions, newest first.
func (t *TransactionsTable) ListAnomalies(ctx context.Context, filter *AnomalyFilter) ([]*Transaction, error) {
	whereMods := []mods.Where[*dialect.SelectQuery]{
		sm.Where(psql.Quote("is_anomaly").EQ(psql.Arg(true))),
	}

	queryMods := []bob.Mod[*dialect.SelectQuery]{
		sm.Columns(transactionColumns...),
		sm.From(tableName),
	}

	if filter != nil {
		if filter.Status != nil {
			whereMods = append(whereMods, sm.Where(psql.Quote("status").EQ(psql.Arg(*filter.Status))))
		}
		if filter.Limit > 0 {
			queryMods = append(queryMods, sm.Limit(filter.Limit))
		}
		if filter.Offset > 0 {
			queryMods = append(queryMods, sm.Offset(filter.Offset))
		}
	}

	if len(whereMods) == 1 {
		queryMods = append(queryMods, whereMods[0])
	} else {
		queryMods = append(queryMods, psql.WhereAnd(whereMods...))
	}

	queryMods = append(queryMods,
		sm.OrderBy("timestamp").Desc(),
		sm.OrderBy("transaction_id").Desc(),
	)

	return bob.All(ctx, t.exec, psql.Select(queryMods...), scan.StructMapper[*Transaction]())
}

// UpdateStatus sets the review status of a flagged transaction. Returns false
// when no row matched the id.
func (t *TransactionsTable) UpdateStatus(ctx context.Context, id string, status string) (bool, error) {
	query := psql.Update(
		um.Table(tableName),
		um.SetCol("status").ToArg(status),
		um.Where(psql.Quote("transaction_id").EQ(psql.Arg(id))),
	)

	result, err := bob.Exec(ctx, t.exec, query)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

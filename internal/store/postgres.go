package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

// PostgresConfig holds configuration for the relational forecast sink.
type PostgresConfig struct {
	DSN             string        `json:"dsn" yaml:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// PostgresForecastStore mirrors the forecast table into Postgres so BI
// tooling can query it alongside the CSV the dashboard reads.
type PostgresForecastStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewPostgresForecastStore opens the database, verifies connectivity and
// ensures the forecast table exists.
func NewPostgresForecastStore(ctx context.Context, config *PostgresConfig, logger *logrus.Logger) (*PostgresForecastStore, error) {
	if config == nil || config.DSN == "" {
		return nil, errors.NewStorageError(errors.CodeInvalidConfig, "postgres store requires a DSN")
	}
	if logger == nil {
		logger = logrus.New()
	}

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeInvalidConfig,
			"failed to open postgres connection")
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			"failed to ping postgres")
	}

	const schema = `CREATE TABLE IF NOT EXISTS forecasts (
		date DATE PRIMARY KEY,
		tree_forecast DOUBLE PRECISION,
		lstm_forecast DOUBLE PRECISION,
		ensemble_forecast DOUBLE PRECISION,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"failed to ensure forecasts table")
	}

	logger.Info("Connected to postgres forecast store")
	return &PostgresForecastStore{db: db, logger: logger}, nil
}

// Save replaces the forecast table contents in a single transaction.
func (s *PostgresForecastStore) Save(ctx context.Context, rows []models.ForecastRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"failed to begin forecast transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM forecasts"); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"failed to clear forecasts table")
	}

	const insert = `INSERT INTO forecasts (date, tree_forecast, lstm_forecast, ensemble_forecast)
		VALUES ($1, $2, $3, $4)`
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, insert, row.Date,
			nullable(row.TreeForecast), nullable(row.LSTMForecast), nullable(row.EnsembleForecast)); err != nil {
			return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
				"failed to insert forecast row")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"failed to commit forecast transaction")
	}

	s.logger.WithField("rows", len(rows)).Info("Forecast table mirrored to postgres")
	return nil
}

// Load reads the forecast table ordered by date.
func (s *PostgresForecastStore) Load(ctx context.Context) ([]models.ForecastRow, error) {
	const query = `SELECT date, tree_forecast, lstm_forecast, ensemble_forecast
		FROM forecasts ORDER BY date`
	dbRows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			"failed to query forecasts table")
	}
	defer dbRows.Close()

	var rows []models.ForecastRow
	for dbRows.Next() {
		var row models.ForecastRow
		var tree, seq, ensemble sql.NullFloat64
		if err := dbRows.Scan(&row.Date, &tree, &seq, &ensemble); err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
				"failed to scan forecast row")
		}
		row.TreeForecast = fromNullable(tree)
		row.LSTMForecast = fromNullable(seq)
		row.EnsembleForecast = fromNullable(ensemble)
		rows = append(rows, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			"failed to iterate forecast rows")
	}
	if len(rows) == 0 {
		return nil, errors.NewNotFoundError("no forecast has been generated")
	}
	return rows, nil
}

// Close releases the database connection pool.
func (s *PostgresForecastStore) Close() error {
	return s.db.Close()
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func fromNullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return models.Float64Ptr(v.Float64)
}

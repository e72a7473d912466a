package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/ravenmarkets/raven-engine/internal/engine"
	"go.uber.org/zap"
)

// PostgresStorage implements engine.AuditSink using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL audit sink.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// RecordBet stores one accepted bet.
func (p *PostgresStorage) RecordBet(ctx context.Context, rec *engine.BetAudit) error {
	query := `
		INSERT INTO bets (
			id, market_id, round_index, bettor, direction, amount, accepted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		rec.BetID,
		rec.MarketID,
		rec.RoundIndex,
		string(rec.Bettor),
		rec.Direction.String(),
		rec.Amount,
		rec.AcceptedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}

	p.logger.Debug("bet-recorded",
		zap.String("bet-id", rec.BetID),
		zap.String("market-id", rec.MarketID))

	return nil
}

// RecordSettlement stores one settled round summary.
func (p *PostgresStorage) RecordSettlement(ctx context.Context, rec *engine.SettlementAudit) error {
	query := `
		INSERT INTO settlements (
			market_id, round_index, outcome, start_price, end_price,
			total_up, total_down, total_fee, fee_creator, fee_admin,
			distributable, settled_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		rec.MarketID,
		rec.RoundIndex,
		rec.Outcome,
		rec.StartPrice,
		rec.EndPrice,
		rec.TotalUp,
		rec.TotalDown,
		rec.TotalFee,
		rec.FeeCreator,
		rec.FeeAdmin,
		rec.Distributable,
		rec.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}

	p.logger.Debug("settlement-recorded",
		zap.String("market-id", rec.MarketID),
		zap.Uint64("round-index", rec.RoundIndex),
		zap.String("outcome", rec.Outcome))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}

// Package history optionally persists periodic stats snapshots to MySQL
// for offline analysis. It is strictly observability: it records
// already-computed counters, never in-flight request state, so it does
// not compromise the daemon's "not durable" design stance.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/qustavo/sqlhooks/v2"
	"go.uber.org/zap"

	"socketpoold/internal/config"
	"socketpoold/internal/stats"
)

// timingHook logs slow queries; a lighter-weight stand-in for the
// teacher's monitor-backed sqlhooks wrapper, grounded on pkg/db/mysql's
// Before/After/OnError hook shape.
type timingHook struct{}

type timingKey struct{}

func (timingHook) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	return context.WithValue(ctx, timingKey{}, time.Now()), nil
}

func (timingHook) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if start, ok := ctx.Value(timingKey{}).(time.Time); ok {
		if d := time.Since(start); d > time.Second {
			zap.L().Warn("history: slow query", zap.String("query", query), zap.Duration("took", d))
		}
	}
	return ctx, nil
}

func (timingHook) OnError(ctx context.Context, err error, query string, args ...interface{}) error {
	zap.L().Error("history: query failed", zap.String("query", query), zap.Error(err))
	return err
}

var hooksRegistered bool

// Sink writes stats snapshots to a `pool_stats_history` table.
type Sink struct {
	db *sqlx.DB
}

// Open connects to MySQL per cfg, registering the instrumented driver
// exactly once per process.
func Open(cfg config.HistoryConfig) (*Sink, error) {
	if !hooksRegistered {
		sql.Register("socketpool_mysql", sqlhooks.Wrap(&mysqldriver.MySQLDriver{}, timingHook{}))
		hooksRegistered = true
	}

	db, err := sqlx.Connect("socketpool_mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("history: connect: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Sink{db: db}, nil
}

func ensureSchema(db *sqlx.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS pool_stats_history (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		instance_id VARCHAR(64) NOT NULL,
		endpoint VARCHAR(255) NOT NULL,
		success BIGINT NOT NULL,
		failed BIGINT NOT NULL,
		total BIGINT NOT NULL,
		sampled_at DATETIME NOT NULL,
		INDEX idx_instance_sampled (instance_id, sampled_at)
	)`)
	return err
}

// Record inserts one row per endpoint in the sample.
func (s *Sink) Record(sample stats.Sample) {
	if len(sample.Endpoints) == 0 {
		return
	}
	now := time.Now()
	tx, err := s.db.Beginx()
	if err != nil {
		zap.L().Warn("history: begin tx failed", zap.Error(err))
		return
	}
	for _, e := range sample.Endpoints {
		_, err := tx.Exec(
			`INSERT INTO pool_stats_history (instance_id, endpoint, success, failed, total, sampled_at) VALUES (?, ?, ?, ?, ?, ?)`,
			sample.Instance, e.Endpoint, e.Success, e.Failed, e.Total, now,
		)
		if err != nil {
			zap.L().Warn("history: insert failed", zap.String("endpoint", e.Endpoint), zap.Error(err))
			_ = tx.Rollback()
			return
		}
	}
	if err := tx.Commit(); err != nil {
		zap.L().Warn("history: commit failed", zap.Error(err))
	}
}

// Close releases the underlying connection pool.
func (s *Sink) Close() error {
	return s.db.Close()
}

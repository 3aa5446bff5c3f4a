package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tx is the transaction surface used by the cleanup service.
type Tx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Beginner opens transactions.
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

type poolBeginner struct{ pool *pgxpool.Pool }

func (b poolBeginner) Begin(ctx context.Context) (Tx, error) { return b.pool.Begin(ctx) }

// NewPoolBeginner adapts a pool to Beginner.
func NewPoolBeginner(pool *pgxpool.Pool) Beginner { return poolBeginner{pool: pool} }

// CleanupService handles report retention.
type CleanupService struct {
	DB            Beginner
	RetentionDays int
	now           func() time.Time
}

// NewCleanupService creates a new cleanup service.
func NewCleanupService(db Beginner, retentionDays int) *CleanupService {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &CleanupService{DB: db, RetentionDays: retentionDays, now: time.Now}
}

// CleanupOldData removes reports older than the retention period and returns how many were deleted.
func (s *CleanupService) CleanupOldData(ctx context.Context) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -s.RetentionDays)

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("op=postgres.Cleanup: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var deleted int64
	err = tx.QueryRow(ctx, `
		WITH gone AS (
			DELETE FROM interview_reports WHERE created_at < $1 RETURNING 1
		)
		SELECT count(*) FROM gone
	`, cutoff).Scan(&deleted)
	if err != nil {
		return 0, fmt.Errorf("op=postgres.Cleanup: delete: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("op=postgres.Cleanup: commit: %w", err)
	}

	slog.Info("report cleanup completed",
		slog.Int64("deleted_reports", deleted),
		slog.Time("cutoff", cutoff),
	)
	return deleted, nil
}

// RunPeriodic runs the cleanup immediately and then every interval until ctx is done.
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if ctx.Err() != nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.CleanupOldData(ctx); err != nil {
		slog.Error("initial cleanup failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup service stopping")
			return
		case <-ticker.C:
			if _, err := s.CleanupOldData(ctx); err != nil {
				slog.Error("periodic cleanup failed", slog.Any("error", err))
			}
		}
	}
}

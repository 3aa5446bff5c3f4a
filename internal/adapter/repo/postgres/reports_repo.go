package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

// PgxPool is the subset of *pgxpool.Pool used by the repositories.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ReportRepo persists and loads final reports.
type ReportRepo struct{ Pool PgxPool }

// NewReportRepo constructs a ReportRepo with the given pool.
func NewReportRepo(p PgxPool) *ReportRepo { return &ReportRepo{Pool: p} }

// Save inserts or replaces the report of a session.
func (r *ReportRepo) Save(ctx domain.Context, rep domain.Report, skills []string) error {
	tracer := otel.Tracer("repo.reports")
	ctx, span := tracer.Start(ctx, "reports.Save")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", rep.SessionID))

	if rep.SessionID == "" {
		return fmt.Errorf("%w: report without session id", domain.ErrInvalidArgument)
	}
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("op=report.save: %w", err)
	}
	if skills == nil {
		skills = []string{}
	}
	created := rep.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	q := `INSERT INTO interview_reports (session_id, percentage, verdict, skills, report, created_at)
	VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (session_id)
	DO UPDATE SET percentage=EXCLUDED.percentage, verdict=EXCLUDED.verdict, skills=EXCLUDED.skills, report=EXCLUDED.report`
	if _, err := r.Pool.Exec(ctx, q, rep.SessionID, rep.Percentage, rep.Verdict, skills, body, created); err != nil {
		return fmt.Errorf("op=report.save: %w", err)
	}
	return nil
}

// Get loads the report of a session. A missing row reports domain.ErrNotFound.
func (r *ReportRepo) Get(ctx domain.Context, sessionID string) (domain.Report, error) {
	tracer := otel.Tracer("repo.reports")
	ctx, span := tracer.Start(ctx, "reports.Get")
	defer span.End()

	var body []byte
	err := r.Pool.QueryRow(ctx, `SELECT report FROM interview_reports WHERE session_id=$1`, sessionID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Report{}, fmt.Errorf("%w: report %s", domain.ErrNotFound, sessionID)
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("op=report.get: %w", err)
	}
	var rep domain.Report
	if err := json.Unmarshal(body, &rep); err != nil {
		return domain.Report{}, fmt.Errorf("op=report.get: %w: %v", domain.ErrInternal, err)
	}
	return rep, nil
}

var _ domain.ReportRepository = (*ReportRepo)(nil)

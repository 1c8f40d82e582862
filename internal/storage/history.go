package storage

import (
	"context"
	"database/sql"
	"time"

	stderrors "salesforce-analytics/internal/common/errors"
	"salesforce-analytics/internal/common/logger"
)

// RunRecord is one row of run history.
type RunRecord struct {
	RunID          string    `json:"run_id"`
	Action         string    `json:"action"`
	Status         string    `json:"status"`
	LeadsScored    int       `json:"leads_scored"`
	AccountsScored int       `json:"accounts_scored"`
	HealthScore    float64   `json:"health_score"`
	DurationMS     int64     `json:"duration_ms"`
	S3Location     string    `json:"s3_location,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// RunHistory records one row per analytics run in postgres.
type RunHistory struct {
	db  *sql.DB
	log logger.Logger
}

func NewRunHistory(db *sql.DB, log logger.Logger) *RunHistory {
	return &RunHistory{db: db, log: log}
}

const insertRunSQL = `
	INSERT INTO analytics_runs
		(run_id, action, status, leads_scored, accounts_scored, health_score, duration_ms, s3_location, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Record inserts one run row.
func (h *RunHistory) Record(ctx context.Context, rec RunRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := h.db.ExecContext(ctx, insertRunSQL,
		rec.RunID, rec.Action, rec.Status,
		rec.LeadsScored, rec.AccountsScored, rec.HealthScore,
		rec.DurationMS, rec.S3Location, rec.CreatedAt)
	if err != nil {
		return stderrors.NewHistoryWriteFailedError(err)
	}

	h.log.Debug("Recorded run history", map[string]interface{}{
		"run_id": rec.RunID,
		"action": rec.Action,
		"status": rec.Status,
	})
	return nil
}

const recentRunsSQL = `
	SELECT run_id, action, status, leads_scored, accounts_scored, health_score, duration_ms, s3_location, created_at
	FROM analytics_runs
	ORDER BY created_at DESC
	LIMIT $1`

// RecentRuns returns the newest runs, most recent first.
func (h *RunHistory) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx, recentRunsSQL, limit)
	if err != nil {
		return nil, stderrors.NewHistoryWriteFailedError(err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var location sql.NullString
		if err := rows.Scan(&rec.RunID, &rec.Action, &rec.Status,
			&rec.LeadsScored, &rec.AccountsScored, &rec.HealthScore,
			&rec.DurationMS, &location, &rec.CreatedAt); err != nil {
			return nil, stderrors.NewHistoryWriteFailedError(err)
		}
		rec.S3Location = location.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewHistoryWriteFailedError(err)
	}
	return records, nil
}

// Package repo is used for performing database operations.
package repo

import (
	"context"
	"database/sql"
	"fmt"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/models"
	"fetcharr/internal/utils/logging"

	"github.com/Masterminds/squirrel"
)

// DownloadStore reads and writes download history.
type DownloadStore struct {
	DB *sql.DB
}

// GetDownloadStore returns a download store instance with injected database.
func GetDownloadStore(db *sql.DB) *DownloadStore {
	return &DownloadStore{
		DB: db,
	}
}

// InsertRecords writes finished jobs in one transaction. Already stored jobs are skipped.
func (ds *DownloadStore) InsertRecords(ctx context.Context, records []models.HistoryRecord) error {
	var committed bool

	tx, err := ds.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if !committed {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				logging.E("Error rolling back history insert for %d record(s): %v", len(records), rollbackErr)
			}
		}
	}()

	for _, r := range records {
		query := squirrel.
			Insert(consts.DBDownloads).
			Columns(
				consts.QDLJobID,
				consts.QDLURL,
				consts.QDLFormat,
				consts.QDLFilename,
				consts.QDLStatus,
				consts.QDLPct,
				consts.QDLError,
				consts.QDLCreatedAt,
				consts.QDLFinishedAt,
			).
			Values(
				r.JobID,
				r.URL,
				string(r.Format),
				r.Filename,
				string(r.Status),
				r.Progress,
				r.Error,
				r.CreatedAt,
				r.FinishedAt,
			).
			Suffix("ON CONFLICT(" + consts.QDLJobID + ") DO NOTHING").
			RunWith(tx)

		if _, err := query.ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to insert history for job %s: %w", r.JobID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// Latest returns up to limit records, most recently finished first.
func (ds *DownloadStore) Latest(ctx context.Context, limit uint64) ([]models.HistoryRecord, error) {
	if limit == 0 {
		limit = consts.DefaultHistoryLimit
	}

	rows, err := squirrel.
		Select(
			consts.QDLJobID,
			consts.QDLURL,
			consts.QDLFormat,
			consts.QDLFilename,
			consts.QDLStatus,
			consts.QDLPct,
			consts.QDLError,
			consts.QDLCreatedAt,
			consts.QDLFinishedAt,
		).
		From(consts.DBDownloads).
		OrderBy(consts.QDLFinishedAt+" DESC", "id DESC").
		Limit(limit).
		RunWith(ds.DB).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query download history: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryRecord
	for rows.Next() {
		var (
			r                  models.HistoryRecord
			format, status     string
			filename, errorMsg sql.NullString
		)
		if err := rows.Scan(
			&r.JobID,
			&r.URL,
			&format,
			&filename,
			&status,
			&r.Progress,
			&errorMsg,
			&r.CreatedAt,
			&r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan download history: %w", err)
		}
		r.Format = consts.Format(format)
		r.Status = consts.DownloadStatus(status)
		r.Filename = filename.String
		r.Error = errorMsg.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (ds *DownloadStore) Count(ctx context.Context) (int, error) {
	var n int
	err := squirrel.
		Select("COUNT(*)").
		From(consts.DBDownloads).
		RunWith(ds.DB).
		QueryRowContext(ctx).
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count download history: %w", err)
	}
	return n, nil
}

package database

import (
	"database/sql"
	"fmt"
)

// initDownloadsTable initializes the download history table.
func initDownloadsTable(tx *sql.Tx) error {
	query := `
    CREATE TABLE IF NOT EXISTS downloads (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        job_id TEXT NOT NULL UNIQUE,
        url TEXT NOT NULL,
        format TEXT NOT NULL,
        filename TEXT,
        status TEXT NOT NULL,
        progress REAL DEFAULT 0,
        error TEXT,
        created_at TIMESTAMP,
        finished_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status);
    CREATE INDEX IF NOT EXISTS idx_downloads_finished_at ON downloads(finished_at);
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create downloads table: %w", err)
	}
	return nil
}

// Package database opens fetcharr's sqlite database.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"fetcharr/internal/domain/consts"

	_ "github.com/mattn/go-sqlite3"
)

// DBControl holds the open database.
type DBControl struct {
	DB *sql.DB
}

// InitDB opens (creating if needed) the database at path and initializes its tables.
func InitDB(path string) (*DBControl, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), consts.PermsHomeProgDir); err != nil {
			return nil, fmt.Errorf("failed to create database directory for %q: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at path %q: %w", path, err)
	}
	// sqlite allows one writer; a single connection also keeps ":memory:" shared
	db.SetMaxOpenConns(1)

	dc := &DBControl{DB: db}
	if err := dc.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}
	return dc, nil
}

// Close closes the database.
func (dc *DBControl) Close() error {
	return dc.DB.Close()
}

// initTables initializes the SQL tables.
func (dc *DBControl) initTables() error {
	tx, err := dc.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := initDownloadsTable(tx); err != nil {
		return err
	}
	return tx.Commit()
}

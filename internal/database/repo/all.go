package repo

import (
	"database/sql"
)

// Store groups the repositories sharing one database.
type Store struct {
	db            *sql.DB
	downloadStore *DownloadStore
}

// InitStores injects the database into the store methods.
func InitStores(db *sql.DB) *Store {
	return &Store{
		db:            db,
		downloadStore: GetDownloadStore(db),
	}
}

// DownloadStore returns the download history repository.
func (s *Store) DownloadStore() *DownloadStore {
	return s.downloadStore
}

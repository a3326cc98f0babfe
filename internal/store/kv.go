package store

import (
	"database/sql"
	"errors"
	"time"
)

// Get returns the value stored under key. ok is false when the key is absent.
func (db *DB) Get(key string) (string, bool, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Put inserts or replaces the value stored under key.
func (db *DB) Put(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, now)
	return err
}

// Delete removes key. Deleting a missing key is not an error.
func (db *DB) Delete(key string) error {
	_, err := db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}

// Clear wipes every key in the store.
func (db *DB) Clear() error {
	_, err := db.Exec(`DELETE FROM kv`)
	return err
}

// Entries returns all rows whose key starts with prefix, ordered by key.
func (db *DB) Entries(prefix string) ([]Entry, error) {
	rows, err := db.Query(`
		SELECT key, value, updated_at FROM kv
		WHERE substr(key, 1, length(?)) = ?
		ORDER BY key`, prefix, prefix)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of stored keys.
func (db *DB) Count() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&count)
	return count, err
}

// KV is the subset of DB used by the preference, index and log layers.
type KV interface {
	Get(key string) (string, bool, error)
	Put(key, value string) error
	Delete(key string) error
	Clear() error
}

var _ KV = (*DB)(nil)

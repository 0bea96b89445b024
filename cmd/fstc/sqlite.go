package main

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/calvinalkan/fstcache/pkg/fstcache"
)

// feedSQLite streams a two-column (key, value) query into the builder.
//
// The query is responsible for key order (ORDER BY key); the builder rejects
// unsorted rows, so a missing ORDER BY fails fast rather than building a
// broken store.
func feedSQLite(b *fstcache.Builder, dbPath, query string) (uint64, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open sqlite: %w", err)
	}

	defer func() { _ = db.Close() }()

	rows, err := db.Query(query)
	if err != nil {
		return 0, fmt.Errorf("query sqlite: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var count uint64

	for rows.Next() {
		var key, value []byte

		err = rows.Scan(&key, &value)
		if err != nil {
			return count, fmt.Errorf("scan row %d: %w", count+1, err)
		}

		err = b.Insert(key, value)
		if err != nil {
			return count, err
		}

		count++
	}

	err = rows.Err()
	if err != nil {
		return count, fmt.Errorf("read sqlite rows: %w", err)
	}

	return count, nil
}

package search

import "database/sql"

// SetOpenDB swaps the database opener and returns a restore func.
// This file only compiles during `go test`.
func SetOpenDB(fn func(driver, dsn string) (*sql.DB, error)) func() {
	prev := openDB
	openDB = fn
	return func() { openDB = prev }
}

// SanitizeFTS exposes sanitizeFTS to search_test.
var SanitizeFTS = sanitizeFTS

//go:build sqlite_vec && cgo

package vstore

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Registers sqlite-vec as an auto-loadable extension on the
	// mattn/go-sqlite3 driver, giving this build a real vec0 ANN index
	// available for a future non-linear-scan Search path.
	vec.Auto()
}

func openEmbeddedDB(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", path)
}

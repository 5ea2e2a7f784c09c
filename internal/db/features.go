package db

import (
	"database/sql"
	"fmt"

	"github.com/joeblew999/plat-aquifer/internal/aquifer"
)

// LoadFeatures (re)creates the aquifer_features attribute table from the
// merged collection so the query endpoints can aggregate over it. Geometry
// stays out of the table; only the canonical attributes land here.
func LoadFeatures(conn *sql.DB, features []aquifer.Feature) error {
	if conn == nil {
		return fmt.Errorf("no database connection")
	}

	if _, err := conn.Exec(`DROP TABLE IF EXISTS aquifer_features`); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := conn.Exec(`CREATE TABLE aquifer_features (
		id INTEGER,
		aquifer VARCHAR,
		alt_key VARCHAR,
		level INTEGER,
		name VARCHAR
	)`); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO aquifer_features VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, f := range features {
		if _, err := stmt.Exec(f.ID, f.Group, f.AltKey, f.Level, f.Name); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert feature %d: %w", f.ID, err)
		}
	}
	return tx.Commit()
}

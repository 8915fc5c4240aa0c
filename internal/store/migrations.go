package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the DDL for the history tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS msb_done (
		id         TEXT PRIMARY KEY,
		msbtid     TEXT NOT NULL DEFAULT '',
		checksum   TEXT NOT NULL,
		projectid  TEXT NOT NULL DEFAULT '',
		title      TEXT NOT NULL DEFAULT '',
		remaining  INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_msb_done_checksum ON msb_done(checksum)`,
	`CREATE INDEX IF NOT EXISTS idx_msb_done_projectid ON msb_done(projectid)`,
	`CREATE INDEX IF NOT EXISTS idx_msb_done_created_at ON msb_done(created_at)`,
}

// alterStatements are column additions that need special handling since
// SQLite doesn't support IF NOT EXISTS for ALTER TABLE ADD COLUMN.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
	indexSQL string // Optional index to create after column is added
}{
	// Suspend events carry the observation label.
	{
		table:    "msb_done",
		column:   "label",
		alterSQL: "ALTER TABLE msb_done ADD COLUMN label TEXT NOT NULL DEFAULT ''",
	},
	{
		table:    "msb_done",
		column:   "comment",
		alterSQL: "ALTER TABLE msb_done ADD COLUMN comment TEXT NOT NULL DEFAULT ''",
	},
	// The first history table recorded observations only.
	{
		table:    "msb_done",
		column:   "status",
		alterSQL: "ALTER TABLE msb_done ADD COLUMN status TEXT NOT NULL DEFAULT 'observed'",
		indexSQL: "CREATE INDEX IF NOT EXISTS idx_msb_done_status ON msb_done(status)",
	},
	// Checksum after the change, when leaving an OR group altered it.
	{
		table:    "msb_done",
		column:   "new_checksum",
		alterSQL: "ALTER TABLE msb_done ADD COLUMN new_checksum TEXT NOT NULL DEFAULT ''",
	},
}

// migrate executes all schema DDL statements, alter migrations, and post-migration indexes.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return err
		}
		if alter.indexSQL != "" {
			if _, err := db.ExecContext(ctx, alter.indexSQL); err != nil {
				return err
			}
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = db.ExecContext(ctx, alterSQL)
	return err
}

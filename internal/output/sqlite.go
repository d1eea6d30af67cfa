package output

import (
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/phobologic/whatsupdoc/internal/model"
)

const schema = `
CREATE TABLE compounds (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	full_name TEXT NOT NULL,
	kind TEXT NOT NULL,
	parent_id TEXT NOT NULL,
	group_id TEXT NOT NULL,
	base_id TEXT NOT NULL,
	description TEXT NOT NULL,
	file TEXT NOT NULL,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL
);

CREATE INDEX idx_compounds_full_name ON compounds(full_name);

CREATE TABLE members (
	compound_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	full_name TEXT NOT NULL,
	kind TEXT NOT NULL,
	min_params INTEGER NOT NULL,
	max_params INTEGER NOT NULL,
	description TEXT NOT NULL,
	native_ref TEXT NOT NULL,
	group_id TEXT NOT NULL,
	deprecated INTEGER NOT NULL,
	deprecation_note TEXT NOT NULL,
	file TEXT NOT NULL,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL,
	PRIMARY KEY (compound_id, position),
	FOREIGN KEY (compound_id) REFERENCES compounds(id) ON DELETE CASCADE
);

CREATE INDEX idx_members_full_name ON members(full_name);

CREATE TABLE children (
	compound_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	full_name TEXT NOT NULL,
	target_id TEXT NOT NULL,
	file TEXT NOT NULL,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL,
	PRIMARY KEY (compound_id, position),
	FOREIGN KEY (compound_id) REFERENCES compounds(id) ON DELETE CASCADE
);
`

// WriteSQLite writes dm into a fresh SQLite database at path, replacing any
// previous one.
func WriteSQLite(path string, dm *model.DocMap) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := insertAll(tx, dm); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertAll(tx *sql.Tx, dm *model.DocMap) error {
	for i := range dm.Compounds {
		c := &dm.Compounds[i]
		_, err := tx.Exec(`
		INSERT INTO compounds (id, name, full_name, kind, parent_id, group_id, base_id, description, file, line, col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.FullName, string(c.Kind), c.ParentID, c.GroupID, c.BaseID, c.Description,
			c.Location.File, c.Location.Line, c.Location.Column,
		)
		if err != nil {
			return fmt.Errorf("insert compound %s: %w", c.ID, err)
		}

		for pos, m := range c.Members {
			_, err := tx.Exec(`
			INSERT INTO members (compound_id, position, name, full_name, kind, min_params, max_params,
				description, native_ref, group_id, deprecated, deprecation_note, file, line, col)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				c.ID, pos, m.Name, m.FullName, string(m.Kind), m.MinParams, m.MaxParams,
				m.Description, m.NativeRef, m.GroupID, m.Deprecated, m.DeprecationNote,
				m.Location.File, m.Location.Line, m.Location.Column,
			)
			if err != nil {
				return fmt.Errorf("insert member %s: %w", m.FullName, err)
			}
		}

		for pos, ch := range c.Children {
			_, err := tx.Exec(`
			INSERT INTO children (compound_id, position, name, full_name, target_id, file, line, col)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				c.ID, pos, ch.Name, ch.FullName, ch.TargetID,
				ch.Location.File, ch.Location.Line, ch.Location.Column,
			)
			if err != nil {
				return fmt.Errorf("insert child %s: %w", ch.FullName, err)
			}
		}
	}
	return nil
}

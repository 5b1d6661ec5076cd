package sqlite

import (
	"fmt"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS site_lu (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS event_type_lu (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS state_type_lu (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS instance_state_type_lu (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS pct_complete_lu (
    event_type_id INTEGER PRIMARY KEY,
    percent INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS instance (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    site_id INTEGER NOT NULL,
    process_id INTEGER NOT NULL,
    instance_name TEXT NOT NULL,
    start_ts TEXT,
    end_ts TEXT,
    run_params TEXT,
    inst_state_type_id INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS event_group (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    instance_id INTEGER NOT NULL,
    event_group_state_id INTEGER NOT NULL,
    event_group_ts TEXT,
    storm_name TEXT,
    storm_number TEXT,
    advisory_id TEXT,
    final_product TEXT
);

CREATE TABLE IF NOT EXISTS event (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    site_id INTEGER NOT NULL,
    event_group_id INTEGER NOT NULL,
    event_type_id INTEGER NOT NULL,
    event_ts TEXT,
    advisory_id TEXT,
    pct_complete INTEGER,
    sub_pct_complete TEXT,
    process TEXT,
    raw_data TEXT
);

CREATE TABLE IF NOT EXISTS config_item (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    instance_id INTEGER NOT NULL,
    uid TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT
);

CREATE TABLE IF NOT EXISTS json_archive (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    queue TEXT,
    received_at TEXT,
    data TEXT
);

CREATE INDEX IF NOT EXISTS idx_instance_key ON instance(site_id, process_id, instance_name);
CREATE INDEX IF NOT EXISTS idx_event_group_key ON event_group(instance_id, advisory_id);
CREATE INDEX IF NOT EXISTS idx_config_item_key ON config_item(instance_id, uid);
`,
	},
	{
		Version:     2,
		Description: "Seed lookup tables",
		SQL: `
INSERT OR IGNORE INTO site_lu (id, name) VALUES
    (0, 'RENCI'), (1, 'TACC'), (2, 'LSU'), (3, 'UCF'), (4, 'George Mason'),
    (5, 'Penguin'), (6, 'LONI'), (7, 'Seahorse'), (8, 'QB2'), (9, 'CCT'),
    (10, 'PSC'), (11, 'UGA'), (12, 'TWI');

INSERT OR IGNORE INTO event_type_lu (id, name) VALUES
    (0, 'RSTR'), (1, 'PRE1'), (2, 'NOWC'), (3, 'PRE2'), (4, 'FORE'),
    (5, 'POST'), (6, 'REND'), (7, 'STRT'), (8, 'HIND'), (9, 'EXIT'),
    (10, 'FSTR'), (11, 'FEND'), (12, 'PNOW');

INSERT OR IGNORE INTO state_type_lu (id, name) VALUES
    (0, 'INIT'), (1, 'RUNN'), (2, 'PEND'), (3, 'FAIL'), (4, 'WARN'),
    (5, 'IDLE'), (6, 'CMPL'), (7, 'NONE'), (8, 'WAIT'), (9, 'EXIT'),
    (10, 'STALLED');

INSERT OR IGNORE INTO instance_state_type_lu (id, name) VALUES
    (0, 'INIT'), (1, 'RUNN'), (2, 'PEND'), (3, 'FAIL'), (4, 'WARN'),
    (5, 'IDLE'), (6, 'CMPL'), (7, 'NONE'), (8, 'WAIT'), (9, 'EXIT'),
    (10, 'STALLED');

INSERT OR IGNORE INTO pct_complete_lu (event_type_id, percent) VALUES
    (0, 0), (1, 5), (2, 20), (3, 40), (4, 60), (5, 90), (6, 100),
    (7, 0), (8, 0), (9, 0), (10, 40), (11, 90), (12, 20);
`,
	},
}

func (c *Client) migrate() error {
	if err := c.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := c.appliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		c.logger.Info("applying migration", "version", m.Version, "description", m.Description)

		tx, err := c.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (c *Client) ensureMigrationsTable() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (c *Client) appliedMigrations() (map[int]bool, error) {
	rows, err := c.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

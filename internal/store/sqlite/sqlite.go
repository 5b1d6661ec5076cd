// Package sqlite implements the persistence gateway against an embedded
// SQLite database. It backs local runs and the test suite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/surgewatch/runmon/internal/store"
)

// Client is a SQLite-backed store.Gateway.
type Client struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and applies pending
// migrations. Pass ":memory:" for an ephemeral database.
func Open(path string, logger *slog.Logger) (*Client, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	_, _ = db.Exec("PRAGMA busy_timeout=5000")
	_, _ = db.Exec("PRAGMA foreign_keys=ON")

	c := &Client{db: db, logger: logger}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) FindOpenInstance(ctx context.Context, siteID, processID int, instanceName string) (int64, error) {
	const q = `SELECT id FROM instance
		WHERE site_id = ? AND process_id = ? AND instance_name = ?
		AND inst_state_type_id != (SELECT id FROM instance_state_type_lu WHERE name = 'EXIT')
		ORDER BY id DESC LIMIT 1`

	var id int64
	err := c.db.QueryRowContext(ctx, q, siteID, processID, instanceName).Scan(&id)
	if err == sql.ErrNoRows {
		return store.NotFound, nil
	}
	if err != nil {
		return store.NotFound, c.fail("find open instance", q, err)
	}
	return id, nil
}

func (c *Client) CreateInstance(ctx context.Context, stateID, siteID, processID int, instanceName, runParams, timestamp string) (int64, error) {
	const q = `INSERT INTO instance
		(inst_state_type_id, site_id, process_id, instance_name, run_params, start_ts, end_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := c.db.ExecContext(ctx, q, stateID, siteID, processID, instanceName, runParams, timestamp, timestamp)
	if err != nil {
		return store.NotFound, c.fail("create instance", q, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.NotFound, c.fail("create instance", q, err)
	}
	return id, nil
}

func (c *Client) UpdateInstance(ctx context.Context, instanceID int64, stateID int, endTimestamp, runParams string) error {
	const q = `UPDATE instance SET inst_state_type_id = ?, end_ts = ?, run_params = ? WHERE id = ?`
	if _, err := c.db.ExecContext(ctx, q, stateID, endTimestamp, runParams, instanceID); err != nil {
		return c.fail("update instance", q, err)
	}
	return nil
}

func (c *Client) FindEventGroup(ctx context.Context, instanceID int64, advisoryID string) (int64, error) {
	const q = `SELECT id FROM event_group
		WHERE instance_id = ? AND advisory_id = ?
		ORDER BY id DESC LIMIT 1`

	var id int64
	err := c.db.QueryRowContext(ctx, q, instanceID, advisoryID).Scan(&id)
	if err == sql.ErrNoRows {
		return store.NotFound, nil
	}
	if err != nil {
		return store.NotFound, c.fail("find event group", q, err)
	}
	return id, nil
}

func (c *Client) CreateEventGroup(ctx context.Context, stateID int, instanceID int64, timestamp, stormName, stormNumber, advisoryID string) (int64, error) {
	const q = `INSERT INTO event_group
		(event_group_state_id, instance_id, event_group_ts, storm_name, storm_number, advisory_id, final_product)
		VALUES (?, ?, ?, ?, ?, ?, 'product')`

	res, err := c.db.ExecContext(ctx, q, stateID, instanceID, timestamp, stormName, stormNumber, advisoryID)
	if err != nil {
		return store.NotFound, c.fail("create event group", q, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.NotFound, c.fail("create event group", q, err)
	}
	return id, nil
}

func (c *Client) UpdateEventGroupState(ctx context.Context, groupID int64, stateID int, stormName, advisoryID string) error {
	const q = `UPDATE event_group SET event_group_state_id = ?, storm_name = ?, advisory_id = ? WHERE id = ?`
	if _, err := c.db.ExecContext(ctx, q, stateID, stormName, advisoryID, groupID); err != nil {
		return c.fail("update event group", q, err)
	}
	return nil
}

func (c *Client) InsertEvent(ctx context.Context, ev store.Event) error {
	const q = `INSERT INTO event
		(site_id, event_group_id, event_type_id, event_ts, advisory_id, pct_complete, sub_pct_complete, process, raw_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := c.db.ExecContext(ctx, q,
		ev.SiteID, ev.GroupID, ev.EventTypeID, ev.Timestamp, ev.AdvisoryID,
		ev.PctComplete, ev.SubPctComplete, ev.Process, ev.RawMessage)
	if err != nil {
		return c.fail("insert event", q, err)
	}
	return nil
}

func (c *Client) ReplaceConfigItems(ctx context.Context, instanceID int64, uid string, items map[string]string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return c.fail("replace config items", "BEGIN", err)
	}
	defer func() { _ = tx.Rollback() }()

	const del = `DELETE FROM config_item WHERE instance_id = ? AND uid = ?`
	if _, err := tx.ExecContext(ctx, del, instanceID, uid); err != nil {
		return c.fail("replace config items", del, err)
	}

	const ins = `INSERT INTO config_item (instance_id, uid, key, value) VALUES (?, ?, ?, ?)`
	for k, v := range items {
		if _, err := tx.ExecContext(ctx, ins, instanceID, uid, k, v); err != nil {
			return c.fail("replace config items", ins, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return c.fail("replace config items", "COMMIT", err)
	}
	return nil
}

func (c *Client) SaveRawMessage(ctx context.Context, queue string, body []byte) error {
	const q = `INSERT INTO json_archive (queue, received_at, data) VALUES (?, CURRENT_TIMESTAMP, ?)`
	if _, err := c.db.ExecContext(ctx, q, queue, string(body)); err != nil {
		return c.fail("save raw message", q, err)
	}
	return nil
}

var lookupTables = map[string]string{
	"site_lu":                "SELECT name, id FROM site_lu",
	"event_type_lu":          "SELECT name, id FROM event_type_lu",
	"state_type_lu":          "SELECT name, id FROM state_type_lu",
	"instance_state_type_lu": "SELECT name, id FROM instance_state_type_lu",
	"pct_complete_lu":        "SELECT CAST(event_type_id AS TEXT), percent FROM pct_complete_lu",
}

func (c *Client) LookupItems(ctx context.Context, table string) (map[string]int, error) {
	q, ok := lookupTables[table]
	if !ok {
		return nil, fmt.Errorf("unknown lookup table %q", table)
	}

	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, c.fail("lookup items", q, err)
	}
	defer rows.Close()

	items := make(map[string]int)
	for rows.Next() {
		var name string
		var id int
		if err := rows.Scan(&name, &id); err != nil {
			return nil, c.fail("lookup items", q, err)
		}
		items[name] = id
	}
	return items, rows.Err()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) fail(op, stmt string, err error) error {
	c.logger.Error("store operation failed", "op", op, "statement", stmt, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}

// Package inventory loads a resource hierarchy from a read-only SQLite
// database and turns it into bridge events, parents first.
package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"ipmitree/internal/bridge"
	"ipmitree/internal/domain"
	"ipmitree/internal/tree"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Schema is the layout the reader expects. Rows with a NULL parent_id sit
// directly under the root.
const Schema = `
	CREATE TABLE resources (
		id TEXT PRIMARY KEY,
		parent_id TEXT,
		kind TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		position INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE conditions (
		resource_id TEXT NOT NULL,
		level TEXT NOT NULL
	);
`

// PayloadFunc picks the payload for a loaded resource, e.g. a refresh
// capability for sensors.
type PayloadFunc func(id tree.ID, kind domain.Kind) any

// Reader reads an inventory database.
type Reader struct {
	path    string
	dsn     string
	payload PayloadFunc
}

// Option configures a Reader.
type Option func(*Reader)

// WithPayload attaches payloads to loaded resources.
func WithPayload(fn PayloadFunc) Option {
	return func(r *Reader) {
		r.payload = fn
	}
}

// NewReader creates a reader for the database at path.
func NewReader(path string, opts ...Option) (*Reader, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, inventoryError("inventory path is empty", nil)
	}
	r := &Reader{path: trimmed, dsn: buildDSN(trimmed)}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// buildDSN creates a read-only DSN for the given path.
func buildDSN(dbPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(dbPath),
	}
	q := url.Values{}
	q.Set("mode", "ro")
	q.Set("_busy_timeout", "3000")
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *Reader) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", r.dsn)
	if err != nil {
		return nil, inventoryError("open inventory db", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, inventoryError(fmt.Sprintf("ping inventory db %s", r.path), err)
	}
	return db, nil
}

type resourceRow struct {
	id       string
	parent   sql.NullString
	kind     string
	name     string
	active   bool
	position int
}

// Load returns an add event for every resource, ordered so each parent is
// added before its children, followed by one ConditionEntered per
// condition row.
func (r *Reader) Load(ctx context.Context) ([]bridge.Event, error) {
	db, err := r.openDB(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = db.Close()
	}()

	resources, err := queryResources(ctx, db)
	if err != nil {
		return nil, err
	}
	ordered, err := parentsFirst(resources)
	if err != nil {
		return nil, err
	}

	events := make([]bridge.Event, 0, len(ordered))
	for _, row := range ordered {
		kind := domain.ParseKind(row.kind)
		ev := bridge.ResourceAdded{
			ID:     tree.ID(row.id),
			Name:   row.name,
			Kind:   kind,
			Active: row.active,
		}
		if row.parent.Valid {
			ev.Parent = tree.ID(row.parent.String)
		}
		if r.payload != nil {
			ev.Payload = r.payload(ev.ID, kind)
		}
		events = append(events, ev)
	}

	conditions, err := queryConditions(ctx, db)
	if err != nil {
		return nil, err
	}
	return append(events, conditions...), nil
}

func queryResources(ctx context.Context, db *sql.DB) ([]resourceRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, parent_id, kind, name, active, position
		FROM resources
		ORDER BY position, id
	`)
	if err != nil {
		return nil, inventoryError("query resources", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []resourceRow
	for rows.Next() {
		var row resourceRow
		var active int
		if err := rows.Scan(&row.id, &row.parent, &row.kind, &row.name, &active, &row.position); err != nil {
			return nil, inventoryError("scan resource", err)
		}
		row.active = active != 0
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, inventoryError("iterate resources", err)
	}
	return out, nil
}

func queryConditions(ctx context.Context, db *sql.DB) ([]bridge.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT resource_id, level
		FROM conditions
		ORDER BY rowid
	`)
	if err != nil {
		return nil, inventoryError("query conditions", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []bridge.Event
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, inventoryError("scan condition", err)
		}
		level, err := domain.ParseLevel(raw)
		if err != nil {
			return nil, inventoryError(fmt.Sprintf("condition on %s", id), err)
		}
		out = append(out, bridge.ConditionEntered{ID: tree.ID(id), Level: level})
	}
	if err := rows.Err(); err != nil {
		return nil, inventoryError("iterate conditions", err)
	}
	return out, nil
}

// parentsFirst orders rows breadth-first from the root, keeping the query
// order among siblings. Rows that cannot be reached are reported.
func parentsFirst(rows []resourceRow) ([]resourceRow, error) {
	children := make(map[string][]resourceRow)
	known := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		known[row.id] = struct{}{}
		parent := ""
		if row.parent.Valid {
			parent = row.parent.String
		}
		children[parent] = append(children[parent], row)
	}

	out := make([]resourceRow, 0, len(rows))
	queue := []string{""}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, row := range children[parent] {
			out = append(out, row)
			queue = append(queue, row.id)
		}
	}
	if len(out) == len(rows) {
		return out, nil
	}

	placed := make(map[string]struct{}, len(out))
	for _, row := range out {
		placed[row.id] = struct{}{}
	}
	var orphans []string
	for _, row := range rows {
		if _, ok := placed[row.id]; ok {
			continue
		}
		if _, ok := known[row.parent.String]; !ok {
			orphans = append(orphans, fmt.Sprintf("%s (missing parent %s)", row.id, row.parent.String))
		} else {
			orphans = append(orphans, fmt.Sprintf("%s (cycle)", row.id))
		}
	}
	slices.Sort(orphans)
	return nil, inventoryError("unreachable resources: "+strings.Join(orphans, ", "), nil)
}

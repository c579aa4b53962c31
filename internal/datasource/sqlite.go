package datasource

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/swimlane/pkg/debug"
	"github.com/vanderheijden86/swimlane/pkg/metrics"
	"github.com/vanderheijden86/swimlane/pkg/model"
)

// SchemaVersion is stored in the meta table of databases written by WriteSQLite.
const SchemaVersion = 1

// SQLiteReader provides read access to a swimlane SQLite database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}
	if _, err := os.Stat(source.Path); err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Read performance pragmas; failures are not fatal.
	pragmas := []string{
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("datasource: %s: %v", pragma, err)
		}
	}

	return &SQLiteReader{
		db:   db,
		path: source.Path,
	}, nil
}

// Path returns the database file path.
func (r *SQLiteReader) Path() string { return r.path }

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListInitiatives reads all initiatives in insertion order.
func (r *SQLiteReader) ListInitiatives() ([]model.Initiative, error) {
	defer metrics.Timer(metrics.DataLoad)()

	rows, err := r.db.Query(`
		SELECT id, name, owner, status, last_updated, description, summary
		FROM initiatives
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("query initiatives: %w", err)
	}
	defer rows.Close()

	var out []model.Initiative
	for rows.Next() {
		var in model.Initiative
		var owner, status, lastUpdated, description, summary sql.NullString
		if err := rows.Scan(&in.ID, &in.Name, &owner, &status, &lastUpdated, &description, &summary); err != nil {
			return nil, fmt.Errorf("scan initiative: %w", err)
		}
		in.Owner = owner.String
		in.Status = model.NormalizeStatus(status.String)
		in.LastUpdated = lastUpdated.String
		in.Description = description.String
		in.Summary = summary.String
		out = append(out, in)
	}
	return out, rows.Err()
}

// ListEvents reads the events of one initiative in insertion order.
func (r *SQLiteReader) ListEvents(initiativeID string) ([]model.Event, error) {
	rows, err := r.db.Query(`
		SELECT id, type, title, timestamp, actor, summary, evidence,
			criticality, linked_event_id, initiative_id
		FROM events
		WHERE initiative_id = ?
		ORDER BY rowid
	`, initiativeID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var e model.Event
		var typ, title, ts, actor, summary, evidence, criticality, linked sql.NullString
		if err := rows.Scan(&e.ID, &typ, &title, &ts, &actor, &summary, &evidence, &criticality, &linked, &e.InitiativeID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = model.EventType(typ.String)
		e.Title = title.String
		e.Timestamp = ts.String
		e.Actor = actor.String
		e.Summary = summary.String
		e.Criticality = model.Criticality(criticality.String)
		e.LinkedEventID = linked.String
		if evidence.Valid && evidence.String != "" {
			if err := json.Unmarshal([]byte(evidence.String), &e.Evidence); err != nil {
				debug.Log("datasource: event %s: bad evidence JSON: %v", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountEvents returns the number of stored events.
func (r *SQLiteReader) CountEvents() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// GetLastModified returns the write time recorded in the meta table.
func (r *SQLiteReader) GetLastModified() (time.Time, error) {
	var s string
	if err := r.db.QueryRow(`SELECT value FROM meta WHERE key = 'written_at'`).Scan(&s); err != nil {
		return time.Time{}, fmt.Errorf("read meta: %w", err)
	}
	return time.Parse(time.RFC3339, s)
}

// CreateSchema creates the initiatives, events and meta tables.
func CreateSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS initiatives (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			owner TEXT,
			status TEXT,
			last_updated TEXT,
			description TEXT,
			summary TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT NOT NULL,
			initiative_id TEXT NOT NULL,
			type TEXT,
			title TEXT,
			timestamp TEXT,
			actor TEXT,
			summary TEXT,
			evidence TEXT,
			criticality TEXT,
			linked_event_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_initiative ON events(initiative_id)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// WriteSQLite writes initiatives and events to a fresh database at path,
// replacing any existing file.
func WriteSQLite(path string, initiatives []model.Initiative, events []model.Event) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := CreateSchema(db); err != nil {
		return err
	}
	if err := insertInitiatives(db, initiatives); err != nil {
		return fmt.Errorf("insert initiatives: %w", err)
	}
	if err := insertEvents(db, events); err != nil {
		return fmt.Errorf("insert events: %w", err)
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?), ('written_at', ?)`,
		fmt.Sprint(SchemaVersion), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}
	return db.Close()
}

func insertInitiatives(db *sql.DB, initiatives []model.Initiative) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO initiatives (id, name, owner, status, last_updated, description, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, in := range initiatives {
		if _, err := stmt.Exec(in.ID, in.Name, in.Owner, string(in.Status), in.LastUpdated, in.Description, in.Summary); err != nil {
			return fmt.Errorf("insert initiative %s: %w", in.ID, err)
		}
	}
	return tx.Commit()
}

func insertEvents(db *sql.DB, events []model.Event) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO events (id, initiative_id, type, title, timestamp, actor, summary, evidence, criticality, linked_event_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		evidence := ""
		if len(e.Evidence) > 0 {
			b, err := json.Marshal(e.Evidence)
			if err != nil {
				return fmt.Errorf("encode evidence for %s: %w", e.ID, err)
			}
			evidence = string(b)
		}
		if _, err := stmt.Exec(e.ID, e.InitiativeID, string(e.Type), e.Title, e.Timestamp, e.Actor,
			e.Summary, evidence, string(e.Criticality), e.LinkedEventID); err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

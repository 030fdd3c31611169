package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-grid-engine/internal/model"
)

// MemoryDSN keeps the journal inside the process; it is gone when the journal closes.
const MemoryDSN = ":memory:"

// ErrNotFound is returned when a session has no journal entry.
var ErrNotFound = errors.New("store: not found")

// Journal records engine sessions and the requests they processed.
type Journal struct {
	db *sql.DB
}

// SessionInfo is one row of the sessions table.
type SessionInfo struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Entry is one processed request.
type Entry struct {
	RequestID    string       `json:"requestId"`
	Action       model.Action `json:"action"`
	Criteria     string       `json:"criteria"`
	TotalRows    int          `json:"totalRows"`
	DisplayRows  int          `json:"displayRows"`
	ReturnedRows int          `json:"returnedRows"`
	ProcessingMS float64      `json:"processingMs"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Open connects to dsn and creates the tables if they do not exist.
func Open(dsn string) (*Journal, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	// Create tables if not exists
	sessionTable := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		status TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	requestTable := `
	CREATE TABLE IF NOT EXISTS requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		request_id TEXT,
		action TEXT,
		criteria TEXT,
		total_rows INTEGER,
		display_rows INTEGER,
		returned_rows INTEGER,
		processing_ms REAL,
		created_at DATETIME
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS session_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`

	for _, stmt := range []string{sessionTable, requestTable, errorTable} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create journal tables: %w", err)
		}
	}

	return &Journal{db: db}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// SaveSession stores a new session with the given status
func (j *Journal) SaveSession(sessionID, status string) error {
	now := time.Now().UTC()
	_, err := j.db.Exec(`INSERT INTO sessions (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		sessionID, status, now, now)
	return err
}

// UpdateSessionStatus updates session status
func (j *Journal) UpdateSessionStatus(sessionID, status string) error {
	now := time.Now().UTC()
	_, err := j.db.Exec(`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`, status, now, sessionID)
	return err
}

// SaveSessionError records an error for a session
func (j *Journal) SaveSessionError(sessionID string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := j.db.Exec(`INSERT INTO session_errors (session_id, error_message, created_at) VALUES (?, ?, ?)`,
		sessionID, err.Error(), now)
	return e
}

// SaveRequest records one processed request and its outcome
func (j *Journal) SaveRequest(sessionID string, req model.Request, resp model.Response) error {
	criteria, err := json.Marshal(struct {
		Sort     []model.SortCriterion   `json:"sort,omitempty"`
		Filter   []model.FilterCriterion `json:"filter,omitempty"`
		Group    []model.GroupCriterion  `json:"group,omitempty"`
		Page     *int                    `json:"page,omitempty"`
		PageSize *int                    `json:"pageSize,omitempty"`
	}{req.Sort, req.Filter, req.Group, req.Page, req.PageSize})
	if err != nil {
		return err
	}

	var total, display, returned int
	if resp.Data != nil {
		total, display, returned = resp.Data.TotalRows, resp.Data.DisplayRows, len(resp.Data.Rows)
	}

	now := time.Now().UTC()
	_, err = j.db.Exec(`INSERT INTO requests
		(session_id, request_id, action, criteria, total_rows, display_rows, returned_rows, processing_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, req.ID, string(req.Action), string(criteria), total, display, returned, resp.ProcessingTime, now)
	return err
}

// ListSessions returns all sessions, newest first
func (j *Journal) ListSessions() ([]SessionInfo, error) {
	rows, err := j.db.Query(`SELECT id, status, created_at, updated_at FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []SessionInfo
	for rows.Next() {
		var s SessionInfo
		if err := rows.Scan(&s.ID, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// GetSession fetches one session
func (j *Journal) GetSession(sessionID string) (SessionInfo, error) {
	s := SessionInfo{ID: sessionID}
	err := j.db.QueryRow(`SELECT status, created_at, updated_at FROM sessions WHERE id = ?`, sessionID).
		Scan(&s.Status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionInfo{}, ErrNotFound
	}
	return s, err
}

// ListRequests returns the requests a session processed, in processing order
func (j *Journal) ListRequests(sessionID string) ([]Entry, error) {
	rows, err := j.db.Query(`SELECT request_id, action, criteria, total_rows, display_rows, returned_rows, processing_ms, created_at
		FROM requests WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var action string
		if err := rows.Scan(&e.RequestID, &action, &e.Criteria, &e.TotalRows, &e.DisplayRows,
			&e.ReturnedRows, &e.ProcessingMS, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = model.Action(action)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListErrors returns the error messages recorded for a session
func (j *Journal) ListErrors(sessionID string) ([]string, error) {
	rows, err := j.db.Query(`SELECT error_message FROM session_errors WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

package session

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore keeps sessions in a SQLite database so they survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and applies the schema.
// The database runs in WAL mode with a single writer connection.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, sess *Session) error {
	state, tape, err := encode(sess)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, state, tape, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, state, tape, sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	var (
		state, tape      string
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT state, tape, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&state, &tape, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session %s: %w", id, err)
	}

	sess := &Session{
		ID:        id,
		CreatedAt: time.Unix(0, created).UTC(),
		UpdatedAt: time.Unix(0, updated).UTC(),
	}
	if err := json.Unmarshal([]byte(state), &sess.State); err != nil {
		return nil, fmt.Errorf("decode state of session %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(tape), &sess.Tape); err != nil {
		return nil, fmt.Errorf("decode tape of session %s: %w", id, err)
	}
	return sess, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	state, tape, err := encode(sess)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET state = ?, tape = ?, updated_at = ? WHERE id = ?`,
		state, tape, sess.UpdatedAt.UnixNano(), sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session %s: %w", sess.ID, err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func encode(sess *Session) (string, string, error) {
	state, err := json.Marshal(sess.State)
	if err != nil {
		return "", "", fmt.Errorf("encode state of session %s: %w", sess.ID, err)
	}

	tape := sess.Tape
	if tape == nil {
		tape = []string{}
	}
	tapeJSON, err := json.Marshal(tape)
	if err != nil {
		return "", "", fmt.Errorf("encode tape of session %s: %w", sess.ID, err)
	}

	return string(state), string(tapeJSON), nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

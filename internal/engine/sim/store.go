package sim

import (
	"context"
	"fmt"
	"path/filepath"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS accounts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS config (
	account_id INTEGER NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	PRIMARY KEY (account_id, key)
);
CREATE TABLE IF NOT EXISTS contacts (
	id         INTEGER PRIMARY KEY,
	account_id INTEGER NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	addr       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT '',
	blocked    INTEGER NOT NULL DEFAULT 0,
	verified   INTEGER NOT NULL DEFAULT 0,
	last_seen  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS contacts_addr ON contacts (account_id, addr);
CREATE TABLE IF NOT EXISTS chats (
	id            INTEGER PRIMARY KEY,
	account_id    INTEGER NOT NULL,
	type          INTEGER NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	visibility    INTEGER NOT NULL DEFAULT 0,
	blocked       INTEGER NOT NULL DEFAULT 0,
	muted         INTEGER NOT NULL DEFAULT 0,
	profile_image TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS chat_contacts (
	chat_id    INTEGER NOT NULL,
	contact_id INTEGER NOT NULL,
	PRIMARY KEY (chat_id, contact_id)
);
CREATE TABLE IF NOT EXISTS msgs (
	id        INTEGER PRIMARY KEY,
	account_id INTEGER NOT NULL,
	chat_id   INTEGER NOT NULL,
	from_id   INTEGER NOT NULL,
	viewtype  INTEGER NOT NULL,
	state     INTEGER NOT NULL,
	timestamp INTEGER NOT NULL,
	text      TEXT NOT NULL DEFAULT '',
	subject   TEXT NOT NULL DEFAULT '',
	file      TEXT NOT NULL DEFAULT '',
	filename  TEXT NOT NULL DEFAULT '',
	filemime  TEXT NOT NULL DEFAULT '',
	filebytes INTEGER NOT NULL DEFAULT 0,
	is_info   INTEGER NOT NULL DEFAULT 0,
	forwarded INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS msgs_chat ON msgs (chat_id, timestamp);
CREATE TABLE IF NOT EXISTS reactions (
	msg_id     INTEGER NOT NULL,
	contact_id INTEGER NOT NULL,
	emoji      TEXT NOT NULL,
	PRIMARY KEY (msg_id, contact_id, emoji)
);
CREATE TABLE IF NOT EXISTS transports (
	account_id INTEGER NOT NULL,
	addr       TEXT NOT NULL,
	password   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (account_id, addr)
);
`

// store is the SQLite database shared by all accounts of one account set.
type store struct {
	pool *sqlitex.Pool
	path string
}

func openStore(dir string) (*store, error) {
	path := filepath.Join(dir, "accounts.sqlite")
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    4,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("sim store: opening %s: %w", path, err)
	}
	s := &store{pool: pool, path: path}

	conn, err := s.take()
	if err != nil {
		_ = pool.Close()
		return nil, err
	}
	defer s.put(conn)
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return nil, fmt.Errorf("sim store: schema: %w", err)
	}
	return s, nil
}

func prepareConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sim store: %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *store) take() (*sqlite.Conn, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return nil, fmt.Errorf("sim store: take: %w", err)
	}
	return conn, nil
}

func (s *store) put(conn *sqlite.Conn) {
	s.pool.Put(conn)
}

func (s *store) close() error {
	return s.pool.Close()
}

// exec runs a statement that returns no rows.
func (s *store) exec(query string, args ...any) error {
	conn, err := s.take()
	if err != nil {
		return err
	}
	defer s.put(conn)
	return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args})
}

// insert runs an INSERT and returns the new rowid.
func (s *store) insert(query string, args ...any) (int64, error) {
	conn, err := s.take()
	if err != nil {
		return 0, err
	}
	defer s.put(conn)
	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return 0, err
	}
	return conn.LastInsertRowID(), nil
}

// changes runs a statement and returns the number of affected rows.
func (s *store) changes(query string, args ...any) (int, error) {
	conn, err := s.take()
	if err != nil {
		return 0, err
	}
	defer s.put(conn)
	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return 0, err
	}
	return conn.Changes(), nil
}

// query calls fn for every result row.
func (s *store) query(query string, fn func(stmt *sqlite.Stmt) error, args ...any) error {
	conn, err := s.take()
	if err != nil {
		return err
	}
	defer s.put(conn)
	return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args:       args,
		ResultFunc: fn,
	})
}

// int64s collects the first column of every row.
func (s *store) int64s(query string, args ...any) ([]int64, error) {
	var out []int64
	err := s.query(query, func(stmt *sqlite.Stmt) error {
		out = append(out, stmt.ColumnInt64(0))
		return nil
	}, args...)
	return out, err
}

// int64 returns the first column of the first row, or 0.
func (s *store) int64(query string, args ...any) (int64, error) {
	var v int64
	err := s.query(query, func(stmt *sqlite.Stmt) error {
		v = stmt.ColumnInt64(0)
		return nil
	}, args...)
	return v, err
}

// text returns the first column of the first row and whether a row existed.
func (s *store) text(query string, args ...any) (string, bool, error) {
	var v string
	found := false
	err := s.query(query, func(stmt *sqlite.Stmt) error {
		v = stmt.ColumnText(0)
		found = true
		return nil
	}, args...)
	return v, found, err
}

// tx runs fn inside an immediate transaction on one connection.
func (s *store) tx(fn func(conn *sqlite.Conn) error) (err error) {
	conn, err := s.take()
	if err != nil {
		return err
	}
	defer s.put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("sim store: begin transaction: %w", err)
	}
	defer endTransaction(&err)
	return fn(conn)
}

func execConn(conn *sqlite.Conn, query string, args ...any) error {
	return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args})
}

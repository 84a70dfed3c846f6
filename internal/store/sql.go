package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// dialect captures the few places where MySQL, PostgreSQL and SQLite differ
// for the documents table.
type dialect struct {
	name        string
	createTable string
	forUpdate   string
	numbered    bool // $1, $2 ... instead of ?
}

var (
	mysqlDialect = dialect{
		name: "mysql",
		createTable: `CREATE TABLE IF NOT EXISTS documents (
			collection VARCHAR(64) NOT NULL,
			id         CHAR(24)    NOT NULL,
			data       LONGTEXT    NOT NULL,
			PRIMARY KEY (collection, id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		forUpdate: " FOR UPDATE",
	}
	postgresDialect = dialect{
		name: "postgres",
		createTable: `CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			data       TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		)`,
		forUpdate: " FOR UPDATE",
		numbered:  true,
	}
	sqliteDialect = dialect{
		name: "sqlite",
		createTable: `CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			data       TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		)`,
	}
)

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore keeps documents as canonical extended JSON in a single table.
// Filters run in process through Filter.Match; writes are read-modify-write
// inside a transaction.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, d.createTable); err != nil {
		return nil, fmt.Errorf("create documents table (%s): %w", d.name, err)
	}
	return &SQLStore{db: db, d: d}, nil
}

// NewMySQLStore prepares the documents table on an open MySQL handle.
func NewMySQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	return newSQLStore(ctx, db, mysqlDialect)
}

// NewPostgresStore prepares the documents table on an open pgx handle.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	return newSQLStore(ctx, db, postgresDialect)
}

// NewSQLiteStore prepares the documents table on an open go-sqlite3 handle.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	return newSQLStore(ctx, db, sqliteDialect)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type row struct {
	id  string
	doc bson.M
}

func encodeJSON(doc bson.M) (string, error) {
	b, err := bson.MarshalExtJSON(doc, true, false)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJSON(data string) (bson.M, error) {
	var doc bson.M
	if err := bson.UnmarshalExtJSON([]byte(data), true, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// pushdownID returns the identifier when the filter starts with an _id
// equality, so the scan can be narrowed to a single row.
func pushdownID(f Filter) (string, bool) {
	if len(f) == 0 || f[0].Field != "_id" || f[0].Op != OpEq {
		return "", false
	}
	id, ok := f[0].Value.(string)
	return id, ok
}

// scan loads the matching rows of a collection ordered by id.
func (s *SQLStore) scan(ctx context.Context, q queryer, coll string, f Filter, lock bool) ([]row, error) {
	if err := f.validateIDs(); err != nil {
		return nil, err
	}
	query := "SELECT id, data FROM documents WHERE collection = ?"
	args := []any{coll}
	if id, ok := pushdownID(f); ok {
		query += " AND id = ?"
		args = append(args, id)
	}
	query += " ORDER BY id"
	if lock {
		query += s.d.forUpdate
	}
	rows, err := q.QueryContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		doc, err := decodeJSON(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", coll, id, err)
		}
		if f.Match(doc) {
			out = append(out, row{id: id, doc: doc})
		}
	}
	return out, rows.Err()
}

func (s *SQLStore) Find(ctx context.Context, coll string, f Filter, opts FindOptions) ([]bson.Raw, error) {
	rows, err := s.scan(ctx, s.db, coll, f, false)
	if err != nil {
		return nil, err
	}
	if opts.Skip > 0 {
		if opts.Skip >= int64(len(rows)) {
			rows = nil
		} else {
			rows = rows[opts.Skip:]
		}
	}
	if opts.Limit > 0 && int64(len(rows)) > opts.Limit {
		rows = rows[:opts.Limit]
	}
	out := make([]bson.Raw, 0, len(rows))
	for _, r := range rows {
		raw, err := bson.Marshal(r.doc)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func (s *SQLStore) FindOne(ctx context.Context, coll, id string) (bson.Raw, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}
	var data string
	err := s.db.QueryRowContext(ctx,
		s.d.rebind("SELECT data FROM documents WHERE collection = ? AND id = ?"), coll, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	doc, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	return bson.Marshal(doc)
}

func (s *SQLStore) InsertOne(ctx context.Context, coll string, v any) (string, error) {
	doc, id, err := toDocument(v)
	if err != nil {
		return "", err
	}
	data, err := encodeJSON(doc)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		s.d.rebind("INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)"), coll, id, data)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLStore) UpdateOne(ctx context.Context, coll string, f Filter, u Update) (int64, error) {
	return s.update(ctx, coll, f, u, false)
}

func (s *SQLStore) UpdateMany(ctx context.Context, coll string, f Filter, u Update) (int64, error) {
	return s.update(ctx, coll, f, u, true)
}

func (s *SQLStore) update(ctx context.Context, coll string, f Filter, u Update, many bool) (n int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := s.scan(ctx, tx, coll, f, true)
	if err != nil {
		return 0, err
	}
	if !many && len(rows) > 1 {
		rows = rows[:1]
	}
	stmt := s.d.rebind("UPDATE documents SET data = ? WHERE collection = ? AND id = ?")
	for _, r := range rows {
		if err = u.Apply(r.doc); err != nil {
			return 0, err
		}
		data, encErr := encodeJSON(r.doc)
		if encErr != nil {
			err = encErr
			return 0, err
		}
		if _, err = tx.ExecContext(ctx, stmt, data, coll, r.id); err != nil {
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (s *SQLStore) DeleteOne(ctx context.Context, coll string, f Filter) (int64, error) {
	return s.delete(ctx, coll, f, false)
}

func (s *SQLStore) DeleteMany(ctx context.Context, coll string, f Filter) (int64, error) {
	return s.delete(ctx, coll, f, true)
}

func (s *SQLStore) delete(ctx context.Context, coll string, f Filter, many bool) (n int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := s.scan(ctx, tx, coll, f, true)
	if err != nil {
		return 0, err
	}
	if !many && len(rows) > 1 {
		rows = rows[:1]
	}
	stmt := s.d.rebind("DELETE FROM documents WHERE collection = ? AND id = ?")
	for _, r := range rows {
		if _, err = tx.ExecContext(ctx, stmt, coll, r.id); err != nil {
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (s *SQLStore) Count(ctx context.Context, coll string, f Filter) (int64, error) {
	if len(f) == 0 {
		var n int64
		err := s.db.QueryRowContext(ctx,
			s.d.rebind("SELECT COUNT(*) FROM documents WHERE collection = ?"), coll).Scan(&n)
		return n, err
	}
	rows, err := s.scan(ctx, s.db, coll, f, false)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLStore) Close(ctx context.Context) error { return s.db.Close() }

// Package sqlite implements the projection store on top of an embedded SQLite
// database. The schema is managed with migrations embedded in the binary.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/config"
	"github.com/sagestream/sagestream/projection"
	"github.com/sagestream/sagestream/projection/sqlite/migrations"

	// Import SQLite driver for database/sql
	_ "modernc.org/sqlite"
)

func init() {
	projection.RegisterBackend("sqlite", func(ctx context.Context, sc config.Store) (projection.Store, error) {
		return Open(ctx, sc.DSN)
	})
}

// pragmas applied to every connection of a file database
const pragmas = "_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store is a projection.Store backed by SQLite.
//
// The pool is limited to a single connection. All writes are therefore
// serialized, and an account image or child set replaced in a transaction is
// never visible half-done.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	queries map[string]string // cache of generated statements
}

// Open opens or creates the database and applies all pending migrations.
// The path can be a filename, ":memory:", or a "file:" DSN.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn, err := makeDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	logrus.WithField("dsn", dsn).Debug("Opened sqlite projection store")
	return &Store{
		db:      db,
		queries: make(map[string]string),
	}, nil
}

func makeDSN(path string) (string, error) {
	switch {
	case path == "":
		return "", errors.New("no database path")
	case path == ":memory:":
		return "file::memory:", nil
	case strings.HasPrefix(path, "file:"):
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", errors.Wrap(err, "create database directory")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(err, "resolve database path")
	}
	return fmt.Sprintf("file:%s?%s", filepath.ToSlash(absPath), pragmas), nil
}

func runMigrations(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "initialise migrate driver")
	}
	sourceDriver, err := iofs.New(migrations.Files, ".")
	if err != nil {
		return errors.Wrap(err, "load embedded migrations")
	}
	defer func() {
		_ = sourceDriver.Close()
	}()
	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return errors.Wrap(err, "create migrator")
	}
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// execer is implemented by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) Upsert(ctx context.Context, id account.Pubkey, rec projection.Record) error {
	return s.upsert(ctx, s.db, id, rec)
}

func (s *Store) UpsertChildren(ctx context.Context, parent account.Pubkey, relation string, children []projection.Record) error {
	if !identRe.MatchString(relation) {
		return errors.Errorf("invalid relation name %q", relation)
	}
	return s.inTx(ctx, relation, func(tx *sql.Tx) error {
		return s.replaceChildren(ctx, tx, parent, relation, children)
	})
}

// Replace writes the record, its related rows and its child set in a single
// transaction.
func (s *Store) Replace(ctx context.Context, id account.Pubkey, img projection.Image) error {
	if img.ChildRelation != "" && !identRe.MatchString(img.ChildRelation) {
		return errors.Errorf("invalid relation name %q", img.ChildRelation)
	}
	return s.inTx(ctx, img.Record.Relation(), func(tx *sql.Tx) error {
		if err := s.upsert(ctx, tx, id, img.Record); err != nil {
			return err
		}
		for _, rel := range img.Related {
			if err := s.upsert(ctx, tx, id, rel); err != nil {
				return err
			}
		}
		if img.ChildRelation == "" {
			return nil
		}
		return s.replaceChildren(ctx, tx, id, img.ChildRelation, img.Children)
	})
}

// inTx runs fn in a transaction that is rolled back if fn fails. Begin and
// commit failures are reported for relation.
func (s *Store) inTx(ctx context.Context, relation string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return projection.WriteError{Relation: relation, Err: err}
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return projection.WriteError{Relation: relation, Err: err}
	}
	return nil
}

func (s *Store) upsert(ctx context.Context, ex execer, id account.Pubkey, rec projection.Record) error {
	rel := rec.Relation()
	fields := rec.Fields()
	q, err := s.upsertQuery(rel, fields)
	if err != nil {
		return err
	}
	args := make([]any, 0, len(fields)+1)
	args = append(args, projection.Key(id))
	for _, f := range fields {
		args = append(args, f.Value)
	}
	if _, err := ex.ExecContext(ctx, q, args...); err != nil {
		return projection.WriteError{Relation: rel, Err: err}
	}
	return nil
}

func (s *Store) replaceChildren(ctx context.Context, ex execer, parent account.Pubkey, relation string, children []projection.Record) error {
	parentKey := projection.Key(parent)
	del := fmt.Sprintf(`DELETE FROM "%s" WHERE %s = ?`, relation, projection.ColumnParent)
	if _, err := ex.ExecContext(ctx, del, parentKey); err != nil {
		return projection.WriteError{Relation: relation, Err: err}
	}
	for i, c := range children {
		fields := c.Fields()
		q, err := s.insertChildQuery(relation, fields)
		if err != nil {
			return err
		}
		args := make([]any, 0, len(fields)+2)
		args = append(args, parentKey, int64(i))
		for _, f := range fields {
			args = append(args, f.Value)
		}
		if _, err := ex.ExecContext(ctx, q, args...); err != nil {
			return projection.WriteError{Relation: relation, Err: err}
		}
	}
	return nil
}

// upsertQuery returns an INSERT that overwrites all columns on a key conflict
func (s *Store) upsertQuery(relation string, fields projection.Row) (string, error) {
	return s.cachedQuery("upsert", relation, fields, func(cols []string) string {
		all := append([]string{projection.ColumnPubkey}, cols...)
		var sets []string
		for _, c := range cols {
			sets = append(sets, fmt.Sprintf(`"%s" = excluded."%s"`, c, c))
		}
		onConflict := "DO NOTHING"
		if len(sets) > 0 {
			onConflict = "DO UPDATE SET " + strings.Join(sets, ", ")
		}
		return fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s) ON CONFLICT ("%s") %s`,
			relation, quoteList(all), placeholders(len(all)), projection.ColumnPubkey, onConflict)
	})
}

func (s *Store) insertChildQuery(relation string, fields projection.Row) (string, error) {
	return s.cachedQuery("child", relation, fields, func(cols []string) string {
		all := append([]string{projection.ColumnParent, projection.ColumnPosition}, cols...)
		return fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`,
			relation, quoteList(all), placeholders(len(all)))
	})
}

func (s *Store) cachedQuery(kind, relation string, fields projection.Row, build func(cols []string) string) (string, error) {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	cacheKey := kind + ":" + relation + ":" + strings.Join(cols, ",")

	s.mu.Lock()
	defer s.mu.Unlock()
	if q, exists := s.queries[cacheKey]; exists {
		return q, nil
	}
	if !identRe.MatchString(relation) {
		return "", errors.Errorf("invalid relation name %q", relation)
	}
	for _, c := range cols {
		if !identRe.MatchString(c) {
			return "", errors.Errorf("invalid column name %q in %s", c, relation)
		}
	}
	q := build(cols)
	s.queries[cacheKey] = q
	return q, nil
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = `"` + n + `"`
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

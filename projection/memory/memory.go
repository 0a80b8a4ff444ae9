// Package memory implements an in-process projection store, used for tests
// and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/config"
	"github.com/sagestream/sagestream/projection"
)

func init() {
	projection.RegisterBackend("memory", func(ctx context.Context, sc config.Store) (projection.Store, error) {
		return New(), nil
	})
}

// Store keeps all rows in maps protected by a single lock, which makes child
// set replacement atomic for readers.
type Store struct {
	mu       sync.RWMutex
	rows     map[string]map[account.Pubkey]projection.Row
	children map[string]map[account.Pubkey][]projection.Row

	// Writes counts successful write calls
	Writes int
}

func New() *Store {
	return &Store{
		rows:     make(map[string]map[account.Pubkey]projection.Row),
		children: make(map[string]map[account.Pubkey][]projection.Row),
	}
}

func (s *Store) Upsert(ctx context.Context, id account.Pubkey, rec projection.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := keyedRow(projection.Row{{Name: projection.ColumnPubkey, Value: projection.Key(id)}}, rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setRow(rec.Relation(), id, row)
	s.Writes++
	return nil
}

func (s *Store) UpsertChildren(ctx context.Context, parent account.Pubkey, relation string, children []projection.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := childRows(parent, children)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setChildren(relation, parent, rows)
	s.Writes++
	return nil
}

// Replace writes all rows of the image under a single lock
func (s *Store) Replace(ctx context.Context, id account.Pubkey, img projection.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := projection.Row{{Name: projection.ColumnPubkey, Value: projection.Key(id)}}
	recs := append([]projection.Record{img.Record}, img.Related...)
	rows := make([]projection.Row, len(recs))
	for i, rec := range recs {
		rows[i] = keyedRow(key, rec)
	}
	children := childRows(id, img.Children)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range recs {
		s.setRow(rec.Relation(), id, rows[i])
	}
	if img.ChildRelation != "" {
		s.setChildren(img.ChildRelation, id, children)
	}
	s.Writes++
	return nil
}

func (s *Store) setRow(relation string, id account.Pubkey, row projection.Row) {
	m, exists := s.rows[relation]
	if !exists {
		m = make(map[account.Pubkey]projection.Row)
		s.rows[relation] = m
	}
	m[id] = row
}

func (s *Store) setChildren(relation string, parent account.Pubkey, rows []projection.Row) {
	m, exists := s.children[relation]
	if !exists {
		m = make(map[account.Pubkey][]projection.Row)
		s.children[relation] = m
	}
	if len(rows) == 0 {
		delete(m, parent)
	} else {
		m[parent] = rows
	}
}

func childRows(parent account.Pubkey, children []projection.Record) []projection.Row {
	rows := make([]projection.Row, len(children))
	for i, c := range children {
		rows[i] = keyedRow(projection.Row{
			{Name: projection.ColumnParent, Value: projection.Key(parent)},
			{Name: projection.ColumnPosition, Value: int64(i)},
		}, c)
	}
	return rows
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) Get(ctx context.Context, relation string, id account.Pubkey) (projection.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, exists := s.rows[relation][id]
	if !exists {
		return nil, projection.ErrNotFound
	}
	return append(projection.Row(nil), row...), nil
}

// Children returns the child rows ordered by position
func (s *Store) Children(ctx context.Context, relation string, parent account.Pubkey) ([]projection.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.children[relation][parent]
	out := make([]projection.Row, len(rows))
	for i, r := range rows {
		out[i] = append(projection.Row(nil), r...)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, relation string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, exists := s.rows[relation]; exists {
		return len(m), nil
	}
	n := 0
	for _, rows := range s.children[relation] {
		n += len(rows)
	}
	return n, nil
}

// Relations returns the names of all relations with rows, sorted
func (s *Store) Relations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for name, m := range s.rows {
		if len(m) > 0 {
			names = append(names, name)
		}
	}
	for name, m := range s.children {
		if len(m) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func keyedRow(key projection.Row, rec projection.Record) projection.Row {
	fields := rec.Fields()
	row := make(projection.Row, 0, len(key)+len(fields))
	row = append(row, key...)
	return append(row, fields...)
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/projection"
)

func (s *Store) Get(ctx context.Context, relation string, id account.Pubkey) (projection.Row, error) {
	if !identRe.MatchString(relation) {
		return nil, errors.Errorf("invalid relation name %q", relation)
	}
	q := fmt.Sprintf(`SELECT * FROM "%s" WHERE %s = ?`, relation, projection.ColumnPubkey)
	rows, err := s.db.QueryContext(ctx, q, projection.Key(id))
	if err != nil {
		return nil, err
	}
	list, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, projection.ErrNotFound
	}
	return list[0], nil
}

func (s *Store) Children(ctx context.Context, relation string, parent account.Pubkey) ([]projection.Row, error) {
	if !identRe.MatchString(relation) {
		return nil, errors.Errorf("invalid relation name %q", relation)
	}
	q := fmt.Sprintf(`SELECT * FROM "%s" WHERE %s = ? ORDER BY %s`,
		relation, projection.ColumnParent, projection.ColumnPosition)
	rows, err := s.db.QueryContext(ctx, q, projection.Key(parent))
	if err != nil {
		return nil, err
	}
	return scanRows(rows)
}

func (s *Store) Count(ctx context.Context, relation string) (int, error) {
	if !identRe.MatchString(relation) {
		return 0, errors.Errorf("invalid relation name %q", relation)
	}
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, relation)).Scan(&n)
	return n, err
}

func scanRows(rows *sql.Rows) ([]projection.Row, error) {
	defer func() { _ = rows.Close() }()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var list []projection.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(projection.Row, len(cols))
		for i, c := range cols {
			row[i] = projection.Field{Name: c, Value: values[i]}
		}
		list = append(list, row)
	}
	return list, rows.Err()
}

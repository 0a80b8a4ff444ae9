package memory

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/config"
	"github.com/sagestream/sagestream/projection"
)

type rec struct {
	rel string
	v   int64
}

func (r rec) Relation() string { return r.rel }
func (r rec) Fields() projection.Row {
	return projection.Row{{Name: "v", Value: r.v}}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s, err := projection.Open(ctx, config.Store{Type: "memory"})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	st := s.(*Store)

	id := account.Pubkey{1}
	_, err = st.Get(ctx, "things", id)
	assert.True(t, errors.Is(err, projection.ErrNotFound))

	require.NoError(t, st.Upsert(ctx, id, rec{"things", 1}))
	require.NoError(t, st.Upsert(ctx, id, rec{"things", 2}))
	row, err := st.Get(ctx, "things", id)
	require.NoError(t, err)
	assert.Equal(t, projection.Row{
		{Name: "pubkey", Value: id.String()},
		{Name: "v", Value: int64(2)},
	}, row)

	n, err := st.Count(ctx, "things")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_UpsertChildren(t *testing.T) {
	ctx := context.Background()
	st := New()
	parent := account.Pubkey{2}

	require.NoError(t, st.UpsertChildren(ctx, parent, "kids", []projection.Record{
		rec{"kids", 10}, rec{"kids", 11}, rec{"kids", 12},
	}))
	rows, err := st.Children(ctx, "kids", parent)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	pos, _ := rows[2].Get("position")
	assert.Equal(t, int64(2), pos)

	// Shrink
	require.NoError(t, st.UpsertChildren(ctx, parent, "kids", []projection.Record{rec{"kids", 20}}))
	rows, err = st.Children(ctx, "kids", parent)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, _ := rows[0].Get("v")
	assert.Equal(t, int64(20), v)

	// Empty
	require.NoError(t, st.UpsertChildren(ctx, parent, "kids", nil))
	rows, err = st.Children(ctx, "kids", parent)
	require.NoError(t, err)
	assert.Len(t, rows, 0)
	assert.Empty(t, st.Relations())
}

func TestStore_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := New()
	assert.Error(t, st.Upsert(ctx, account.Pubkey{}, rec{"x", 1}))
	assert.Equal(t, 0, st.Writes)
}

func TestStore_Replace(t *testing.T) {
	ctx := context.Background()
	st := New()
	id := account.Pubkey{3}

	img := projection.Image{
		Record:        rec{"parents", 1},
		Related:       []projection.Record{rec{"extras", 2}},
		ChildRelation: "kids",
		Children:      []projection.Record{rec{"kids", 10}, rec{"kids", 11}},
	}
	require.NoError(t, st.Replace(ctx, id, img))
	assert.Equal(t, 1, st.Writes)
	assert.Equal(t, []string{"extras", "kids", "parents"}, st.Relations())

	row, err := st.Get(ctx, "extras", id)
	require.NoError(t, err)
	v, _ := row.Get("v")
	assert.Equal(t, int64(2), v)

	img.Record = rec{"parents", 5}
	img.Children = nil
	require.NoError(t, st.Replace(ctx, id, img))
	row, err = st.Get(ctx, "parents", id)
	require.NoError(t, err)
	v, _ = row.Get("v")
	assert.Equal(t, int64(5), v)
	rows, err := st.Children(ctx, "kids", id)
	require.NoError(t, err)
	assert.Empty(t, rows)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, st.Replace(cctx, id, img))
	assert.Equal(t, 2, st.Writes)
}

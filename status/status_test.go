package status

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PowerDNS/simpleblob/backends/memory"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/config"
	"github.com/sagestream/sagestream/ingest"
	"github.com/sagestream/sagestream/programs/sage"
	projmemory "github.com/sagestream/sagestream/projection/memory"
	"github.com/sagestream/sagestream/registry"
)

func TestPage(t *testing.T) {
	reset()
	defer reset()
	ctx := context.Background()

	store := projmemory.New()
	logger, _ := test.NewNullLogger()
	p := ingest.NewProcessor(registry.Default(), store, ingest.Options{Program: "sage", Logger: logger})
	star := &sage.Star{Name: "Ustur"}
	_, err := p.Apply(ctx, account.Update{
		Pubkey: account.Pubkey{1},
		Owner:  sage.ProgramID,
		Data:   star.AccountData(),
		Slot:   777,
	})
	require.NoError(t, err)

	st := memory.New()
	require.NoError(t, st.Store(ctx, "sage__20240102-030405-012345678.bin.gz", []byte("abc")))

	AddLoop("sage", ingest.NewLoop(p), p)
	SetStore(store, []string{sage.RelationStars, sage.RelationFleets})
	SetStorage(st)

	page := &Page{c: config.Default()}
	rec := httptest.NewRecorder()
	page.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<td>sage</td>")
	assert.Contains(t, body, "idle")
	assert.Contains(t, body, "777")
	assert.Contains(t, body, "<td>stars</td>")
	assert.Contains(t, body, "sage__20240102-030405-012345678.bin.gz")
	assert.Contains(t, body, "fetch_concurrency")

	rels := gi.Relations(ctx)
	require.Len(t, rels, 2)
	assert.Equal(t, RelationInfo{Name: sage.RelationStars, Rows: 1}, rels[0])
	assert.Equal(t, RelationInfo{Name: sage.RelationFleets, Rows: 0}, rels[1])
}

func TestPage_notFound(t *testing.T) {
	page := &Page{c: config.Default()}
	rec := httptest.NewRecorder()
	page.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListBlobs_noStorage(t *testing.T) {
	reset()
	_, err := gi.ListBlobs(context.Background())
	assert.Error(t, err)
}

package status

import (
	"context"
	"sort"
	"sync"

	"github.com/PowerDNS/simpleblob"
	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"

	"github.com/sagestream/sagestream/ingest"
	"github.com/sagestream/sagestream/projection"
)

type info struct {
	mu        sync.Mutex
	loops     []loopEntry
	st        simpleblob.Interface
	store     projection.Store
	relations []string
}

type loopEntry struct {
	name string
	loop *ingest.Loop
	p    *ingest.Processor
}

// LoopInfo is the state of a running ingestion loop
type LoopInfo struct {
	Name        string
	Status      string
	HighestSlot uint64
}

// RelationInfo holds the row count of a projected relation
type RelationInfo struct {
	Name string
	Rows int
	Err  error
}

// BlobInfo describes a stored snapshot archive
type BlobInfo struct {
	Name string
	Size datasize.ByteSize
}

var gi info

func (i *info) Loops() []LoopInfo {
	i.mu.Lock()
	defer i.mu.Unlock()
	res := make([]LoopInfo, 0, len(i.loops))
	for _, e := range i.loops {
		res = append(res, LoopInfo{
			Name:        e.name,
			Status:      e.loop.Status().String(),
			HighestSlot: e.p.HighestSlot(),
		})
	}
	sort.Slice(res, func(a, b int) bool {
		return res[a].Name < res[b].Name
	})
	return res
}

func (i *info) Relations(ctx context.Context) []RelationInfo {
	i.mu.Lock()
	store := i.store
	relations := i.relations
	i.mu.Unlock()

	r, ok := store.(projection.Reader)
	if !ok {
		return nil
	}
	res := make([]RelationInfo, 0, len(relations))
	for _, name := range relations {
		n, err := r.Count(ctx, name)
		res = append(res, RelationInfo{Name: name, Rows: n, Err: err})
	}
	return res
}

func (i *info) ListBlobs(ctx context.Context) ([]BlobInfo, error) {
	i.mu.Lock()
	st := i.st
	i.mu.Unlock()
	if st == nil {
		return nil, errors.New("no storage registered with status page")
	}
	list, err := st.List(ctx, "")
	if err != nil {
		return nil, err
	}
	res := make([]BlobInfo, 0, len(list))
	for _, b := range list {
		res = append(res, BlobInfo{Name: b.Name, Size: datasize.ByteSize(b.Size)})
	}
	return res, nil
}

// AddLoop registers an ingestion loop with the status page
func AddLoop(name string, loop *ingest.Loop, p *ingest.Processor) {
	gi.mu.Lock()
	defer gi.mu.Unlock()
	gi.loops = append(gi.loops, loopEntry{name: name, loop: loop, p: p})
}

// SetStore registers the projection store and the relations to count.
// Stores that do not implement projection.Reader are not queried.
func SetStore(store projection.Store, relations []string) {
	gi.mu.Lock()
	defer gi.mu.Unlock()
	gi.store = store
	gi.relations = relations
}

func SetStorage(st simpleblob.Interface) {
	gi.mu.Lock()
	defer gi.mu.Unlock()
	gi.st = st
}

func reset() {
	gi.mu.Lock()
	defer gi.mu.Unlock()
	gi.loops = nil
	gi.st = nil
	gi.store = nil
	gi.relations = nil
}

// Package registry maps account discriminators to their decoder and target
// relation.
package registry

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/projection"
)

// DecodeFunc decodes account data following the discriminator
type DecodeFunc func(data []byte) (projection.Record, error)

// Entry describes one known account type
type Entry struct {
	Name          string
	Program       account.Pubkey
	Discriminator account.Discriminator
	Relation      string
	Decode        DecodeFunc
}

// Registry is an immutable lookup table. It is safe for concurrent use.
type Registry struct {
	entries map[account.Discriminator]Entry
}

// New creates a Registry. It panics on a duplicate discriminator, which can
// only be a programming error.
func New(entries ...Entry) *Registry {
	r := &Registry{
		entries: make(map[account.Discriminator]Entry, len(entries)),
	}
	for _, e := range entries {
		if e.Decode == nil {
			panic(fmt.Sprintf("registry: entry %s has no decoder", e.Name))
		}
		if prev, exists := r.entries[e.Discriminator]; exists {
			panic(fmt.Sprintf("registry: duplicate discriminator %s for %s and %s",
				e.Discriminator, prev.Name, e.Name))
		}
		r.entries[e.Discriminator] = e
	}
	return r
}

// Lookup returns the entry for a discriminator
func (r *Registry) Lookup(d account.Discriminator) (Entry, bool) {
	e, ok := r.entries[d]
	return e, ok
}

// Entries returns all entries sorted by name
func (r *Registry) Entries() []Entry {
	list := lo.Values(r.entries)
	slices.SortFunc(list, func(a, b Entry) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return list
}

// ForProgram returns the entries owned by a program, sorted by name
func (r *Registry) ForProgram(program account.Pubkey) []Entry {
	return lo.Filter(r.Entries(), func(e Entry, _ int) bool {
		return e.Program == program
	})
}

// ByName returns the entry with the given type name
func (r *Registry) ByName(name string) (Entry, bool) {
	for _, e := range r.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Package projection defines the relational sink that decoded records are
// written to, and a registry of store backends.
package projection

import (
	"context"
	"math"
	"strconv"

	"github.com/sagestream/sagestream/account"
)

// Field is a single column value of a projection row.
// Value is one of: nil, string, int64, bool, []byte.
type Field struct {
	Name  string
	Value any
}

// Row is an ordered list of fields
type Row []Field

// Get returns the value of the named field
func (r Row) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Record is a decoded value that maps to a single row in a relation
type Record interface {
	Relation() string
	Fields() Row
}

// Relater is implemented by records that project extra rows under the same
// key into other relations, like the fleet state of a fleet.
type Relater interface {
	Related() []Record
}

// Parent is implemented by records that carry a child array. The children
// are stored in the returned relation keyed by (parent, position).
type Parent interface {
	Children() (relation string, children []Record)
}

// Store is the interface that projection backends implement.
//
// Both methods replace the full row image: there is no merge with what was
// stored before. UpsertChildren must replace the complete child set for the
// parent atomically, so that readers never see a mix of old and new children.
type Store interface {
	Upsert(ctx context.Context, id account.Pubkey, rec Record) error
	UpsertChildren(ctx context.Context, parent account.Pubkey, relation string, children []Record) error
	Close() error
}

// Replacer is implemented by stores that can write the whole Image of an
// account at once. Either all of its rows are replaced or none is.
type Replacer interface {
	Replace(ctx context.Context, id account.Pubkey, img Image) error
}

// Image is everything a record projects for one account
type Image struct {
	Record  Record
	Related []Record
	// ChildRelation is empty if the record has no child array
	ChildRelation string
	Children      []Record
}

// ImageOf collects the rows of a record with its related rows and children
func ImageOf(rec Record) Image {
	img := Image{Record: rec}
	if r, ok := rec.(Relater); ok {
		img.Related = r.Related()
	}
	if p, ok := rec.(Parent); ok {
		img.ChildRelation, img.Children = p.Children()
	}
	return img
}

// Reader is implemented by stores that can be queried
type Reader interface {
	Get(ctx context.Context, relation string, id account.Pubkey) (Row, error)
	Children(ctx context.Context, relation string, parent account.Pubkey) ([]Row, error)
	Count(ctx context.Context, relation string) (int, error)
}

// Column names added by stores
const (
	ColumnPubkey   = "pubkey"
	ColumnParent   = "parent"
	ColumnPosition = "position"
)

// U64 returns the projected value for an unsigned 64 bit integer. Values
// that do not fit in an int64 are returned as decimal text.
func U64(v uint64) any {
	if v > math.MaxInt64 {
		return strconv.FormatUint(v, 10)
	}
	return int64(v)
}

// Key returns the projected value for a pubkey
func Key(p account.Pubkey) string {
	return p.String()
}

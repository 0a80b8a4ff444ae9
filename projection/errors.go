package projection

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Reader methods for missing rows
var ErrNotFound = errors.New("not found")

// WriteError wraps an error returned by a store write
type WriteError struct {
	Relation string
	Err      error
}

func (e WriteError) Error() string {
	return fmt.Sprintf("store write to %s: %v", e.Relation, e.Err)
}

func (e WriteError) Unwrap() error {
	return e.Err
}

package snapshot

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrCorruptArchive is returned for any archive that cannot be
	// decompressed or decoded. Check with errors.Is.
	ErrCorruptArchive = errors.New("corrupt snapshot archive")

	// ErrUnsupportedVersion is returned for archives written with a newer
	// format version than this program supports.
	ErrUnsupportedVersion = errors.New("unsupported snapshot format version")
)

// CorruptError describes why an archive was rejected. It matches
// ErrCorruptArchive.
type CorruptError struct {
	Stage string // "gzip" or "protobuf"
	Err   error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrCorruptArchive, e.Stage, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

func (e *CorruptError) Is(target error) bool {
	return target == ErrCorruptArchive
}

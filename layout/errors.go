package layout

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrTruncatedInput is returned when a field needs more bytes than remain
var ErrTruncatedInput = errors.New("truncated input")

// UnknownVariantError is returned for a union tag outside the known range
type UnknownVariantError struct {
	Type string
	Tag  uint8
}

func (e UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown %s variant: %d", e.Type, e.Tag)
}

// TrailingBytesError is returned when bytes remain after the last field
type TrailingBytesError struct {
	Remaining int
}

func (e TrailingBytesError) Error() string {
	return fmt.Sprintf("%d trailing bytes after last field", e.Remaining)
}

// InvalidBoolError is returned for a bool byte that is neither 0 nor 1
type InvalidBoolError struct {
	Offset int
	Value  uint8
}

func (e InvalidBoolError) Error() string {
	return fmt.Sprintf("invalid bool value %d at offset %d", e.Value, e.Offset)
}

// IsDecodeError returns true if the error came from decoding record bytes,
// as opposed to an I/O or storage error.
func IsDecodeError(err error) bool {
	if errors.Is(err, ErrTruncatedInput) {
		return true
	}
	var uv UnknownVariantError
	var tb TrailingBytesError
	var ib InvalidBoolError
	return errors.As(err, &uv) || errors.As(err, &tb) || errors.As(err, &ib)
}

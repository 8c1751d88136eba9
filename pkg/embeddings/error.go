package embeddings

import (
	"errors"
	"fmt"
)

// ErrUpstream is returned when the embedding provider fails or returns an
// unusable response.
var ErrUpstream = errors.New("embedding failed")

// CheckDimensions verifies an embedding has the configured size. A zero
// dimensions value disables the check.
func CheckDimensions(v []float32, dimensions uint) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty embedding returned", ErrUpstream)
	}
	if dimensions > 0 && uint(len(v)) != dimensions {
		return fmt.Errorf("%w: got %d dimensions, want %d", ErrUpstream, len(v), dimensions)
	}
	return nil
}

package vector

import "errors"

var (
	// ErrInvalidK is returned when a retrieval asks for zero or fewer results.
	ErrInvalidK = errors.New("k must be positive")

	// ErrDimensionMismatch is returned when a vector does not match the store's dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidLiteral is returned when a vector literal cannot be parsed.
	ErrInvalidLiteral = errors.New("invalid vector literal")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")
)

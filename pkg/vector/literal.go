package vector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pgvector/pgvector-go"
)

// literalPrecision is the number of decimals each component is rendered with.
const literalPrecision = 6

// EncodeLiteral renders v in the textual vector form accepted by pgvector:
// bracketed, comma separated, fixed-point with six decimals. The output does
// not depend on the process locale.
func EncodeLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', literalPrecision, 64))
	}
	b.WriteByte(']')
	return b.String()
}

// DecodeLiteral parses a bracketed vector literal produced by EncodeLiteral
// or returned by pgvector's text output.
func DecodeLiteral(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLiteral, s)
	}

	if strings.TrimSpace(s[1:len(s)-1]) == "" {
		return []float32{}, nil
	}

	var pv pgvector.Vector
	if err := pv.Scan(s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLiteral, err)
	}

	return pv.Slice(), nil
}

package llm

import "errors"

// ErrProviderError is returned by provider codecs when a payload is a
// provider error object rather than a completion.
var ErrProviderError = errors.New("provider returned an error payload")

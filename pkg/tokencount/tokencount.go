// Package tokencount implements spec 4.I: a byte-pair-encoding token
// counter compatible with widely used LLM tokenizers, with a degraded
// character-based estimate when encoding fails.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the encoding used by the models Probe targets
// (GPT-3.5/4-family), the same default the CL100K-base examples in the
// pack use.
const DefaultEncoding = tiktoken.MODEL_CL100K_BASE

// charsPerTokenEstimate is the fallback ratio when encoding fails (spec
// 4.I: "errors... degrade to character/4 estimate").
const charsPerTokenEstimate = 4

// Counter counts tokens for a fixed encoding. It is safe for concurrent
// use: the underlying *tiktoken.Tiktoken is immutable once built.
type Counter struct {
	encoding *tiktoken.Tiktoken
}

var (
	defaultOnce    sync.Once //nolint:gochecknoglobals // lazily built shared default, mirrors sync.OnceValue usage elsewhere in the pack
	defaultCounter *Counter
	defaultErr     error
)

// NewCounter builds a Counter for the named tiktoken encoding.
func NewCounter(encodingName string) (*Counter, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, err
	}

	return &Counter{encoding: enc}, nil
}

// Default returns the process-wide Counter for DefaultEncoding, building
// it once on first use.
func Default() (*Counter, error) {
	defaultOnce.Do(func() {
		defaultCounter, defaultErr = NewCounter(DefaultEncoding)
	})

	return defaultCounter, defaultErr
}

// Count returns the number of tokens s encodes to. Any panic from the
// underlying BPE merge table (malformed input) is recovered and degraded
// to a character-based estimate, matching the failure-semantics table's
// "Token count... errors... degrade to character/4 estimate" rule.
func (c *Counter) Count(s string) (count int) {
	defer func() {
		if recover() != nil {
			count = EstimateChars(s)
		}
	}()

	return len(c.encoding.Encode(s, nil, nil))
}

// EstimateChars is the degraded character-based token estimate.
func EstimateChars(s string) int {
	n := len([]rune(s))
	if n == 0 {
		return 0
	}

	estimate := n / charsPerTokenEstimate
	if estimate == 0 {
		estimate = 1
	}

	return estimate
}

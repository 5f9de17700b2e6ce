package symbols

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TikToken wraps a tiktoken BPE encoding so token ids can be used as arc
// labels.
//
// Supported encodings:
//   - cl100k_base: GPT-4, GPT-3.5-turbo
//   - p50k_base: GPT-3, Codex
//   - r50k_base: GPT-3, davinci
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken loads the named encoding.
func NewTikToken(encodingName string) (*TikToken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}

	return &TikToken{
		encoding: encoding,
		name:     encodingName,
	}, nil
}

// Encode converts text to token ids.
func (t *TikToken) Encode(text string) []int {
	return t.encoding.Encode(text, nil, nil)
}

// Decode returns the text of a single token.
func (t *TikToken) Decode(token int) string {
	return t.encoding.Decode([]int{token})
}

// Symbols builds a table with the decoded text of each label.
func (t *TikToken) Symbols(labels []int) SymbolMap {
	m := make(SymbolMap, len(labels))
	for _, l := range labels {
		if l < 0 {
			continue
		}
		if _, ok := m[l]; !ok {
			m[l] = t.Decode(l)
		}
	}
	return m
}

// Name returns the encoding name.
func (t *TikToken) Name() string {
	return t.name
}

// FromTiktoken loads the named encoding and decodes labels with it.
func FromTiktoken(encodingName string, labels []int) (SymbolMap, error) {
	tok, err := NewTikToken(encodingName)
	if err != nil {
		return nil, err
	}
	return tok.Symbols(labels), nil
}

// Package symbols maps integer arc labels to display strings.
//
// Tables are read from plain text ("symbol id" per line, the format used by
// OpenFst-style tools), from YAML mappings of symbol to id, or built from a
// BPE token encoding through tiktoken.
package symbols

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gtn-go/gtn/internal/graph"
)

// EpsilonSymbol is displayed for graph.Epsilon when a table has no entry for it.
const EpsilonSymbol = "ε"

// SymbolMap maps labels to display strings.
type SymbolMap map[int]string

// Symbol returns the display string for label. Labels missing from m are
// shown as their decimal value, and epsilon as EpsilonSymbol.
// A nil map is valid.
func (m SymbolMap) Symbol(label int) string {
	if s, ok := m[label]; ok {
		return s
	}
	if label == graph.Epsilon {
		return EpsilonSymbol
	}
	return strconv.Itoa(label)
}

// Inverse returns the symbol to label mapping. When several labels share a
// symbol the smallest label wins.
func (m SymbolMap) Inverse() map[string]int {
	inv := make(map[string]int, len(m))
	for label, s := range m {
		if prev, ok := inv[s]; !ok || label < prev {
			inv[s] = label
		}
	}
	return inv
}

// Labels maps each symbol to its label through Inverse.
func (m SymbolMap) Labels(syms []string) ([]int, error) {
	inv := m.Inverse()
	labels := make([]int, len(syms))
	for i, s := range syms {
		label, ok := inv[s]
		if !ok {
			return nil, fmt.Errorf("unknown symbol %q at position %d", s, i)
		}
		labels[i] = label
	}
	return labels, nil
}

// ReadText parses "symbol id" lines. Blank lines and lines starting with '#'
// are skipped.
func ReadText(r io.Reader) (SymbolMap, error) {
	m := make(SymbolMap)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected \"symbol id\", got %q", line, text)
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad id %q", line, fields[1])
		}
		m[id] = fields[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read symbols: %w", err)
	}
	return m, nil
}

// ReadYAML parses a YAML mapping of symbol to id.
func ReadYAML(r io.Reader) (SymbolMap, error) {
	var raw map[string]int
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse symbols: %w", err)
	}
	m := make(SymbolMap, len(raw))
	for s, id := range raw {
		m[id] = s
	}
	return m, nil
}

// Load reads a symbol table from path. Files ending in .yaml or .yml are
// parsed as YAML, everything else as text.
func Load(path string) (SymbolMap, error) {
	//nolint:gosec // G304: File path comes from user input
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open symbols: %w", err)
	}
	defer func() { _ = file.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ReadYAML(file)
	default:
		return ReadText(file)
	}
}

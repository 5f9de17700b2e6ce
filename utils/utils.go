// Copyright 2025 GTN Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package utils provides graph I/O, drawing, symbol tables and lattice
// builders.
//
// Example:
//
//	g, err := utils.Load("graph.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	syms, _ := utils.LoadSymbols("letters.syms")
//	_ = utils.DrawFile("graph.dot", g, syms, nil, utils.DefaultDrawOptions())
package utils

import (
	"io"

	"github.com/gtn-go/gtn/graph"
	"github.com/gtn-go/gtn/internal/draw"
	"github.com/gtn-go/gtn/internal/lattice"
	"github.com/gtn-go/gtn/internal/serialization"
	"github.com/gtn-go/gtn/internal/symbols"
)

// SymbolMap maps labels to display strings.
type SymbolMap = symbols.SymbolMap

// DrawOptions controls dot layout.
type DrawOptions = draw.Options

// Load reads a graph in the text or .gtn format, detected by content.
func Load(path string) (*graph.Graph, error) { return serialization.Load(path) }

// Save writes g in the text format.
func Save(path string, g *graph.Graph) error { return serialization.Save(path, g) }

// SaveBinary writes g in the .gtn format with optional metadata.
func SaveBinary(path string, g *graph.Graph, metadata map[string]string) error {
	return serialization.SaveBinary(path, g, metadata)
}

// ReadText reads a graph in the text format.
func ReadText(r io.Reader, calcGrad bool) (*graph.Graph, error) {
	return serialization.ReadText(r, calcGrad)
}

// WriteText writes g in the text format.
func WriteText(w io.Writer, g *graph.Graph) error { return serialization.WriteText(w, g) }

// DefaultDrawOptions lays graphs out left to right.
func DefaultDrawOptions() DrawOptions { return draw.DefaultOptions() }

// Draw writes g as a Graphviz digraph. Either symbol table may be nil.
func Draw(w io.Writer, g *graph.Graph, isymbols, osymbols SymbolMap, opts DrawOptions) error {
	return draw.Draw(w, g, isymbols, osymbols, opts)
}

// DrawFile writes the dot rendering of g to path.
func DrawFile(path string, g *graph.Graph, isymbols, osymbols SymbolMap, opts DrawOptions) error {
	return draw.DrawFile(path, g, isymbols, osymbols, opts)
}

// LoadSymbols reads a symbol table ("symbol id" lines, or YAML for .yaml
// and .yml files).
func LoadSymbols(path string) (SymbolMap, error) { return symbols.Load(path) }

// SymbolsFromTiktoken decodes labels as tokens of a tiktoken encoding.
func SymbolsFromTiktoken(encoding string, labels []int) (SymbolMap, error) {
	return symbols.FromTiktoken(encoding, labels)
}

// LinearGraph returns m frames over n labels: nodes 0..m with an arc
// i -> i+1 for every label, all weights 0.
func LinearGraph(m, n int, calcGrad bool) (*graph.Graph, error) {
	return lattice.Linear(m, n, calcGrad)
}

// ChainGraph returns the acceptor of a single label sequence.
func ChainGraph(labels []int, calcGrad bool) *graph.Graph {
	return lattice.Chain(labels, calcGrad)
}

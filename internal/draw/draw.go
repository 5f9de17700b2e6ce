// Package draw renders graphs in the Graphviz dot language.
package draw

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gtn-go/gtn/internal/graph"
	"github.com/gtn-go/gtn/internal/symbols"
)

// Options controls the layout of the rendered graph.
type Options struct {
	RankDir  string // "LR" or "TB"
	FontSize int
}

// DefaultOptions lays graphs out left to right.
func DefaultOptions() Options {
	return Options{RankDir: "LR", FontSize: 14}
}

// Draw writes g as a dot digraph. Start nodes are bold, accept nodes are
// double circles. Arcs are labelled "i:o/w", or "i/w" when every arc of g
// has equal input and output labels. Either symbol table may be nil.
func Draw(w io.Writer, g *graph.Graph, isymbols, osymbols symbols.SymbolMap, opts Options) error {
	if opts.RankDir == "" {
		opts.RankDir = "LR"
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 14
	}
	if osymbols == nil {
		osymbols = isymbols
	}
	acceptor := isAcceptor(g)

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph FST {")
	fmt.Fprintln(bw, "  margin = 0;")
	fmt.Fprintf(bw, "  rankdir = %q;\n", opts.RankDir)
	fmt.Fprintln(bw, "  label = \"\";")
	fmt.Fprintln(bw, "  center = 1;")
	fmt.Fprintln(bw, "  ranksep = \"0.4\";")
	fmt.Fprintln(bw, "  nodesep = \"0.25\";")

	for n := 0; n < g.NumNodes(); n++ {
		shape := "circle"
		if g.IsAccept(n) {
			shape = "doublecircle"
		}
		style := "solid"
		if g.IsStart(n) {
			style = "bold"
		}
		fmt.Fprintf(bw, "  %d [label = \"%d\", shape = %s, style = %s, fontsize = %d];\n",
			n, n, shape, style, opts.FontSize)
	}

	for a := 0; a < g.NumArcs(); a++ {
		label := isymbols.Symbol(g.ILabel(a))
		if !acceptor {
			label += ":" + osymbols.Symbol(g.OLabel(a))
		}
		label += "/" + strconv.FormatFloat(g.Weight(a), 'g', -1, 64)
		fmt.Fprintf(bw, "  %d -> %d [label = \"%s\", fontsize = %d];\n",
			g.SrcNode(a), g.DstNode(a), escapeLabel(label), opts.FontSize)
	}
	fmt.Fprintln(bw, "}")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write dot: %w", err)
	}
	return nil
}

// DrawFile writes the dot rendering of g to path.
func DrawFile(path string, g *graph.Graph, isymbols, osymbols symbols.SymbolMap, opts Options) error {
	//nolint:gosec // G304: File path comes from user input
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Draw(file, g, isymbols, osymbols, opts); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func isAcceptor(g *graph.Graph) bool {
	for a := 0; a < g.NumArcs(); a++ {
		if g.ILabel(a) != g.OLabel(a) {
			return false
		}
	}
	return true
}

func escapeLabel(s string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", "\\n",
	)
	return replacer.Replace(s)
}

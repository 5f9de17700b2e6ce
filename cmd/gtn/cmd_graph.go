package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gtn-go/gtn/internal/draw"
	"github.com/gtn-go/gtn/internal/graph"
	"github.com/gtn-go/gtn/internal/lattice"
	"github.com/gtn-go/gtn/internal/logging"
	"github.com/gtn-go/gtn/internal/serialization"
	"github.com/gtn-go/gtn/internal/symbols"
)

func newInfoCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Print node and arc counts, sortedness and acyclicity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := serialization.Load(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "nodes:          %d\n", g.NumNodes())
			fmt.Fprintf(w, "arcs:           %d\n", g.NumArcs())
			fmt.Fprintf(w, "start:          %v\n", g.Start())
			fmt.Fprintf(w, "accept:         %v\n", g.Accept())
			fmt.Fprintf(w, "ilabel sorted:  %t\n", g.ILabelSorted())
			fmt.Fprintf(w, "olabel sorted:  %t\n", g.OLabelSorted())
			fmt.Fprintf(w, "acyclic:        %t\n", g.IsAcyclic())
			return nil
		},
	}
}

func newDrawCmd(a *app) *cobra.Command {
	var (
		output   string
		isymPath string
		osymPath string
		encoding string
		rankDir  string
	)
	cmd := &cobra.Command{
		Use:   "draw FILE",
		Short: "Render a graph as Graphviz dot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := serialization.Load(args[0])
			if err != nil {
				return err
			}
			isyms, osyms, err := loadDrawSymbols(g, isymPath, osymPath, encoding, a.cfg.Symbols.Tiktoken)
			if err != nil {
				return err
			}
			opts := draw.Options{RankDir: a.cfg.Draw.RankDir, FontSize: a.cfg.Draw.FontSize}
			if rankDir != "" {
				opts.RankDir = rankDir
			}
			if output == "" || output == "-" {
				return draw.Draw(cmd.OutOrStdout(), g, isyms, osyms, opts)
			}
			return draw.DrawFile(output, g, isyms, osyms, opts)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output .dot file (default stdout)")
	cmd.Flags().StringVar(&isymPath, "isymbols", "", "input symbol table (text or YAML)")
	cmd.Flags().StringVar(&osymPath, "osymbols", "", "output symbol table (text or YAML)")
	cmd.Flags().StringVar(&encoding, "tiktoken", "", "label arcs with the tokens of a tiktoken encoding")
	cmd.Flags().StringVar(&rankDir, "rankdir", "", "layout direction, LR or TB (overrides config)")
	return cmd
}

// loadDrawSymbols resolves symbol tables from files, or from a tiktoken
// encoding named by flag or config when no file is given.
func loadDrawSymbols(g *graph.Graph, isymPath, osymPath, encoding, fallback string) (symbols.SymbolMap, symbols.SymbolMap, error) {
	var isyms, osyms symbols.SymbolMap
	var err error
	if isymPath != "" {
		if isyms, err = symbols.Load(isymPath); err != nil {
			return nil, nil, err
		}
	}
	if osymPath != "" {
		if osyms, err = symbols.Load(osymPath); err != nil {
			return nil, nil, err
		}
	}
	if isyms != nil || osyms != nil {
		return isyms, osyms, nil
	}
	if encoding == "" {
		encoding = fallback
	}
	if encoding == "" {
		return nil, nil, nil
	}
	labels := append(g.LabelsToSlice(true), g.LabelsToSlice(false)...)
	syms, err := symbols.FromTiktoken(encoding, labels)
	if err != nil {
		return nil, nil, err
	}
	logging.Logger().Debug("symbols from tiktoken", "encoding", encoding, "labels", len(syms))
	return syms, syms, nil
}

func newLinearCmd(_ *app) *cobra.Command {
	var (
		output   string
		noGrad   bool
		metadata map[string]string
	)
	cmd := &cobra.Command{
		Use:   "linear M N",
		Short: "Write the linear graph of M frames over N labels",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("bad frame count %q: %w", args[0], err)
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("bad label count %q: %w", args[1], err)
			}
			g, err := lattice.Linear(m, n, !noGrad)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return serialization.WriteText(cmd.OutOrStdout(), g)
			}
			return saveGraph(output, g, metadata)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, .gtn for binary (default stdout as text)")
	cmd.Flags().BoolVar(&noGrad, "no-grad", false, "disable gradient tracking in binary output")
	cmd.Flags().StringToStringVar(&metadata, "meta", nil, "metadata key=value pairs for .gtn output")
	return cmd
}

func newAcceptorCmd(a *app) *cobra.Command {
	var (
		output   string
		symPath  string
		encoding string
	)
	cmd := &cobra.Command{
		Use:   "acceptor TEXT...",
		Short: "Write the acceptor of a label sequence given as symbols or text",
		Long: `acceptor builds the chain graph of one label sequence. With --symbols
each argument is a symbol looked up in the table; with --tiktoken (or the
configured encoding) the joined arguments are encoded into token ids;
otherwise every argument must be an integer label.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			labels, err := resolveLabels(args, symPath, encoding, a.cfg.Symbols.Tiktoken)
			if err != nil {
				return err
			}
			logging.Logger().Info("acceptor", "labels", len(labels))
			return writeResult(cmd, output, lattice.Chain(labels, true))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, .gtn for binary (default stdout as text)")
	cmd.Flags().StringVar(&symPath, "symbols", "", "symbol table mapping each argument to a label")
	cmd.Flags().StringVar(&encoding, "tiktoken", "", "encode the text with a tiktoken encoding")
	return cmd
}

// resolveLabels turns command arguments into labels using a symbol table,
// a tiktoken encoding or plain integers, in that order of preference.
func resolveLabels(args []string, symPath, encoding, fallback string) ([]int, error) {
	if symPath != "" {
		syms, err := symbols.Load(symPath)
		if err != nil {
			return nil, err
		}
		return syms.Labels(args)
	}
	if encoding == "" {
		encoding = fallback
	}
	if encoding != "" {
		tok, err := symbols.NewTikToken(encoding)
		if err != nil {
			return nil, err
		}
		return tok.Encode(strings.Join(args, " ")), nil
	}
	labels := make([]int, len(args))
	for i, arg := range args {
		label, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("bad label %q: %w", arg, err)
		}
		labels[i] = label
	}
	return labels, nil
}

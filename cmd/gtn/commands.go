package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gtn-go/gtn/internal/config"
	"github.com/gtn-go/gtn/internal/graph"
	"github.com/gtn-go/gtn/internal/logging"
	"github.com/gtn-go/gtn/internal/serialization"
)

const version = "v0.1.0"

// app carries state shared by every subcommand.
type app struct {
	configPath  string
	showMetrics bool
	cfg         config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Default()}

	root := &cobra.Command{
		Use:   "gtn",
		Short: "Build, combine and score weighted finite-state transducers",
		Long: `gtn reads graphs in the text format (start ids, accept ids, then
"src dst ilabel [olabel [weight]]" per arc) or the binary .gtn format,
and applies automaton operations to them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			w := cmd.ErrOrStderr()
			logging.SetLogger(logging.New(w, logging.ResolveFormat(cfg.Log.Format, w), logging.ParseLevel(cfg.Log.Level)))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if !a.showMetrics {
				return nil
			}
			return printMetrics(cmd.OutOrStdout(), prometheus.DefaultGatherer)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().BoolVar(&a.showMetrics, "metrics", false, "print operation metrics after the command")

	root.AddCommand(
		newVersionCmd(),
		newInfoCmd(a),
		newDrawCmd(a),
		newLinearCmd(a),
		newAcceptorCmd(a),
		newComposeCmd(a),
		newScoreCmd(a),
		newMinimizeCmd(a),
		newRemoveCmd(a),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gtn %s (file format v%d)\n", version, serialization.FormatVersion)
		},
	}
}

// saveGraph writes g in .gtn format when path ends in .gtn, else as text.
func saveGraph(path string, g *graph.Graph, metadata map[string]string) error {
	if strings.EqualFold(filepath.Ext(path), ".gtn") {
		return serialization.SaveBinary(path, g, metadata)
	}
	return serialization.Save(path, g)
}

// printMetrics writes the gtn_* series of the gatherer, one per line.
func printMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "gtn_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s %g\n", name, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s count=%d sum=%g\n", name, h.GetSampleCount(), h.GetSampleSum())
			case m.GetGauge() != nil:
				fmt.Fprintf(w, "%s %g\n", name, m.GetGauge().GetValue())
			}
		}
	}
	return nil
}

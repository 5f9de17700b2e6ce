package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gtn-go/gtn/internal/functions"
	"github.com/gtn-go/gtn/internal/graph"
	"github.com/gtn-go/gtn/internal/logging"
	"github.com/gtn-go/gtn/internal/parallel"
	"github.com/gtn-go/gtn/internal/serialization"
)

var matcherKinds = map[string]functions.MatcherKind{
	functions.MatcherAuto.String():         functions.MatcherAuto,
	functions.MatcherUnsorted.String():     functions.MatcherUnsorted,
	functions.MatcherSinglySorted.String(): functions.MatcherSinglySorted,
	functions.MatcherDoublySorted.String(): functions.MatcherDoublySorted,
}

// writeResult saves g to output, or prints it as text when output is empty.
func writeResult(cmd *cobra.Command, output string, g *graph.Graph) error {
	if output == "" || output == "-" {
		return serialization.WriteText(cmd.OutOrStdout(), g)
	}
	return saveGraph(output, g, nil)
}

func newComposeCmd(_ *app) *cobra.Command {
	var (
		output    string
		intersect bool
		matcher   string
		arcSort   bool
	)
	cmd := &cobra.Command{
		Use:   "compose A B",
		Short: "Compose (or intersect) two graphs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := matcherKinds[matcher]
			if !ok {
				return fmt.Errorf("unknown matcher %q", matcher)
			}
			g1, err := serialization.Load(args[0])
			if err != nil {
				return err
			}
			g2, err := serialization.Load(args[1])
			if err != nil {
				return err
			}
			if arcSort {
				g1.ArcSort(!intersect)
				g2.ArcSort(false)
			}

			var out *graph.Graph
			if intersect {
				out, err = functions.IntersectWithMatcher(g1, g2, kind)
			} else {
				out, err = functions.ComposeWithMatcher(g1, g2, kind)
			}
			if err != nil {
				return err
			}
			logging.Logger().Info("composed", "nodes", out.NumNodes(), "arcs", out.NumArcs(), "matcher", kind)
			return writeResult(cmd, output, out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, .gtn for binary (default stdout as text)")
	cmd.Flags().BoolVar(&intersect, "intersect", false, "match input labels on both sides")
	cmd.Flags().StringVar(&matcher, "matcher", functions.MatcherAuto.String(), "arc matcher: auto, unsorted, singly-sorted, doubly-sorted")
	cmd.Flags().BoolVar(&arcSort, "sort", false, "arc-sort both inputs on their matching labels first")
	return cmd
}

func newScoreCmd(a *app) *cobra.Command {
	var viterbi bool
	cmd := &cobra.Command{
		Use:   "score FILE...",
		Short: "Print the forward (log-sum) or Viterbi score of each graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			score := functions.ForwardScore
			if viterbi {
				score = functions.ViterbiScore
			}
			scores, err := parallel.Map(cmd.Context(), a.cfg.Batch(), args,
				func(_ context.Context, path string) (float64, error) {
					g, err := serialization.Load(path)
					if err != nil {
						return 0, err
					}
					s, err := score(g)
					if err != nil {
						return 0, fmt.Errorf("%s: %w", path, err)
					}
					return s.Item()
				})
			if err != nil {
				return err
			}
			for i, path := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%g\n", path, scores[i])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&viterbi, "viterbi", false, "use the max (tropical) semiring")
	return cmd
}

func newMinimizeCmd(_ *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "minimize FILE",
		Short: "Minimize an acyclic graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := serialization.Load(args[0])
			if err != nil {
				return err
			}
			out, err := functions.MinimizeAcyclicFST(g)
			if err != nil {
				return err
			}
			logging.Logger().Info("minimized", "nodes_before", g.NumNodes(), "nodes_after", out.NumNodes())
			return writeResult(cmd, output, out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, .gtn for binary (default stdout as text)")
	return cmd
}

func newRemoveCmd(_ *app) *cobra.Command {
	var (
		output string
		ilabel int
		olabel int
	)
	cmd := &cobra.Command{
		Use:   "remove FILE",
		Short: "Remove arcs with the given labels (epsilon by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := serialization.Load(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("olabel") {
				olabel = ilabel
			}
			return writeResult(cmd, output, functions.RemoveLabels(g, ilabel, olabel))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, .gtn for binary (default stdout as text)")
	cmd.Flags().IntVar(&ilabel, "ilabel", graph.Epsilon, "input label to remove")
	cmd.Flags().IntVar(&olabel, "olabel", graph.Epsilon, "output label to remove (default: same as --ilabel)")
	return cmd
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/cci-stac-tools/internal/collection"
	"github.com/robert-malhotra/cci-stac-tools/internal/report"
)

func (a *app) inspector(count bool) (*collection.Inspector, error) {
	cat, err := a.catalogue()
	if err != nil {
		return nil, err
	}
	if !count {
		return collection.NewInspector(cat, nil, a.logger), nil
	}
	index, err := a.search()
	if err != nil {
		return nil, err
	}
	return collection.NewInspector(cat, index, a.logger), nil
}

func newItemCountCmd(a *app) *cobra.Command {
	var (
		opts  collection.WalkOptions
		check bool
	)

	cmd := &cobra.Command{
		Use:   "item-count COLLECTION",
		Short: "Count the items of a collection tree",
		Long: `Walk the child links below COLLECTION and print the number of items of
each collection. Counts above the search index limit print as ">10000".
Child links to missing collections are marked.

Levels are numbered from COLLECTION (0). --depth prints only one of them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ins, err := a.inspector(true)
			if err != nil {
				return err
			}
			opts.Count = true

			nodes, err := ins.Walk(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			if opts.Depth >= 0 {
				nodes = atDepth(nodes, opts.Depth)
			}
			if check {
				report.Check(a.out, nodes)
				return nil
			}
			report.Tree(a.out, nodes)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.Aggregations, "aggs", false, "Also count aggregation items")
	f.BoolVar(&check, "check", false, "Only report whether each collection holds items")
	f.IntVar(&opts.Depth, "depth", -1, "Only count collections at this level (negative for every level)")
	f.IntVar(&opts.MaxDepth, "max-depth", -1, "Stop the walk below this level (negative for the whole tree)")

	return cmd
}

// atDepth keeps the nodes at depth and the missing links found anywhere.
func atDepth(nodes []collection.Node, depth int) []collection.Node {
	var kept []collection.Node
	for _, n := range nodes {
		if n.Depth == depth || n.Missing {
			kept = append(kept, n)
		}
	}
	return kept
}

func newHolesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "holes [COLLECTION]",
		Short: "List child links to missing collections",
		Long:  `Walk the tree below COLLECTION (default cci) and list every child link that points at no collection.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ins, err := a.inspector(false)
			if err != nil {
				return err
			}
			root := collection.RootID
			if len(args) == 1 {
				root = args[0]
			}

			holes, err := ins.Holes(cmd.Context(), root)
			if err != nil {
				return err
			}
			report.Holes(a.out, holes)
			return nil
		},
	}
}

func newSummaryCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Split DRS collections into filled and empty",
		Long: `Count the items of every DRS-level collection of the CCI tree and write
their ids to filled.txt and empty.txt in --dir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ins, err := a.inspector(true)
			if err != nil {
				return err
			}
			s, err := ins.Summarize(cmd.Context(), a.fs, dir)
			if err != nil {
				return err
			}
			report.Summary(a.out, s)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory receiving filled.txt and empty.txt")
	return cmd
}

func newDescribeCmd(a *app) *cobra.Command {
	var drs string

	cmd := &cobra.Command{
		Use:   "describe UUID",
		Short: "Show the OpenSearch description of a moles record",
		Long: `Fetch and parse the OpenSearch description document of a moles record,
optionally narrowed to one DRS, and print its temporal bounds and search
parameters (ecv, drsId, fileFormat, ...).`,
		Args:        cobra.ExactArgs(1),
		Annotations: localOnly,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.opensearch().Description(cmd.Context(), args[0], drs)
			if err != nil {
				return err
			}
			report.Description(a.out, d)
			return nil
		},
	}

	cmd.Flags().StringVar(&drs, "drs", "", "Narrow the description to one DRS id")
	return cmd
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/cci-stac-tools/internal/collection"
	"github.com/robert-malhotra/cci-stac-tools/internal/extent"
	"github.com/robert-malhotra/cci-stac-tools/internal/report"
)

// reconcileFlags are shared by the commands that write collection nodes.
type reconcileFlags struct {
	opts     collection.Options
	stageDir string
}

func (f *reconcileFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.opts.Overwrite, "overwrite", false, "Replace collections that already exist")
	cmd.Flags().BoolVar(&f.opts.DryRun, "dryrun", false, "Stage documents on disk instead of writing them")
	cmd.Flags().StringVar(&f.opts.Suffix, "suffix", "", "Suffix appended to every generated collection id")
	cmd.Flags().StringVar(&f.stageDir, "stage-dir", "", "Directory receiving dryrun documents (default CCI_STAGE_DIR)")
}

func (f *reconcileFlags) dir(a *app) string {
	if f.stageDir != "" {
		return f.stageDir
	}
	return a.cfg.Files.StageDir
}

// finishReconcile prints res and turns skipped nodes into a partial
// failure.
func (a *app) finishReconcile(res *collection.Result) error {
	report.Reconciliation(a.out, res)
	if err := res.Err(); err != nil {
		a.logger.Warn("reconciliation skipped nodes", "count", len(res.Skipped))
		return partialFailure("%d nodes skipped", len(res.Skipped))
	}
	return nil
}

func newBuildCollectionsCmd(a *app) *cobra.Command {
	var rf reconcileFlags

	cmd := &cobra.Command{
		Use:   "build-collections",
		Short: "Reconcile the whole CCI collection tree",
		Long: `Reconcile the CCI root collection, one collection per project in the
project reference document, one per moles record of each project and one
per DRS of each record. Nodes that fail are reported and skipped; their
siblings are still reconciled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.reconciler(rf.opts, rf.dir(a))
			if err != nil {
				return err
			}
			res, err := r.BuildCCI(cmd.Context())
			if err != nil {
				return err
			}
			return a.finishReconcile(res)
		},
	}

	rf.register(cmd)
	return cmd
}

func newAddCollectionCmd(a *app) *cobra.Command {
	var (
		rf   reconcileFlags
		kind string
		spec collection.ChildSpec
	)

	cmd := &cobra.Command{
		Use:   "add-collection PARENT CHILD",
		Short: "Reconcile one collection under a parent",
		Long: `Reconcile CHILD as a project, moles record, DRS or openeo collection
under PARENT and add it to the parent's child links.

CHILD is the project name, the moles uuid or the DRS id depending on
--create. Projects missing from the reference document need --start and
--end.

Examples:
  ccistac add-collection cci sst --create project
  ccistac add-collection sst 62c0f97b1e0b4ab5a8b0a3f9d4c1c5e2 --create moles
  ccistac add-collection 62c0f97b... esacci.SST.day.CDR3-0 --create drs --description "Daily SST"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := collection.ParseKind(kind)
			if err != nil {
				return err
			}
			spec.Kind = k
			spec.ID = args[1]

			r, err := a.reconciler(rf.opts, rf.dir(a))
			if err != nil {
				return err
			}
			res, err := r.AddChild(cmd.Context(), args[0], spec)
			if err != nil {
				return err
			}
			return a.finishReconcile(res)
		},
	}

	rf.register(cmd)
	f := cmd.Flags()
	f.StringVar(&kind, "create", "", "Kind of collection: project, moles, drs, openeo")
	f.StringVar(&spec.Description, "description", "", "Description of a project or DRS collection")
	f.StringVar(&spec.Start, "start", "", "Start of a project missing from the reference document")
	f.StringVar(&spec.End, "end", "", "End of a project missing from the reference document")
	f.StringVar(&spec.UUID, "uuid", "", "Moles record of a DRS or openeo collection (default PARENT)")
	_ = cmd.MarkFlagRequired("create")

	return cmd
}

func newManualCollectionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "manual-collection PATH [PARENT]",
		Short: "Upload hand-written collection documents",
		Long: `Upload the JSON or YAML collection document at PATH, or every document in
the directory PATH. The STAC_API placeholder is replaced with the catalogue
base URL. Each collection is created or replaced depending on whether it
exists and, with PARENT, linked as its child.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.catalogue()
			if err != nil {
				return err
			}
			parent := ""
			if len(args) == 2 {
				parent = args[1]
			}

			outcomes, err := collection.NewManager(cat, a.fs, a.logger).Upload(cmd.Context(), args[0], parent)
			if len(outcomes) > 0 {
				report.Outcomes(a.out, outcomes)
			}
			return err
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	var newParent string

	cmd := &cobra.Command{
		Use:   "migrate COLLECTION PARENT",
		Short: "Move a collection to another parent",
		Long: `Remove the child link from PARENT to COLLECTION and, with --new-parent, add
it to the new parent. The collection itself is not changed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.catalogue()
			if err != nil {
				return err
			}
			if err := collection.NewManager(cat, a.fs, a.logger).Migrate(cmd.Context(), args[0], args[1], newParent); err != nil {
				return err
			}
			a.logger.Info("collection migrated", "collection", args[0], "from", args[1], "to", newParent)
			return nil
		},
	}

	cmd.Flags().StringVar(&newParent, "new-parent", "", "Collection receiving the child link")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var opts collection.DeleteOptions

	cmd := &cobra.Command{
		Use:   "delete COLLECTION [PARENT]",
		Short: "Remove a collection and everything below it",
		Long: `Remove COLLECTION, its items and its descendants. Without --execute the
removal is only reported. With PARENT the child link to COLLECTION is
removed from it.

Levels are numbered from COLLECTION (0); --delete-depth restricts removal to
one of them. Levels below DRS are rejected.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.catalogue()
			if err != nil {
				return err
			}
			if len(args) == 2 {
				opts.Parent = args[1]
			}

			r, err := collection.NewManager(cat, a.fs, a.logger).Delete(cmd.Context(), args[0], opts)
			if r != nil {
				report.Deletion(a.out, r, opts.Execute)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.TopOnly, "top-only", false, "Do not descend into child collections")
	f.BoolVar(&opts.LowestOnly, "lowest-only", false, "Only remove collections without children")
	f.BoolVar(&opts.KeepCollections, "keep-collections", false, "Remove items but keep the collections")
	f.BoolVar(&opts.ItemAggregations, "item-aggregations", false, "Also remove aggregation items")
	f.IntVar(&opts.Depth, "delete-depth", -1, "Only remove collections at this level (negative for every level)")
	f.BoolVar(&opts.Execute, "execute", false, "Perform the removal instead of reporting it")

	return cmd
}

func newConfineCmd(a *app) *cobra.Command {
	var (
		childBased bool
		apply      bool
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "confine COLLECTION",
		Short: "Recompute the extent of a collection",
		Long: `Fold the bbox and interval of every item of COLLECTION, or with
--child-based of every child collection, into a single extent. Anomalies are
reported. With --apply the extent is written unless anomalies were found;
--force writes it regardless.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.catalogue()
			if err != nil {
				return err
			}
			items, err := a.search()
			if err != nil {
				return err
			}

			confiner := extent.NewConfiner(items, cat, a.logger)
			res, err := confiner.Confine(cmd.Context(), args[0], childBased)
			if err != nil {
				return err
			}
			report.Confinement(a.out, res)

			if !apply {
				return nil
			}
			return confiner.Apply(cmd.Context(), res, force)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&childBased, "child-based", false, "Fold child collection extents instead of items")
	f.BoolVar(&apply, "apply", false, "Write the confined extent to the collection")
	f.BoolVar(&force, "force", false, "Write the extent even when anomalies were found")

	return cmd
}

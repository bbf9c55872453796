package main

import (
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/cci-stac-tools/internal/batch"
	"github.com/robert-malhotra/cci-stac-tools/internal/config"
	"github.com/robert-malhotra/cci-stac-tools/internal/report"
)

func newCreateItemsCmd(a *app) *cobra.Command {
	var (
		opts         batch.CreateOptions
		splitterFlag string
	)

	cmd := &cobra.Command{
		Use:   "create-items TARGET",
		Short: "Create STAC items for archive files",
		Long: `Create one STAC item per archive file found under TARGET.

TARGET is a directory prefix in the archive, a single file, a .txt file
listing files, or a local batch configuration with one
directory[,drs[,splitter]] entry per line. Items are written to
{output-dir}/{collection}/stac_{id}.json and files that could not be
processed are listed in failed_files_{datasetId}.txt.

Examples:
  # Items for a whole DRS directory
  ccistac create-items /neodc/esacci/sst/data/CDR_v3 --drs esacci.SST.day.CDR3-0

  # OpenEO items with band labels from a splitter file
  ccistac create-items batch.txt --openeo --splitter splitter.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			splitter, err := config.ResolveSplitter(a.fs, splitterFlag)
			if err != nil {
				return configError(err)
			}
			opts.Splitter = splitter
			opts.Raster.OpenEO = opts.OpenEO

			files, err := a.search()
			if err != nil {
				return err
			}

			metrics := batch.NewMetrics("create-items")
			creator := batch.NewCreator(files, a.extractor(), a.builder(), a.licenses(), a.fs).
				WithLogger(a.logger).
				WithMetrics(metrics)

			a.logger.Info("creating items", "target", args[0], "output_dir", opts.OutputDir, "run_id", metrics.RunID)
			stats, err := creator.Run(cmd.Context(), args[0], opts)
			a.writeMetrics(metrics)
			if len(stats) > 0 {
				report.CreateStats(a.out, stats)
			}
			if err != nil {
				return err
			}

			failed := 0
			for _, s := range stats {
				failed += s.Failed
			}
			if failed > 0 {
				return partialFailure("%d files failed", failed)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.OutputDir, "output-dir", "o", "stac_items", "Directory receiving item documents and failure lists")
	f.StringVar(&opts.DRS, "drs", "", "Collection of every item, unless a batch entry names its own")
	f.StringVar(&splitterFlag, "splitter", "", "Splitter file or literal asset label for OpenEO items")
	f.StringVar(&opts.Exclusion, "exclusion", "", "Skip files whose name contains this substring")
	f.StringVar(&opts.Raster.StartTime, "start-time", "", "Start time for files without time_coverage_start")
	f.StringVar(&opts.Raster.EndTime, "end-time", "", "End time for files without time_coverage_end")
	f.StringVar(&opts.Raster.Interval, "interval", "", "Interval of single-date file names; \"month\" covers the rest of the month")
	f.BoolVar(&opts.Raster.AssumeGlobal, "global", false, "Use the global bbox when a file has no spatial information")
	f.BoolVar(&opts.Raster.FillIncomplete, "fill-incomplete", false, "Write incomplete metadata as sentinels instead of failing")
	f.BoolVar(&opts.OpenEO, "openeo", false, "Build OpenEO-compatible items with projection metadata")
	f.BoolVar(&opts.Halt, "halt", false, "Stop at the first failure")

	return cmd
}

func newPostItemsCmd(a *app) *cobra.Command {
	var openeo bool

	cmd := &cobra.Command{
		Use:   "post-items DIR",
		Short: "Post item documents to the catalogue",
		Long: `Post every stac*.json item document under DIR to the catalogue. Items
that already exist are replaced. With --openeo the eo:bands summaries of each
parent collection are extended with the bands of the posted items.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.catalogue()
			if err != nil {
				return err
			}

			metrics := batch.NewMetrics("post-items")
			poster := batch.NewPoster(cat, a.fs).WithLogger(a.logger).WithMetrics(metrics)

			stats, err := poster.Post(cmd.Context(), args[0], openeo)
			a.writeMetrics(metrics)
			if err != nil {
				return err
			}

			report.PostStats(a.out, stats)
			if stats.Failed > 0 {
				return partialFailure("%d items failed", stats.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&openeo, "openeo", false, "Merge eo:bands summaries into parent collections")
	return cmd
}

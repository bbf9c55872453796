package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/cci-stac-tools/internal/aggregate"
	"github.com/robert-malhotra/cci-stac-tools/internal/archive"
	"github.com/robert-malhotra/cci-stac-tools/internal/report"
	"github.com/robert-malhotra/cci-stac-tools/internal/sweep"
)

func newFindLatestCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "find-latest ROOT",
		Short: "Find the newest version directory under each parent",
		Long: `Walk ROOT and, for every directory holding version directories (v1, v2.1,
...), print the newest one. With -o the paths are also written to FILE, one
per line; an existing FILE is never overwritten.`,
		Args:        cobra.ExactArgs(1),
		Annotations: localOnly,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				latest []archive.Latest
				err    error
			)
			if output != "" {
				latest, err = archive.WriteLatest(a.fs, args[0], output, a.logger)
			} else {
				latest, err = archive.FindLatest(a.fs, args[0], a.logger)
			}
			if err != nil {
				return err
			}
			report.Latest(a.out, latest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "File receiving the newest version paths")
	return cmd
}

func newOpenEOAggregationCmd(a *app) *cobra.Command {
	var (
		opts   aggregate.Options
		dryrun bool
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "openeo-aggregation ENDPOINT",
		Short: "Publish an OpenEO collection for a kerchunk, CFA or Zarr aggregation",
		Long: `Open the aggregation at ENDPOINT (kerchunk .json, CFA .nca or Zarr .zarr)
and build an OpenEO collection with eo:bands summaries and one item whose
aggregation asset points at the store. With --dryrun collection.json and
item.json are written to --dir instead of being published.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.catalogue()
			if err != nil {
				return err
			}
			opts.Endpoint = args[0]

			agg := aggregate.NewAggregator(a.extractor(), a.builder(), cat, a.cfg).WithLogger(a.logger)
			rec, err := agg.Build(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if !dryrun {
				return agg.Publish(cmd.Context(), rec)
			}

			if dir == "" {
				dir = a.cfg.Files.StageDir
			}
			written, err := aggregate.WriteDryRun(a.fs, dir, rec)
			for _, p := range written {
				fmt.Fprintln(a.out, p)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.DatasetID, "did", "", "Collection id (default the endpoint name without extension)")
	f.StringVar(&opts.UUID, "uuid", "", "Moles record linked from the collection")
	f.StringVar(&opts.ECV, "ecv", "", "ECV of the aggregation")
	f.BoolVar(&dryrun, "dryrun", false, "Write the documents to --dir instead of publishing them")
	f.StringVar(&dir, "dir", "", "Directory receiving dryrun documents (default CCI_STAGE_DIR)")

	return cmd
}

func newServiceSweepCmd(a *app) *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "service-sweep",
		Short: "Check that the services the catalogue depends on are up",
		Long: `GET every service in SWEEP_SERVICES, and the catalogue API when
CATALOGUE_BASE_URL is set, and print their status. With --notify the report
is also posted to SWEEP_SLACK_WEBHOOK.`,
		Args:        cobra.NoArgs,
		Annotations: localOnly,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := sweep.ParseServices(a.cfg.Sweep.Services)
			if err != nil {
				return configError(err)
			}
			if a.cfg.Catalogue.BaseURL != "" {
				services = append(services, sweep.Service{Name: "STAC API", URL: a.cfg.Catalogue.BaseURL})
			}

			client := &http.Client{Timeout: a.cfg.Sweep.Timeout}
			statuses := sweep.NewSweeper(client).WithLogger(a.logger).Check(cmd.Context(), services)
			report.Sweep(a.out, statuses)

			if !notify {
				return nil
			}
			if a.cfg.Sweep.SlackWebhook == "" {
				return configError(errors.New("--notify needs SWEEP_SLACK_WEBHOOK"))
			}
			return sweep.NewNotifier(a.cfg.Sweep.SlackWebhook, client).Notify(cmd.Context(), sweep.Message(statuses))
		},
	}

	cmd.Flags().BoolVar(&notify, "notify", false, "Post the report to the Slack webhook")
	return cmd
}

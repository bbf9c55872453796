package main

import (
	"io"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/cci-stac-tools/internal/config"
)

// localAnnotation marks commands that never talk to the STAC catalogue,
// so CATALOGUE_BASE_URL may be unset for them.
const localAnnotation = "ccistac/local"

var localOnly = map[string]string{localAnnotation: "true"}

// app is the state shared by every command, resolved in
// PersistentPreRunE.
type app struct {
	fs     afero.Fs
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer

	logLevel  string
	logFormat string
	verbose   bool
}

// NewRootCmd creates the root command of the ccistac CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(afero.NewOsFs())
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs}

	rootCmd := &cobra.Command{
		Use:   "ccistac",
		Short: "ESA CCI STAC catalogue tooling",
		Long: `ccistac turns the CEDA archive of ESA Climate Change Initiative data into a
STAC catalogue: it builds items from archive files, reconciles the collection
tree against the catalogue API and inspects or repairs what is published.

Configuration is read from the environment (CATALOGUE_BASE_URL, SEARCH_HOST,
AUTH_CLIENT_ID, ...). Reports are written to stdout and logs to stderr.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: text, json, pretty (env: LOG_FORMAT)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Shorthand for --log-level debug")

	rootCmd.AddCommand(
		newCreateItemsCmd(a),
		newPostItemsCmd(a),
		newBuildCollectionsCmd(a),
		newAddCollectionCmd(a),
		newManualCollectionCmd(a),
		newMigrateCmd(a),
		newDeleteCmd(a),
		newConfineCmd(a),
		newItemCountCmd(a),
		newHolesCmd(a),
		newSummaryCmd(a),
		newDescribeCmd(a),
		newFindLatestCmd(a),
		newOpenEOAggregationCmd(a),
		newServiceSweepCmd(a),
		newServeCmd(a),
	)

	return rootCmd
}

// init loads the configuration and sets up logging for cmd.
func (a *app) init(cmd *cobra.Command) error {
	load := config.Load
	if cmd.Annotations[localAnnotation] == "true" {
		load = config.LoadLocal
	}

	cfg, err := load()
	if err != nil {
		return configError(err)
	}

	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}

	a.cfg = cfg
	a.out = cmd.OutOrStdout()
	a.logger = setupLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	a.logger.Debug("configuration loaded",
		"command", cmd.Name(),
		"catalogue", cfg.Catalogue.BaseURL,
		"search", cfg.Search.Host,
		"opensearch", cfg.OpenSearch.BaseURL,
	)
	return nil
}

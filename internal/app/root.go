// Package app is the localdocs command-line surface.
package app

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"localdocs/internal/convert"
	"localdocs/internal/fetch"
	"localdocs/internal/jobs/downloader"
	"localdocs/internal/security"
	"localdocs/internal/store"
	"localdocs/internal/support"
)

const (
	configEnv   = "LOCALDOCS_CONFIG"
	logLevelEnv = "LOCALDOCS_LOG_LEVEL"
)

type options struct {
	configPath string
	verbose    bool
}

// Execute runs the CLI. The caller maps a non-nil error to exit code 1.
func Execute() error {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using system environment")
	}

	opts := &options{}
	root := &cobra.Command{
		Use:           "localdocs",
		Short:         "Download, organize, and package documentation from the web",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			applyLogLevel(opts.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errors.New("no command specified")
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "registry file path (default: discovery)")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(
		newAddCmd(opts),
		newSetCmd(opts),
		newExtractCmd(opts),
		newUpdateCmd(opts),
		newRemoveCmd(opts),
		newPackageCmd(opts),
	)

	err := root.Execute()
	if err != nil {
		log.Error(err.Error())
	}
	return err
}

func applyLogLevel(verbose bool) {
	if verbose {
		log.SetLevel(log.DebugLevel)
		return
	}
	level, err := log.ParseLevel(support.GetEnv(logLevelEnv, "info"))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func (o *options) openStore() (*store.Store, error) {
	path := o.configPath
	if path == "" {
		path = support.GetEnv(configEnv, "")
	}
	return store.Open(path, store.NewCache(store.DefaultCacheTTL))
}

func (o *options) newBatch(s *store.Store) *downloader.Batch {
	return downloader.New(security.NewValidator(), fetch.NewFetcher(), convert.New(), s)
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/sidkik/foldersync/cmd/config"
	"github.com/sidkik/foldersync/cmd/status"
	"github.com/sidkik/foldersync/cmd/util"
	"github.com/sidkik/foldersync/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "FOLDERSYNC_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	// Environment variables may also be set in a .env file in the working
	// directory. It's fine for it not to exist.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to load .env file")
	}

	if verbose() {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newSyncCommand()
	rootCmd.AddCommand(
		configCmd.New(),
		status.New(),
		version.New(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		util.HandleFatalError(err)
	}
}

func verbose() bool {
	return os.Getenv(verboseLogKey) == "true"
}

func newSyncCommand() *cobra.Command {
	var flags util.Flags
	var once bool

	cmd := &cobra.Command{
		Use:   "foldersync [source [replica [interval [logfile]]]]",
		Short: "Periodically mirror a folder into a replica folder",
		Long: "Mirror the source folder into the replica folder, and then " +
			"keep it mirrored.\n" +
			"After each pass the replica contains exactly the source's files " +
			"and folders.\nReplica entries that aren't in the source are deleted.",
		Args:         cobra.MaximumNArgs(4),
		SilenceUsage: true,

		// The error is printed by HandleFatalError, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.Resolve(cmd, args)
			if err != nil {
				return err
			}
			return runSync(cmd.Context(), cmd.OutOrStdout(), opts, once)
		},
	}
	flags.Register(cmd)
	cmd.Flags().BoolVar(&once, "once", false, "Run a single pass and exit")
	return cmd
}

package status

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/foldersync/cmd/util"
	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/sync"
)

// New creates a new `status` command.
func New() *cobra.Command {
	var flags util.Flags
	cmd := &cobra.Command{
		Use:   "status [source [replica]]",
		Short: "Show what the next sync pass would change",
		Long: "Compare the source and replica folders, and print the changes " +
			"that the next pass would make.\nNothing is copied or deleted.",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.Resolve(cmd, args)
			if err != nil {
				return err
			}

			engine, err := sync.New(sync.Options{
				Source:  opts.Source,
				Replica: opts.Replica,
				Exclude: opts.Exclude,
				Workers: opts.Workers,
				Log:     log.StandardLogger(),
			})
			if err != nil {
				return err
			}

			plan, err := engine.Plan(cmd.Context())
			if err != nil {
				return errors.WithContext(err, "plan")
			}

			printPlan(cmd.OutOrStdout(), engine.Source(), engine.Replica(), plan)
			return nil
		},
	}
	flags.Register(cmd)
	return cmd
}

func printPlan(out io.Writer, source, replica string, plan sync.Plan) {
	fmt.Fprintf(out, "Source:  %s\n", source)
	fmt.Fprintf(out, "Replica: %s\n", replica)
	if plan.InSync {
		fmt.Fprintln(out, "\nThe replica is in sync.")
		return
	}

	changes := len(plan.FoldersToCreate) + len(plan.FilesToCopy) +
		len(plan.FilesToDelete) + len(plan.FoldersToDelete)
	fmt.Fprintf(out, "\n%s pending changes\n", humanize.Comma(int64(changes)))

	printSection(out, "Folders to create", plan.FoldersToCreate)

	var copies []string
	for _, c := range plan.FilesToCopy {
		copies = append(copies, fmt.Sprintf("%s (%s)", c.Path, c.Outcome))
	}
	printSection(out, "Files to copy", copies)
	printSection(out, "Files to delete", plan.FilesToDelete)
	printSection(out, "Folders to delete", plan.FoldersToDelete)

	var failures []string
	for _, f := range plan.Failures {
		failures = append(failures, f.Error())
	}
	printSection(out, "Couldn't compare", failures)
}

func printSection(out io.Writer, title string, lines []string) {
	if len(lines) == 0 {
		return
	}

	fmt.Fprintf(out, "\n%s:\n", title)
	for _, line := range lines {
		fmt.Fprintf(out, "  %s\n", line)
	}
}

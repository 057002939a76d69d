package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout              io.Writer = os.Stdout
	stdin               io.Reader = os.Stdin
	parseOptions                  = config.ParseFile
	getWorkingDirectory           = os.Getwd
)

// New creates a new `config` command.
func New() *cobra.Command {
	var path string
	var cliOpts config.Options
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or update the foldersync options file",
		Long: "Interactively choose the source, replica, interval and log file, " +
			"and save them\nto the options file. Values given as flags aren't " +
			"prompted for.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := SetupConfig(path, cliOpts); err != nil {
				return errors.NewFriendlyError("Failed to setup configuration:\n%s", err)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&path, "path", config.DefaultOptionsPath,
		"Options file to write")
	cmd.Flags().StringVar(&cliOpts.Source, "source", "",
		"Set the source folder. "+
			"Optional: If not set, `foldersync config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.Replica, "replica", "",
		"Set the replica folder. "+
			"Optional: If not set, `foldersync config` will interactively prompt.")
	cmd.Flags().IntVar(&cliOpts.Interval, "interval", 0,
		"Set the seconds between passes. "+
			"Optional: If not set, `foldersync config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.LogFile, "log", "",
		"Set the log file. "+
			"Optional: If not set, `foldersync config` will interactively prompt.")

	// Setup the commands for querying the contents of the options file.
	type getterSpec struct {
		use, short string
		fn         func(config.Options) string
	}

	getters := []getterSpec{
		{
			use:   "get-source",
			short: "Get the configured source folder",
			fn:    func(opts config.Options) string { return opts.Source },
		},
		{
			use:   "get-replica",
			short: "Get the configured replica folder",
			fn:    func(opts config.Options) string { return opts.Replica },
		},
		{
			use:   "get-log",
			short: "Get the configured log file",
			fn:    func(opts config.Options) string { return opts.LogFile },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				opts, err := parseOptions(path)
				if err != nil {
					return errors.WithContext(err, "read options")
				}

				fmt.Fprintln(stdout, getter.fn(config.Default().Merge(opts)))
				return nil
			},
		})
	}

	return cmd
}

// SetupConfig prompts for the options that aren't set in `cliOpts`, and
// writes the result to `path`.
func SetupConfig(path string, cliOpts config.Options) error {
	opts, err := generateConfig(path, cliOpts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := config.WriteFile(path, opts); err != nil {
		return errors.WithContext(err, "write config")
	}

	fmt.Fprintf(stdout, "Wrote options to %s\n", path)
	return nil
}

func pathValidationFn(path string) (string, bool) {
	if strings.TrimSpace(path) == "" {
		return "A path is required.", false
	}
	return "", true
}

func intervalValidationFn(raw string) (string, bool) {
	if _, err := config.ParseInterval(raw); err != nil {
		return "The interval must be a positive number of seconds.", false
	}
	return "", true
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	set                                           func(string)
	validationFn                                  func(string) (string, bool)
}

// generateConfig interacts with the user to decide what the user's desired
// options are.
// It makes best guesses at reasonable defaults, and allows users to explicitly
// override them if desired.
func generateConfig(path string, cliOpts config.Options) (config.Options, error) {
	defaults := guessDefaults()
	currOpts, err := parseOptions(path)
	if err != nil {
		currOpts = config.Options{}
		log.WithError(err).Debug("Failed to read current options")
	}

	opts := currOpts.Merge(cliOpts)
	var prompts []prompt
	if cliOpts.Source == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the folder to mirror from.\n" +
				"It's never modified by foldersync.",
			prompt:        "Source folder",
			defaultAnswer: defaults.Source,
			currAnswer:    currOpts.Source,
			set:           func(resp string) { opts.Source = resp },
			validationFn:  pathValidationFn,
		})
	}

	if cliOpts.Replica == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the folder to mirror into.\n" +
				"Anything in it that isn't in the source folder will be deleted.",
			prompt:        "Replica folder",
			defaultAnswer: defaults.Replica,
			currAnswer:    currOpts.Replica,
			set:           func(resp string) { opts.Replica = resp },
			validationFn:  pathValidationFn,
		})
	}

	if cliOpts.Interval == 0 {
		var currInterval string
		if currOpts.Interval != 0 {
			currInterval = strconv.Itoa(currOpts.Interval)
		}

		prompts = append(prompts, prompt{
			helpString:    "Enter the number of seconds between sync passes.",
			prompt:        "Interval",
			defaultAnswer: strconv.Itoa(defaults.Interval),
			currAnswer:    currInterval,
			set: func(resp string) {
				// The response was already validated.
				opts.Interval, _ = config.ParseInterval(resp)
			},
			validationFn: intervalValidationFn,
		})
	}

	if cliOpts.LogFile == "" {
		prompts = append(prompts, prompt{
			helpString:    "Enter the file that logs are appended to.",
			prompt:        "Log file",
			defaultAnswer: defaults.LogFile,
			currAnswer:    currOpts.LogFile,
			set:           func(resp string) { opts.LogFile = resp },
			validationFn:  pathValidationFn,
		})
	}

	// A single reader is shared by all the prompts so that input buffered
	// while answering one prompt isn't lost.
	stdinReader := bufio.NewReader(stdin)
	for _, prompt := range prompts {
		var resp string
		for {
			resp, err = promptUser(stdinReader, prompt.helpString, prompt.prompt,
				prompt.defaultAnswer, prompt.currAnswer)
			if err != nil {
				return config.Options{}, errors.WithContext(err, "read response")
			}

			if prompt.validationFn == nil {
				break
			}

			validationErr, ok := prompt.validationFn(resp)
			if ok {
				break
			}

			fmt.Fprintln(stdout, validationErr)
		}

		prompt.set(resp)
	}

	return opts, nil
}

// guessDefaults suggests mirroring the working directory into a sibling
// folder.
func guessDefaults() config.Options {
	defaults := config.Default()
	currDir, err := getWorkingDirectory()
	if err != nil {
		log.WithError(err).Info("Failed to guess source folder")
		return defaults
	}

	defaults.Source = currDir
	defaults.Replica = filepath.Join(filepath.Dir(currDir), filepath.Base(currDir)+"-replica")
	return defaults
}

func promptUser(stdinReader *bufio.Reader, helpString, prompt, defaultAnswer,
	currAnswer string) (string, error) {

	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	options := []string{}
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	if nOptions := len(options); nOptions > 1 {
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := readLine(stdinReader)
			if err != nil {
				return "", err
			}

			// Default to the first choice if user doesn't enter anything.
			choice := 1
			if choiceStr != "" {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					// Try again if the input is invalid.
					continue
				}
			}

			if choice == nOptions {
				// Enter manually.
				break
			}
			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	return readLine(stdinReader)
}

// readLine reads a line, without the trailing newline. The last line of the
// input doesn't need a newline.
func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

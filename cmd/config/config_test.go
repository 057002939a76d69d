package config

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
)

func TestPromptUser(t *testing.T) {
	tests := []struct {
		name                                                 string
		helpString, prompt, defaultAnswer, currAnswer, stdin string
		expPrompt, expResult                                 string
	}{
		{
			name:          "No default or current answer",
			helpString:    "explanation",
			prompt:        "prompt",
			defaultAnswer: "",
			currAnswer:    "",
			stdin:         "user input\n",
			expPrompt: "explanation\n" +
				"prompt:\n" +
				"Please enter manually: \n",
			expResult: "user input",
		},
		{
			name:          "No current answer only, enter manually",
			helpString:    "different explanation",
			prompt:        "different prompt",
			defaultAnswer: "default answer",
			currAnswer:    "",
			stdin: "2\n" +
				"user input\n",
			expPrompt: "different explanation\n" +
				"different prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: " +
				"Please enter manually: \n",
			expResult: "user input",
		},
		{
			name:          "Same default answer and current answer, chose default answer",
			helpString:    "different explanation",
			prompt:        "different prompt",
			defaultAnswer: "default answer",
			currAnswer:    "default answer",
			stdin:         "1\n",
			expPrompt: "different explanation\n" +
				"different prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: \n",
			expResult: "default answer",
		},
		{
			name:          "Empty response -- pick default",
			helpString:    "help",
			prompt:        "prompt",
			defaultAnswer: "one",
			currAnswer:    "two",
			stdin:         "\n",
			expPrompt: "help\n" +
				"prompt:\n" +
				"\n" +
				"\t1. one (recommended)\n" +
				"\t2. two\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: \n",
			expResult: "one",
		},
		{
			name:          "Different default answer and current answer, chose current answer",
			helpString:    "different explanation",
			prompt:        "different prompt",
			defaultAnswer: "default answer",
			currAnswer:    "current answer",
			stdin:         "2\n",
			expPrompt: "different explanation\n" +
				"different prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. current answer\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: \n",
			expResult: "current answer",
		},
		{
			name:          "Invalid input",
			helpString:    "different explanation",
			prompt:        "different prompt",
			defaultAnswer: "default answer",
			currAnswer:    "current answer",
			stdin: "invalid input\n" +
				"1\n",
			expPrompt: "different explanation\n" +
				"different prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. current answer\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: " +
				"Please choose one [1-3]: \n",
			expResult: "default answer",
		},
		{
			name:          "No trailing newline",
			helpString:    "help",
			prompt:        "prompt",
			defaultAnswer: "",
			currAnswer:    "",
			stdin:         "last line",
			expPrompt: "help\n" +
				"prompt:\n" +
				"Please enter manually: \n",
			expResult: "last line",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			out := bytes.NewBuffer(nil)
			stdout = out

			resp, err := promptUser(bufio.NewReader(strings.NewReader(test.stdin)),
				test.helpString, test.prompt, test.defaultAnswer, test.currAnswer)
			assert.NoError(t, err)
			assert.Equal(t, test.expResult, resp)
			assert.Equal(t, test.expPrompt, out.String())
		})
	}
}

func TestPromptUserEOF(t *testing.T) {
	stdout = bytes.NewBuffer(nil)
	_, err := promptUser(bufio.NewReader(strings.NewReader("")), "help", "prompt", "", "")
	assert.Error(t, err)
}

func TestGenerateConfig(t *testing.T) {
	out := bytes.NewBuffer(nil)
	stdout = out
	getWorkingDirectory = func() (string, error) {
		return "/home/user/project", nil
	}
	parseOptions = func(_ string) (config.Options, error) {
		return config.Options{
			Source:   "/old/source",
			Interval: 30,
			Exclude:  []string{"*.tmp"},
		}, nil
	}

	stdin = strings.NewReader(
		// Source: pick the current value.
		"2\n" +
			// Interval: an invalid choice, then an invalid manual value, and
			// then the default.
			"abc\n" + "3\n" + "0\n" + "1\n" +
			// Log file: pick the default.
			"1\n")

	opts, err := generateConfig("/home/user/.foldersync.yaml", config.Options{
		Replica: "/cli/replica",
	})
	require.NoError(t, err)
	assert.Equal(t, config.Options{
		Source:   "/old/source",
		Replica:  "/cli/replica",
		Interval: config.DefaultInterval,
		LogFile:  config.Default().LogFile,
		Exclude:  []string{"*.tmp"},
	}, opts)

	assert.Contains(t, out.String(), "The interval must be a positive number of seconds.")
	assert.NotContains(t, out.String(), "Replica folder:")
}

func TestSetupConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options", "foldersync.yaml")
	stdout = bytes.NewBuffer(nil)
	stdin = strings.NewReader("1\n1\n1\n")
	getWorkingDirectory = func() (string, error) {
		return "/work/project", nil
	}
	parseOptions = config.ParseFile

	require.NoError(t, SetupConfig(path, config.Options{Interval: 45}))

	opts, err := config.ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.SupportedOptionsVersion, opts.Version)
	assert.Equal(t, "/work/project", opts.Source)
	assert.Equal(t, "/work/project-replica", opts.Replica)
	assert.Equal(t, 45, opts.Interval)
	assert.True(t, filepath.IsAbs(opts.LogFile))
}

func TestValidation(t *testing.T) {
	_, ok := pathValidationFn("  ")
	assert.False(t, ok)
	_, ok = pathValidationFn("/data")
	assert.True(t, ok)

	_, ok = intervalValidationFn("-1")
	assert.False(t, ok)
	_, ok = intervalValidationFn("15")
	assert.True(t, ok)
}

func TestGetters(t *testing.T) {
	out := bytes.NewBuffer(nil)
	stdout = out
	parseOptions = func(_ string) (config.Options, error) {
		return config.Options{Replica: "/backup"}, nil
	}

	cmd := New()
	cmd.SetArgs([]string{"get-replica"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "/backup\n", out.String())

	parseOptions = func(path string) (config.Options, error) {
		return config.Options{}, errors.FileNotFound{Path: path}
	}
	cmd = New()
	cmd.SetArgs([]string{"get-source"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	assert.Error(t, cmd.Execute())
}

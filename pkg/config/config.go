package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// fs is overridden by afero.NewMemMapFs() in the tests.
var fs = afero.NewOsFs()

// optionsFileError is returned when an options file exists but can't be used.
type optionsFileError struct {
	path, reason string
}

func (err optionsFileError) Error() string {
	return err.FriendlyMessage()
}

func (err optionsFileError) FriendlyMessage() string {
	return fmt.Sprintf("The options file %q can't be used: %s\n"+
		"Run `foldersync config` to write a new one.", err.path, err.reason)
}

// readOptionsFile decodes the options file at `path`. Files that don't set a
// version are read as InitialOptionsVersion.
func readOptionsFile(path string) (Options, error) {
	optsBytes, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return Options{}, errors.FileNotFound{Path: path}
		}
		return Options{}, errors.WithContext(err, "read file")
	}

	// Check the version before anything else, so that a file written for
	// another version is reported as such rather than as having unknown
	// fields.
	var header struct {
		Version string `json:"version"`
	}
	if err := yaml.Unmarshal(optsBytes, &header); err != nil {
		return Options{}, optionsFileError{path, fmt.Sprintf("it isn't valid YAML.\n%s", err)}
	}
	if header.Version == "" {
		header.Version = InitialOptionsVersion
	}
	if header.Version != SupportedOptionsVersion {
		return Options{}, optionsFileError{path, fmt.Sprintf(
			"it has version %q, but this version of foldersync reads version %q.",
			header.Version, SupportedOptionsVersion)}
	}

	opts := Options{Version: header.Version}
	err = yaml.UnmarshalStrict(optsBytes, &opts, yaml.DisallowUnknownFields)
	if err != nil {
		return Options{}, optionsFileError{path, fmt.Sprintf(
			"%s\nThe supported fields are: %s.", err, strings.Join(optionFields(), ", "))}
	}
	return opts, nil
}

// optionFields returns the names of the fields an options file may set, in
// the order they're declared in Options.
func optionFields() []string {
	var fields []string
	optsType := reflect.TypeOf(Options{})
	for i := 0; i < optsType.NumField(); i++ {
		name := strings.Split(optsType.Field(i).Tag.Get("json"), ",")[0]
		if name != "" && name != "-" {
			fields = append(fields, name)
		}
	}
	return fields
}

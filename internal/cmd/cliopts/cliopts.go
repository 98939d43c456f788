// Package cliopts loads command options from a yaml file, environment
// variables, and command line flags.
package cliopts

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

type Options struct {
	Filename string
}

type FlagSet interface {
	VisitAll(fn func(*pflag.Flag))
}

// Load configuration from a yaml file into target. To set default values,
// apply them to target before calling Load. Values are matched to fields by
// the 'config' struct field tag.
//
// Environment variables and command line flags layer on top of the file:
// DefaultsFromEnv fills unset flags from the environment, and commands apply
// changed flags over the loaded options.
func Load(target interface{}, opts Options) error {
	if opts.Filename == "" {
		return nil
	}

	return loadFromFile(target, opts)
}

func loadFromFile(target interface{}, opts Options) error {
	fh, err := os.Open(opts.Filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer fh.Close()

	var raw map[string]interface{}
	if err := yaml.NewDecoder(fh).Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode yaml from %s: %w", opts.Filename, err)
	}

	cfg := decodeConfig(target)

	decoder, err := mapstructure.NewDecoder(&cfg)
	if err != nil {
		return err
	}

	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode from %s: %w", opts.Filename, err)
	}

	return nil
}

const fieldTagName = "config"

func decodeConfig(target interface{}) mapstructure.DecoderConfig {
	return mapstructure.DecoderConfig{
		Squash:           true,
		WeaklyTypedInput: true,
		Result:           target,
		TagName:          fieldTagName,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
}

// DefaultsFromEnv looks for an environment variable for any unset flags. When
// an environment variable is found, the flag value is set from the
// environment variable.
//
// The environment variable for a flag has the prefix prepended, dashes
// replaced with underscores, and lowercase converted to uppercase (ex:
// --my-flag would be set from PREFIX_MY_FLAG).
//
// DefaultsFromEnv should be called after FlagSet.Parse, but before any flags
// are used.
func DefaultsFromEnv(prefix string, flags FlagSet) error {
	replacer := strings.NewReplacer("-", "_")
	prefix = prefix + "_"

	var errs []error

	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Changed {
			return
		}

		key := strings.ToUpper(prefix + replacer.Replace(flag.Name))

		v, exists := os.LookupEnv(key)
		if !exists {
			return
		}

		if err := flag.Value.Set(v); err != nil {
			errs = append(errs, fmt.Errorf("failed to set %v from environment variable: %w", flag.Name, err))
		}
	})

	if len(errs) > 0 {
		return MultiError(errs)
	}

	return nil
}

type MultiError []error

func (e MultiError) Error() string {
	errs := ([]error)(e)
	switch len(errs) {
	case 1:
		return errs[0].Error()
	default:
		var sb strings.Builder
		sb.WriteString("multiple errors:")

		for _, err := range errs {
			sb.WriteString("\n    " + err.Error())
		}

		sb.WriteString("\n")

		return sb.String()
	}
}

package cli

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// Config is the optional TOML file named by --config. Command-line flags
// always win over values read from the file.
//
//	format = "json"
//	verbose = true
//	database = "audit.db"
//
//	[test]
//	filter = "*-overlap.yaml"
type Config struct {
	Format   string     `toml:"format"`
	Verbose  bool       `toml:"verbose"`
	Database string     `toml:"database"` // default journal for run and trace
	Test     TestConfig `toml:"test"`
}

// TestConfig holds defaults for the test command.
type TestConfig struct {
	Filter string `toml:"filter"`
}

// LoadConfig decodes the TOML file at path. Unknown keys are rejected so a
// misspelled setting does not silently fall back to its default.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		names := make([]string, len(undecoded))
		for i, key := range undecoded {
			names[i] = key.String()
		}
		return nil, fmt.Errorf("load config %s: undefined items: %s", path, strings.Join(names, ", "))
	}
	return cfg, nil
}

// applyConfig loads opts.ConfigPath, if set, and copies its values into opts
// for every global flag the user did not pass explicitly.
func applyConfig(opts *RootOptions, cmd *cobra.Command) error {
	if opts.ConfigPath == "" {
		return nil
	}
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	flags := cmd.Flags()
	if cfg.Format != "" && !flags.Changed("format") {
		opts.Format = cfg.Format
	}
	if cfg.Verbose && !flags.Changed("verbose") {
		opts.Verbose = true
	}
	opts.Config = cfg
	return nil
}

// defaultDatabase returns the journal path from the config file, if any.
func (o *RootOptions) defaultDatabase() string {
	if o.Config == nil {
		return ""
	}
	return o.Config.Database
}

// defaultFilter returns the test filter from the config file, if any.
func (o *RootOptions) defaultFilter() string {
	if o.Config == nil {
		return ""
	}
	return o.Config.Test.Filter
}

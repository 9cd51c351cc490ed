package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-subprep/internal/config"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/go-subprep/config.yaml
($XDG_CONFIG_HOME/go-subprep/config.yaml when set).
Every setting can be overridden with an environment variable:
prefix SUBPREP_, uppercase, dashes replaced by underscores
(max-workers -> SUBPREP_MAX_WORKERS).

Supported settings:
` + configKeysHelp(),
		Example: `  subprep config set output-dir ~/Documents/subtitles
  subprep config set provider deepseek
  subprep config get max-split-length
  subprep config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// configKeyDescriptions documents each key for help output.
var configKeyDescriptions = map[string]string{
	config.KeyOutputDir:      "Default directory for output files",
	config.KeyProvider:       "Completion provider: openai, deepseek",
	config.KeyModel:          "Model name (empty: provider default)",
	config.KeyBaseURL:        "OpenAI-compatible API root (empty: provider default)",
	config.KeyLanguage:       "Sentence language, ISO 639-1",
	config.KeyMaxSplitLength: "Split sentences longer than this many characters",
	config.KeyMaxWorkers:     "Concurrent completion requests (1-32)",
	config.KeySplitPasses:    "Number of split passes",
	config.KeySegmentLength:  "Target audio range length, e.g. 30m",
	config.KeyProbeWindow:    "Silence probe window, e.g. 60s",
	config.KeyHistoryDir:     "Directory of the request history files",
	config.KeyLogLevel:       "Log level: trace, debug, info, warn, error",
	config.KeyLogFormat:      "Log format: console, json",
}

// configKeysHelp renders the key list for help output.
func configKeysHelp() string {
	var b strings.Builder
	for _, k := range config.Keys {
		fmt.Fprintf(&b, "  %-18s %s\n", k, configKeyDescriptions[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

The value is validated before the file is written. For output-dir, the
directory is created if it doesn't exist.`,
		Example: `  subprep config set output-dir ~/Documents/subtitles
  subprep config set max-workers 8
  subprep config set segment-length 10m`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get the effective value of a setting.

Prints the value to stdout, or nothing if it is empty.`,
		Example: `  subprep config get output-dir`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List the effective value of every setting.

Values include environment variable overrides and defaults.`,
		Example: `  subprep config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if !config.IsKey(key) {
		return fmt.Errorf("unknown config key %q (valid keys: %s): %w",
			key, strings.Join(config.Keys, ", "), config.ErrUnknownKey)
	}

	switch key {
	case config.KeyOutputDir, config.KeyHistoryDir:
		// Store the expanded path for consistency.
		value = config.ExpandPath(value)
		if key == config.KeyOutputDir {
			if err := config.EnsureOutputDir(value); err != nil {
				return fmt.Errorf("invalid output-dir: %w", err)
			}
		}
	}

	if err := env.ConfigStore.Set(key, value); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	if !config.IsKey(key) {
		return fmt.Errorf("unknown config key %q (valid keys: %s): %w",
			key, strings.Join(config.Keys, ", "), config.ErrUnknownKey)
	}

	value, err := env.ConfigStore.Get(key)
	if err != nil {
		return err
	}

	if value != "" {
		fmt.Fprintln(env.Stdout, value)
	}
	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	data, err := env.ConfigStore.List()
	if err != nil {
		return err
	}

	for _, key := range config.Keys {
		fmt.Fprintf(env.Stdout, "%s=%s\n", key, data[key])
	}
	return nil
}

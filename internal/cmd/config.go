package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/chatcore/internal/config"
)

// settableKeys maps each key `config set` accepts to its value type.
var settableKeys = map[string]string{
	"data_dir": "string",
	"engine.background_fetch_timeout_seconds": "int",
	"engine.start_io_on_launch":               "bool",
	"engine.read_only":                        "bool",
	"bridge.queue_size":                       "int",
	"bridge.record_path":                      "string",
	"logging.enabled":                         "bool",
	"logging.level":                           "string",
	"logging.max_size_mb":                     "int",
	"logging.max_backups":                     "int",
	"logging.compress":                        "bool",
	"i18n.language":                           "string",
	"i18n.catalog_dir":                        "string",
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View or modify chatcore configuration",
		Long: `View or modify chatcore configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.
Per-account engine settings live under 'chatcore account-config'.`,
		RunE: runConfigShow,
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current configuration",
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a configuration value",
			Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  chatcore config set bridge.queue_size 512
  chatcore config set logging.level debug
  chatcore config set i18n.language de
  chatcore config set bridge.record_path events.cbor.zst`,
			Args: cobra.ExactArgs(2),
			RunE: runConfigSet,
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create a default config file",
			RunE:  runConfigInit,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show the config file path",
			RunE:  runConfigPath,
		},
	)
	return configCmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "# Config file: (none - using defaults)\n")
	}

	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	keyType, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'chatcore config set --help' to see examples", key)
	}

	// Validate the value based on type
	var typedValue any
	switch keyType {
	case "string":
		typedValue = value
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = b
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		typedValue = n
	}

	// Reject values the validator would refuse before touching the file
	previous := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(key, previous)
		return err
	}

	// Ensure config directory exists
	if err := os.MkdirAll(config.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", configFile)
	return nil
}

const defaultConfigFile = `# chatcore configuration

# Directory holding the account set, logs and event recordings.
# Empty means $XDG_DATA_HOME/chatcore.
data_dir: ""

engine:
  # Upper bound for one background fetch pass, in seconds
  background_fetch_timeout_seconds: 30
  # Start network IO as soon as the account set is open
  start_io_on_launch: true
  # Open the account set without write access
  read_only: false

bridge:
  # Notifications that may wait for delivery
  queue_size: 256
  # Record every raw engine event here (.cbor or .cbor.zst); empty disables
  record_path: ""

logging:
  enabled: true
  # debug, info, warn or error
  level: info
  max_size_mb: 10
  max_backups: 3
  compress: true

i18n:
  # BCP 47 tag for stock strings; empty uses $LANG
  language: ""
  # Extra YAML catalogs overriding the built-in ones
  catalog_dir: ""
`

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'chatcore config set' to modify values", configFile)
	}

	if err := os.MkdirAll(config.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfigFile), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}
	fmt.Fprintln(out, "\nEnvironment variables: CHATCORE_* (e.g., CHATCORE_BRIDGE_QUEUE_SIZE)")
	return nil
}

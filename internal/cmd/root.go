package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/chatcore/internal/config"
	"github.com/Iron-Ham/chatcore/internal/errors"
)

// Execute runs the root command and reports a failure on stderr.
func Execute() error {
	root := newRootCmd()
	err := root.Execute()
	if err != nil {
		printError(root.ErrOrStderr(), err)
	}
	return err
}

// printError labels errors meant for users with their severity and points
// at the log for everything else.
func printError(w io.Writer, err error) {
	if errors.IsUserFacing(err) {
		fmt.Fprintf(w, "%s: %v\n", errors.GetSeverity(err), err)
	} else {
		fmt.Fprintf(w, "Error: %v\nSee `chatcore logs` for details.\n", err)
	}
	if errors.IsRetryable(err) {
		fmt.Fprintln(w, "This may succeed if you try again.")
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chatcore",
		Short: "Multi-account chat engine client",
		Long: `chatcore drives a chat engine holding several accounts: it manages the
account set, runs network IO and background fetches, translates engine
events into typed notifications and issues JSON-RPC calls.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $XDG_CONFIG_HOME/chatcore/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding accounts, logs and recordings")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(),
		newAccountsCmd(),
		newAccountConfigCmd(),
		newConfigureCmd(),
		newIOCmd(),
		newFetchCmd(),
		newRPCCmd(),
		newEventsCmd(),
		newSendCmd(),
		newChatsCmd(),
		newContactsCmd(),
		newBackupCmd(),
		newLogsCmd(),
	)

	return rootCmd
}

func initConfig(cmd *cobra.Command) error {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	flags := cmd.Root().PersistentFlags()
	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("data_dir", flags.Lookup("data-dir"))
	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
	}

	viper.SetEnvPrefix("CHATCORE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., CHATCORE_BRIDGE_QUEUE_SIZE for bridge.queue_size
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file if it exists (ignore error if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && viper.GetString("config") != "" {
			return err
		}
	}
	return nil
}

package cmd

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/chatcore/internal/logging"
	"github.com/Iron-Ham/chatcore/internal/tui/styles"
)

func newLogsCmd() *cobra.Command {
	var (
		tail      int
		level     string
		since     string
		grep      string
		accountID uint32
		component string
		format    string
	)

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "View chatcore logs",
		Long: `View and filter chatcore logs, including rotated and compressed
backups.

Examples:
  # Show the last 50 entries
  chatcore logs

  # Warnings and errors of account 2 from the last hour
  chatcore logs --level warn --account 2 --since 1h

  # Bridge entries as CSV
  chatcore logs --component bridge -n 0 --format csv

  # Search for specific patterns
  chatcore logs --grep "fetch|configure"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			filter := logging.LogFilter{
				Level:     level,
				AccountID: accountID,
				Component: component,
			}
			if since != "" {
				d, err := time.ParseDuration(since)
				if err != nil {
					return fmt.Errorf("invalid duration format: %w", err)
				}
				filter.StartTime = time.Now().Add(-d)
			}

			var grepRegex *regexp.Regexp
			if grep != "" {
				grepRegex, err = regexp.Compile(grep)
				if err != nil {
					return fmt.Errorf("invalid grep pattern: %w", err)
				}
			}

			entries, err := logging.AggregateLogs(cfg.LogDir())
			if err != nil {
				return err
			}
			entries = logging.FilterLogs(entries, filter)
			if grepRegex != nil {
				kept := entries[:0]
				for _, e := range entries {
					if grepRegex.MatchString(logging.FormatText(e)) {
						kept = append(kept, e)
					}
				}
				entries = kept
			}

			// Apply tail limit
			if tail > 0 && len(entries) > tail {
				entries = entries[len(entries)-tail:]
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No matching log entries found.")
				return nil
			}
			if format != "" {
				return logging.ExportLogEntries(out, entries, format)
			}

			color := isTerminal(out)
			for _, e := range entries {
				line := logging.FormatText(e)
				if color {
					line = levelStyle(e.Level).Render(line)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	logsCmd.Flags().IntVarP(&tail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&level, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&since, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&grep, "grep", "", "Filter logs matching pattern (regex)")
	logsCmd.Flags().Uint32Var(&accountID, "account", 0, "Only entries for this account")
	logsCmd.Flags().StringVar(&component, "component", "", "Only entries from this component (accounts, bridge, rpc, ...)")
	logsCmd.Flags().StringVar(&format, "format", "", "Export format instead of text lines: json, text or csv")
	return logsCmd
}

func levelStyle(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return styles.Muted
	case logging.LevelWarn:
		return styles.Warning
	case logging.LevelError:
		return styles.Error
	default:
		return styles.Text
	}
}

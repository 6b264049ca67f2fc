// Package logging provides structured logging for chatcore.
//
// It wraps log/slog with a JSON handler writing to chatcore.log in the log
// directory (or stderr), optional size-based rotation with compressed
// backups, and child loggers that carry persistent attributes:
//
//	logger, err := logging.NewLoggerWithRotation(dir, "INFO", logging.RotationConfig{
//	    MaxSizeMB:  10,
//	    MaxBackups: 3,
//	    Compress:   true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	bridgeLog := logger.WithComponent("bridge").WithAccount(2)
//	bridgeLog.Info("event dispatched", "kind", "incoming_msg")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"event dispatched","component":"bridge","account_id":2,"kind":"incoming_msg"}
//
// The level of a logger and all of its children can be changed at runtime
// with [Logger.SetLevel]; the configuration watcher uses this to apply edits
// to the config file without a restart.
//
// [AggregateLogs], [FilterLogs] and [ExportLogEntries] read the log back for
// the "chatcore logs" command.
//
// Components receive a *Logger through a functional option and default to
// [NopLogger].
package logging

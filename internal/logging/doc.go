// Package logging provides structured logging for dossier.
//
// Log lines are JSON objects written through log/slog. Child loggers carry
// the report, stage and sub-step they run for, so one debug.log can be
// filtered per report or per stage afterwards:
//
//	logger, err := logging.NewLogger(dataDir+"/logs", "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.WithReport(id).WithStage("3_generatie").Info("stage completed", "elapsed_ms", 1200)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"stage completed","report_id":"...","stage":"3_generatie","elapsed_ms":1200}
//
// # Rotation
//
// [RotatingWriter] renames debug.log to debug.log.1 (and shifts older
// backups) once the file passes RotationConfig.MaxSizeMB. With Compress set
// the backups are gzipped in the background. The writer works on any
// afero.Fs, which keeps tests off the real disk.
//
// # Reading logs back
//
// [ReadEntries] parses a log directory, [FilterEntries] narrows the result by
// level, report, stage, time or message text, and [WriteText] renders
// entries for a terminal.
//
// All types are safe for concurrent use. Use [NopLogger] in tests.
package logging

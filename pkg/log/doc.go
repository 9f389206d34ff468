// Package log provides the logging abstraction used by buswriter components.
//
// Components accept a [Logger] and never reach for a global. The zerolog
// adapter is what the CLI wires in; [NoopLogger] is the default for library
// use and tests.
//
//	logger, err := log.NewConsoleLogger(os.Stderr, "info")
//	if err != nil {
//	    return err
//	}
//	logger.Info("flushed", log.Int("bytes", n))
package log

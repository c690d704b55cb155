// Package logger provides structured logging for the dockenv CLI.
//
// Logs are written with zap to stderr so they never mix with command
// output (list tables, JSON, exported archives) on stdout.
//
// Usage:
//
//	log, err := logger.New("console", "info")
//	if err != nil {
//	    return err
//	}
//	log.Info("[*] building virtual env", zap.String("image", "dockenv-a"))
package logger

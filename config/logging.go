package config

import (
	"os"
	"strings"

	"github.com/phuslu/log"
)

// SetupLogging configures the process wide logger, format is "json" or "text"
func SetupLogging(cfg LoggingConfig) {
	var writer log.Writer
	switch strings.ToLower(cfg.Format) {
	case "json":
		writer = &log.IOWriter{Writer: os.Stderr}
	default:
		writer = &log.ConsoleWriter{
			ColorOutput:    log.IsTerminal(os.Stderr.Fd()),
			QuoteString:    true,
			EndWithMessage: true,
			Writer:         os.Stderr,
		}
	}

	log.DefaultLogger = log.Logger{
		Level:      log.ParseLevel(cfg.Level),
		TimeFormat: "2006-01-02 15:04:05.000",
		Writer:     writer,
	}
}

// Package logging builds the logrus loggers used by rk and rk-server.
package logging

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// New returns a logger writing to w at the named level. json selects the JSON formatter
// (server logs); otherwise logs are plain text without colours.
func New(level string, w io.Writer, json bool) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(w)
	if json {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{DisableColors: true, DisableTimestamp: true})
	}

	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}

// Discard is a logger that drops everything.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// LogDirPerm is the permission for the log directory (0700 = rwx------)
	LogDirPerm os.FileMode = 0700
	// LogFilePerm is the permission for log files (0600 = rw-------)
	LogFilePerm os.FileMode = 0600
)

type Options struct {
	Level string
	// Dir receives daily JSON log files. Empty means Output is used with text formatting.
	Dir     string
	Output  io.Writer
	Enabled bool
	Debug   bool
}

// New builds a logger from options. The returned closer releases the log file, if any.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()

	level, err := ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if opts.Debug {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	if !opts.Enabled && !opts.Debug {
		logger.SetOutput(io.Discard)
		return logger, nopCloser{}, nil
	}

	if opts.Dir == "" {
		out := opts.Output
		if out == nil {
			out = os.Stderr
		}
		logger.SetOutput(out)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
		return logger, nopCloser{}, nil
	}

	if err := os.MkdirAll(opts.Dir, LogDirPerm); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(opts.Dir, FileName(time.Now()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, LogFilePerm)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(f)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	return logger, f, nil
}

// ParseLevel accepts logrus level names plus the upper-case names used in
// config files (DEBUG, INFO, WARNING, ERROR, CRITICAL).
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "CRITICAL":
		return logrus.FatalLevel, nil
	case "WARNING":
		return logrus.WarnLevel, nil
	}
	return logrus.ParseLevel(level)
}

// FileName returns the daily log file name for t.
func FileName(t time.Time) string {
	return "medtr_" + t.Format("20060102") + ".log"
}

// OrStandard returns l, or the standard logger when l is nil.
func OrStandard(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return logrus.StandardLogger()
	}
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

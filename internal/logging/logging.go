package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is an alias so callers don't need to import logrus directly
type Fields = logrus.Fields

const (
	FormatText = "text"
	FormatJSON = "json"

	defaultFilename   = "hospital-bulk-server.log"
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 10
)

// Options controls log output
type Options struct {
	Level      string // trace, debug, info, warn, error
	Format     string // text or json
	Console    bool
	Dir        string // empty disables file output
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Setup configures the standard logrus logger.
// The returned Closer releases the rotating log file, if any.
func Setup(opts Options) (io.Closer, error) {
	return setup(logrus.StandardLogger(), opts)
}

func setup(logger *logrus.Logger, opts Options) (io.Closer, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	switch opts.Format {
	case "", FormatText:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	default:
		return nil, fmt.Errorf("invalid log format: %q", opts.Format)
	}

	var writers []io.Writer
	if opts.Console {
		writers = append(writers, os.Stdout)
	}

	var closer io.Closer = nopCloser{}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}

		filename := opts.Filename
		if filename == "" {
			filename = defaultFilename
		}
		maxSize := opts.MaxSizeMB
		if maxSize == 0 {
			maxSize = defaultMaxSizeMB
		}
		maxBackups := opts.MaxBackups
		if maxBackups == 0 {
			maxBackups = defaultMaxBackups
		}

		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, filename),
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     opts.MaxAgeDays,
			LocalTime:  true,
		}
		writers = append(writers, rotator)
		closer = rotator
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	return closer, nil
}

// WithComponent returns an entry tagged with the emitting component
func WithComponent(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}

// StandardLogger returns the process-wide logger
func StandardLogger() *logrus.Logger {
	return logrus.StandardLogger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ErrNoOutput is returned by Validate when every output is disabled
var ErrNoOutput = errors.New("logging: console and file output are both disabled")

// Validate rejects option combinations that would drop every log line
func (o Options) Validate() error {
	if !o.Console && o.Dir == "" {
		return ErrNoOutput
	}
	return nil
}

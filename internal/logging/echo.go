package logging

import (
	"io"

	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"
)

// EchoLogger lets echo write its own messages through logrus.
// It implements echo.Logger.
type EchoLogger struct {
	*logrus.Logger
}

// NewEchoLogger wraps logger, or the standard logger when nil
func NewEchoLogger(logger *logrus.Logger) EchoLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return EchoLogger{Logger: logger}
}

func (l EchoLogger) Output() io.Writer {
	return l.Logger.Out
}

func (l EchoLogger) SetOutput(w io.Writer) {
	l.Logger.SetOutput(w)
}

// Prefix is unused; component names are carried as fields
func (l EchoLogger) Prefix() string {
	return ""
}

func (l EchoLogger) SetPrefix(string) {}

// Level maps the logrus level onto gommon levels.
// Levels gommon has no name for report OFF.
func (l EchoLogger) Level() log.Lvl {
	switch l.Logger.GetLevel() {
	case logrus.DebugLevel, logrus.TraceLevel:
		return log.DEBUG
	case logrus.InfoLevel:
		return log.INFO
	case logrus.WarnLevel:
		return log.WARN
	case logrus.ErrorLevel:
		return log.ERROR
	}
	return log.OFF
}

func (l EchoLogger) SetLevel(lvl log.Lvl) {
	switch lvl {
	case log.DEBUG:
		l.Logger.SetLevel(logrus.DebugLevel)
	case log.INFO:
		l.Logger.SetLevel(logrus.InfoLevel)
	case log.WARN:
		l.Logger.SetLevel(logrus.WarnLevel)
	case log.ERROR:
		l.Logger.SetLevel(logrus.ErrorLevel)
	}
}

func (l EchoLogger) SetHeader(string) {}

func (l EchoLogger) Print(i ...interface{}) {
	l.Logger.Print(i...)
}

func (l EchoLogger) Printf(format string, args ...interface{}) {
	l.Logger.Printf(format, args...)
}

func (l EchoLogger) Printj(j log.JSON) {
	l.Logger.WithFields(Fields(j)).Print()
}

func (l EchoLogger) Debug(i ...interface{}) {
	l.Logger.Debug(i...)
}

func (l EchoLogger) Debugf(format string, args ...interface{}) {
	l.Logger.Debugf(format, args...)
}

func (l EchoLogger) Debugj(j log.JSON) {
	l.Logger.WithFields(Fields(j)).Debug()
}

func (l EchoLogger) Info(i ...interface{}) {
	l.Logger.Info(i...)
}

func (l EchoLogger) Infof(format string, args ...interface{}) {
	l.Logger.Infof(format, args...)
}

func (l EchoLogger) Infoj(j log.JSON) {
	l.Logger.WithFields(Fields(j)).Info()
}

func (l EchoLogger) Warn(i ...interface{}) {
	l.Logger.Warn(i...)
}

func (l EchoLogger) Warnf(format string, args ...interface{}) {
	l.Logger.Warnf(format, args...)
}

func (l EchoLogger) Warnj(j log.JSON) {
	l.Logger.WithFields(Fields(j)).Warn()
}

func (l EchoLogger) Error(i ...interface{}) {
	l.Logger.Error(i...)
}

func (l EchoLogger) Errorf(format string, args ...interface{}) {
	l.Logger.Errorf(format, args...)
}

func (l EchoLogger) Errorj(j log.JSON) {
	l.Logger.WithFields(Fields(j)).Error()
}

func (l EchoLogger) Fatal(i ...interface{}) {
	l.Logger.Fatal(i...)
}

func (l EchoLogger) Fatalf(format string, args ...interface{}) {
	l.Logger.Fatalf(format, args...)
}

func (l EchoLogger) Fatalj(j log.JSON) {
	l.Logger.WithFields(Fields(j)).Fatal()
}

func (l EchoLogger) Panic(i ...interface{}) {
	l.Logger.Panic(i...)
}

func (l EchoLogger) Panicf(format string, args ...interface{}) {
	l.Logger.Panicf(format, args...)
}

func (l EchoLogger) Panicj(j log.JSON) {
	l.Logger.WithFields(Fields(j)).Panic()
}

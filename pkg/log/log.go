// Package log provides a leveled logger backed by logrus. Packages take a log.Logger rather than constructing their
// own so that the CLI can control level and destination in one place.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging interface passed through the codebase.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)

	// WithField returns a logger that adds the given field to every entry.
	WithField(key string, value any) Logger

	// Level returns the minimum level the logger emits.
	Level() Level
}

// Option configures the logger returned by New.
type Option func(*logrus.Logger)

// WithLevel sets the minimum level the logger emits.
func WithLevel(level Level) Option {
	return func(l *logrus.Logger) {
		l.SetLevel(logrus.Level(level))
	}
}

// WithOutput sets the destination the logger writes to.
func WithOutput(output io.Writer) Option {
	return func(l *logrus.Logger) {
		l.SetOutput(output)
	}
}

// WithFormatter sets the logrus formatter used to render entries.
func WithFormatter(formatter logrus.Formatter) Option {
	return func(l *logrus.Logger) {
		l.SetFormatter(formatter)
	}
}

// New returns a new Logger writing to stderr at InfoLevel unless configured otherwise.
func New(opts ...Option) Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(logrus.InfoLevel)
	base.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	for _, opt := range opts {
		opt(base)
	}

	return &logger{entry: logrus.NewEntry(base)}
}

type logger struct {
	entry *logrus.Entry
}

func (l *logger) Debug(args ...any)                 { l.entry.Debug(args...) }
func (l *logger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *logger) Info(args ...any)                  { l.entry.Info(args...) }
func (l *logger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *logger) Warn(args ...any)                  { l.entry.Warn(args...) }
func (l *logger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *logger) Error(args ...any)                 { l.entry.Error(args...) }
func (l *logger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }

func (l *logger) WithField(key string, value any) Logger {
	return &logger{entry: l.entry.WithField(key, value)}
}

func (l *logger) Level() Level {
	return Level(l.entry.Logger.GetLevel())
}

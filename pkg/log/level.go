package log

import (
	"github.com/sirupsen/logrus"

	"github.com/quarry-build/quarry/internal/errors"
)

// Level of logging verbosity.
type Level logrus.Level

const (
	ErrorLevel = Level(logrus.ErrorLevel)
	WarnLevel  = Level(logrus.WarnLevel)
	InfoLevel  = Level(logrus.InfoLevel)
	DebugLevel = Level(logrus.DebugLevel)
)

// AllLevels exposes the levels in increasing verbosity, for CLI help output.
var AllLevels = []Level{ErrorLevel, WarnLevel, InfoLevel, DebugLevel}

// String implements fmt.Stringer.
func (level Level) String() string {
	return logrus.Level(level).String()
}

// ParseLevel takes a level name and returns the matching Level constant.
func ParseLevel(name string) (Level, error) {
	parsed, err := logrus.ParseLevel(name)
	if err != nil {
		return InfoLevel, errors.Errorf("invalid log level %q, supported levels: %v", name, AllLevels)
	}

	return Level(parsed), nil
}

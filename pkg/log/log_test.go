package log_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-build/quarry/pkg/log"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for _, level := range log.AllLevels {
		parsed, err := log.ParseLevel(level.String())
		require.NoError(t, err)
		assert.Equal(t, level, parsed)
	}

	_, err := log.ParseLevel("noisy")
	assert.Error(t, err)
}

func TestLoggerRespectsLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := log.New(log.WithLevel(log.InfoLevel), log.WithOutput(buf))

	logger.Debugf("hidden %s", "detail")
	logger.Infof("visible %s", "message")

	output := buf.String()
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, "visible message")
	assert.Equal(t, log.InfoLevel, logger.Level())
}

func TestWithField(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := log.New(log.WithLevel(log.DebugLevel), log.WithOutput(buf))

	logger.WithField("target", "//lib:foo").Debug("evaluating")

	assert.Contains(t, buf.String(), "//lib:foo")
	assert.Contains(t, buf.String(), "evaluating")
}

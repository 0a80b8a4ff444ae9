package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Check(t *testing.T) {
	assert.NoError(t, DefaultConfig.Check())

	c := DefaultConfig
	c.Level = "loud"
	assert.Error(t, c.Check())

	c = DefaultConfig
	c.Format = "xml"
	assert.Error(t, c.Check())

	c = DefaultConfig
	c.Timestamp = ""
	assert.NoError(t, c.Check())
}

func TestConfig_Merge(t *testing.T) {
	c := DefaultConfig.Merge(Config{Level: "debug", Output: "stdout"})
	assert.Equal(t, "debug", c.Level)
	assert.Equal(t, DefaultConfig.Format, c.Format)
	assert.Equal(t, "stdout", c.Output)
}

func TestConfigureLogger_outputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sagestream.log")
	l := logrus.New()
	ConfigureLogger(l, Config{Level: "trace", Format: "logfmt", Timestamp: "disable", Output: path})
	assert.Equal(t, logrus.TraceLevel, l.GetLevel())
	l.WithField("slot", 42).Trace("applied")
	if f, ok := l.Out.(*os.File); ok {
		require.NoError(t, f.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=applied slot=42")
}

func TestNamespaceFormatter(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	ConfigureLogger(l, Config{Level: "info", Format: "human", Timestamp: "disable"})
	l.WithField(NamespaceField, "sage").Info("hello")
	assert.Contains(t, buf.String(), "[sage        ] hello")

	buf.Reset()
	l.Info("plain")
	assert.Contains(t, buf.String(), "plain")
	assert.NotContains(t, buf.String(), "[")
}

package clilog

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig()
	assert.Equal(t, "info", c.Level)
	assert.Equal(t, string(FormatText), c.Format)
	assert.Equal(t, "log-level", c.Flags.Level)
	assert.Equal(t, "log-format", c.Flags.Format)
}

func TestNewHandlerText(t *testing.T) {
	c := NewConfig()
	var buf bytes.Buffer
	h, err := c.NewHandler(&buf)
	require.NoError(t, err)

	slog.New(h).Info("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "level=INFO")
}

func TestNewHandlerJSON(t *testing.T) {
	c := NewConfig()
	c.Format = string(FormatJSON)
	var buf bytes.Buffer
	h, err := c.NewHandler(&buf)
	require.NoError(t, err)

	slog.New(h).Warn("careful")
	assert.Contains(t, buf.String(), `"msg":"careful"`)
}

func TestNewHandlerUnknownLevel(t *testing.T) {
	c := NewConfig()
	c.Level = "verbose"
	_, err := c.NewHandler(&bytes.Buffer{})
	require.ErrorIs(t, err, ErrUnknownLevel)
}

func TestNewHandlerUnknownFormat(t *testing.T) {
	c := NewConfig()
	c.Format = "xml"
	_, err := c.NewHandler(&bytes.Buffer{})
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRegisterFlagsAndCompletions(t *testing.T) {
	c := NewConfig()
	cmd := &cobra.Command{Use: "root"}
	c.RegisterFlags(cmd.PersistentFlags())

	levelFlag := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, levelFlag)
	assert.Equal(t, "info", levelFlag.DefValue)

	require.NoError(t, c.RegisterCompletions(cmd))
}

func TestErrorLevelFiltersInfo(t *testing.T) {
	c := NewConfig()
	c.Level = "error"
	var buf bytes.Buffer
	h, err := c.NewHandler(&buf)
	require.NoError(t, err)

	logger := slog.New(h)
	logger.Info("should not appear")
	logger.Error("should appear")

	assert.NotContains(t, buf.String(), "should not appear")
	assert.Contains(t, buf.String(), "should appear")
}

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/harun/ctx/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	t.Run("version flag", func(t *testing.T) {
		output, err := execute(t, "", "--version")
		require.NoError(t, err)

		assert.Contains(t, output, "ctx version")
		assert.Contains(t, output, GetVersion())
	})

	t.Run("help flag", func(t *testing.T) {
		output, err := execute(t, "", "--help")
		require.NoError(t, err)

		assert.Contains(t, output, "Trello cards and Obsidian notes")
		assert.Contains(t, output, "ask")
	})

	t.Run("version command", func(t *testing.T) {
		output, err := execute(t, "", "version")
		require.NoError(t, err)
		assert.Equal(t, "ctx version "+GetVersion()+"\n", output)
	})

	t.Run("global flags", func(t *testing.T) {
		cmd := GetRootCmd()

		configFlag := cmd.PersistentFlags().Lookup("config")
		require.NotNil(t, configFlag)
		assert.Equal(t, "", configFlag.DefValue)

		logLevelFlag := cmd.PersistentFlags().Lookup("log-level")
		require.NotNil(t, logLevelFlag)
		assert.Equal(t, "", logLevelFlag.DefValue)
	})
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range GetRootCmd().Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"start", "stop", "status", "ask", "boards", "lists", "cards", "me", "config", "configure", "version"} {
		t.Run(want, func(t *testing.T) {
			assert.True(t, names[want], "%s command should exist", want)
		})
	}
}

func TestGetVersion(t *testing.T) {
	version := GetVersion()
	assert.NotEmpty(t, version)
	assert.True(t, strings.HasPrefix(version, "0."))
}

func TestNewLoggerLevel(t *testing.T) {
	t.Cleanup(func() { logLevel = "" })

	cfg := config.DefaultConfig()
	cfg.Logging.Level = "warn"
	cfg.Logging.File = ""

	t.Run("config level", func(t *testing.T) {
		logLevel = ""
		log, err := newLogger(cfg, &bytes.Buffer{})
		require.NoError(t, err)
		defer log.Close()

		assert.Equal(t, zerolog.WarnLevel, log.GetZerolog().GetLevel())
	})

	t.Run("flag overrides config", func(t *testing.T) {
		logLevel = "debug"
		log, err := newLogger(cfg, &bytes.Buffer{})
		require.NoError(t, err)
		defer log.Close()

		assert.Equal(t, zerolog.DebugLevel, log.GetZerolog().GetLevel())
	})
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunCmd_TicksFlag_DefaultIsPositive(t *testing.T) {
	flag := runCmd.Flags().Lookup("ticks")
	assert.NotNil(t, flag, "ticks flag must be registered")
	assert.Equal(t, "18", flag.DefValue, "default tick count should match the 18-step simulation cycle")
}

func TestRootCmd_ModeFlag_DefaultsToMedium(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("mode")
	assert.NotNil(t, flag, "mode flag must be registered")
	assert.Equal(t, "medium", flag.DefValue)
}

func TestParseMode_RejectsUnknownValue(t *testing.T) {
	_, err := parseMode("catastrophic")
	assert.Error(t, err)
}

func TestParseMode_AcceptsEachValidMode(t *testing.T) {
	for _, s := range []string{"light", "medium", "heavy"} {
		_, err := parseMode(s)
		assert.NoError(t, err, "mode %q should parse", s)
	}
}

func TestNewLogger_FallsBackToInfoOnBadLevel(t *testing.T) {
	logLevel = "not-a-level"
	defer func() { logLevel = "info" }()

	log := newLogger()
	assert.Equal(t, "info", log.GetLevel().String())
}

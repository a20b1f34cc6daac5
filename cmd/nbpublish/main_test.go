package main

import (
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/nbpublish/internal/config"
)

// parseBuildArgs parses argv against the real CLI grammar, resetting the
// build command's flags first so tests do not leak into each other.
func parseBuildArgs(t *testing.T, args ...string) {
	t.Helper()
	CLI.Build.Source = ""
	CLI.Build.Overwrite = nil
	CLI.Build.Jobs = 0
	CLI.Build.SkipPublish = false
	CLI.Build.DryRun = false

	parser, err := kong.New(&CLI)
	require.NoError(t, err)
	_, err = parser.Parse(args)
	require.NoError(t, err)
}

func TestOverwriteFlagUnsetKeepsConfig(t *testing.T) {
	parseBuildArgs(t, "build")

	overwrite := false
	cfg := &config.Config{Overwrite: &overwrite}
	applyBuildFlags(cfg)

	assert.False(t, cfg.OverwriteEnabled(), "config overwrite: false survives when no flag is passed")
}

func TestOverwriteFlagOverridesConfig(t *testing.T) {
	parseBuildArgs(t, "build", "--overwrite")

	overwrite := false
	cfg := &config.Config{Overwrite: &overwrite}
	applyBuildFlags(cfg)

	assert.True(t, cfg.OverwriteEnabled())
}

func TestNoOverwriteFlagOverridesDefault(t *testing.T) {
	parseBuildArgs(t, "build", "--no-overwrite")

	cfg := &config.Config{}
	applyBuildFlags(cfg)

	assert.False(t, cfg.OverwriteEnabled())
}

func TestOverwriteDefaultsTrueWithoutConfigOrFlag(t *testing.T) {
	parseBuildArgs(t, "build")

	cfg := &config.Config{}
	applyBuildFlags(cfg)

	assert.True(t, cfg.OverwriteEnabled())
}

func TestBuildFlagOverrides(t *testing.T) {
	parseBuildArgs(t, "build", "--source", "/data/nb", "--jobs", "8")

	cfg := &config.Config{SourceDir: "./notebooks", Jobs: 2}
	applyBuildFlags(cfg)

	assert.Equal(t, "/data/nb", cfg.SourceDir)
	assert.Equal(t, 8, cfg.Jobs)
}

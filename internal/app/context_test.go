package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotaline/internal/app"
	"quotaline/internal/config"
)

func TestOpenSeedsDefaultTeam(t *testing.T) {
	ws := t.TempDir()
	ctx := context.Background()
	a, err := app.Open(ctx, app.Options{Workspace: ws})
	require.NoError(t, err)
	assert.Equal(t, app.DefaultTeam, a.TeamID)
	assert.Equal(t, 50, a.Config.Scoring.VolumeUploads)
	require.NoError(t, a.Close())

	// reopening finds the stored team rather than seeding again
	a, err = app.Open(ctx, app.Options{Workspace: ws})
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, app.DefaultTeam, a.TeamID)
}

func TestConfigFileWinsAndIsStored(t *testing.T) {
	ws := t.TempDir()
	ctx := context.Background()
	yml := "team:\n  id: nightshift\nscoring:\n  volume_uploads: 20\n"
	require.NoError(t, os.WriteFile(config.Path(ws), []byte(yml), 0o644))

	a, err := app.Open(ctx, app.Options{Workspace: ws})
	require.NoError(t, err)
	assert.Equal(t, "nightshift", a.TeamID)
	assert.Equal(t, 20, a.Config.Scoring.VolumeUploads)
	require.NoError(t, a.Close())

	require.NoError(t, os.Remove(filepath.Join(ws, "quotaline.yml")))
	a, err = app.Open(ctx, app.Options{Workspace: ws})
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, "nightshift", a.TeamID)
	assert.Equal(t, 20, a.Config.Scoring.VolumeUploads)
}

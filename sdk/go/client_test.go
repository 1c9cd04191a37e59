package quotalinesdk_test

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotaline/internal/app"
	"quotaline/internal/server"
	quotalinesdk "quotaline/sdk/go"
)

func newClient(t *testing.T) *quotalinesdk.Client {
	t.Helper()
	a, err := app.Open(context.Background(), app.Options{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	handler, err := server.New(server.Config{
		Engine: a.Engine,
		Access: a.Auth,
		Events: a.Repo,
		Auth: server.AuthConfig{
			JWTSecret:        "sdk-secret",
			AllowActorHeader: true,
			Logger:           log.New(io.Discard, "", 0),
		},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := quotalinesdk.New(srv.URL)
	c.ActorID = "bootstrap"
	return c
}

func TestClientTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	owner, err := c.CreateAdmin(ctx, "Olive", "owner")
	require.NoError(t, err)
	c.ActorID = owner.ID
	uploader, err := c.CreateAdmin(ctx, "Uma", "uploader")
	require.NoError(t, err)

	deadline := time.Now().Add(48 * time.Hour)
	task, err := c.AssignTask(ctx, uploader.ID, quotalinesdk.TaskRequest{
		Title:    "Checklist",
		Type:     "todo",
		Deadline: &deadline,
		Items:    []string{"subtitles", "poster"},
	})
	require.NoError(t, err)
	assert.Equal(t, "active", task.Status)

	_, err = c.AssignTask(ctx, uploader.ID, quotalinesdk.TaskRequest{Title: "Again", Type: "todo", Deadline: &deadline, Items: []string{"x"}})
	var apiErr *quotalinesdk.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 409, apiErr.StatusCode)
	assert.Equal(t, "unfinished_task_exists", apiErr.Code)

	c.ActorID = uploader.ID
	require.NoError(t, c.ToggleItem(ctx, uploader.ID, task.ID, 0, true))
	p, err := c.Progress(ctx, uploader.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Completed)
	assert.Equal(t, 2, p.Target)

	c.ActorID = owner.ID
	done, err := c.CompleteTask(ctx, uploader.ID, task.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)

	profile, err := c.Profile(ctx, uploader.ID)
	require.NoError(t, err)
	assert.Nil(t, profile.CurrentTask)
	assert.Len(t, profile.Admin.Tasks, 1)

	team, err := c.Team(ctx)
	require.NoError(t, err)
	assert.Len(t, team, 2)

	n, err := c.Scan(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	evts, err := c.Events(ctx, 2)
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, "task.completed", evts[0].Type)
}

package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotaline/internal/config"
	"quotaline/internal/db"
	"quotaline/internal/domain"
	"quotaline/internal/events"
	"quotaline/internal/migrate"
	"quotaline/internal/repo"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return repo.Repo{DB: conn}
}

func insertAdmin(t *testing.T, r repo.Repo, id, name string) {
	t.Helper()
	require.NoError(t, r.InsertAdmin(context.Background(), domain.AdminMember{
		ID: id, Name: name, Role: domain.RoleUploader, JoinedAt: base,
	}))
}

func ptr[T any](v T) *T { return &v }

func TestAdminLookupAndDuplicateName(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	insertAdmin(t, r, "a1", "Uma")

	byID, err := r.GetAdmin(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Uma", byID.Name)
	assert.True(t, base.Equal(byID.JoinedAt))

	byName, err := r.GetAdminByName(ctx, "Uma")
	require.NoError(t, err)
	assert.Equal(t, "a1", byName.ID)

	_, err = r.GetAdmin(ctx, "missing")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	err = r.InsertAdmin(ctx, domain.AdminMember{ID: "a2", Name: "Uma", Role: domain.RoleManager, JoinedAt: base})
	assert.ErrorIs(t, err, repo.ErrDuplicateName)
}

func TestSaveAdminTasksRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	insertAdmin(t, r, "a1", "Uma")
	end := base.Add(2 * time.Hour)
	tasks := []domain.Task{
		{ID: "t1", Title: "Quota", Type: domain.TaskTypeTarget, Status: domain.TaskStatusCancelled,
			StartDate: base, Deadline: base.Add(24 * time.Hour), EndDate: &end, Target: ptr(5)},
		{ID: "t2", Title: "Checklist", Type: domain.TaskTypeTodo, Status: domain.TaskStatusActive,
			StartDate: base.Add(3 * time.Hour), Deadline: base.Add(48 * time.Hour),
			Items: []domain.TodoItem{{Text: "poster", Completed: true}, {Text: "subs"}}},
	}
	require.NoError(t, r.SaveAdminTasks(ctx, "a1", nil, tasks))

	got, err := r.GetAdmin(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, got.Tasks, 2)
	assert.Equal(t, "t1", got.Tasks[0].ID)
	require.NotNil(t, got.Tasks[0].Target)
	assert.Equal(t, 5, *got.Tasks[0].Target)
	require.NotNil(t, got.Tasks[0].EndDate)
	assert.True(t, end.Equal(*got.Tasks[0].EndDate))
	assert.Nil(t, got.Tasks[1].Target)
	assert.Equal(t, tasks[1].Items, got.Tasks[1].Items)

	assert.ErrorIs(t, r.SaveAdminTasks(ctx, "ghost", nil, tasks), repo.ErrNotFound)
}

func TestSecondUnfinishedTaskRejected(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	insertAdmin(t, r, "a1", "Uma")
	first := domain.Task{ID: "t1", Title: "One", Type: domain.TaskTypeTarget, Status: domain.TaskStatusIncompleted,
		StartDate: base, Deadline: base.Add(time.Hour), Target: ptr(1)}
	require.NoError(t, r.SaveAdminTasks(ctx, "a1", nil, []domain.Task{first}))

	second := domain.Task{ID: "t2", Title: "Two", Type: domain.TaskTypeTarget, Status: domain.TaskStatusActive,
		StartDate: base, Deadline: base.Add(time.Hour), Target: ptr(1)}
	err := r.SaveAdminTasks(ctx, "a1", []domain.Task{first}, []domain.Task{first, second})
	assert.ErrorIs(t, err, repo.ErrUnfinishedTaskExists)

	got, err := r.GetAdmin(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, got.Tasks, 1, "failed save must not leave partial writes")
}

func TestTransitionTaskOnlyFromExpectedStatus(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	insertAdmin(t, r, "a1", "Uma")
	deadline := base.Add(time.Hour)
	require.NoError(t, r.SaveAdminTasks(ctx, "a1", nil, []domain.Task{{
		ID: "t1", Title: "One", Type: domain.TaskTypeTarget, Status: domain.TaskStatusActive,
		StartDate: base, Deadline: deadline, Target: ptr(3),
	}}))

	changed, err := r.TransitionTask(ctx, "a1", "t1", domain.TaskStatusActive, domain.TaskStatusIncompleted, deadline)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = r.TransitionTask(ctx, "a1", "t1", domain.TaskStatusActive, domain.TaskStatusIncompleted, deadline)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := r.GetAdmin(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusIncompleted, got.Tasks[0].Status)
	require.NotNil(t, got.Tasks[0].EndDate)
	assert.True(t, deadline.Equal(*got.Tasks[0].EndDate))
}

func TestSaveAdminTasksRejectsStaleStatus(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	insertAdmin(t, r, "a1", "Uma")
	deadline := base.Add(time.Hour)
	loaded := []domain.Task{{
		ID: "t1", Title: "One", Type: domain.TaskTypeTodo, Status: domain.TaskStatusActive,
		StartDate: base, Deadline: deadline, Items: []domain.TodoItem{{Text: "poster"}},
	}}
	require.NoError(t, r.SaveAdminTasks(ctx, "a1", nil, loaded))

	changed, err := r.TransitionTask(ctx, "a1", "t1", domain.TaskStatusActive, domain.TaskStatusIncompleted, deadline)
	require.NoError(t, err)
	require.True(t, changed)

	edited := []domain.Task{loaded[0]}
	edited[0].Items = []domain.TodoItem{{Text: "poster", Completed: true}}
	err = r.SaveAdminTasks(ctx, "a1", loaded, edited)
	assert.ErrorIs(t, err, repo.ErrTaskStatusChanged)

	got, err := r.GetAdmin(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusIncompleted, got.Tasks[0].Status)
	assert.False(t, got.Tasks[0].Items[0].Completed)

	// Saving against the current status goes through.
	require.NoError(t, r.SaveAdminTasks(ctx, "a1", got.Tasks, got.Tasks))
}

func TestContentRecordsRoundTrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	require.NoError(t, r.InsertContentRecords(ctx,
		domain.ContentRecord{ID: "c2", Kind: domain.ContentKindSeries, UploadedBy: "Uma", CreatedAt: base.Add(time.Hour),
			Episodes: []domain.Episode{
				{Number: 1, DownloadLinks: []domain.DownloadLink{{URL: ""}}},
				{Number: 2, Title: "Pilot", DownloadLinks: []domain.DownloadLink{{Label: "hd", URL: "https://cdn.example/e2"}}},
			},
			SeasonDownloads: []domain.DownloadLink{{Label: "pack", URL: "https://cdn.example/s"}}},
		domain.ContentRecord{ID: "c1", Title: "Movie", Kind: domain.ContentKindSingle, UploadedBy: "Ravi",
			CreatedAt: base.Add(500 * time.Millisecond), DownloadLinks: []domain.DownloadLink{{URL: "https://cdn.example/m"}}},
	))

	all, err := r.ListContentRecords(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c1", all[0].ID, "ordered by created_at")
	assert.Equal(t, "Movie", all[0].Title)
	require.Len(t, all[1].Episodes, 2)
	assert.Equal(t, "Pilot", all[1].Episodes[1].Title)
	assert.Equal(t, "https://cdn.example/e2", all[1].Episodes[1].DownloadLinks[0].URL)
	assert.Equal(t, "pack", all[1].SeasonDownloads[0].Label)
	assert.True(t, domain.IsCompletedUpload(all[1]))

	mine, err := r.ListContentRecordsByUploader(ctx, "Uma")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "c2", mine[0].ID)
}

func TestTeamConfigStorage(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	_, err := r.SingleTeam(ctx)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	cfg := config.Default("crew")
	cfg.Scoring.VolumeUploads = 10
	require.NoError(t, r.UpsertTeamConfig(ctx, "crew", cfg))

	id, err := r.SingleTeam(ctx)
	require.NoError(t, err)
	assert.Equal(t, "crew", id)
	got, err := r.GetTeamConfig(ctx, "crew")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Scoring.VolumeUploads)
	assert.Equal(t, 168*time.Hour, got.Scoring.RecencyWindow)
}

func TestLatestEventsFilters(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	w := events.Writer{DB: r.DB, Now: func() time.Time { return base }}
	for _, e := range []events.Entry{
		{Type: events.TaskAssigned, EntityKind: "task", EntityID: "t1", AdminID: "a1", ActorID: "m1"},
		{Type: events.TaskItemToggled, EntityKind: "task", EntityID: "t1", AdminID: "a1", ActorID: "a1", Payload: events.Payload{"index": 0}},
		{Type: events.TaskOverdue, EntityKind: "task", EntityID: "t2", AdminID: "a2"},
	} {
		require.NoError(t, w.Append(ctx, e))
	}

	all, err := r.LatestEvents(ctx, repo.EventFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, events.TaskOverdue, all[0].Type, "newest first")
	assert.Equal(t, events.SystemActor, all[0].ActorID)

	forAdmin, err := r.LatestEvents(ctx, repo.EventFilters{AdminID: "a1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, forAdmin, 1)
	assert.Equal(t, events.TaskItemToggled, forAdmin[0].Type)
	assert.JSONEq(t, `{"index":0}`, forAdmin[0].Payload)

	older, err := r.LatestEvents(ctx, repo.EventFilters{BeforeID: forAdmin[0].ID, EntityID: "t1"})
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, events.TaskAssigned, older[0].Type)
}

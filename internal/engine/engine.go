package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"quotaline/internal/config"
	"quotaline/internal/domain"
	"quotaline/internal/events"
	"quotaline/internal/repo"
)

// AdminDirectory stores administrators and owns their task lists.
type AdminDirectory interface {
	ListAdmins(ctx context.Context) ([]domain.AdminMember, error)
	GetAdmin(ctx context.Context, id string) (domain.AdminMember, error)
	// SaveAdminTasks writes tasks only while every stored status still
	// matches loaded, the list read before editing.
	SaveAdminTasks(ctx context.Context, id string, loaded, tasks []domain.Task) error
	// TransitionTask changes status only while the task is still in from.
	TransitionTask(ctx context.Context, adminID, taskID string, from, to domain.TaskStatus, endDate time.Time) (bool, error)
}

// ContentRepository is read-only from the engine's side.
type ContentRepository interface {
	ListContentRecords(ctx context.Context) ([]domain.ContentRecord, error)
}

type Journal interface {
	Append(ctx context.Context, e events.Entry) error
}

type Engine struct {
	Admins  AdminDirectory
	Content ContentRepository
	Journal Journal
	Config  *config.Config
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string

	// Optional writers for admin and content management.
	Registry AdminRegistry
	Importer ContentImporter

	locks *adminLocks
	scans *singleflight.Group
}

// New wires the engine to the SQLite repo and event journal.
func New(r repo.Repo, cfg *config.Config) Engine {
	e := NewWithRepositories(r, r, events.Writer{DB: r.DB}, cfg)
	e.Registry = r
	e.Importer = r
	return e
}

// NewWithRepositories builds an engine over arbitrary collaborators.
func NewWithRepositories(admins AdminDirectory, content ContentRepository, journal Journal, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default("default")
	}
	return Engine{
		Admins:  admins,
		Content: content,
		Journal: journal,
		Config:  cfg,
		Logger:  slog.Default(),
		Now:     time.Now,
		NewID:   uuid.NewString,
		locks:   &adminLocks{},
		scans:   &singleflight.Group{},
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e Engine) scoring() config.Scoring {
	if e.Config == nil {
		return config.Default("").Scoring
	}
	return e.Config.Scoring
}

// record appends to the journal. Journal failures never undo a persisted transition.
func (e Engine) record(ctx context.Context, entry events.Entry) {
	if e.Journal == nil {
		return
	}
	if err := e.Journal.Append(ctx, entry); err != nil {
		e.logger().Warn("journal append failed", slog.String("type", entry.Type), slog.String("entity_id", entry.EntityID), slog.String("error", err.Error()))
	}
}

func (e Engine) getAdmin(ctx context.Context, adminID string) (domain.AdminMember, error) {
	a, err := e.Admins.GetAdmin(ctx, adminID)
	if err != nil {
		return a, repositoryError("get admin", "admin", adminID, err)
	}
	return a, nil
}

func (e Engine) listAdmins(ctx context.Context) ([]domain.AdminMember, error) {
	admins, err := e.Admins.ListAdmins(ctx)
	if err != nil {
		return nil, repositoryError("list admins", "", "", err)
	}
	return admins, nil
}

func (e Engine) listContent(ctx context.Context) ([]domain.ContentRecord, error) {
	records, err := e.Content.ListContentRecords(ctx)
	if err != nil {
		return nil, repositoryError("list content records", "", "", err)
	}
	return records, nil
}

// repositoryError turns a collaborator error into the engine taxonomy.
func repositoryError(op, kind, id string, err error) error {
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	if kind != "" && errors.Is(err, repo.ErrNotFound) {
		return &domain.NotFoundError{Kind: kind, ID: id}
	}
	return &domain.RepositoryError{Op: op, ID: id, Err: err}
}

// adminLocks serializes read-modify-write cycles per admin within a process.
type adminLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var fallbackLocks = &adminLocks{}

func (e Engine) lockAdmin(adminID string) func() {
	l := e.locks
	if l == nil {
		l = fallbackLocks
	}
	l.mu.Lock()
	if l.locks == nil {
		l.locks = map[string]*sync.Mutex{}
	}
	m, ok := l.locks[adminID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[adminID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func cloneTasks(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"quotaline/internal/domain"
	"quotaline/internal/events"
	"quotaline/internal/repo"
)

// AdminRegistry creates admin identities. The engine only needs it for AddAdmin.
type AdminRegistry interface {
	InsertAdmin(ctx context.Context, a domain.AdminMember) error
}

// ContentImporter stores content records on behalf of hosts and tests.
type ContentImporter interface {
	InsertContentRecords(ctx context.Context, records ...domain.ContentRecord) error
}

var (
	errNoRegistry = errors.New("admin registry not configured")
	errNoImporter = errors.New("content importer not configured")
)

// AddAdmin registers a new admin. Names are unique because content records
// reference their uploader by name.
func (e Engine) AddAdmin(ctx context.Context, name string, role domain.Role, actorID string) (domain.AdminMember, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.AdminMember{}, domain.NewValidationError("name", "is required")
	}
	if !role.Valid() {
		return domain.AdminMember{}, domain.NewValidationError("role", "must be one of: owner manager uploader")
	}
	if e.Registry == nil {
		return domain.AdminMember{}, errNoRegistry
	}
	a := domain.AdminMember{ID: e.newID(), Name: name, Role: role, JoinedAt: e.now()}
	if err := e.Registry.InsertAdmin(ctx, a); err != nil {
		if errors.Is(err, repo.ErrDuplicateName) {
			return domain.AdminMember{}, domain.NewValidationError("name", "already taken")
		}
		return domain.AdminMember{}, repositoryError("insert admin", "", a.ID, err)
	}
	e.logger().Info("admin added", slog.String("admin_id", a.ID), slog.String("name", a.Name), slog.String("role", string(role)))
	e.record(ctx, events.Entry{
		Type:       events.AdminAdded,
		EntityKind: "admin",
		EntityID:   a.ID,
		AdminID:    a.ID,
		ActorID:    actorID,
		Payload:    events.Payload{"name": a.Name, "role": role},
	})
	return a, nil
}

func (e Engine) GetAdmin(ctx context.Context, adminID string) (domain.AdminMember, error) {
	return e.getAdmin(ctx, adminID)
}

func (e Engine) ListAdmins(ctx context.Context) ([]domain.AdminMember, error) {
	return e.listAdmins(ctx)
}

// ImportContent stores records, filling in missing ids and kinds.
func (e Engine) ImportContent(ctx context.Context, records []domain.ContentRecord, actorID string) (int, error) {
	if e.Importer == nil {
		return 0, errNoImporter
	}
	for i := range records {
		r := &records[i]
		if strings.TrimSpace(r.UploadedBy) == "" {
			return 0, domain.NewValidationError("uploaded_by", "is required")
		}
		if r.CreatedAt.IsZero() {
			return 0, domain.NewValidationError("created_at", "is required")
		}
		if r.ID == "" {
			r.ID = e.newID()
		}
		switch r.Kind {
		case "":
			r.Kind = domain.ContentKindSingle
		case domain.ContentKindSingle, domain.ContentKindSeries:
		default:
			return 0, domain.NewValidationError("kind", "must be one of: single series")
		}
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := e.Importer.InsertContentRecords(ctx, records...); err != nil {
		return 0, repositoryError("insert content records", "", "", err)
	}
	e.record(ctx, events.Entry{
		Type:       events.ContentImported,
		EntityKind: "content",
		ActorID:    actorID,
		Payload:    events.Payload{"count": len(records)},
	})
	return len(records), nil
}

// AdminProfile is the profile view: the admin, their unfinished task with
// progress, completed upload count and score.
func (e Engine) AdminProfile(ctx context.Context, adminID string) (domain.AdminProfile, error) {
	admin, err := e.getAdmin(ctx, adminID)
	if err != nil {
		return domain.AdminProfile{}, err
	}
	records, err := e.listContent(ctx)
	if err != nil {
		return domain.AdminProfile{}, err
	}
	p := domain.AdminProfile{
		Admin: admin,
		Score: ComputeScore(e.scoring(), admin, records, e.now()),
	}
	if current, ok := admin.UnfinishedTask(); ok {
		progress := ComputeProgress(current, admin.Name, records)
		p.Current = &current
		p.Progress = &progress
	}
	for _, r := range records {
		if r.UploadedBy == admin.Name && domain.IsCompletedUpload(r) {
			p.Uploads++
		}
	}
	return p, nil
}

// TeamScores scores every admin, best first. Ties sort by name.
func (e Engine) TeamScores(ctx context.Context) ([]domain.TeamEntry, error) {
	admins, err := e.listAdmins(ctx)
	if err != nil {
		return nil, err
	}
	records, err := e.listContent(ctx)
	if err != nil {
		return nil, err
	}
	now := e.now()
	w := e.scoring()
	res := make([]domain.TeamEntry, 0, len(admins))
	for _, a := range admins {
		entry := domain.TeamEntry{
			AdminID: a.ID,
			Name:    a.Name,
			Role:    a.Role,
			Score:   ComputeScore(w, a, records, now).Score,
		}
		if current, ok := a.UnfinishedTask(); ok {
			entry.Status = current.Status
		}
		res = append(res, entry)
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Score != res[j].Score {
			return res[i].Score > res[j].Score
		}
		return res[i].Name < res[j].Name
	})
	return res, nil
}

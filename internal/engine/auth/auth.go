package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"quotaline/internal/config"
	"quotaline/internal/domain"
	"quotaline/internal/repo"
)

const (
	PermTaskAssign   = "task.assign"
	PermTaskCancel   = "task.cancel"
	PermTaskComplete = "task.complete"
	PermTaskToggle   = "task.toggle"
	PermTaskScan     = "task.scan"
	PermTeamRead     = "team.read"
	PermAdminWrite   = "admin.write"
	PermContentWrite = "content.write"
)

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
	ActorID    string
	Reason     string
}

func (e ForbiddenError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("permission %s denied for %s: %s", e.Permission, e.ActorID, e.Reason)
	}
	return fmt.Sprintf("permission %s required", e.Permission)
}

// Directory resolves acting admins.
type Directory interface {
	GetAdmin(ctx context.Context, id string) (domain.AdminMember, error)
	GetAdminByName(ctx context.Context, name string) (domain.AdminMember, error)
	ListAdmins(ctx context.Context) ([]domain.AdminMember, error)
}

// Service checks actor permissions against the configured role table.
type Service struct {
	Config    *config.Config
	Directory Directory
}

// ResolveActor finds the acting admin by id, then by name.
func (s Service) ResolveActor(ctx context.Context, actorID string) (domain.AdminMember, error) {
	if actorID == "" {
		return domain.AdminMember{}, ForbiddenError{Reason: "actor required"}
	}
	a, err := s.Directory.GetAdmin(ctx, actorID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return a, err
	}
	a, err = s.Directory.GetAdminByName(ctx, actorID)
	if errors.Is(err, repo.ErrNotFound) {
		return a, ForbiddenError{ActorID: actorID, Reason: "unknown actor"}
	}
	return a, err
}

// Permissions lists the permissions granted to a role, sorted.
func (s Service) Permissions(role domain.Role) []string {
	if s.Config == nil {
		return nil
	}
	r, ok := s.Config.RBAC.Roles[string(role)]
	if !ok {
		return nil
	}
	perms := append([]string(nil), r.Permissions...)
	sort.Strings(perms)
	return perms
}

func (s Service) RoleHas(role domain.Role, perm string) bool {
	for _, p := range s.Permissions(role) {
		if p == perm {
			return true
		}
	}
	return false
}

// Require returns the acting admin if their role grants perm.
func (s Service) Require(ctx context.Context, actorID, perm string) (domain.AdminMember, error) {
	a, err := s.ResolveActor(ctx, actorID)
	if err != nil {
		var fe ForbiddenError
		if errors.As(err, &fe) {
			fe.Permission = perm
			return a, fe
		}
		return a, err
	}
	if !s.RoleHas(a.Role, perm) {
		return a, ForbiddenError{Permission: perm, ActorID: a.ID}
	}
	return a, nil
}

// RequireToggle allows only the task's owning admin to check items off.
func (s Service) RequireToggle(ctx context.Context, actorID, adminID string) error {
	a, err := s.Require(ctx, actorID, PermTaskToggle)
	if err != nil {
		return err
	}
	if a.ID != adminID {
		return ForbiddenError{Permission: PermTaskToggle, ActorID: a.ID, Reason: "only the owning admin may toggle items"}
	}
	return nil
}

// RequireAdminWrite guards admin creation. An empty directory accepts its
// first admin from anyone so a fresh workspace can be bootstrapped.
func (s Service) RequireAdminWrite(ctx context.Context, actorID string) error {
	admins, err := s.Directory.ListAdmins(ctx)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		return nil
	}
	_, err = s.Require(ctx, actorID, PermAdminWrite)
	return err
}

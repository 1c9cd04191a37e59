package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"quotaline/internal/config"
	"quotaline/internal/db"
	"quotaline/internal/engine"
	"quotaline/internal/engine/auth"
	"quotaline/internal/migrate"
	"quotaline/internal/repo"
)

// DefaultTeam is used when neither a flag, a config file nor the DB names a team.
const DefaultTeam = "default"

type Options struct {
	Workspace string
	Team      string
	Logger    *slog.Logger
}

// App bundles everything a host needs to drive the engine.
type App struct {
	DB     *sql.DB
	Repo   repo.Repo
	TeamID string
	Config *config.Config
	Engine engine.Engine
	Auth   auth.Service
}

// Open prepares the workspace database, resolves config and builds the engine.
func Open(ctx context.Context, opts Options) (*App, error) {
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	if _, err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	r := repo.Repo{DB: conn}
	teamID, cfg, err := ResolveTeamAndConfig(ctx, opts.Workspace, opts.Team, r)
	if err != nil {
		conn.Close()
		return nil, err
	}
	eng := engine.New(r, cfg)
	if opts.Logger != nil {
		eng.Logger = opts.Logger
	}
	return &App{
		DB:     conn,
		Repo:   r,
		TeamID: teamID,
		Config: cfg,
		Engine: eng,
		Auth:   auth.Service{Config: cfg, Directory: r},
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// ResolveTeamAndConfig picks the active team and its config. A quotaline.yml
// in the workspace wins and is stored in the DB; otherwise the stored config
// is used, seeding defaults the first time.
func ResolveTeamAndConfig(ctx context.Context, workspace, teamOverride string, r repo.Repo) (string, *config.Config, error) {
	fileCfg, err := config.LoadOptional(workspace)
	if err != nil {
		return "", nil, err
	}
	if fileCfg != nil {
		teamID := teamOverride
		if teamID == "" {
			teamID = fileCfg.Team.ID
		}
		if err := r.UpsertTeamConfig(ctx, teamID, fileCfg); err != nil {
			return "", nil, fmt.Errorf("store config: %w", err)
		}
		return teamID, fileCfg, nil
	}

	teamID := teamOverride
	if teamID == "" {
		id, err := r.SingleTeam(ctx)
		switch {
		case err == nil:
			teamID = id
		case errors.Is(err, repo.ErrNotFound):
			teamID = DefaultTeam
		default:
			return "", nil, err
		}
	}
	cfg, err := r.GetTeamConfig(ctx, teamID)
	if err == nil {
		return teamID, cfg, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return "", nil, err
	}
	cfg = config.Default(teamID)
	if err := r.UpsertTeamConfig(ctx, teamID, cfg); err != nil {
		return "", nil, fmt.Errorf("seed team config: %w", err)
	}
	return teamID, cfg, nil
}

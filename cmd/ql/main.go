package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"quotaline/internal/app"
	"quotaline/internal/config"
	"quotaline/internal/domain"
	"quotaline/internal/engine/auth"
	"quotaline/internal/repo"
	"quotaline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "ql",
	Short: "Quotaline CLI",
	Long: `Quotaline assigns upload quotas to team admins and tracks how they do.
- Admins: team members with a role (owner, manager, uploader). Uploads are
  attributed to an admin by name.
- Tasks: a target task asks for N finished uploads before a deadline; a todo
  task is a checklist. An admin holds at most one unfinished task.
- Scan: active tasks past their deadline that have not met their target become
  incompleted ('ql scan'; 'ql serve' can run it on a schedule).
- Score: 0..10 from the latest target task outcome, upload volume and recent
  uploads ('ql score', 'ql team').
- Event log: every change is journaled, view with 'ql log tail'.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	workspace := viper.GetString("workspace")
	if err := godotenv.Load(filepath.Join(workspace, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: .env:", err)
	}
	viper.SetEnvPrefix("QUOTALINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor", "", "acting admin id or name")
	rootCmd.PersistentFlags().String("team", "", "team id (overrides stored config)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides config)")
	for _, name := range []string{"workspace", "json", "actor", "team", "log-level"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(adminCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(teamCmd())
	rootCmd.AddCommand(contentCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "admin", Short: "Manage team admins"}
	cmd.AddCommand(adminAddCmd())
	cmd.AddCommand(adminListCmd())
	cmd.AddCommand(adminShowCmd())
	return cmd
}

func adminAddCmd() *cobra.Command {
	var name, role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an admin (the first admin needs no actor)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actorID := viper.GetString("actor")
				if err := a.Auth.RequireAdminWrite(ctx, actorID); err != nil {
					return err
				}
				if actor, err := a.Auth.ResolveActor(ctx, actorID); err == nil {
					actorID = actor.ID
				}
				admin, err := a.Engine.AddAdmin(ctx, name, domain.Role(role), actorID)
				if err != nil {
					return err
				}
				return printJSONOrTable(admin)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (matches uploaded_by on content)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleUploader), "owner|manager|uploader")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func adminListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List admins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				admins, err := a.Engine.ListAdmins(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(admins)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Joined", "Tasks", "Current"})
				for _, ad := range admins {
					current := "-"
					if t, ok := ad.UnfinishedTask(); ok {
						current = fmt.Sprintf("%s (%s)", t.Title, t.Status)
					}
					tw.AppendRow(table.Row{ad.ID, ad.Name, ad.Role, ad.JoinedAt.Format(time.DateOnly), len(ad.Tasks), current})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func adminShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <admin>",
		Short: "Show an admin profile with current task, progress and score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				adminID, err := resolveAdmin(ctx, a, args[0])
				if err != nil {
					return err
				}
				if _, err := a.Engine.ScanAndUpdateOverdueTasks(ctx); err != nil {
					a.Engine.Logger.Warn("overdue scan failed", slog.String("error", err.Error()))
				}
				p, err := a.Engine.AdminProfile(ctx, adminID)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Assign and resolve tasks",
		Long:  "Tasks go active -> completed | incompleted | cancelled. Incompleted tasks still block a new assignment until cancelled.",
	}
	cmd.AddCommand(taskAssignCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskProgressCmd())
	cmd.AddCommand(taskCancelCmd())
	cmd.AddCommand(taskCompleteCmd())
	cmd.AddCommand(taskToggleCmd())
	return cmd
}

func taskAssignCmd() *cobra.Command {
	var title, taskType, deadline string
	var target int
	var items []string
	cmd := &cobra.Command{
		Use:   "assign <admin>",
		Short: "Assign a target or todo task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actor, err := a.Auth.Require(ctx, viper.GetString("actor"), auth.PermTaskAssign)
				if err != nil {
					return err
				}
				adminID, err := resolveAdmin(ctx, a, args[0])
				if err != nil {
					return err
				}
				draft := domain.TaskDraft{Title: title, Type: domain.TaskType(taskType), Items: items}
				if deadline != "" {
					d, err := parseDeadline(deadline, a.Engine.Now())
					if err != nil {
						return err
					}
					draft.Deadline = &d
				}
				if cmd.Flags().Changed("target") {
					draft.Target = &target
				}
				task, err := a.Engine.AssignTask(ctx, adminID, draft, actor.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(task)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&taskType, "type", string(domain.TaskTypeTarget), "target|todo")
	cmd.Flags().StringVar(&deadline, "deadline", "", "RFC3339 time or a duration from now such as 72h")
	cmd.Flags().IntVar(&target, "target", 0, "uploads required (target tasks)")
	cmd.Flags().StringArrayVar(&items, "item", nil, "checklist item (todo tasks, repeatable)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("deadline")
	return cmd
}

func taskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <admin>",
		Short: "List an admin's tasks in assignment order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				adminID, err := resolveAdmin(ctx, a, args[0])
				if err != nil {
					return err
				}
				tasks, err := a.Engine.Tasks(ctx, adminID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Type", "Status", "Deadline", "Goal"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, t.Type, t.Status, t.Deadline.Format(time.RFC3339), t.TargetCount()})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func taskProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <admin> <task>",
		Short: "Show derived progress for a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				adminID, err := resolveAdmin(ctx, a, args[0])
				if err != nil {
					return err
				}
				p, err := a.Engine.TaskProgress(ctx, adminID, args[1])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				fmt.Printf("%d/%d (%.1f%%)\n", p.Completed, p.Target, p.Percent)
				return nil
			})
		},
	}
}

func taskCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <admin> <task>",
		Short: "Cancel an active or incompleted task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actor, err := a.Auth.Require(ctx, viper.GetString("actor"), auth.PermTaskCancel)
				if err != nil {
					return err
				}
				adminID, err := resolveAdmin(ctx, a, args[0])
				if err != nil {
					return err
				}
				if err := a.Engine.CancelTask(ctx, adminID, args[1], actor.ID); err != nil {
					return err
				}
				fmt.Println("cancelled", args[1])
				return nil
			})
		},
	}
}

func taskCompleteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "complete <admin> <task>",
		Short: "Mark an active task completed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actor, err := a.Auth.Require(ctx, viper.GetString("actor"), auth.PermTaskComplete)
				if err != nil {
					return err
				}
				adminID, err := resolveAdmin(ctx, a, args[0])
				if err != nil {
					return err
				}
				task, err := a.Engine.CompleteTask(ctx, adminID, args[1], force, actor.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(task)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "complete even when progress is below target")
	return cmd
}

func taskToggleCmd() *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "toggle <admin> <task> <index>",
		Short: "Check (or with --undo uncheck) a todo item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var index int
			if _, err := fmt.Sscanf(args[2], "%d", &index); err != nil {
				return fmt.Errorf("index must be a number: %q", args[2])
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				adminID, err := resolveAdmin(ctx, a, args[0])
				if err != nil {
					return err
				}
				actorID := viper.GetString("actor")
				if err := a.Auth.RequireToggle(ctx, actorID, adminID); err != nil {
					return err
				}
				if err := a.Engine.ToggleTodoItem(ctx, adminID, args[1], index, !undo, adminID); err != nil {
					return err
				}
				p, err := a.Engine.TaskProgress(ctx, adminID, args[1])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "uncheck the item")
	return cmd
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Mark expired active tasks that missed their target as incompleted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if _, err := a.Auth.Require(ctx, viper.GetString("actor"), auth.PermTaskScan); err != nil {
					return err
				}
				n, err := a.Engine.ScanAndUpdateOverdueTasks(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]int{"updated": n})
				}
				fmt.Printf("%d task(s) marked incompleted\n", n)
				return nil
			})
		},
	}
}

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <admin>",
		Short: "Show an admin's performance score breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				adminID, err := resolveAdmin(ctx, a, args[0])
				if err != nil {
					return err
				}
				s, err := a.Engine.ComputeScore(ctx, adminID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(s)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Task", "Volume", "Recency", "Score"})
				tw.AppendRow(table.Row{
					fmt.Sprintf("%.2f", s.TaskTerm),
					fmt.Sprintf("%.2f", s.VolumeTerm),
					fmt.Sprintf("%.2f", s.RecencyTerm),
					fmt.Sprintf("%.1f", s.Score),
				})
				tw.Render()
				return nil
			})
		},
	}
}

func teamCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "team",
		Short: "Rank admins by performance score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if _, err := a.Engine.ScanAndUpdateOverdueTasks(ctx); err != nil {
					a.Engine.Logger.Warn("overdue scan failed", slog.String("error", err.Error()))
				}
				team, err := a.Engine.TeamScores(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(team)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Name", "Role", "Current", "Score"})
				for i, e := range team {
					status := "-"
					if e.Status != "" {
						status = string(e.Status)
					}
					tw.AppendRow(table.Row{i + 1, e.Name, e.Role, status, fmt.Sprintf("%.1f", e.Score)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func contentCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "content", Short: "Content records attributed to admins"}
	cmd.AddCommand(contentImportCmd())
	return cmd
}

func contentImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import content records from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readContentFile(file)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actor, err := a.Auth.Require(ctx, viper.GetString("actor"), auth.PermContentWrite)
				if err != nil {
					return err
				}
				n, err := a.Engine.ImportContent(ctx, records, actor.ID)
				if err != nil {
					return err
				}
				fmt.Printf("imported %d record(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML file with a top-level records list")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// readContentFile accepts either a bare list or a document with a records key.
func readContentFile(path string) ([]domain.ContentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Records []domain.ContentRecord `yaml:"records"`
	}
	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Records) > 0 {
		return doc.Records, nil
	}
	var list []domain.ContentRecord
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("invalid content file %s: %w", path, err)
	}
	return list, nil
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The journal of every change: assignments, toggles, completions, cancellations and scans.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, adminRef, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				f := repo.EventFilters{Type: evtType, EntityID: entityID, Limit: n}
				if adminRef != "" {
					id, err := resolveAdmin(ctx, a, adminRef)
					if err != nil {
						return err
					}
					f.AdminID = id
				}
				events, err := a.Repo.LatestEvents(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Entity", "Actor", "Payload"})
				for _, e := range events {
					tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.EntityKind + ":" + e.EntityID, e.ActorID, e.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&adminRef, "admin", "", "admin id or name")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Team configuration",
		Long:  "The effective config lives in the workspace DB. A quotaline.yml in the workspace overrides and replaces it on every run.",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configImportCmd())
	cmd.AddCommand(configValidateCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if viper.GetBool("json") {
					return printJSON(a.Config)
				}
				return yaml.NewEncoder(os.Stdout).Encode(a.Config)
			})
		},
	}
}

func configImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store a config file as the team config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(file)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				teamID := cfg.Team.ID
				if override := viper.GetString("team"); override != "" {
					teamID = override
				}
				if err := a.Repo.UpsertTeamConfig(ctx, teamID, cfg); err != nil {
					return err
				}
				fmt.Printf("stored config for team %s\n", teamID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "config YAML")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func configValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file without storing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = config.Path(viper.GetString("workspace"))
			}
			if _, err := config.FromFile(file); err != nil {
				return err
			}
			fmt.Println("config valid:", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "config YAML (defaults to the workspace quotaline.yml)")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath, schedule string
	var allowActorHeader, enableDevLogin bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				logger := a.Engine.Logger
				authCfg := server.AuthConfig{
					JWTSecret:        viper.GetString("jwt_secret"),
					AllowActorHeader: allowActorHeader,
					EnableDevLogin:   enableDevLogin,
					Logger:           slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
				}
				if authCfg.JWTSecret == "" && !allowActorHeader {
					return fmt.Errorf("QUOTALINE_JWT_SECRET is required for bearer auth")
				}
				handler, err := server.New(server.Config{
					Engine:   a.Engine,
					Access:   a.Auth,
					Events:   a.Repo,
					BasePath: basePath,
					Auth:     authCfg,
					Logger:   logger,
				})
				if err != nil {
					return err
				}

				if schedule == "" {
					schedule = a.Config.Scan.Schedule
				}
				if schedule != "" {
					c := cron.New()
					if _, err := c.AddFunc(schedule, func() {
						n, err := a.Engine.ScanAndUpdateOverdueTasks(ctx)
						if err != nil {
							logger.Error("scheduled scan failed", slog.String("error", err.Error()))
							return
						}
						logger.Info("scheduled scan", slog.Int("updated", n))
					}); err != nil {
						return fmt.Errorf("scan schedule %q: %w", schedule, err)
					}
					c.Start()
					defer func() { <-c.Stop().Done() }()
					logger.Info("scan scheduled", slog.String("schedule", schedule))
				}

				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				logger.Info("serving quotaline api",
					slog.String("addr", addr),
					slog.String("base_path", basePath),
					slog.String("team", a.TeamID))
				fmt.Printf("Serving Quotaline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				logger.Info("server stopped")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().StringVar(&schedule, "scan-schedule", "", "cron expression for overdue scans (overrides scan.schedule)")
	cmd.Flags().BoolVar(&allowActorHeader, "allow-actor-header", false, "trust X-Actor-Id without a token (local use only)")
	cmd.Flags().BoolVar(&enableDevLogin, "enable-dev-login", false, "expose POST /auth/dev/login for authenticated callers")
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a, err := app.Open(ctx, app.Options{
		Workspace: viper.GetString("workspace"),
		Team:      viper.GetString("team"),
	})
	if err != nil {
		return err
	}
	defer a.Close()
	level := a.Config.LogLevel()
	if override := viper.GetString("log-level"); override != "" {
		if err := level.UnmarshalText([]byte(override)); err != nil {
			return fmt.Errorf("invalid --log-level %q", override)
		}
	}
	a.Engine.Logger = newLogger(level)
	return fn(ctx, a)
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveAdmin accepts an admin id or a display name.
func resolveAdmin(ctx context.Context, a *app.App, ref string) (string, error) {
	if ad, err := a.Repo.GetAdmin(ctx, ref); err == nil {
		return ad.ID, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return "", err
	}
	ad, err := a.Repo.GetAdminByName(ctx, ref)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", &domain.NotFoundError{Kind: "admin", ID: ref}
		}
		return "", err
	}
	return ad.ID, nil
}

// parseDeadline accepts an RFC3339 timestamp or a Go duration relative to now.
func parseDeadline(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := time.ParseDuration(strings.TrimPrefix(s, "+"))
	if err != nil {
		return time.Time{}, fmt.Errorf("deadline %q is neither RFC3339 nor a duration", s)
	}
	return now.UTC().Add(d), nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

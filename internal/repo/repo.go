package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"quotaline/internal/config"
	"quotaline/internal/domain"
)

// Repo is the SQLite admin directory and content repository.
type Repo struct {
	DB *sql.DB
}

var (
	ErrNotFound = errors.New("not found")
	// ErrUnfinishedTaskExists is returned when a write would leave an admin
	// with two Active/Incompleted tasks.
	ErrUnfinishedTaskExists = errors.New("admin already has an unfinished task")
	ErrDuplicateName        = errors.New("admin name already taken")
	// ErrTaskStatusChanged is returned when a stored task no longer has the
	// status the caller loaded.
	ErrTaskStatusChanged = errors.New("task status changed since it was loaded")
)

// timeLayout keeps a fixed-width fraction so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func (r Repo) InsertAdmin(ctx context.Context, a domain.AdminMember) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO admins(id,name,role,joined_at) VALUES (?,?,?,?)`,
		a.ID, a.Name, string(a.Role), formatTime(a.JoinedAt))
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: admins.name") {
		return ErrDuplicateName
	}
	return err
}

func (r Repo) GetAdmin(ctx context.Context, id string) (domain.AdminMember, error) {
	return r.getAdminWhere(ctx, `id=?`, id)
}

func (r Repo) GetAdminByName(ctx context.Context, name string) (domain.AdminMember, error) {
	return r.getAdminWhere(ctx, `name=?`, name)
}

func (r Repo) getAdminWhere(ctx context.Context, where string, arg any) (domain.AdminMember, error) {
	var a domain.AdminMember
	var role, joined string
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,role,joined_at FROM admins WHERE `+where, arg).
		Scan(&a.ID, &a.Name, &role, &joined)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.Role = domain.Role(role)
	if a.JoinedAt, err = parseTime(joined); err != nil {
		return a, fmt.Errorf("admin %s joined_at: %w", a.ID, err)
	}
	tasks, err := r.listTasks(ctx, `WHERE admin_id=?`, a.ID)
	if err != nil {
		return a, err
	}
	a.Tasks = tasks[a.ID]
	return a, nil
}

// ListAdmins returns every admin with their full task history, ordered by name.
func (r Repo) ListAdmins(ctx context.Context) ([]domain.AdminMember, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,role,joined_at FROM admins ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AdminMember
	for rows.Next() {
		var a domain.AdminMember
		var role, joined string
		if err := rows.Scan(&a.ID, &a.Name, &role, &joined); err != nil {
			return nil, err
		}
		a.Role = domain.Role(role)
		if a.JoinedAt, err = parseTime(joined); err != nil {
			return nil, fmt.Errorf("admin %s joined_at: %w", a.ID, err)
		}
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	tasks, err := r.listTasks(ctx, ``)
	if err != nil {
		return nil, err
	}
	for i := range res {
		res[i].Tasks = tasks[res[i].ID]
	}
	return res, nil
}

func (r Repo) listTasks(ctx context.Context, where string, args ...any) (map[string][]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT admin_id,id,title,type,status,start_date,deadline,end_date,target,items_json
FROM admin_tasks `+where+` ORDER BY admin_id, position ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string][]domain.Task{}
	for rows.Next() {
		var (
			adminID, typ, status, start, deadline string
			t                                     domain.Task
			endDate, itemsJSON                    sql.NullString
			target                                sql.NullInt64
		)
		if err := rows.Scan(&adminID, &t.ID, &t.Title, &typ, &status, &start, &deadline, &endDate, &target, &itemsJSON); err != nil {
			return nil, err
		}
		t.Type = domain.TaskType(typ)
		t.Status = domain.TaskStatus(status)
		if t.StartDate, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("task %s start_date: %w", t.ID, err)
		}
		if t.Deadline, err = parseTime(deadline); err != nil {
			return nil, fmt.Errorf("task %s deadline: %w", t.ID, err)
		}
		if endDate.Valid {
			end, err := parseTime(endDate.String)
			if err != nil {
				return nil, fmt.Errorf("task %s end_date: %w", t.ID, err)
			}
			t.EndDate = &end
		}
		if target.Valid {
			v := int(target.Int64)
			t.Target = &v
		}
		if itemsJSON.Valid && itemsJSON.String != "" {
			if err := json.Unmarshal([]byte(itemsJSON.String), &t.Items); err != nil {
				return nil, fmt.Errorf("task %s items: %w", t.ID, err)
			}
		}
		res[adminID] = append(res[adminID], t)
	}
	return res, rows.Err()
}

// SaveAdminTasks persists the admin's ordered task list in one transaction.
// Tasks are upserted by id; list order becomes the stored position. Each
// existing row is only overwritten while its stored status still equals the
// status in loaded, the list the caller read before editing. A mismatch
// rolls back the whole save with ErrTaskStatusChanged.
func (r Repo) SaveAdminTasks(ctx context.Context, adminID string, loaded, tasks []domain.Task) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM admins WHERE id=?`, adminID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	expected := make(map[string]domain.TaskStatus, len(loaded))
	for _, t := range loaded {
		expected[t.ID] = t.Status
	}
	for i, t := range tasks {
		want, ok := expected[t.ID]
		if !ok {
			want = t.Status
		}
		var items any
		if t.Type == domain.TaskTypeTodo {
			b, err := json.Marshal(t.Items)
			if err != nil {
				return err
			}
			items = string(b)
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO admin_tasks(id,admin_id,position,title,type,status,start_date,deadline,end_date,target,items_json)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET position=excluded.position, title=excluded.title, status=excluded.status,
  end_date=excluded.end_date, target=excluded.target, items_json=excluded.items_json
WHERE admin_tasks.admin_id=excluded.admin_id AND admin_tasks.status=?`,
			t.ID, adminID, i, t.Title, string(t.Type), string(t.Status), formatTime(t.StartDate), formatTime(t.Deadline),
			nullableTime(t.EndDate), nullableInt(t.Target), items, string(want))
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed: admin_tasks.admin_id") {
				return ErrUnfinishedTaskExists
			}
			return fmt.Errorf("save task %s: %w", t.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("save task %s: %w", t.ID, err)
		}
		if n == 0 {
			return fmt.Errorf("save task %s: %w", t.ID, ErrTaskStatusChanged)
		}
	}
	return tx.Commit()
}

// TransitionTask moves a task from one status to another only if it is still
// in the expected status. It reports whether a row changed.
func (r Repo) TransitionTask(ctx context.Context, adminID, taskID string, from, to domain.TaskStatus, endDate time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE admin_tasks SET status=?, end_date=? WHERE id=? AND admin_id=? AND status=?`,
		string(to), formatTime(endDate), taskID, adminID, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r Repo) UpsertTeamConfig(ctx context.Context, teamID string, cfg *config.Config) error {
	return upsertTeamConfig(ctx, r.DB, nil, teamID, cfg)
}

func (r Repo) UpsertTeamConfigTx(ctx context.Context, tx *sql.Tx, teamID string, cfg *config.Config) error {
	return upsertTeamConfig(ctx, nil, tx, teamID, cfg)
}

func upsertTeamConfig(ctx context.Context, db *sql.DB, tx *sql.Tx, teamID string, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config nil")
	}
	cfg.Team.ID = teamID
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	now := formatTime(time.Now())
	exec := func(query string, args ...any) (sql.Result, error) {
		if tx != nil {
			return tx.ExecContext(ctx, query, args...)
		}
		return db.ExecContext(ctx, query, args...)
	}
	_, err = exec(`INSERT INTO team_configs(team_id,config_json,created_at,updated_at) VALUES (?,?,?,?)
ON CONFLICT(team_id) DO UPDATE SET config_json=excluded.config_json, updated_at=excluded.updated_at`, teamID, string(payload), now, now)
	return err
}

func (r Repo) GetTeamConfig(ctx context.Context, teamID string) (*config.Config, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT config_json FROM team_configs WHERE team_id=?`, teamID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, err
	}
	if cfg.Team.ID == "" {
		cfg.Team.ID = teamID
	}
	return &cfg, cfg.Validate()
}

// SingleTeam returns the only stored team config id.
func (r Repo) SingleTeam(ctx context.Context) (string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT team_id FROM team_configs`)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", ErrNotFound
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("multiple teams exist; specify --team")
	}
}

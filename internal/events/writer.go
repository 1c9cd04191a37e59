package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TaskAssigned    = "task.assigned"
	TaskCancelled   = "task.cancelled"
	TaskCompleted   = "task.completed"
	TaskOverdue     = "task.overdue"
	TaskItemToggled = "task.item.toggled"
	AdminAdded      = "admin.added"
	ContentImported = "content.imported"
)

// SystemActor is recorded for transitions no person asked for, like the overdue scan.
const SystemActor = "system"

type Payload map[string]any

// Entry is one journal line.
type Entry struct {
	Type       string
	EntityKind string
	EntityID   string
	AdminID    string
	ActorID    string
	Payload    Payload
}

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

// Append writes an entry outside any transaction.
func (w Writer) Append(ctx context.Context, e Entry) error {
	return w.append(ctx, w.DB, e)
}

// AppendTx writes an entry inside tx.
func (w Writer) AppendTx(ctx context.Context, tx *sql.Tx, e Entry) error {
	return w.append(ctx, tx, e)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (w Writer) append(ctx context.Context, db execer, e Entry) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if e.Payload == nil {
		e.Payload = Payload{}
	}
	if e.ActorID == "" {
		e.ActorID = SystemActor
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = db.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,admin_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, e.Type, e.EntityKind, nullable(e.EntityID), nullable(e.AdminID), e.ActorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

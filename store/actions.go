package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QueuedAction is one deferred mutation against a remote order record,
// held locally until it can be replayed. Delivery is at-least-once: a
// replay interrupted mid-flight leaves the action queued and it will be
// retried, so patches must be absolute field-sets rather than increments.
type QueuedAction struct {
	ID        string         `json:"id"`
	TargetID  string         `json:"target_id"`
	Patch     map[string]any `json:"patch"`
	Retries   int            `json:"retries"`
	CreatedAt time.Time      `json:"created_at"`
}

const actionTimeLayout = "2006-01-02 15:04:05.000"

// EnqueueAction appends an action to the persistent queue. The ID is
// assigned when empty.
func (db *DB) EnqueueAction(a *QueuedAction) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	patch, err := json.Marshal(a.Patch)
	if err != nil {
		return fmt.Errorf("enqueue action: marshal patch: %w", err)
	}
	_, err = db.Exec(`INSERT INTO queued_actions (id, target_id, patch, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.TargetID, string(patch), a.CreatedAt.UTC().Format(actionTimeLayout))
	if err != nil {
		return fmt.Errorf("enqueue action: %w", err)
	}
	return nil
}

// ListPendingActions returns queued actions in FIFO order by creation
// time. Replay order matters within a target: a pickup enqueued before a
// delivery must be applied first.
func (db *DB) ListPendingActions(limit int) ([]*QueuedAction, error) {
	rows, err := db.Query(`SELECT id, target_id, patch, retries, created_at FROM queued_actions ORDER BY created_at, rowid LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*QueuedAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// DequeueAction removes an action after successful replay. Removing an
// absent id is a no-op.
func (db *DB) DequeueAction(id string) error {
	_, err := db.Exec(`DELETE FROM queued_actions WHERE id = ?`, id)
	return err
}

// IncrementActionRetries bumps the retry counter after a failed replay.
func (db *DB) IncrementActionRetries(id string) error {
	_, err := db.Exec(`UPDATE queued_actions SET retries = retries + 1 WHERE id = ?`, id)
	return err
}

// CountPendingActions returns the queue depth.
func (db *DB) CountPendingActions() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM queued_actions`).Scan(&n)
	return n, err
}

func scanAction(rows *sql.Rows) (*QueuedAction, error) {
	var a QueuedAction
	var patch, createdAt string
	if err := rows.Scan(&a.ID, &a.TargetID, &patch, &a.Retries, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(patch), &a.Patch); err != nil {
		return nil, fmt.Errorf("scan action %s: bad patch: %w", a.ID, err)
	}
	a.CreatedAt = scanTime(createdAt)
	return &a, nil
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/reachops/outreach-gateway/internal/domain"
)

// SnapshotRepo implements metrics.SnapshotStore against metrics_snapshots.
type SnapshotRepo struct{ db *sql.DB }

// NewSnapshotRepo creates a Postgres-backed metrics snapshot store.
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

func (r *SnapshotRepo) InsertSnapshot(ctx context.Context, snap *domain.MetricsSnapshot) error {
	counters, err := json.Marshal(snap.Counters)
	if err != nil {
		return fmt.Errorf("marshal counters: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO metrics_snapshots (id, source, request_id, counters, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, snap.ID, snap.Source, snap.RequestID, counters, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert metrics snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepo) ListSnapshots(ctx context.Context, source string, limit, offset int) ([]domain.MetricsSnapshot, int, error) {
	where := ""
	args := []interface{}{}
	if source != "" {
		args = append(args, source)
		where = " WHERE source = $1"
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM metrics_snapshots"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count metrics snapshots: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`
		SELECT id, source, request_id, counters, created_at
		FROM metrics_snapshots%s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list metrics snapshots: %w", err)
	}
	defer rows.Close()

	var out []domain.MetricsSnapshot
	for rows.Next() {
		var snap domain.MetricsSnapshot
		var counters []byte
		if err := rows.Scan(&snap.ID, &snap.Source, &snap.RequestID, &counters, &snap.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan metrics snapshot: %w", err)
		}
		if len(counters) > 0 {
			if err := json.Unmarshal(counters, &snap.Counters); err != nil {
				return nil, 0, fmt.Errorf("decode counters: %w", err)
			}
		}
		out = append(out, snap)
	}
	return out, total, nil
}

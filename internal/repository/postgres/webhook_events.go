package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/service/ingest"
)

// EventRepo implements ingest.EventStore against the webhook_events table.
// The (provider_slug, event_key) unique constraint is what turns concurrent
// deliveries of the same event into a single row.
type EventRepo struct{ db *sql.DB }

// NewEventRepo creates a Postgres-backed webhook event store.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, provider_slug, event_key, event_type, status, payload,
       replay_count, last_replay_at, last_error, org_id, company_id,
       created_at, processed_at`

func (r *EventRepo) Insert(ctx context.Context, event *domain.WebhookEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_events
			(id, provider_slug, event_key, event_type, status, payload,
			 replay_count, last_replay_at, last_error, org_id, company_id,
			 created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, event.ID, event.ProviderSlug, event.EventKey, event.EventType, event.Status,
		jsonArg(event.Payload), event.ReplayCount, event.LastReplayAt, event.LastError,
		event.OrgID, event.CompanyID, event.CreatedAt, event.ProcessedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ingest.ErrDuplicateEvent
		}
		return fmt.Errorf("insert webhook event: %w", err)
	}
	return nil
}

func (r *EventRepo) UpdateByKey(ctx context.Context, provider, eventKey string, u ingest.EventUpdate) error {
	sets := []string{}
	args := []interface{}{}
	add := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.Status != nil {
		add("status", *u.Status)
	}
	if u.Payload != nil {
		add("payload", jsonArg(u.Payload))
	}
	if u.LastError != nil {
		add("last_error", *u.LastError)
	}
	if u.ReplayCount != nil {
		add("replay_count", *u.ReplayCount)
	}
	if u.LastReplayAt != nil {
		add("last_replay_at", *u.LastReplayAt)
	}
	if u.ProcessedAt != nil {
		add("processed_at", *u.ProcessedAt)
	}
	if u.OrgID != nil {
		add("org_id", *u.OrgID)
	}
	if u.CompanyID != nil {
		add("company_id", *u.CompanyID)
	}
	if len(sets) == 0 {
		return nil
	}

	q := fmt.Sprintf("UPDATE webhook_events SET %s WHERE provider_slug = $%d AND event_key = $%d",
		strings.Join(sets, ", "), len(args)+1, len(args)+2)
	args = append(args, provider, eventKey)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update webhook event: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ingest.ErrEventNotFound
	}
	return nil
}

func (r *EventRepo) Get(ctx context.Context, provider, eventKey string) (*domain.WebhookEvent, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM webhook_events
		WHERE provider_slug = $1 AND event_key = $2
	`, provider, eventKey)

	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ingest.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook event: %w", err)
	}
	return event, nil
}

func (r *EventRepo) List(ctx context.Context, f ingest.EventFilter) ([]domain.WebhookEvent, int, error) {
	where, args := eventWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM webhook_events"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count webhook events: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf("SELECT %s FROM webhook_events%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		eventColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list webhook events: %w", err)
	}
	defer rows.Close()

	var out []domain.WebhookEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan webhook event: %w", err)
		}
		out = append(out, *event)
	}
	return out, total, nil
}

// eventWhere builds the WHERE clause shared by the count and page queries.
func eventWhere(f ingest.EventFilter) (string, []interface{}) {
	conds := []string{}
	args := []interface{}{}
	add := func(cond string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Provider != "" {
		add("provider_slug = $%d", f.Provider)
	}
	if f.EventType != "" {
		add("event_type = $%d", f.EventType)
	}
	if f.OrgID != "" {
		add("org_id = $%d", f.OrgID)
	}
	if f.CompanyID != "" {
		add("company_id = $%d", f.CompanyID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}
	if f.Reason != "" {
		add("payload -> '_dead_letter' ->> 'reason' = $%d", f.Reason)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanEvent(row rowScanner) (*domain.WebhookEvent, error) {
	e := &domain.WebhookEvent{}
	var payload []byte
	if err := row.Scan(
		&e.ID, &e.ProviderSlug, &e.EventKey, &e.EventType, &e.Status, &payload,
		&e.ReplayCount, &e.LastReplayAt, &e.LastError, &e.OrgID, &e.CompanyID,
		&e.CreatedAt, &e.ProcessedAt,
	); err != nil {
		return nil, err
	}
	e.Payload = jsonMap(payload)
	return e, nil
}

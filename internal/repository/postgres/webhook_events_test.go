package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/reachops/outreach-gateway/internal/domain"
	"github.com/reachops/outreach-gateway/internal/service/ingest"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { db.Close() }
}

var eventRowColumns = []string{
	"id", "provider_slug", "event_key", "event_type", "status", "payload",
	"replay_count", "last_replay_at", "last_error", "org_id", "company_id",
	"created_at", "processed_at",
}

func TestEventRepoInsertAssignsID(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO webhook_events").
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := &domain.WebhookEvent{
		ProviderSlug: "smartlead",
		EventKey:     "evt-1",
		EventType:    "reply",
		Status:       domain.EventAccepted,
		Payload:      map[string]any{"event": "reply"},
	}
	if err := NewEventRepo(db).Insert(context.Background(), event); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if event.ID == "" {
		t.Fatal("Insert should assign an id")
	}
	if event.CreatedAt.IsZero() {
		t.Fatal("Insert should stamp created_at")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEventRepoInsertDuplicate(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO webhook_events").
		WillReturnError(&pq.Error{Code: "23505"})

	event := &domain.WebhookEvent{
		ID:           "evt-id",
		ProviderSlug: "smartlead",
		EventKey:     "evt-1",
		EventType:    "reply",
		Status:       domain.EventAccepted,
		CreatedAt:    time.Now().UTC(),
	}
	err := NewEventRepo(db).Insert(context.Background(), event)
	if !errors.Is(err, ingest.ErrDuplicateEvent) {
		t.Fatalf("expected ErrDuplicateEvent, got %v", err)
	}
}

func TestEventRepoUpdateByKeySparseSet(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE webhook_events SET status = ").
		WithArgs("dead_letter", "projection exploded", "smartlead", "evt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	status := domain.EventDeadLetter
	lastErr := "projection exploded"
	err := NewEventRepo(db).UpdateByKey(context.Background(), "smartlead", "evt-1", ingest.EventUpdate{
		Status:    &status,
		LastError: &lastErr,
	})
	if err != nil {
		t.Fatalf("UpdateByKey: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEventRepoUpdateByKeyNotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE webhook_events SET status = ").
		WillReturnResult(sqlmock.NewResult(0, 0))

	status := domain.EventReplayed
	err := NewEventRepo(db).UpdateByKey(context.Background(), "smartlead", "missing", ingest.EventUpdate{Status: &status})
	if !errors.Is(err, ingest.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestEventRepoUpdateByKeyNoFields(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	if err := NewEventRepo(db).UpdateByKey(context.Background(), "smartlead", "evt-1", ingest.EventUpdate{}); err != nil {
		t.Fatalf("empty update should be a no-op, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("empty update should not touch the database: %v", err)
	}
}

func TestEventRepoGetNotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM webhook_events").
		WillReturnError(sql.ErrNoRows)

	_, err := NewEventRepo(db).Get(context.Background(), "smartlead", "missing")
	if !errors.Is(err, ingest.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestEventRepoGetScansPayload(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM webhook_events").
		WithArgs("smartlead", "evt-1").
		WillReturnRows(sqlmock.NewRows(eventRowColumns).AddRow(
			"evt-id", "smartlead", "evt-1", "reply", "dead_letter",
			[]byte(`{"event":"reply","_dead_letter":{"reason":"projection_failure"}}`),
			2, nil, "boom", nil, nil, created, nil,
		))

	event, err := NewEventRepo(db).Get(context.Background(), "smartlead", "evt-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if event.Status != domain.EventDeadLetter {
		t.Fatalf("status = %s", event.Status)
	}
	if event.Payload["event"] != "reply" {
		t.Fatalf("payload not decoded: %#v", event.Payload)
	}
	if rec, ok := domain.DeadLetterOf(event.Payload); !ok || rec.Reason != "projection_failure" {
		t.Fatalf("dead-letter sub-record not preserved: %#v", event.Payload)
	}
	if event.OrgID != nil {
		t.Fatalf("org id should stay nil, got %v", *event.OrgID)
	}
	if event.ReplayCount != 2 || event.LastError != "boom" {
		t.Fatalf("replay fields = %d / %q", event.ReplayCount, event.LastError)
	}
}

func TestEventRepoListAppliesFilter(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("smartlead", sqlmock.AnyArg(), "projection_failure", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT id, provider_slug, event_key").
		WithArgs("smartlead", sqlmock.AnyArg(), "projection_failure", from, to, 25, 0).
		WillReturnRows(sqlmock.NewRows(eventRowColumns).AddRow(
			"evt-id", "smartlead", "evt-1", "reply", "dead_letter",
			[]byte(`{"event":"reply"}`), 0, nil, "", nil, nil, from, nil,
		))

	events, total, err := NewEventRepo(db).List(context.Background(), ingest.EventFilter{
		Provider: "smartlead",
		Statuses: []domain.WebhookEventStatus{domain.EventDeadLetter, domain.EventReplayed},
		Reason:   "projection_failure",
		From:     &from,
		To:       &to,
		Limit:    25,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(events) != 1 {
		t.Fatalf("total = %d, rows = %d", total, len(events))
	}
	if events[0].EventKey != "evt-1" {
		t.Fatalf("event key = %s", events[0].EventKey)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

package postgres

import (
	"encoding/json"
	"errors"

	"github.com/lib/pq"
)

// rowScanner abstracts *sql.Row and *sql.Rows so the per-table scan helpers
// serve both Get and List.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// jsonArg renders a payload map for a JSONB parameter. Empty maps store as
// NULL so absent payloads stay distinguishable from {}.
func jsonArg(m map[string]any) interface{} {
	if len(m) == 0 {
		return nil
	}
	b, _ := json.Marshal(m)
	return b
}

// jsonMap reads a JSONB column back into a map. NULL columns come back nil.
func jsonMap(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

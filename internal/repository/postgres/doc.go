// Package postgres implements the storage interfaces the service packages
// declare, one repository per aggregate. Queries are org-scoped wherever the
// consuming interface demands it and soft-deleted rows never match; uniqueness
// of provider identifiers is enforced by partial unique indexes over live rows.
package postgres

// Package api exposes the HTTP surface of the outreach gateway: provider
// webhook ingest, the super-admin replay and reconciliation endpoints, the
// observability snapshot endpoints, and the /api/v1 domain write routes.
//
// Handlers stay thin. They decode input, resolve the caller's AuthContext,
// call one service operation, and translate the returned error through
// writeError. Tenant scoping and entitlement checks live in the service
// layer, never here.
package api

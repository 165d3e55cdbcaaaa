// Package api implements the Rentwise HTTP API and owner notification
// WebSocket.
//
// This package provides:
//   - The request gatekeeper: bearer token authentication and path-based
//     role rules, evaluated before any handler runs
//   - Endpoints for the authentication gateway (/auth/...)
//   - Owner, tenant and admin endpoints for rent requests, wishlists and
//     property verification
//   - A WebSocket hub that pushes rent-request events to property owners
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Security
//
// Handlers read the caller from the request context (principalFromContext);
// there is no ambient security state. WebSocket connections use
// single-use tickets so access tokens never appear in URLs. Tickets live
// in memory, or in Redis when several replicas share the load.
//
// # Errors
//
// Failures are written as {"errMessage": "...", "detailError": "..."}.
// Domain errors map to statuses in errors.go; anything unmapped becomes a
// 500 with a generic message and the cause is logged.
//
// The server follows the same lifecycle pattern as the infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

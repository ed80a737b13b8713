// Package http implements the HTTP handlers of the playlist dashboard.
// Handlers stay thin: they parse and validate requests, call the dashboard
// service and format the response.
//
// # Routes
//
//	/api/auth        login, logout and session status (public)
//	/api/dashboard   upload, view, chart and export (authenticated)
//	/api/health      health, readiness, liveness, version and stats
//	/metrics         Prometheus scrape endpoint
//
// Successful JSON responses use the envelope
//
//	{"status": "success", "data": ...}
//
// and a session without uploaded files gets "no_input" with a message
// instead of an error.
//
// # Error Handling
//
// Errors are written by errors.ErrorHandler as RFC 7807 problem details.
// Service errors are mapped with services.ToAPIError first.
package http

// Package services implements the business logic layer of the dashboard.
// It sits between the HTTP and websocket transports and the data pipeline,
// keeping session caching and export rules in one testable place.
//
// # Services
//
//	DashboardService: upload, view, export and invalidate per session
//	HealthService:    liveness, readiness and version information
//
// # Error Handling
//
// Services return sentinel errors from errors.go, wrapped with %w, and the
// application error taxonomy from internal/errors for data problems:
//
//	if errors.Is(err, services.ErrNoDataset) {
//	    // nothing uploaded yet
//	}
//
// Transports map these to HTTP problems or websocket error messages.
package services

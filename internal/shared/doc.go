// Package shared holds helpers used across packages that belong to no
// single layer. Today that is testutil, which captures slog output so tests
// can assert on what a component logged.
package shared

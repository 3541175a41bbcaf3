// Package logger builds the process-wide slog.Logger: JSON output in prod,
// text output elsewhere, tagged with the service name and environment.
package logger

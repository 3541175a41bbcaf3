// Package handler implements the HTTP endpoints that expose the archive gate.
// It reports the latest health round, the start decision, and process liveness.
package handler

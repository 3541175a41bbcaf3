// Package healthcheck runs the periodic archive health loop.
// It calls the archive checker, feeds the results into the gate, and waits
// either the regular interval or a backoff delay before the next round.
package healthcheck

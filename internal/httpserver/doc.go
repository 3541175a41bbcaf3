// Package httpserver wraps net/http with address validation, sane timeouts,
// graceful shutdown, and the middleware used in front of the status API.
package httpserver

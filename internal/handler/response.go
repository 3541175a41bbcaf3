package handler

import "time"

type FailureResponse struct {
	Archive string `json:"archive"`
	Reason  string `json:"reason"`
}

type StatusResponse struct {
	State      string            `json:"state"`
	AllowStart bool              `json:"allow_start"`
	Summary    string            `json:"summary"`
	Healthy    []string          `json:"healthy"`
	Unhealthy  []FailureResponse `json:"unhealthy"`
	Attempt    uint              `json:"attempt"`
	CheckedAt  *time.Time        `json:"checked_at,omitempty"`
	NextCheck  *time.Time        `json:"next_check,omitempty"`
	LastError  string            `json:"last_error,omitempty"`
}

type ReadyResponse struct {
	Ready   bool   `json:"ready"`
	State   string `json:"state"`
	Summary string `json:"summary"`
}

// Package audit defines access audit entries, their store interface, and a
// best-effort recorder.
package audit

import (
	"time"

	"github.com/praetorhq/praetor/id"
)

// Outcome classifies an audit entry.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
)

// Entry is one recorded access attempt, successful or denied.
type Entry struct {
	ID             id.AuditID     `json:"id" db:"id"`
	UserID         id.UserID      `json:"user_id" db:"user_id"`
	SessionID      id.SessionID   `json:"session_id,omitempty" db:"session_id"`
	Action         string         `json:"action" db:"action"`
	Permission     string         `json:"permission,omitempty" db:"permission"`
	Resource       string         `json:"resource,omitempty" db:"resource"`
	Outcome        Outcome        `json:"outcome" db:"outcome"`
	IP             string         `json:"ip,omitempty" db:"ip"`
	UserAgent      string         `json:"user_agent,omitempty" db:"user_agent"`
	ImpersonatedBy *id.UserID     `json:"impersonated_by,omitempty" db:"impersonated_by"`
	Details        map[string]any `json:"details,omitempty" db:"details"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// QueryFilter narrows audit queries. Nil or zero fields match everything.
type QueryFilter struct {
	UserID     *id.UserID
	Action     string
	Permission string
	Outcome    Outcome
	After      *time.Time
	Before     *time.Time
	Limit      int
	Offset     int
}

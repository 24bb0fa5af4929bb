package entities

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a missing or invalid setting detected at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// ProviderError is the single error surfaced by the completion gateway once
// a call is unrecoverable.
type ProviderError struct {
	Provider      string
	StatusCode    int
	Attempts      int
	ServerMessage string
	Err           error
}

func (e *ProviderError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Provider)
	sb.WriteString(" completion failed")
	if e.Attempts > 1 {
		fmt.Fprintf(&sb, " after %d attempts", e.Attempts)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.ServerMessage != "" {
		sb.WriteString(": ")
		sb.WriteString(e.ServerMessage)
	} else if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Detail is a short human-readable cause suitable for a user-facing reply.
func (e *ProviderError) Detail() string {
	if e.ServerMessage != "" {
		return e.ServerMessage
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "the assistant is unavailable"
}

// RetrievalError wraps an embedding or vector-search failure. It never
// leaves the retriever; it exists for logging.
type RetrievalError struct {
	Op         string
	Collection string
	Err        error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval %s on %q: %v", e.Op, e.Collection, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// PersistenceError wraps a lead save or count failure.
type PersistenceError struct {
	Op       string
	TenantID string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("lead %s for tenant %q: %v", e.Op, e.TenantID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

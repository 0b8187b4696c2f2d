package effects

import (
	"fmt"
	"strings"
)

// TransportErrorKind classifies failures raised by Transport.
type TransportErrorKind string

const (
	TransportTimeout  TransportErrorKind = "timeout"
	TransportRejected TransportErrorKind = "server_rejected"
	TransportNetwork  TransportErrorKind = "network"
)

// TransportError reports a failed network call. Timeouts are recoverable by
// the caller; nothing is retried internally.
type TransportError struct {
	Kind      TransportErrorKind
	Operation string
	Status    int
	Message   string
	Err       error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case TransportTimeout:
		return fmt.Sprintf("effects: %s timed out", e.Operation)
	case TransportRejected:
		if e.Message != "" {
			return fmt.Sprintf("effects: %s rejected (status %d): %s", e.Operation, e.Status, e.Message)
		}
		return fmt.Sprintf("effects: %s rejected (status %d)", e.Operation, e.Status)
	default:
		if e.Err != nil {
			return fmt.Sprintf("effects: %s network error: %v", e.Operation, e.Err)
		}
		return fmt.Sprintf("effects: %s network error", e.Operation)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError reports malformed caller input. It is raised before any
// request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "effects: invalid input: " + e.Message
	}
	return fmt.Sprintf("effects: invalid %s: %s", e.Field, e.Message)
}

// ProtocolErrorKind classifies responses that were accepted by the server but
// cannot be acted upon.
type ProtocolErrorKind string

const (
	ProtocolMissingJobID   ProtocolErrorKind = "missing_job_id"
	ProtocolMissingAssetID ProtocolErrorKind = "missing_asset_id"
)

// ProtocolError is fatal for the caller: without an identifier there is
// nothing to submit or poll.
type ProtocolError struct {
	Kind    ProtocolErrorKind
	Message string
}

func (e *ProtocolError) Error() string {
	var b strings.Builder
	b.WriteString("effects: ")
	switch e.Kind {
	case ProtocolMissingAssetID:
		b.WriteString("upload response carried no asset id")
	default:
		b.WriteString("submission response carried no job id")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// PollErrorKind classifies how a poll sequence ended without a result.
type PollErrorKind string

const (
	PollEmpty   PollErrorKind = "empty"
	PollRemote  PollErrorKind = "remote"
	PollTimeout PollErrorKind = "timeout"
)

// PollError ends a poll sequence. Attempts counts the status queries that
// were actually sent.
type PollError struct {
	Kind     PollErrorKind
	JobID    string
	Attempts int
	Message  string
}

func (e *PollError) Error() string {
	switch e.Kind {
	case PollEmpty:
		return fmt.Sprintf("effects: job %s: empty status response", e.JobID)
	case PollTimeout:
		return fmt.Sprintf("effects: job %s: %s (%d attempts)", e.JobID, e.Message, e.Attempts)
	default:
		return fmt.Sprintf("effects: job %s failed: %s", e.JobID, e.Message)
	}
}

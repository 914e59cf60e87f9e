// Package toolsync reconciles locally declared tools with the remote registry.
package toolsync

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/bobmcallan/vire-tools/internal/client"
)

// Status is the result of reconciling one tool.
type Status string

const (
	StatusUnchanged Status = "unchanged"
	StatusCreated   Status = "created"
	StatusUpdated   Status = "updated"
	StatusFailed    Status = "failed"
)

// Reason says which step a failed reconcile stopped at.
type Reason string

const (
	ReasonConfiguration Reason = "configuration"
	ReasonValidation    Reason = "validation"
	ReasonLookup        Reason = "lookup"
	ReasonCreate        Reason = "create"
	ReasonUpdate        Reason = "update"
	ReasonTimeout       Reason = "timeout"
)

// ErrDuplicateName is reported for every repeat of a name within one run.
var ErrDuplicateName = errors.New("duplicate tool name")

// Error is the failure carried by a failed Outcome.
type Error struct {
	Reason Reason
	Tool   string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Reason, e.Tool, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Outcome is the result of reconciling one descriptor.
// DryRun outcomes report the write that would have been made.
type Outcome struct {
	Tool     string   `json:"tool"`
	Status   Status   `json:"status"`
	Reason   Reason   `json:"reason,omitempty"`
	Error    string   `json:"error,omitempty"`
	RemoteID string   `json:"remote_id,omitempty"`
	Changed  []string `json:"changed,omitempty"`
	DryRun   bool     `json:"dry_run,omitempty"`
	Err      error    `json:"-"`
}

// Failed reports whether the outcome is a failure.
func (o Outcome) Failed() bool { return o.Status == StatusFailed }

func failed(tool string, reason Reason, err error) Outcome {
	e := &Error{Reason: reason, Tool: tool, Err: err}
	return Outcome{
		Tool:   tool,
		Status: StatusFailed,
		Reason: reason,
		Error:  err.Error(),
		Err:    e,
	}
}

// classify maps an error from the registry client onto a failure reason.
// fallback is the reason for the step that was running.
func classify(err error, fallback Reason) Reason {
	if errors.Is(err, client.ErrMissingCredential) {
		return ReasonConfiguration
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return fallback
}

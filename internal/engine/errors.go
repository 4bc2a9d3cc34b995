package engine

import "errors"

// Protocol errors. These are recoverable: the room loop maps them to a
// targeted rejection for the submitting client and keeps running.
var ErrStaleStep = errors.New("stale step")
var ErrNotActor = errors.New("not an eligible actor")
var ErrRoleMismatch = errors.New("claimed role does not match seat")
var ErrConstraintViolation = errors.New("target violates schema constraints")
var ErrAlreadyResolved = errors.New("action already resolved")
var ErrBadLifecycle = errors.New("operation not valid in current status")

// ErrInvariant marks a resolver bug, not a client fault. The offending
// resolution is aborted; state is left untouched.
var ErrInvariant = errors.New("invariant violation")

// Reason is the closed rejection enum surfaced to the originating client.
type Reason string

const (
	ReasonStaleStep           Reason = "stale_step"
	ReasonNotActor            Reason = "not_actor"
	ReasonConstraintViolation Reason = "constraint_violation"
	ReasonRoleMismatch        Reason = "role_mismatch"
	ReasonAlreadyResolved     Reason = "already_resolved"
	ReasonTargetImmune        Reason = "target_immune"
)

// ReasonFor maps a resolver error to its wire reason. Unknown errors map
// to constraint_violation so the enum stays closed.
func ReasonFor(err error) Reason {
	switch {
	case errors.Is(err, ErrStaleStep):
		return ReasonStaleStep
	case errors.Is(err, ErrNotActor):
		return ReasonNotActor
	case errors.Is(err, ErrRoleMismatch):
		return ReasonRoleMismatch
	case errors.Is(err, ErrAlreadyResolved):
		return ReasonAlreadyResolved
	default:
		return ReasonConstraintViolation
	}
}

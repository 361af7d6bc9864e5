package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Clients and sinks return these
// (optionally wrapped) so the orchestrator can translate them into attempt
// outcomes without inspecting transport details.
//
// These represent factual states about external resources:
// - ErrNotFound: entity does not exist on the remote side
// - ErrUnauthorized: session token missing, expired, or rejected
// - ErrUnavailable: upstream store or registry temporarily unreachable
// - ErrInvalidState: remote entity in wrong state for requested operation
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidState = errors.New("invalid state")
)

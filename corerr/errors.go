// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package corerr defines the error kinds of spec §7 as small wrapped
// sentinel values, the way core/errors.go and core/app_error.go do it
// rather than a generic string-keyed error-code enum.
package corerr

import "errors"

// Sentinel error kinds. Use errors.Is against these, and fmt.Errorf's
// %w verb to attach context (e.g. a certificate or transmission ID).
var (
	// ErrProtocolViolation covers malformed messages, wrong protocol
	// version, oversized payloads, duplicate handshakes, self-connects,
	// and equivocation. The peer is disconnected.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrMissingDependency means a referenced transmission or
	// certificate is unknown locally. Recovered via Pending-driven
	// fetch; never surfaced to a peer.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrQuorumNotReached is not a failure: the caller stays in
	// Gathering state until enough stake has signed.
	ErrQuorumNotReached = errors.New("quorum not reached")

	// ErrFetchTimeout is delivered to every callback parked on an
	// object the Pending layer could not fetch before MAX_FETCH_TIMEOUT.
	ErrFetchTimeout = errors.New("fetch timed out")

	// ErrInvalidSignature and ErrInvalidCommittee are both
	// ProtocolViolation-class errors: IsProtocolViolation reports true for
	// them. They are separate sentinels that do not wrap
	// ErrProtocolViolation, so errors.Is(err, ErrProtocolViolation) does
	// not match them.
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidCommittee = errors.New("invalid committee")

	// ErrStorageIO is fatal: the node halts rather than risk forking.
	ErrStorageIO = errors.New("storage io error")

	// ErrShutdown marks cooperative cancellation; never logged as an
	// error.
	ErrShutdown = errors.New("shutdown")
)

// IsProtocolViolation reports whether err represents a protocol
// violation that should result in peer disconnection.
func IsProtocolViolation(err error) bool {
	return errors.Is(err, ErrProtocolViolation) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrInvalidCommittee)
}

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package p2pmsg

import (
	"fmt"
	"time"

	"github.com/aleobft/core/corerr"
	"github.com/aleobft/core/types"
)

// Sender is the outbound transport collaborator Comm drives, narrowed
// from engine/bft/comm.go's network.ExternalSender dependency to the
// two primitives this domain needs: a unicast send and a fire-and-
// forget broadcast of already-framed bytes. A github.com/luxfi/p2p
// connection implements this by framing Envelope bytes over its own
// stream multiplexing; nothing in this package depends on that
// library's concrete types directly, the same way the teacher's Comm
// depends on ExternalSender rather than a concrete network transport.
type Sender interface {
	SendTo(peer types.NodeID, frame []byte) error
	Broadcast(peers []types.NodeID, frame []byte)
}

// Comm frames and unframes Envelopes over a Sender (spec §6), mirroring
// engine/bft/comm.go's Comm struct: one Send, one Broadcast, one
// Receive. Send returns framing and transport errors to its caller and
// Broadcast silently drops an oversize frame; Comm has no logger and
// never panics.
type Comm struct {
	self           types.NodeID
	sender         Sender
	now            func() time.Time
	maxMessageSize int
}

// NewComm builds a Comm bound to self's identity and the given Sender.
// maxMessageSize caps both outbound frames and inbound frames passed to
// Receive; a value <= 0 falls back to DefaultMaxMessageSize.
func NewComm(self types.NodeID, sender Sender, maxMessageSize int) *Comm {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	return &Comm{self: self, sender: sender, now: time.Now, maxMessageSize: maxMessageSize}
}

// Send unicasts kind/payload to a single peer, stamping the envelope
// with the current time. A frame that would exceed the configured
// max message size is never handed to the Sender (spec §6, §7).
func (c *Comm) Send(peer types.NodeID, kind Kind, payload []byte) error {
	frame := EncodeEnvelope(Envelope{Kind: kind, Payload: payload, Timestamp: c.now()})
	if len(frame) > c.maxMessageSize {
		return fmt.Errorf("p2pmsg: outbound frame of %d bytes exceeds max message size %d: %w", len(frame), c.maxMessageSize, corerr.ErrProtocolViolation)
	}
	return c.sender.SendTo(peer, frame)
}

// Broadcast sends kind/payload to every peer in peers. An oversize
// frame is dropped rather than broadcast; there is no per-peer error
// to return, so callers that need to observe the rejection should
// build the envelope and call Send per-peer instead.
func (c *Comm) Broadcast(peers []types.NodeID, kind Kind, payload []byte) {
	frame := EncodeEnvelope(Envelope{Kind: kind, Payload: payload, Timestamp: c.now()})
	if len(frame) > c.maxMessageSize {
		return
	}
	c.sender.Broadcast(peers, frame)
}

// Receive parses an inbound frame, rejecting one over the configured
// max message size as a ProtocolViolation before any parsing is
// attempted. This is the single choke point inbound bytes from a
// Sender's underlying transport pass through before dispatch.
func (c *Comm) Receive(frame []byte) (Envelope, error) {
	return DecodeEnvelope(frame, c.maxMessageSize)
}

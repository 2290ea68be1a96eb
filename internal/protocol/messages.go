package protocol

import (
	"github.com/andersfylling/predictsim/internal/simulation"
)

// Intent represents a player input action as a bitmask
type Intent uint8

const (
	IntentNone   Intent = 0
	IntentLeft   Intent = 1 << iota
	IntentRight
	IntentJump
	IntentAttack
	IntentUse
)

// InputFrame contains player input for a single tick
type InputFrame struct {
	Tick    uint64
	Intents Intent
}

// EntityID uniquely identifies an entity
type EntityID = simulation.Entity

// EntityState is the serialized state of an entity
type EntityState struct {
	ID         EntityID
	Components []byte // Opaque component bytes; the encoding is chosen by the producer (see game.ToProtocolSnapshot)
}

// StateSnapshot contains game state for a tick
type StateSnapshot struct {
	Tick     uint64
	Full     bool   // True = complete state, False = delta
	Baseline uint64 // If delta, relative to this tick
	Entities []EntityState
	Removed  []EntityID // Entities removed since baseline
}

// Handshake is exchanged on connection
type Handshake struct {
	Version    int
	PlayerName string
	LineageID  string // uuid of the simulation lineage, detects server restarts
}

// MsgType identifies the wire shape of a message (§6).
type MsgType uint8

const (
	MsgHandshake MsgType = iota
	MsgInput
	MsgState
	MsgTick
	MsgPing
	MsgPong
	MsgDisconnect

	// MsgUpdateServerTick carries UpdateServerTick (S->C, reliable, ordered).
	MsgUpdateServerTick
	// MsgResetClientSimulation carries ResetClientSimulation (S->C).
	MsgResetClientSimulation
	// MsgServerWorldUpdate carries a ServerWorldUpdate[T]; the concrete T
	// is determined by the per-type tag carried alongside this message
	// type id (one wire message type id per T in a full framing scheme).
	MsgServerWorldUpdate
	// MsgClientRequest carries an application-defined C->S request.
	MsgClientRequest
)

// UpdateServerTick is sent every server tick (or at a chosen cadence) so
// clients can estimate the server's current wall-time (§4.7).
type UpdateServerTick struct {
	Tick simulation.Tick
}

// ResetClientSimulation is sent on first contact and whenever the server
// decides a client's Template/Prediction worlds must re-baseline.
type ResetClientSimulation struct {
	Tick      simulation.Tick
	LineageID string
}

// ServerWorldUpdate wraps a world update of type T for the wire. When
// IncludeInPrediction is true, the client queues the update into both its
// Template world and its Prediction world's PredictionUpdates[T]; when
// false (the echo back to the client that originated the change) it is
// queued only into Template, since the client already predicted it
// locally (§4.6, §9 "input idempotence").
type ServerWorldUpdate[T any] struct {
	Update              simulation.WorldUpdate[T]
	IncludeInPrediction bool
}

// ClientRequest is the envelope for an application-defined C->S request:
// a tick the client predicted the change at, plus an opaque payload the
// host application interprets.
type ClientRequest[T any] struct {
	Tick    simulation.Tick
	Payload T
}

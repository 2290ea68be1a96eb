package protocol

import (
	"encoding/gob"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/andersfylling/predictsim/internal/simulation"
)

// RegisterGobTypes registers every concrete message and payload type that
// travels inside a gob-encoded `any` envelope (Session.send on the server,
// Client.Listen on the client). gob needs every concrete type named up
// front when decoding into an interface; call this once before the first
// Connect/Listen on either side.
func RegisterGobTypes() {
	gob.Register(Handshake{})
	gob.Register(InputFrame{})
	gob.Register(StateSnapshot{})
	gob.Register(UpdateServerTick{})
	gob.Register(ResetClientSimulation{})
	gob.Register(ServerWorldUpdate[simulation.UpdateComponent[mgl64.Vec2]]{})
	gob.Register(ServerWorldUpdate[simulation.DespawnSimulationEntity]{})
	gob.Register(ClientRequest[Intent]{})
}

package game

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/andersfylling/predictsim/internal/collision"
	"github.com/andersfylling/predictsim/internal/extract"
	"github.com/andersfylling/predictsim/internal/protocol"
	"github.com/andersfylling/predictsim/internal/simulation"
)

// worldsByInstance lets an ExtractSystem, which only sees the
// *simulation.Instance on each side, reach the ark component maps that live
// on the game.World wrapping it. One World per Instance, populated by
// NewWorld and never removed (instances live for the process lifetime).
var worldsByInstance = map[*simulation.Instance]*World{}

func worldFor(inst *simulation.Instance) *World {
	return worldsByInstance[inst]
}

const gravityAccel = -0.6 // world units / tick^2, tuned for a 50ms step
const moveSpeed = 0.3     // world units / tick
const jumpSpeed = 2.2     // world units / tick, applied once on a grounded jump

// World wraps a simulation.Instance with this game's ark component maps
// and systems. It is a worked example of content riding on top of the
// prediction engine (internal/simulation, internal/extract); nothing in
// internal/simulation depends on it.
type World struct {
	Instance *simulation.Instance

	physics *ecs.Map1[Physics]
	players *ecs.Map1[Player]
	health  *ecs.Map1[Health]
	attacks *ecs.Map1[AttackState]
	sprites *ecs.Map1[Sprite]

	allocator simulation.EntityAllocator
	level     *collision.TileMap

	SetVelocity *simulation.UpdateExecutionQueue[simulation.UpdateComponent[mgl64.Vec2]]
	Despawns    *simulation.UpdateExecutionQueue[simulation.DespawnSimulationEntity]
}

// NewWorld attaches a game World to inst, registering the built-in
// despawn queue, a velocity-update queue, and the physics/attack systems.
// Call once, before inst.RunStartup.
func NewWorld(inst *simulation.Instance) *World {
	w := &World{
		Instance: inst,
		physics:  ecs.NewMap1[Physics](inst.World),
		players:  ecs.NewMap1[Player](inst.World),
		health:   ecs.NewMap1[Health](inst.World),
		attacks:  ecs.NewMap1[AttackState](inst.World),
		sprites:  ecs.NewMap1[Sprite](inst.World),
	}

	w.Despawns = simulation.RegisterDespawn(inst)
	w.SetVelocity = simulation.RegisterUpdateComponent[mgl64.Vec2](inst, "Velocity",
		func(_ *simulation.Instance, local ecs.Entity, v mgl64.Vec2) error {
			p := w.physics.Get(local)
			p.Velocity = v
			return nil
		})

	inst.AddSystem(simulation.ScheduleUpdate, w.applyGravity)
	inst.AddSystem(simulation.ScheduleUpdate, w.integrate)
	inst.AddSystem(simulation.ScheduleUpdate, w.resolveGroundCollision)
	inst.AddSystem(simulation.ScheduleUpdate, w.tickAttacks)

	inst.AddSystem(simulation.ScheduleReset, w.despawnAll)

	worldsByInstance[inst] = w
	registerExtractSystems(inst)

	return w
}

// registerExtractSystems registers one ExtractSystem per gameplay component
// so extract.Run (§4.5) actually copies Physics/Player/Health/Sprite/
// AttackState data between Template, Prediction, and Main, not just the
// entity id set. Safe to register on every instance: an instance that is
// never used as extract.Run's target simply never runs them.
func registerExtractSystems(inst *simulation.Instance) {
	inst.AddExtractSystem(extract.ExtractComponent[Physics](
		func(src *simulation.Instance, local ecs.Entity) (Physics, bool) {
			sw := worldFor(src)
			if sw == nil {
				return Physics{}, false
			}
			p := sw.physics.Get(local)
			if p == nil {
				return Physics{}, false
			}
			return *p, true
		},
		func(tgt *simulation.Instance, local ecs.Entity, value Physics) {
			tw := worldFor(tgt)
			if tw == nil {
				return
			}
			if p := tw.physics.Get(local); p != nil {
				*p = value
				return
			}
			tw.physics.Add(local, &value)
		},
	))

	inst.AddExtractSystem(extract.ExtractComponent[Player](
		func(src *simulation.Instance, local ecs.Entity) (Player, bool) {
			sw := worldFor(src)
			if sw == nil {
				return Player{}, false
			}
			p := sw.players.Get(local)
			if p == nil {
				return Player{}, false
			}
			return *p, true
		},
		func(tgt *simulation.Instance, local ecs.Entity, value Player) {
			tw := worldFor(tgt)
			if tw == nil {
				return
			}
			if p := tw.players.Get(local); p != nil {
				*p = value
				return
			}
			tw.players.Add(local, &value)
		},
	))

	inst.AddExtractSystem(extract.ExtractComponent[Health](
		func(src *simulation.Instance, local ecs.Entity) (Health, bool) {
			sw := worldFor(src)
			if sw == nil {
				return Health{}, false
			}
			h := sw.health.Get(local)
			if h == nil {
				return Health{}, false
			}
			return *h, true
		},
		func(tgt *simulation.Instance, local ecs.Entity, value Health) {
			tw := worldFor(tgt)
			if tw == nil {
				return
			}
			if h := tw.health.Get(local); h != nil {
				*h = value
				return
			}
			tw.health.Add(local, &value)
		},
	))

	inst.AddExtractSystem(extract.ExtractComponent[Sprite](
		func(src *simulation.Instance, local ecs.Entity) (Sprite, bool) {
			sw := worldFor(src)
			if sw == nil {
				return Sprite{}, false
			}
			s := sw.sprites.Get(local)
			if s == nil {
				return Sprite{}, false
			}
			return *s, true
		},
		func(tgt *simulation.Instance, local ecs.Entity, value Sprite) {
			tw := worldFor(tgt)
			if tw == nil {
				return
			}
			if s := tw.sprites.Get(local); s != nil {
				*s = value
				return
			}
			tw.sprites.Add(local, &value)
		},
	))

	inst.AddExtractSystem(extract.ExtractComponent[AttackState](
		func(src *simulation.Instance, local ecs.Entity) (AttackState, bool) {
			sw := worldFor(src)
			if sw == nil {
				return AttackState{}, false
			}
			a := sw.attacks.Get(local)
			if a == nil {
				return AttackState{}, false
			}
			return *a, true
		},
		func(tgt *simulation.Instance, local ecs.Entity, value AttackState) {
			tw := worldFor(tgt)
			if tw == nil {
				return
			}
			if a := tw.attacks.Get(local); a != nil {
				*a = value
				return
			}
			tw.attacks.Add(local, &value)
		},
	))
}

// SetLevel installs the tile map that resolveGroundCollision checks
// entities against. A nil level (the default) leaves Grounded permanently
// false, which is fine for headless tests that only exercise gravity.
func (w *World) SetLevel(level *collision.TileMap) {
	w.level = level
}

// SpawnPlayer creates a player entity at (x, y), returning its simulation
// id. Only the server instance should allocate new ids; client worlds
// learn ids via extraction.
func (w *World) SpawnPlayer(name string, playerNum int, x, y float64) simulation.Entity {
	local := w.Instance.World.NewEntity()
	w.physics.Add(local, &Physics{Position: mgl64.Vec2{x, y}})
	w.players.Add(local, &Player{ID: playerNum, Name: name})
	w.health.Add(local, &Health{Current: 100, Max: 100})
	w.sprites.Add(local, &Sprite{ID: "player"})

	id := w.allocator.Next()
	w.Instance.Entities.Insert(id, local)
	return id
}

// SpawnEnemy creates an enemy entity of the given sprite/health at (x, y).
func (w *World) SpawnEnemy(enemyType string, hp int, x, y float64) simulation.Entity {
	local := w.Instance.World.NewEntity()
	w.physics.Add(local, &Physics{Position: mgl64.Vec2{x, y}})
	w.health.Add(local, &Health{Current: hp, Max: hp})
	w.sprites.Add(local, &Sprite{ID: enemyType})

	id := w.allocator.Next()
	w.Instance.Entities.Insert(id, local)
	return id
}

// Renderable is a flattened, render-layer view of one entity: screen
// position plus the sprite id renderers map to their native format.
type Renderable struct {
	X, Y     float64
	SpriteID string
}

// GetRenderables returns a Renderable for every entity carrying both a
// Physics and a Sprite component, for the render package to draw.
func (w *World) GetRenderables() []Renderable {
	var out []Renderable
	query := w.sprites.Query(w.Instance.World)
	defer query.Close()

	for query.Next() {
		local := query.Entity()
		sprite := query.Get()
		p := w.physics.Get(local)
		if p == nil {
			continue
		}
		out = append(out, Renderable{X: p.Position[0], Y: p.Position[1], SpriteID: sprite.ID})
	}
	return out
}

// Physics returns the Physics component for a simulation entity, if live.
func (w *World) Physics(id simulation.Entity) (*Physics, bool) {
	local, ok := w.Instance.Entities.Get(id)
	if !ok {
		return nil, false
	}
	return w.physics.Get(local), true
}

func (w *World) applyGravity(inst *simulation.Instance) {
	query := w.physics.Query(inst.World)
	defer query.Close()

	for query.Next() {
		p := query.Get()
		if p.Grounded {
			continue
		}
		p.Velocity[1] += gravityAccel
	}
}

func (w *World) integrate(inst *simulation.Instance) {
	query := w.physics.Query(inst.World)
	defer query.Close()

	for query.Next() {
		p := query.Get()
		p.Position = p.Position.Add(p.Velocity)
	}
}

// resolveGroundCollision checks the tile directly beneath each entity's
// feet and, if solid, snaps the entity onto it: clears downward velocity
// and sets Grounded. Otherwise Grounded is cleared so the next tick's
// applyGravity takes effect again.
func (w *World) resolveGroundCollision(inst *simulation.Instance) {
	if w.level == nil {
		return
	}

	query := w.physics.Query(inst.World)
	defer query.Close()

	for query.Next() {
		p := query.Get()
		if p.Velocity[1] > 0 {
			p.Grounded = false
			continue
		}

		feetX, feetY := int(p.Position[0]), int(p.Position[1])+1
		if w.level.IsSolid(feetX, feetY) {
			p.Position[1] = float64(feetY - 1)
			p.Velocity[1] = 0
			p.Grounded = true
		} else {
			p.Grounded = false
		}
	}
}

func (w *World) tickAttacks(inst *simulation.Instance) {
	query := w.attacks.Query(inst.World)
	defer query.Close()

	for query.Next() {
		a := query.Get()
		if !a.Attacking {
			continue
		}
		a.TicksLeft--
		if a.TicksLeft <= 0 {
			a.Attacking = false
		}
	}
}

func (w *World) despawnAll(inst *simulation.Instance) {
	var locals []ecs.Entity
	inst.Entities.Each(func(_ simulation.Entity, local ecs.Entity) {
		locals = append(locals, local)
	})
	for _, local := range locals {
		inst.World.RemoveEntity(local)
	}
}

// PlayerPosition returns the position of the entity whose Player.ID
// matches playerNum, for embedded single-player loops that need a camera
// target without going through the network/prediction path at all.
func (w *World) PlayerPosition(playerNum int) (x, y float64, ok bool) {
	query := w.players.Query(w.Instance.World)
	defer query.Close()

	for query.Next() {
		player := query.Get()
		if player.ID != playerNum {
			continue
		}
		p := w.physics.Get(query.Entity())
		if p == nil {
			return 0, 0, false
		}
		return p.Position[0], p.Position[1], true
	}
	return 0, 0, false
}

// SetPlayerIntent applies one tick's worth of input directly to the named
// player's velocity, for embedded single-player loops that have no
// network session and so skip InputFrame/ClientRequest plumbing entirely.
func (w *World) SetPlayerIntent(playerNum int, intent protocol.Intent) {
	query := w.players.Query(w.Instance.World)
	defer query.Close()

	for query.Next() {
		player := query.Get()
		if player.ID != playerNum {
			continue
		}
		p := w.physics.Get(query.Entity())
		if p == nil {
			return
		}

		p.Velocity[0] = 0
		if intent&protocol.IntentLeft != 0 {
			p.Velocity[0] -= moveSpeed
		}
		if intent&protocol.IntentRight != 0 {
			p.Velocity[0] += moveSpeed
		}
		if intent&protocol.IntentJump != 0 && p.Grounded {
			p.Velocity[1] = jumpSpeed
			p.Grounded = false
		}
		return
	}
}

// Checksum hashes every physics entity's position and velocity into a
// single value, cheap enough to call every time Prediction restarts from
// Template (see client.Tracker).
func (w *World) Checksum() uint64 {
	return checksumPhysics(w)
}

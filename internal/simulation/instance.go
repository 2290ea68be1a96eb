package simulation

import (
	"log/slog"
	"time"

	"github.com/mlange-42/ark/ecs"
)

// Role identifies which of the four simulation instances this is. Role
// only affects which orchestrator drives the instance; the schedule
// skeleton and registered update types are identical across roles (I6).
type Role int

const (
	RoleServer Role = iota
	RoleClientMain
	RoleClientTemplate
	RoleClientPrediction
)

func (r Role) String() string {
	switch r {
	case RoleServer:
		return "server"
	case RoleClientMain:
		return "client_main"
	case RoleClientTemplate:
		return "client_template"
	case RoleClientPrediction:
		return "client_prediction"
	default:
		return "unknown"
	}
}

// Schedule names one of the ordered phases an Instance runs systems in.
type Schedule string

const (
	SchedulePreStartup  Schedule = "pre_startup"
	ScheduleStartup     Schedule = "startup"
	SchedulePostStartup Schedule = "post_startup"
	SchedulePreUpdate   Schedule = "pre_update"
	ScheduleUpdate      Schedule = "update"
	SchedulePostUpdate  Schedule = "post_update"
	ScheduleReset       Schedule = "reset"
)

// System is a per-schedule callback registered by a content plugin.
type System func(inst *Instance)

// UpdateType is the per-update-type entry of the registry described in
// design note "generic-per-update-type registration": a tag plus a drain
// function (the type-erased executor) and an idempotent reset hook.
type UpdateType interface {
	// Tag uniquely names the update type, e.g. "despawn_simulation_entity"
	// or "update_component:Velocity".
	Tag() string
	// Drain applies every update due at tick to the instance.
	Drain(inst *Instance, tick Tick)
	// Reset empties the queue. Must be idempotent.
	Reset()
}

// ExtractSystem copies state from source into target during
// ExtractSimulation. See package extract.
type ExtractSystem func(target, source *Instance)

// Instance is a self-contained world: tick clock, ECS world, entity map,
// registered update types, and user plugins (§4.3).
type Instance struct {
	Role     Role
	Time     *Time
	Entities *EntityMap
	World    *ecs.World
	Log      *slog.Logger

	updateTypes []UpdateType

	preStartup, startup, postStartup []System
	preUpdate, postUpdate            []System
	componentSystems                 []System // UpdateComponentSystems, run first in Update
	userUpdate                       []System // run second, between component and despawn drains
	despawnSystem                    System   // DespawnSimulationEntities, run last in Update

	resetSystems    []System
	extractSystems  []ExtractSystem
}

// NewInstance creates an instance bound to the given role with the given
// fixed step interval, starting at tick 0.
func NewInstance(role Role, step time.Duration, log *slog.Logger) *Instance {
	if log == nil {
		log = slog.Default()
	}
	w := ecs.NewWorld()
	return &Instance{
		Role:     role,
		Time:     NewTime(step),
		Entities: NewEntityMap(64),
		World:    &w,
		Log:      log.With("role", role.String()),
	}
}

// RegisterUpdateType adds an update type to the registry. Called once per
// T during plugin setup, for every instance in the simulation scheme (I6).
func (inst *Instance) RegisterUpdateType(u UpdateType) {
	inst.updateTypes = append(inst.updateTypes, u)
}

// UpdateTypes returns the registered update types, in registration order.
func (inst *Instance) UpdateTypes() []UpdateType {
	return inst.updateTypes
}

// AddSystem registers a user system to run during the named schedule. For
// ScheduleUpdate, user systems run after all UpdateComponentSystems
// drainers and before DespawnSimulationEntities (§4.2 ordering rules).
func (inst *Instance) AddSystem(schedule Schedule, sys System) {
	switch schedule {
	case SchedulePreStartup:
		inst.preStartup = append(inst.preStartup, sys)
	case ScheduleStartup:
		inst.startup = append(inst.startup, sys)
	case SchedulePostStartup:
		inst.postStartup = append(inst.postStartup, sys)
	case SchedulePreUpdate:
		inst.preUpdate = append(inst.preUpdate, sys)
	case ScheduleUpdate:
		inst.userUpdate = append(inst.userUpdate, sys)
	case SchedulePostUpdate:
		inst.postUpdate = append(inst.postUpdate, sys)
	case ScheduleReset:
		inst.resetSystems = append(inst.resetSystems, sys)
	}
}

// AddExtractSystem registers a system that runs during ExtractSimulation,
// after the built-in entity-extraction pass (see package extract).
func (inst *Instance) AddExtractSystem(sys ExtractSystem) {
	inst.extractSystems = append(inst.extractSystems, sys)
}

// ExtractSystems returns the registered extract systems in registration
// order (components/relations/resources plugins each add one).
func (inst *Instance) ExtractSystems() []ExtractSystem {
	return inst.extractSystems
}

// RunStartup runs SimulationPreStartup -> SimulationStartup ->
// SimulationPostStartup, each exactly once.
func (inst *Instance) RunStartup() {
	runAll(inst, inst.preStartup)
	runAll(inst, inst.startup)
	runAll(inst, inst.postStartup)
}

// addComponentSystem and setDespawnSystem let the built-in update types
// (updates_builtin.go) install themselves at the correct position in the
// Update ordering without the instance needing to know about them by name.
func (inst *Instance) addComponentSystem(sys System) {
	inst.componentSystems = append(inst.componentSystems, sys)
}

func (inst *Instance) setDespawnSystem(sys System) {
	inst.despawnSystem = sys
}

// TickNow runs SimulationPreUpdate -> SimulationUpdate -> SimulationPostUpdate
// once per tick until budget ticks have run or current_tick = target_tick,
// whichever comes first (§4.1). Returns the number of ticks run.
func (inst *Instance) TickNow(budget uint32) uint32 {
	return inst.Time.Advance(budget, func(tick Tick, _ time.Duration) {
		runAll(inst, inst.preUpdate)

		runAll(inst, inst.componentSystems)
		runAll(inst, inst.userUpdate)
		if inst.despawnSystem != nil {
			inst.despawnSystem(inst)
		}

		runAll(inst, inst.postUpdate)
	})
}

// Reset performs the destructive ResetSimulation schedule: replaces the
// clock wholesale, empties every registered update queue (idempotent per
// update type), and runs reset systems, which despawn every id-bearing
// entity (I4) and reinitialize any other per-reset state.
func (inst *Instance) Reset(r Tick) {
	inst.Time.Reset(r)
	for _, u := range inst.updateTypes {
		u.Reset()
	}
	runAll(inst, inst.resetSystems)
	inst.Entities.Reset()
}

func runAll(inst *Instance, systems []System) {
	for _, sys := range systems {
		sys(inst)
	}
}

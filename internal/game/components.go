// Package game defines ECS components and game logic: a small worked
// example of gameplay content driven by the prediction engine in
// internal/simulation and internal/extract. None of this package is part
// of the core engine itself.
package game

import "github.com/go-gl/mathgl/mgl64"

// Physics is the movement component. Position and Velocity are
// consolidated into one component (rather than separate Map1 stores for
// each) so the physics system is a single ark query instead of a join
// across component maps.
type Physics struct {
	Position mgl64.Vec2
	Velocity mgl64.Vec2
	Grounded bool
}

// Collider component (AABB bounds relative to position)
type Collider struct {
	OffsetX, OffsetY float64
	Width, Height    float64
}

// Sprite component (for rendering)
// Uses abstract sprite IDs - renderers map these to their native format
type Sprite struct {
	ID    string // Sprite identifier (e.g., "player", "slime", "platform")
	Color uint32 // RGB color hint (renderers may use or ignore)
}

// Player component (marks player-controlled entities)
type Player struct {
	ID   int
	Name string
}

// Health component
type Health struct {
	Current int
	Max     int
}

// Damage component (for projectiles, hazards)
type Damage struct {
	Amount int
}

// Gravity component (affected by gravity)
type Gravity struct {
	Scale float64 // Multiplier (1.0 = normal, 0 = no gravity)
}

// AttackState tracks attack animation state
type AttackState struct {
	Attacking   bool // Currently attacking
	TicksLeft   int  // Animation ticks remaining
	FacingRight bool // Direction of attack
}

// AttackDuration is how many ticks the punch animation lasts
const AttackDuration = 8

package render

import (
	"github.com/andersfylling/predictsim/internal/game"
	"github.com/andersfylling/predictsim/internal/protocol"
)

// InputEventType classifies one InputEvent.
type InputEventType int

const (
	InputNone InputEventType = iota
	InputKey
	InputQuit
	InputResize
)

// InputEvent is a single input occurrence translated from a backend's
// native event type (tcell.Event, Gio's key.Event, ...) into the intent
// vocabulary the rest of the client understands.
type InputEvent struct {
	Type   InputEventType
	Intent protocol.Intent
	Quit   bool
}

// GameRenderer is the backend-agnostic surface SelectRenderer hands back;
// every concrete renderer (TcellRenderer today, a future SDL/Vulkan one)
// implements it.
type GameRenderer interface {
	Init() error
	Close()
	BeginFrame()
	EndFrame()
	ViewportSize() (float64, float64)
	SetAtlas(atlas *SpriteAtlas)
	RenderWorld(world *game.World, camera Camera)
	RenderText(x, y float64, text string, color Color)
	DrawHUD(text string)
	PollInput() (InputEvent, bool)
}

// TileRenderer is implemented by renderers that can draw a standalone
// background layer ahead of entities.
type TileRenderer interface {
	RenderTileMap(tiles [][]rune, camera Camera)
}

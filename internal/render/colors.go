package render

import colorful "github.com/lucasb-eyer/go-colorful"

// Color is a backend-agnostic RGB color. Every renderer (tcell, ASCII,
// half-block, braille, Gio) converts down to its own native color space
// from this single representation.
type Color struct {
	R, G, B uint8
}

// fromHCL builds a Color from a hue/chroma/luminance triple via
// go-colorful, which clamps out-of-gamut values instead of wrapping them —
// convenient for procedurally picking sprite colors without hand-tuning
// RGB triples.
func fromHCL(h, c, l float64) Color {
	clamped := colorful.Hcl(h, c, l).Clamped()
	r, g, b, _ := clamped.RGBA()
	return Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}

var (
	ColorBlack  = Color{0, 0, 0}
	ColorWhite  = Color{230, 230, 230}
	ColorRed    = fromHCL(30, 0.8, 0.5)
	ColorGreen  = fromHCL(135, 0.7, 0.5)
	ColorYellow = fromHCL(85, 0.8, 0.6)
	ColorBlue   = fromHCL(260, 0.7, 0.45)
	ColorPurple = fromHCL(310, 0.6, 0.4)
)

// AtlasSprite is one entry of a terminal SpriteAtlas: a glyph plus the
// foreground/background colors to draw it with.
type AtlasSprite struct {
	Char rune
	FG   Color
	BG   Color
}

// SpriteAtlas maps a sprite id (as produced by game.Renderable.SpriteID) to
// its terminal glyph. Separate from the Gio Atlas type in atlas.go, which
// maps sprite ids to image regions instead of glyphs.
type SpriteAtlas struct {
	sprites map[string]AtlasSprite
	fallback AtlasSprite
}

// Get returns the sprite for id, falling back to a generic "unknown" glyph.
func (a *SpriteAtlas) Get(id string) AtlasSprite {
	if sprite, ok := a.sprites[id]; ok {
		return sprite
	}
	return a.fallback
}

// DefaultASCIIAtlas returns the plain 7-bit glyph set used by ModeASCII.
func DefaultASCIIAtlas() *SpriteAtlas {
	return &SpriteAtlas{
		fallback: AtlasSprite{Char: '?', FG: ColorWhite, BG: ColorBlack},
		sprites: map[string]AtlasSprite{
			"player":      {Char: '@', FG: ColorGreen, BG: ColorBlack},
			"slime":       {Char: 's', FG: ColorGreen, BG: ColorBlack},
			"bat":         {Char: 'b', FG: ColorPurple, BG: ColorBlack},
			"fist_left":   {Char: '<', FG: ColorYellow, BG: ColorBlack},
			"fist_right":  {Char: '>', FG: ColorYellow, BG: ColorBlack},
			"tile_ground": {Char: '#', FG: ColorWhite, BG: ColorBlack},
			"tile_wood":   {Char: '=', FG: ColorYellow, BG: ColorBlack},
			"tile_water":  {Char: '~', FG: ColorBlue, BG: ColorBlack},
			"tile_spikes": {Char: '^', FG: ColorRed, BG: ColorBlack},
		},
	}
}

// DefaultHalfBlockAtlas reuses the ASCII glyph set but with truecolor fills;
// ModeHalfBlock distinguishes itself at the renderer layer (▀/▄ packing),
// not in the atlas.
func DefaultHalfBlockAtlas() *SpriteAtlas {
	return DefaultASCIIAtlas()
}

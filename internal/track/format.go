package track

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/kart"
)

// ValidationError contains details about a track that failed validation.
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// MaxGrid is the number of start positions a track may define.
const MaxGrid = 8

// Point is an [x, y] pair in tiles.
type Point [2]float64

// File is the YAML representation of a track.
type File struct {
	ID          string                 `yaml:"id"`
	Name        string                 `yaml:"name"`
	Heading     int                    `yaml:"heading"` // 1/256 turns
	Tiles       []string               `yaml:"tiles"`
	Grid        []Point                `yaml:"grid"`
	Objects     []ObjectSpec           `yaml:"objects"`
	Lines       [][]Point              `yaml:"lines"`
	ChangeEvery int                    `yaml:"change_every"`
	Surfaces    map[string]SurfaceSpec `yaml:"surfaces"`
}

// ObjectSpec places an object in a cell.
type ObjectSpec struct {
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
	Type string `yaml:"type"` // decor, pickup, powerup
	Mass int32  `yaml:"mass"`
}

// SurfaceSpec overrides the default response of a tile type.
type SurfaceSpec struct {
	Traction int32  `yaml:"traction"`
	Friction int32  `yaml:"friction"`
	Boost    bool   `yaml:"boost"`
	Effect   string `yaml:"effect"`
}

var glyphs = map[rune]Cell{
	'.': {Tile: TileNormal},
	',': {Tile: TileSlow},
	'+': {Tile: TileFast},
	'~': {Tile: TileSkid},
	'#': {Tile: TileWall},
	'^': {Tile: TileNormal, Bump: true},
	' ': {Tile: TileGrass},
}

var effectNames = map[string]kart.Effect{
	"none":  kart.EffectNone,
	"mud":   kart.EffectMud,
	"dust":  kart.EffectDust,
	"spark": kart.EffectSpark,
	"smoke": kart.EffectSmoke,
}

// DefaultSurfaces returns the stock response of every tile type.
func DefaultSurfaces() [tileCount]SurfaceInfo {
	var s [tileCount]SurfaceInfo
	s[TileNormal] = SurfaceInfo{Surface: kart.Surface{Traction: 2, Friction: 32}}
	s[TileSlow] = SurfaceInfo{Surface: kart.Surface{Traction: 2, Friction: 8}, Effect: kart.EffectDust}
	s[TileFast] = SurfaceInfo{Surface: kart.Surface{Traction: 2, Friction: 64, Boost: true}}
	s[TileSkid] = SurfaceInfo{Surface: kart.Surface{Traction: 8, Friction: 48}}
	s[TileGrass] = SurfaceInfo{Surface: kart.Surface{Traction: 2, Friction: 8}, Effect: kart.EffectMud}
	s[TileWall] = SurfaceInfo{Surface: kart.Surface{Traction: 2, Friction: 32}}
	return s
}

// Parse decodes, validates and bakes a YAML track.
func Parse(data []byte) (*Track, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("track: parse: %w", err)
	}
	return Build(f)
}

// Build validates and bakes a decoded track file.
func Build(f File) (*Track, error) {
	if f.ID == "" {
		return nil, ValidationError{Code: "NO_ID", Message: "track has no id"}
	}
	t := &Track{
		ID:       f.ID,
		Name:     f.Name,
		Heading:  fixed.AngleFromSteps(uint8(f.Heading & 0xFF)),
		surfaces: DefaultSurfaces(),
	}
	if t.Name == "" {
		t.Name = f.ID
	}

	if err := t.buildCells(f.Tiles); err != nil {
		return nil, err
	}
	if err := t.buildSurfaces(f.Surfaces); err != nil {
		return nil, err
	}
	if err := t.buildObjects(f.Objects); err != nil {
		return nil, err
	}
	if err := t.buildGrid(f.Grid); err != nil {
		return nil, err
	}
	if err := t.buildLines(f.Lines); err != nil {
		return nil, err
	}
	t.bake(f.ChangeEvery)
	return t, nil
}

func (t *Track) buildCells(rows []string) error {
	if len(rows) == 0 {
		return ValidationError{Code: "NO_TILES", Message: "track has no tile rows"}
	}
	t.Height = len(rows)
	t.Width = len([]rune(rows[0]))
	if t.Width == 0 {
		return ValidationError{Code: "NO_TILES", Message: "first tile row is empty"}
	}
	t.cells = make([]Cell, 0, t.Width*t.Height)
	for y, row := range rows {
		runes := []rune(row)
		if len(runes) != t.Width {
			return ValidationError{
				Code:    "RAGGED_TILES",
				Message: fmt.Sprintf("row %d has %d tiles, want %d", y, len(runes), t.Width),
			}
		}
		for x, r := range runes {
			c, ok := glyphs[r]
			if !ok {
				return ValidationError{
					Code:    "BAD_GLYPH",
					Message: fmt.Sprintf("unknown tile %q at %d,%d", r, x, y),
				}
			}
			t.cells = append(t.cells, c)
		}
	}
	return nil
}

func (t *Track) buildSurfaces(overrides map[string]SurfaceSpec) error {
	for name, spec := range overrides {
		tile := tileCount
		for i := Tile(0); i < tileCount; i++ {
			if i.String() == name {
				tile = i
			}
		}
		if tile == tileCount {
			return ValidationError{Code: "BAD_SURFACE", Message: fmt.Sprintf("unknown surface %q", name)}
		}
		if spec.Traction < 1 || spec.Friction < 1 {
			return ValidationError{
				Code:    "BAD_SURFACE",
				Message: fmt.Sprintf("surface %q needs positive traction and friction", name),
			}
		}
		effect := kart.EffectNone
		if spec.Effect != "" {
			e, ok := effectNames[spec.Effect]
			if !ok {
				return ValidationError{Code: "BAD_EFFECT", Message: fmt.Sprintf("unknown effect %q", spec.Effect)}
			}
			effect = e
		}
		t.surfaces[tile] = SurfaceInfo{
			Surface: kart.Surface{Traction: spec.Traction, Friction: spec.Friction, Boost: spec.Boost},
			Effect:  effect,
		}
	}
	return nil
}

func (t *Track) buildObjects(specs []ObjectSpec) error {
	t.objectAt = make([]int16, t.Width*t.Height)
	for i := range t.objectAt {
		t.objectAt[i] = -1
	}
	for i, s := range specs {
		if !t.InBounds(s.X, s.Y) {
			return ValidationError{
				Code:    "OBJECT_OUTSIDE",
				Message: fmt.Sprintf("object %d at %d,%d is outside the map", i, s.X, s.Y),
			}
		}
		var typ ObjectType
		switch s.Type {
		case "decor", "":
			typ = ObjectDecor
		case "pickup":
			typ = ObjectPickup
		case "powerup":
			typ = ObjectPowerup
		default:
			return ValidationError{Code: "BAD_OBJECT", Message: fmt.Sprintf("object %d has unknown type %q", i, s.Type)}
		}
		cell := s.Y*t.Width + s.X
		if t.objectAt[cell] >= 0 {
			return ValidationError{Code: "OBJECT_OVERLAP", Message: fmt.Sprintf("two objects at %d,%d", s.X, s.Y)}
		}
		t.objectAt[cell] = int16(len(t.objects))
		t.objects = append(t.objects, Object{
			Pos:  fixed.Vec{X: fixed.FromInt(s.X) + fixed.Half, Y: fixed.FromInt(s.Y) + fixed.Half},
			Type: typ,
			Mass: s.Mass,
		})
	}
	return nil
}

func (t *Track) buildGrid(points []Point) error {
	if len(points) == 0 || len(points) > MaxGrid {
		return ValidationError{
			Code:    "BAD_GRID",
			Message: fmt.Sprintf("track needs 1..%d grid positions, has %d", MaxGrid, len(points)),
		}
	}
	for i, p := range points {
		v := toVec(p)
		cx, cy := CellOf(v)
		if !t.InBounds(cx, cy) || t.CellAt(cx, cy).Tile == TileWall {
			return ValidationError{
				Code:    "BAD_GRID",
				Message: fmt.Sprintf("grid position %d at %.2f,%.2f is outside the track", i, p[0], p[1]),
			}
		}
		t.Grid = append(t.Grid, v)
	}
	return nil
}

func (t *Track) buildLines(lines [][]Point) error {
	if len(lines) != LineCount {
		return ValidationError{
			Code:    "BAD_LINES",
			Message: fmt.Sprintf("track needs %d racing lines, has %d", LineCount, len(lines)),
		}
	}
	for li, pts := range lines {
		if len(pts) < 3 {
			return ValidationError{
				Code:    "BAD_LINES",
				Message: fmt.Sprintf("line %d needs at least 3 waypoints, has %d", li, len(pts)),
			}
		}
		line := Line{Points: make([]fixed.Vec, len(pts)), Dirs: make([]fixed.Vec, len(pts))}
		for i, p := range pts {
			v := toVec(p)
			cx, cy := CellOf(v)
			if !t.InBounds(cx, cy) {
				return ValidationError{
					Code:    "BAD_LINES",
					Message: fmt.Sprintf("line %d waypoint %d is outside the map", li, i),
				}
			}
			line.Points[i] = v
		}
		for i := range line.Points {
			next := line.Points[(i+1)%len(line.Points)]
			line.Dirs[i] = next.Sub(line.Points[i]).Normalize()
		}
		t.Lines[li] = line
	}
	return nil
}

func toVec(p Point) fixed.Vec {
	return fixed.Vec{
		X: fixed.Fixed(math.Round(p[0] * float64(fixed.One))),
		Y: fixed.Fixed(math.Round(p[1] * float64(fixed.One))),
	}
}

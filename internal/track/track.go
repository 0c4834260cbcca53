// Package track holds a loaded race track: the tile grid, the object grid,
// the racing lines and the segment raster baked from them. A Track is
// immutable once loaded and may be shared by any number of races.
package track

import (
	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/kart"
)

// Tile is the floor type of one grid cell.
type Tile uint8

const (
	TileNormal Tile = iota
	TileSlow
	TileFast
	TileSkid
	TileGrass
	TileWall
	tileCount
)

// String returns the surface name used in YAML overrides.
func (t Tile) String() string {
	switch t {
	case TileNormal:
		return "normal"
	case TileSlow:
		return "slow"
	case TileFast:
		return "fast"
	case TileSkid:
		return "skid"
	case TileGrass:
		return "grass"
	case TileWall:
		return "wall"
	default:
		return "?"
	}
}

// Cell is one entry of the tile grid.
type Cell struct {
	Tile Tile
	Bump bool
}

// SurfaceInfo is the physics response and visual effect of a tile type.
type SurfaceInfo struct {
	Surface kart.Surface
	Effect  kart.Effect
}

// ObjectType identifies what a static object does when touched.
type ObjectType uint8

const (
	ObjectDecor ObjectType = iota
	ObjectPickup
	ObjectPowerup
)

// Object is a static sprite placed at a cell centre.
type Object struct {
	Pos  fixed.Vec
	Type ObjectType
	Mass int32 // zero is passable
}

// Line indices. The first three lines are driven by automated karts; the
// average line is used for ranking and segment baking.
const (
	AILines     = 3
	AverageLine = 3
	LineCount   = 4
)

// Line is a closed polyline of waypoints.
type Line struct {
	Points []fixed.Vec
	Dirs   []fixed.Vec // unit vector from point i to point i+1 (wrapping)
}

// Len returns the number of waypoints.
func (l *Line) Len() int { return len(l.Points) }

// Waypoints are the current and next target indices of one line within a segment.
type Waypoints struct {
	Current int
	Next    int
}

// Track is a fully baked track.
type Track struct {
	ID      string
	Name    string
	Width   int
	Height  int
	Heading fixed.Angle

	cells    []Cell
	objects  []Object
	objectAt []int16 // object index per cell, -1 for none
	surfaces [tileCount]SurfaceInfo

	Grid  []fixed.Vec
	Lines [LineCount]Line

	// segments
	segmentAt   []int16 // segment id per cell
	waypoints   [][LineCount]Waypoints
	changePoint []bool
	arc         []fixed.Fixed // cumulative arc length of the average line at each waypoint
	length      fixed.Fixed
}

// InBounds reports whether the cell exists.
func (t *Track) InBounds(cx, cy int) bool {
	return cx >= 0 && cy >= 0 && cx < t.Width && cy < t.Height
}

// CellAt returns the cell at tile coordinates. Outside the map is wall.
func (t *Track) CellAt(cx, cy int) Cell {
	if !t.InBounds(cx, cy) {
		return Cell{Tile: TileWall}
	}
	return t.cells[cy*t.Width+cx]
}

// CellOf returns the tile coordinates containing pos.
func CellOf(pos fixed.Vec) (int, int) {
	return pos.X.Int(), pos.Y.Int()
}

// Surface returns the physics response of a tile type.
func (t *Track) Surface(tile Tile) SurfaceInfo {
	return t.surfaces[tile]
}

// Objects returns every static object. The slice must not be modified.
func (t *Track) Objects() []Object {
	return t.objects
}

// ObjectAt returns the index of the object in a cell, or -1.
func (t *Track) ObjectAt(cx, cy int) int {
	if !t.InBounds(cx, cy) {
		return -1
	}
	return int(t.objectAt[cy*t.Width+cx])
}

// SegmentCount returns the number of segments, one per average-line edge.
func (t *Track) SegmentCount() int {
	return len(t.waypoints)
}

// SegmentAt returns the segment of the cell containing pos. Positions off
// the map use the nearest edge cell.
func (t *Track) SegmentAt(pos fixed.Vec) int {
	cx, cy := CellOf(pos)
	cx = clampInt(cx, 0, t.Width-1)
	cy = clampInt(cy, 0, t.Height-1)
	return int(t.segmentAt[cy*t.Width+cx])
}

// Waypoints returns the target indices of a line within a segment.
func (t *Track) Waypoints(segment, line int) Waypoints {
	return t.waypoints[segment][line]
}

// IsChangePoint reports whether automated karts may switch lines in segment.
func (t *Track) IsChangePoint(segment int) bool {
	return t.changePoint[segment]
}

// ArcAt returns the cumulative average-line length at waypoint i.
func (t *Track) ArcAt(i int) fixed.Fixed {
	return t.arc[i]
}

// Length returns the length of one lap along the average line.
func (t *Track) Length() fixed.Fixed {
	return t.length
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Package navigation steers automated karts along the racing lines baked
// into a track and measures how far round the lap any kart has travelled.
package navigation

import (
	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/kart"
	"github.com/vovakirdan/tui-kart/internal/track"
)

// lookaheadSq is the squared distance (Q16.16) below which a kart aims
// past its current waypoint to the next one.
const lookaheadSq = int64(fixed.One) * 2

// lineChangeOdds is the 1-in-N chance of switching line at a change point.
const lineChangeOdds = 4

// Decision is the steering input for one automated kart on one tick.
type Decision struct {
	Target    fixed.Vec
	LineDevSq int64 // squared distance from the kart to its current line edge
	Segment   int
}

// Navigator answers per-tick navigation queries against a track. It holds
// no per-race state; karts carry their own line and waypoint.
type Navigator struct {
	track *track.Track
}

// New creates a navigator for a loaded track.
func New(t *track.Track) *Navigator {
	return &Navigator{track: t}
}

// Track returns the track being navigated.
func (n *Navigator) Track() *track.Track {
	return n.track
}

// Target picks the point an automated kart should steer toward. It may
// reassign the kart's racing line at change points using the kart's own
// random stream, and updates the kart's cached waypoint.
func (n *Navigator) Target(k *kart.Kart) Decision {
	seg := n.track.SegmentAt(k.Position)
	wp := n.track.Waypoints(seg, k.RacingLine)

	// Segments are baked from the end of their average-line edge, so
	// wp.Current is already the waypoint ahead. NextWaypoint caches it: a
	// mismatch means the kart has just reached a new one.
	if wp.Current != k.NextWaypoint && n.track.IsChangePoint(seg) {
		if k.RNG.Intn(lineChangeOdds) == 0 {
			k.RacingLine = k.RNG.Intn(track.AILines)
			wp = n.track.Waypoints(seg, k.RacingLine)
		}
	}
	k.NextWaypoint = wp.Current

	line := &n.track.Lines[k.RacingLine]
	target := line.Points[wp.Current]
	if target.Sub(k.Position).LenSq() < lookaheadSq {
		target = line.Points[wp.Next]
	}

	prev := line.Points[(wp.Current+line.Len()-1)%line.Len()]
	return Decision{
		Target:    target,
		LineDevSq: track.DistSqToSegment(k.Position, prev, line.Points[wp.Current]),
		Segment:   seg,
	}
}

// Progress returns the segment containing pos and the arc length along the
// average line of the nearest point in that segment.
func (n *Navigator) Progress(pos fixed.Vec) (int, fixed.Fixed) {
	seg := n.track.SegmentAt(pos)
	avg := &n.track.Lines[track.AverageLine]
	next := (seg + 1) % avg.Len()

	edge := n.track.Length() - n.track.ArcAt(seg)
	if next != 0 {
		edge = n.track.ArcAt(next) - n.track.ArcAt(seg)
	}
	u := track.Project(pos, avg.Points[seg], avg.Points[next])
	return seg, n.track.ArcAt(seg) + fixed.Mul(u, edge)
}

// WarpPoint returns where a stuck kart on line should be placed for
// segment, and the heading toward the following waypoint.
func (n *Navigator) WarpPoint(line, segment int) (fixed.Vec, fixed.Angle) {
	wp := n.track.Waypoints(segment, line)
	l := &n.track.Lines[line]
	return l.Points[wp.Current], l.Dirs[wp.Current].Angle()
}

// StartLine returns the racing line an automated kart begins on.
func StartLine(index int) int {
	return index % track.AILines
}

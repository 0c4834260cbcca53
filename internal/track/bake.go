package track

import (
	"github.com/vovakirdan/tui-kart/internal/fixed"
)

// bake computes the lookup tables derived from the average line. Segment s
// is the average-line edge from waypoint s to waypoint s+1; segment 0
// starts at the start/finish line.
func (t *Track) bake(changeEvery int) {
	avg := &t.Lines[AverageLine]
	n := avg.Len()

	t.arc = make([]fixed.Fixed, n)
	var total fixed.Fixed
	for i := 0; i < n; i++ {
		t.arc[i] = total
		total += avg.Points[(i+1)%n].Sub(avg.Points[i]).Len()
	}
	t.length = total

	t.segmentAt = make([]int16, t.Width*t.Height)
	for cy := 0; cy < t.Height; cy++ {
		for cx := 0; cx < t.Width; cx++ {
			centre := fixed.Vec{X: fixed.FromInt(cx) + fixed.Half, Y: fixed.FromInt(cy) + fixed.Half}
			t.segmentAt[cy*t.Width+cx] = int16(nearestEdge(avg, centre))
		}
	}

	t.waypoints = make([][LineCount]Waypoints, n)
	t.changePoint = make([]bool, n)
	for s := 0; s < n; s++ {
		end := avg.Points[(s+1)%n]
		for li := range t.Lines {
			line := &t.Lines[li]
			cur := nearestPoint(line, end)
			t.waypoints[s][li] = Waypoints{Current: cur, Next: (cur + 1) % line.Len()}
		}
		t.changePoint[s] = changeEvery > 0 && s%changeEvery == 0
	}
}

// nearestEdge returns the index of the closed-polyline edge closest to p.
// Ties resolve to the lower index.
func nearestEdge(l *Line, p fixed.Vec) int {
	best, bestDist := 0, int64(-1)
	n := l.Len()
	for i := 0; i < n; i++ {
		d := DistSqToSegment(p, l.Points[i], l.Points[(i+1)%n])
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// nearestPoint returns the index of the waypoint closest to p.
func nearestPoint(l *Line, p fixed.Vec) int {
	best, bestDist := 0, int64(-1)
	for i, q := range l.Points {
		d := q.Sub(p).LenSq()
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Project returns the parameter in [0, One] of the point on segment a-b
// closest to p.
func Project(p, a, b fixed.Vec) fixed.Fixed {
	ab := b.Sub(a)
	lenSq := ab.LenSq()
	if lenSq == 0 {
		return 0
	}
	dot := fixed.Dot(p.Sub(a), ab)
	if dot <= 0 {
		return 0
	}
	if dot >= lenSq {
		return fixed.One
	}
	return fixed.Fixed((dot << fixed.FracBits) / lenSq)
}

// DistSqToSegment returns the squared distance (Q16.16) from p to segment a-b.
func DistSqToSegment(p, a, b fixed.Vec) int64 {
	u := Project(p, a, b)
	closest := a.Add(b.Sub(a).Scale(u))
	return p.Sub(closest).LenSq()
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tui-kart/internal/core"
	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/kart"
	"github.com/vovakirdan/tui-kart/internal/race"
	"github.com/vovakirdan/tui-kart/internal/track"
)

// colorStyles maps core.Color to lipgloss styles.
var colorStyles = map[core.Color]lipgloss.Style{
	core.ColorDefault:       lipgloss.NewStyle(),
	core.ColorRed:           lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	core.ColorGreen:         lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	core.ColorYellow:        lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	core.ColorBlue:          lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	core.ColorMagenta:       lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	core.ColorCyan:          lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	core.ColorWhite:         lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
	core.ColorBrightRed:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	core.ColorBrightGreen:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	core.ColorBrightYellow:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	core.ColorBrightBlue:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	core.ColorBrightMagenta: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	core.ColorBrightCyan:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	core.ColorBrightWhite:   lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
	core.ColorOrange:        lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	core.ColorGray:          lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
}

// RenderScreen converts a Screen buffer to a styled string for display.
// Groups adjacent cells with the same color to minimize ANSI escape sequences.
func RenderScreen(s *core.Screen) string {
	var sb strings.Builder
	sb.Grow(s.Width()*s.Height()*2 + s.Height())

	for y := range s.Height() {
		if y > 0 {
			sb.WriteRune('\n')
		}

		x := 0
		for x < s.Width() {
			cell := s.GetCell(x, y)
			startColor := cell.Color

			var run strings.Builder
			for x < s.Width() {
				cell = s.GetCell(x, y)
				if cell.Color != startColor {
					break
				}
				run.WriteRune(cell.Rune)
				x++
			}

			style, ok := colorStyles[startColor]
			if !ok {
				style = colorStyles[core.ColorDefault]
			}
			sb.WriteString(style.Render(run.String()))
		}
	}
	return sb.String()
}

// tileWidth is the number of columns per track tile; terminal cells are
// about twice as tall as they are wide.
const tileWidth = 2

// hudLines is the number of rows reserved below the track view.
const hudLines = 2

type tileGlyph struct {
	r     rune
	color core.Color
}

var tileGlyphs = map[track.Tile]tileGlyph{
	track.TileNormal: {' ', core.ColorDefault},
	track.TileSlow:   {':', core.ColorOrange},
	track.TileFast:   {'>', core.ColorBrightCyan},
	track.TileSkid:   {'~', core.ColorBlue},
	track.TileGrass:  {'"', core.ColorGreen},
	track.TileWall:   {'#', core.ColorGray},
}

// headingArrows is indexed by the heading rounded to eighths of a turn,
// with y growing downwards.
var headingArrows = []rune{'>', '\\', 'v', '/', '<', '\\', '^', '/'}

// Renderer draws a top-down view of a race centred on the camera. It also
// tells the race which karts are visible.
type Renderer struct {
	screen *core.Screen
}

// NewRenderer creates a renderer for a terminal of the given size.
func NewRenderer(width, height int) *Renderer {
	return &Renderer{screen: core.NewScreen(max(width, 1), max(height-hudLines, 1))}
}

// Resize adapts to a new terminal size.
func (r *Renderer) Resize(width, height int) {
	r.screen.Resize(max(width, 1), max(height-hudLines, 1))
}

// CameraDistance is the number of tiles visible from the camera to the
// nearest screen edge.
func (r *Renderer) CameraDistance() fixed.Fixed {
	cols := r.screen.Width() / tileWidth / 2
	rows := r.screen.Height() / 2
	return fixed.FromInt(max(min(cols, rows), 1))
}

// Perspective is always false: the view is flat.
func (r *Renderer) Perspective() bool { return false }

// Screen returns the track view buffer.
func (r *Renderer) Screen() *core.Screen { return r.screen }

// Draw renders the track around the camera and every kart on it.
func (r *Renderer) Draw(d *race.Director) {
	s := r.screen
	s.Clear()
	tr := d.Track()
	cam := d.CameraTarget()
	view := core.RectAround(cam.X.Int(), cam.Y.Int(), s.Width()/tileWidth, s.Height())
	originX, originY := view.X, view.Y

	for y := range s.Height() {
		cy := originY + y
		for col := 0; col < s.Width(); col += tileWidth {
			cx := originX + col/tileWidth
			g := r.cellGlyph(d, tr, cx, cy)
			for i := range tileWidth {
				s.SetColored(col+i, y, g.r, g.color)
			}
		}
	}

	// Player last so it stays on top.
	views := d.Karts()
	player := d.Player()
	for _, v := range views {
		if v.Index != player && view.Contains(v.Position.X.Int(), v.Position.Y.Int()) {
			r.drawKart(v, originX, originY, false)
		}
	}
	r.drawKart(views[player], originX, originY, true)

	switch {
	case d.Countdown() > 0:
		r.drawBanner("READY")
	case views[player].Finished:
		r.drawBanner("FINISH")
	}
}

// drawBanner boxes a word in the middle of the track view.
func (r *Renderer) drawBanner(text string) {
	s := r.screen
	w, h := len(text)+4, 3
	if s.Width() < w || s.Height() < h {
		return
	}
	box := core.RectAround(s.Width()/2, s.Height()/2, w, h)
	for y := box.Y; y < box.Bottom(); y++ {
		for x := box.X; x < box.Right(); x++ {
			s.SetColored(x, y, ' ', core.ColorDefault)
		}
	}
	s.DrawBox(box)
	s.DrawTextColored(box.X+2, box.Y+1, text, core.ColorBrightYellow)
}

func (r *Renderer) cellGlyph(d *race.Director, tr *track.Track, cx, cy int) tileGlyph {
	if !tr.InBounds(cx, cy) {
		return tileGlyph{' ', core.ColorDefault}
	}
	if i := tr.ObjectAt(cx, cy); i >= 0 {
		switch tr.Objects()[i].Type {
		case track.ObjectPickup:
			if !d.Collected(i) {
				return tileGlyph{'$', core.ColorBrightYellow}
			}
		case track.ObjectPowerup:
			return tileGlyph{'?', core.ColorBrightMagenta}
		default:
			return tileGlyph{'@', core.ColorGray}
		}
	}
	cell := tr.CellAt(cx, cy)
	if cell.Bump {
		return tileGlyph{'=', core.ColorYellow}
	}
	return tileGlyphs[cell.Tile]
}

func (r *Renderer) drawKart(v race.KartView, originX, originY int, player bool) {
	x := (v.Position.X.Int() - originX) * tileWidth
	y := v.Position.Y.Int() - originY
	color := core.KartColor(v.Index)
	label := rune('1' + v.Index)
	switch {
	case v.Ghost:
		color, label = core.ColorGray, 'g'
	case player:
		color = core.ColorBrightWhite
	}
	r.screen.SetColored(x, y, label, color)
	r.screen.SetColored(x+1, y, arrow(v.Heading), color)
}

// arrow returns the glyph pointing along a heading.
func arrow(h fixed.Angle) rune {
	return headingArrows[((uint16(h)+1<<12)>>13)&7]
}

var (
	hudStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
	hudKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("236")).Bold(true)
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Bold(true).Padding(0, 2)
)

var reelGlyphs = map[kart.Powerup]string{
	kart.PowerupNone:    "-",
	kart.PowerupNitrous: "N",
	kart.PowerupMisfire: "M",
	kart.PowerupPickup:  "$",
	kart.PowerupSpinout: "S",
}

// FormatTicks renders a tick count as seconds, or --.-- when there is none.
func FormatTicks(ticks, tickRate int) string {
	if ticks <= 0 {
		return "--.--"
	}
	tickRate = max(tickRate, 1)
	return fmt.Sprintf("%d.%02d", ticks/tickRate, ticks%tickRate*100/tickRate)
}

// HUD renders the status lines for the player's kart.
func HUD(d *race.Director, tickRate, width int) string {
	k := d.Kart(d.Player())
	lap := min(k.LapCount+1, d.Laps())

	field := func(name, value string) string {
		return hudKeyStyle.Render(name) + hudStyle.Render(" "+value+"  ")
	}
	line1 := field("LAP", fmt.Sprintf("%d/%d", lap, d.Laps())) +
		field("POS", fmt.Sprintf("%d/%d", k.RaceRank+1, d.KartCount())) +
		field("TIME", FormatTicks(d.RaceTicks()-k.LapStartTick, tickRate)) +
		field("LAST", FormatTicks(k.LastLapTicks, tickRate)) +
		field("BEST", FormatTicks(k.BestLapTicks, tickRate))

	p := d.PowerUp()
	reels := make([]string, len(p.Reels))
	for i, s := range p.Reels {
		reels[i] = reelGlyphs[s]
		if i >= p.Stopped {
			reels[i] = "*"
		}
	}
	line2 := field("REELS", "["+strings.Join(reels, "|")+"]") + field("PICKUPS", fmt.Sprint(k.PickupCount))
	if c := d.Countdown(); c > 0 {
		line2 += bannerStyle.Render(fmt.Sprintf("GET READY %d", c/max(tickRate, 1)+1))
	} else if k.JumpedGun && d.RaceTicks() < 2*tickRate {
		line2 += bannerStyle.Render("JUMPED THE GUN")
	}

	style := lipgloss.NewStyle().Width(width)
	return style.Render(line1) + "\n" + style.Render(line2)
}

// Package race runs a race: it owns the karts, drives them through
// navigation, physics and collision every tick, keeps lap and finish
// bookkeeping, runs the fruit machine and exposes read-only views for
// renderers.
package race

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-kart/internal/collision"
	"github.com/vovakirdan/tui-kart/internal/config"
	"github.com/vovakirdan/tui-kart/internal/fixed"
	"github.com/vovakirdan/tui-kart/internal/kart"
	"github.com/vovakirdan/tui-kart/internal/navigation"
	"github.com/vovakirdan/tui-kart/internal/rng"
	"github.com/vovakirdan/tui-kart/internal/track"
)

// MaxKarts is the roster size.
const MaxKarts = config.MaxKarts

// cameraFrames is the length of the camera smoothing ring.
const cameraFrames = 8

// Entrant describes one racer in a Setup.
type Entrant struct {
	Type   int  // index into the kart property table
	Human  bool // driven by inputs rather than navigation
	Remote bool // mirrored from packets
	Ghost  bool // replays a recorded input stream
	Slot   int  // grid slot of a ghost; other karts start in roster order
}

// Setup starts a race.
type Setup struct {
	Track    *track.Track
	Karts    []Entrant
	Player   int // kart followed by the camera
	Laps     int
	Pickups  bool
	Powerups bool
	Seed     uint64
}

// Viewport is the renderer capability the watchdog uses to decide whether
// a kart is visible.
type Viewport interface {
	CameraDistance() fixed.Fixed
	Perspective() bool
}

// Director is the simulation context of one race. It is built once and
// reused across races through Init.
type Director struct {
	cfg    config.Race
	props  []kart.Properties
	tune   config.Tuning
	kt     kart.Tuning
	ai     kart.AITuning
	preset config.DifficultyPreset
	logger *log.Logger

	roster [MaxKarts]*kart.Kart
	karts  []*kart.Kart
	order  []*kart.Kart // ranking scratch

	track    *track.Track
	nav      *navigation.Navigator
	resolver *collision.Resolver
	world    collision.World
	viewport Viewport

	tick         int
	laps         int
	pickups      bool
	powerups     bool
	player       int
	finishCursor int
	finishedNow  bool
	rng          rng.Source

	power      powerUp
	lapPending [MaxKarts]int
	lapCursor  int
	lastPacket int // last applied packet tick, -1 before the first

	camera      [cameraFrames]fixed.Vec
	cameraIndex int
}

// NewDirector builds the roster. The property table and tuning must
// already be validated.
func NewDirector(cfg config.Race, props []kart.Properties, tune config.Tuning, logger *log.Logger) *Director {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	d := &Director{
		cfg:      cfg,
		props:    props,
		tune:     tune,
		kt:       tune.Kart,
		ai:       config.AITuning(cfg.Difficulty),
		preset:   cfg.Difficulty,
		logger:   logger,
		resolver: collision.NewResolver(tune.BumpTicks),
	}
	for i := range d.roster {
		d.roster[i] = kart.New(i, &d.kt)
	}
	return d
}

// SetViewport installs the renderer capability used by the watchdog.
func (d *Director) SetViewport(v Viewport) {
	d.viewport = v
}

// SetDifficulty changes the automated drivers' preset.
func (d *Director) SetDifficulty(p config.DifficultyPreset) {
	d.ai = config.AITuning(p)
	d.preset = p
}

// Init resets the director for a new race. Kart types outside the
// property table are a programming error and panic.
func (d *Director) Init(s Setup) error {
	if s.Track == nil {
		return fmt.Errorf("race: no track")
	}
	if len(s.Karts) == 0 || len(s.Karts) > MaxKarts || len(s.Karts) > len(s.Track.Grid) {
		return fmt.Errorf("race: %d karts for %d grid slots", len(s.Karts), len(s.Track.Grid))
	}
	if s.Player < 0 || s.Player >= len(s.Karts) {
		return fmt.Errorf("race: player %d outside roster of %d", s.Player, len(s.Karts))
	}
	for i, e := range s.Karts {
		if e.Ghost && (e.Slot < 0 || e.Slot >= len(s.Track.Grid)) {
			return fmt.Errorf("race: ghost %d starts in missing grid slot %d", i, e.Slot)
		}
	}
	if s.Laps < 1 || s.Laps > 15 {
		return fmt.Errorf("race: %d laps outside 1..15", s.Laps)
	}

	d.track = s.Track
	d.nav = navigation.New(s.Track)
	d.laps = s.Laps
	d.pickups = s.Pickups
	d.powerups = s.Powerups
	d.player = s.Player
	d.tick = 0
	d.finishCursor = 0
	d.finishedNow = false
	d.rng = rng.New(s.Seed)
	d.power = powerUp{}
	d.lapPending = [MaxKarts]int{}
	d.lapCursor = 0
	d.lastPacket = -1

	d.karts = d.roster[:len(s.Karts)]
	d.order = make([]*kart.Kart, len(d.karts))
	for i, e := range s.Karts {
		k := d.karts[i]
		slot := i
		if e.Ghost {
			slot = e.Slot
		}
		k.Reset(e.Type, d.props[e.Type], s.Track.Grid[slot], s.Track.Heading, e.Human || e.Ghost, d.rng.Derive(uint64(i)))
		k.Remote = e.Remote
		k.Ghost = e.Ghost
		k.RacingLine = navigation.StartLine(i)
		k.RaceRank = i
		d.order[i] = k
	}

	d.world = collision.World{
		Karts:          d.karts,
		Track:          s.Track,
		Collected:      make([]bool, len(s.Track.Objects())),
		PickupsEnabled: s.Pickups,
		TriggerPowerup: d.triggerPowerup,
	}

	start := d.karts[d.player].Position
	for i := range d.camera {
		d.camera[i] = start
	}
	d.cameraIndex = 0

	d.logger.Info("race started", "track", s.Track.ID, "karts", len(s.Karts), "laps", s.Laps,
		"pickups", s.Pickups, "powerups", s.Powerups)
	return nil
}

// Track returns the track being raced.
func (d *Director) Track() *track.Track { return d.track }

// Tick returns the number of ticks since Init, countdown included.
func (d *Director) Tick() int { return d.tick }

// Laps returns the race length.
func (d *Director) Laps() int { return d.laps }

// Player returns the camera kart index.
func (d *Director) Player() int { return d.player }

// KartCount returns the number of active karts.
func (d *Director) KartCount() int { return len(d.karts) }

// Countdown returns the ticks left before the start, zero once racing.
func (d *Director) Countdown() int {
	if d.tick >= d.cfg.CountdownTicks {
		return 0
	}
	return d.cfg.CountdownTicks - d.tick
}

// RaceTicks returns the race clock, which starts when the countdown ends.
func (d *Director) RaceTicks() int {
	t := d.tick - d.cfg.CountdownTicks
	if t < 0 {
		return 0
	}
	return t
}

// Kart returns an active kart. An index outside the roster panics.
func (d *Director) Kart(i int) *kart.Kart {
	return d.karts[i]
}

// Done reports whether every kart has finished.
func (d *Director) Done() bool {
	return d.finishCursor >= len(d.karts)
}

// HumansDone reports whether every locally driven, non-ghost kart has finished.
func (d *Director) HumansDone() bool {
	for _, k := range d.karts {
		if k.Human && !k.Ghost && !k.Finished() {
			return false
		}
	}
	return true
}

// QuickSetup builds a Setup from the race configuration: the first humans
// karts are driven locally, the rest by the automated driver, and kart
// types cycle through the property table.
func (d *Director) QuickSetup(tr *track.Track, humans int) Setup {
	n := min(d.cfg.Karts, len(tr.Grid))
	s := Setup{
		Track:    tr,
		Karts:    make([]Entrant, n),
		Laps:     d.cfg.Laps,
		Pickups:  d.cfg.Pickups,
		Powerups: d.cfg.Powerups,
		Seed:     d.cfg.Seed,
	}
	for i := range s.Karts {
		s.Karts[i] = Entrant{Type: i % len(d.props), Human: i < humans}
	}
	return s
}

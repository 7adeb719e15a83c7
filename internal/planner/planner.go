// Package planner implements the trapezoidal step planner: a lazy
// generator of inter-step delays approximating the Leib-Ramp velocity
// profile in fixed-point integer arithmetic.
package planner

import (
	"errors"
	"math"

	"github.com/orsinium-labs/tinymath"

	"crabroll/internal/numeric"
)

// TickHz is the fixed-point tick rate the recurrence operates in,
// matching the 1 MHz tick commonly used by cooperative embedded
// schedulers (a tick is one microsecond).
const TickHz = 1_000_000

// Direction is the logical direction of travel, independent of the
// electrical polarity of the DIR output (that mapping lives outside
// the planner, in the shared DIR_TO_HOME cell the dispatcher owns).
type Direction int

const (
	ToHome Direction = iota
	AwayFromHome
)

func (d Direction) String() string {
	if d == ToHome {
		return "to-home"
	}
	return "away-from-home"
}

var (
	ErrNotHomed     = errors.New("planner: position unknown, home first")
	ErrOutOfBounds  = errors.New("planner: target exceeds travel limit")
)

// Config holds the stepper's motion parameters. All fields are
// strictly positive except StartVel, which must also be positive but
// is permitted to equal MaxSpeed only in degenerate configurations.
type Config struct {
	TravelLimit uint32 // steps
	MaxSpeed    uint32 // steps/s
	MaxAccel    uint32 // steps/s^2
	StartVel    uint32 // steps/s
}

// derived holds the fields recomputed whenever Config changes.
type derived struct {
	cruiseDelayTicks     uint64
	accelDivisor         uint64
	initialDelayTicks    uint64
	maxStoppingDistance  uint64
}

func computeDerived(c Config) derived {
	var d derived
	d.cruiseDelayTicks = TickHz / uint64(c.MaxSpeed)
	d.accelDivisor = (TickHz * TickHz) / uint64(c.MaxAccel)

	startSq := float32(c.StartVel) * float32(c.StartVel)
	radicand := startSq + 2*float32(c.MaxAccel)
	root := uint64(tinymath.Round(tinymath.Sqrt(radicand)))
	if root == 0 {
		root = 1
	}
	d.initialDelayTicks = TickHz / root

	maxSpeedSq := uint64(c.MaxSpeed) * uint64(c.MaxSpeed)
	startVelSq := uint64(c.StartVel) * uint64(c.StartVel)
	if maxSpeedSq <= startVelSq {
		d.maxStoppingDistance = 0
	} else {
		d.maxStoppingDistance = (maxSpeedSq - startVelSq) / (2 * uint64(c.MaxAccel))
	}
	return d
}

// Planner owns the current position and motion configuration for a
// single stepper axis. Position is exclusively mutated by the active
// plan sequence (HomingSequence / PlannedSequence / JogSequence); the
// planner itself never runs concurrently with more than one sequence.
type Planner struct {
	cfg     Config
	derived derived

	position    int64
	posKnown    bool
}

// New constructs a planner in the unhomed state.
func New(cfg Config) *Planner {
	return &Planner{
		cfg:     cfg,
		derived: computeDerived(cfg),
	}
}

// Position reports the current step position and whether it is known
// (false before the first successful homing move).
func (p *Planner) Position() (uint32, bool) {
	if !p.posKnown {
		return 0, false
	}
	return uint32(p.position), true
}

// SetTravelLimit, SetMaxSpeed, SetMaxAccel and SetStartVel mutate the
// configuration and recompute every derived field synchronously. Must
// not be called while a plan sequence from this planner is being
// consumed.
func (p *Planner) SetTravelLimit(v uint32) { p.cfg.TravelLimit = v; p.derived = computeDerived(p.cfg) }
func (p *Planner) SetMaxSpeed(v uint32)    { p.cfg.MaxSpeed = v; p.derived = computeDerived(p.cfg) }
func (p *Planner) SetMaxAccel(v uint32)    { p.cfg.MaxAccel = v; p.derived = computeDerived(p.cfg) }
func (p *Planner) SetStartVel(v uint32)    { p.cfg.StartVel = v; p.derived = computeDerived(p.cfg) }

func (p *Planner) TravelLimit() uint32 { return p.cfg.TravelLimit }

// advance moves position one step in dir, saturating at 0 rather than
// going negative: a jog that reaches home and keeps being driven
// ToHome must not wrap position into a huge unsigned value once
// Position() converts it back to uint32.
func (p *Planner) advance(dir Direction) {
	if dir == ToHome {
		if p.position > 0 {
			p.position--
		}
	} else {
		p.position++
	}
}

// startVelDelay is the constant delay used for homing and jogging.
func (p *Planner) startVelDelay() uint64 {
	return TickHz / uint64(p.cfg.StartVel)
}

func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func abs64(a, b int64) uint64 {
	if a > b {
		return uint64(a - b)
	}
	return uint64(b - a)
}

func clampTicks(v, lo, hi uint64) uint64 {
	return numeric.Clamp(v, lo, hi)
}

// saturating arithmetic mirrors the original's use of u64 saturating
// ops so the first accelerating step — seeded from an effectively
// infinite previous delay — clamps cleanly to initialDelayTicks
// instead of wrapping.

func satAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func satSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func satMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxUint64/b {
		return math.MaxUint64
	}
	return a * b
}

func satPow3(p uint64) uint64 {
	return satMul(satMul(p, p), p)
}

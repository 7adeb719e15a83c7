package planner

import (
	"math"
	"time"
)

// phase is the trapezoidal profile's tagged state, deliberately kept
// visible (not hidden behind generator syntax) because the fixed-point
// carry term rem must survive across calls to Next.
type phase int

const (
	phaseAccelerate phase = iota
	phaseCruise
	phaseDecelerate
)

// HomingSequence drives the motor toward home until the endstop
// predicate reports true. It does not advance the planner's internal
// position during motion; position becomes exactly 0 on termination.
type HomingSequence struct {
	p          *Planner
	endstop    func() bool
	delayTicks uint64
	stepsMoved int
	done       bool
}

// HomingMove constructs a homing sequence and reports the direction
// the motor will turn (always ToHome).
func (p *Planner) HomingMove(endstop func() bool) (*HomingSequence, Direction) {
	return &HomingSequence{
		p:          p,
		endstop:    endstop,
		delayTicks: p.startVelDelay(),
	}, ToHome
}

// Next returns the delay until the next step pulse, or ok=false if the
// endstop has been reached and the sequence has terminated.
func (s *HomingSequence) Next() (d time.Duration, ok bool) {
	if s.done {
		return 0, false
	}
	if s.endstop() {
		s.p.position = 0
		s.p.posKnown = true
		s.done = true
		return 0, false
	}
	s.stepsMoved++
	return ticksToDuration(s.delayTicks), true
}

// StepsMoved reports the number of step pulses emitted so far.
func (s *HomingSequence) StepsMoved() int { return s.stepsMoved }

// PlannedSequence drives the motor from the current position to a
// target position along a trapezoidal velocity profile.
type PlannedSequence struct {
	p                *Planner
	dir              Direction
	remaining        uint64
	stoppingDistance uint64
	phase            phase
	prevDelayTicks   uint64
	rem              uint64
	done             bool
}

// PlannedMove constructs a planned-move sequence toward target, or
// fails with ErrNotHomed / ErrOutOfBounds.
func (p *Planner) PlannedMove(target uint32) (*PlannedSequence, Direction, error) {
	cur, known := p.Position()
	if !known {
		return nil, 0, ErrNotHomed
	}
	if target > p.cfg.TravelLimit {
		return nil, 0, ErrOutOfBounds
	}

	dir := AwayFromHome
	if target < cur {
		dir = ToHome
	}

	distance := abs64(int64(cur), int64(target))
	half := ceilDiv(distance, 2)
	stoppingDistance := half
	if p.derived.maxStoppingDistance < stoppingDistance {
		stoppingDistance = p.derived.maxStoppingDistance
	}
	stoppingDistance += 2

	return &PlannedSequence{
		p:                p,
		dir:              dir,
		remaining:        distance,
		stoppingDistance: stoppingDistance,
		phase:            phaseAccelerate,
		prevDelayTicks:   math.MaxUint64,
	}, dir, nil
}

func (s *PlannedSequence) Next() (time.Duration, bool) {
	if s.done {
		return 0, false
	}
	d := s.p.derived
	switch s.phase {
	case phaseAccelerate:
		if s.remaining == 0 {
			s.done = true
			return 0, false
		}
		s.remaining--
		s.p.advance(s.dir)
		if s.remaining <= s.stoppingDistance {
			s.phase = phaseDecelerate
			s.rem = 0
		}

		p := s.prevDelayTicks
		dividend := satAdd(satPow3(p), s.rem)
		diff := dividend / d.accelDivisor
		s.rem = dividend % d.accelDivisor
		raw := satSub(p, diff)
		clamped := clampTicks(raw, d.cruiseDelayTicks, d.initialDelayTicks)
		s.prevDelayTicks = clamped
		if clamped == d.cruiseDelayTicks {
			s.phase = phaseCruise
		}
		return ticksToDuration(clamped), true

	case phaseCruise:
		s.remaining--
		s.p.advance(s.dir)
		if s.remaining <= s.stoppingDistance {
			s.phase = phaseDecelerate
			s.rem = 0
		}
		return ticksToDuration(d.cruiseDelayTicks), true

	case phaseDecelerate:
		if s.remaining == 0 {
			s.done = true
			return 0, false
		}
		s.remaining--
		s.p.advance(s.dir)

		p := s.prevDelayTicks
		dividend := satAdd(satPow3(p), s.rem)
		diff := dividend / d.accelDivisor
		s.rem = dividend % d.accelDivisor
		raw := satAdd(p, diff)
		clamped := clampTicks(raw, d.cruiseDelayTicks, d.initialDelayTicks)
		s.prevDelayTicks = clamped
		return ticksToDuration(clamped), true
	}
	s.done = true
	return 0, false
}

// JogSequence drives the motor continuously in one direction until the
// continuation predicate returns false. It does not enforce
// TravelLimit: jogging is a manual override and may drive past either
// end, per the operator's responsibility.
type JogSequence struct {
	p          *Planner
	dir        Direction
	continueFn func() bool
	delayTicks uint64
}

// ContinuousJog constructs a jog sequence, failing with ErrNotHomed if
// the position is not yet known.
func (p *Planner) ContinuousJog(continueFn func() bool, dir Direction) (*JogSequence, error) {
	if _, known := p.Position(); !known {
		return nil, ErrNotHomed
	}
	return &JogSequence{
		p:          p,
		dir:        dir,
		continueFn: continueFn,
		delayTicks: p.startVelDelay(),
	}, nil
}

func (s *JogSequence) Next() (time.Duration, bool) {
	if !s.continueFn() {
		return 0, false
	}
	s.p.advance(s.dir)
	return ticksToDuration(s.delayTicks), true
}

func ticksToDuration(ticks uint64) time.Duration {
	return time.Duration(ticks) * (time.Second / TickHz)
}

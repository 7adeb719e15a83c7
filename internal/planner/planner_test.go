package planner

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

const (
	testTravelLimit = 2048
	testMaxVel      = 255
	testMaxAccel    = 64
	testStartVel    = 50
)

func testConfig() Config {
	return Config{
		TravelLimit: testTravelLimit,
		MaxSpeed:    testMaxVel,
		MaxAccel:    testMaxAccel,
		StartVel:    testStartVel,
	}
}

func homeAt(c *qt.C, p *Planner, preSteps int) {
	remaining := preSteps
	seq, dir := p.HomingMove(func() bool {
		if remaining <= 0 {
			return true
		}
		remaining--
		return false
	})
	c.Assert(dir, qt.Equals, ToHome)
	for {
		_, ok := seq.Next()
		if !ok {
			break
		}
	}
	pos, known := p.Position()
	c.Assert(known, qt.IsTrue)
	c.Assert(pos, qt.Equals, uint32(0))
}

func TestHomingTerminatesAtEndstop(t *testing.T) {
	c := qt.New(t)
	p := New(testConfig())

	calls := 0
	seq, dir := p.HomingMove(func() bool {
		calls++
		return calls > 3
	})
	c.Assert(dir, qt.Equals, ToHome)

	steps := 0
	for {
		_, ok := seq.Next()
		if !ok {
			break
		}
		steps++
	}
	c.Assert(steps, qt.Equals, 3)
	c.Assert(seq.StepsMoved(), qt.Equals, 3)

	pos, known := p.Position()
	c.Assert(known, qt.IsTrue)
	c.Assert(pos, qt.Equals, uint32(0))
}

func TestHomingDoesNotAdvancePositionDuringMotion(t *testing.T) {
	c := qt.New(t)
	p := New(testConfig())
	calls := 0
	seq, _ := p.HomingMove(func() bool {
		calls++
		return calls > 5
	})
	for {
		_, ok := seq.Next()
		if !ok {
			break
		}
		_, known := p.Position()
		c.Assert(known, qt.IsFalse)
	}
}

func TestPlannedMoveRequiresHoming(t *testing.T) {
	c := qt.New(t)
	p := New(testConfig())
	_, _, err := p.PlannedMove(100)
	c.Assert(err, qt.Equals, ErrNotHomed)
}

func TestPlannedMoveRejectsOutOfBounds(t *testing.T) {
	c := qt.New(t)
	p := New(testConfig())
	homeAt(c, p, 0)
	_, _, err := p.PlannedMove(testTravelLimit + 1)
	c.Assert(err, qt.Equals, ErrOutOfBounds)
}

func TestPlannedMoveReachesTargetAndCountsSteps(t *testing.T) {
	c := qt.New(t)
	p := New(testConfig())
	homeAt(c, p, 0)

	const target = 1024
	seq, dir, err := p.PlannedMove(target)
	c.Assert(err, qt.IsNil)
	c.Assert(dir, qt.Equals, AwayFromHome)

	emitted := 0
	for {
		_, ok := seq.Next()
		if !ok {
			break
		}
		emitted++
	}
	c.Assert(emitted, qt.Equals, target)

	pos, known := p.Position()
	c.Assert(known, qt.IsTrue)
	c.Assert(pos, qt.Equals, uint32(target))
}

func TestPlannedMoveDelayEnvelope(t *testing.T) {
	c := qt.New(t)
	p := New(testConfig())
	homeAt(c, p, 0)

	seq, _, err := p.PlannedMove(testTravelLimit)
	c.Assert(err, qt.IsNil)

	// Both bounds are whole ticks: cruise is TickHz/max_speed, and the
	// ceiling is the derived initial (first accelerating step) delay.
	cruise := ticksToDuration(TickHz / testMaxVel)
	initial := ticksToDuration(p.derived.initialDelayTicks)
	for {
		d, ok := seq.Next()
		if !ok {
			break
		}
		c.Assert(d >= cruise, qt.IsTrue)
		c.Assert(d <= initial, qt.IsTrue)
	}
}

func TestPlannedMoveAccelerationBoundTwoStepAverage(t *testing.T) {
	c := qt.New(t)
	p := New(testConfig())
	homeAt(c, p, 0)

	seq, _, err := p.PlannedMove(testTravelLimit)
	c.Assert(err, qt.IsNil)

	var delays []time.Duration
	for {
		d, ok := seq.Next()
		if !ok {
			break
		}
		delays = append(delays, d)
	}

	// velocity at step i ~= 1/delays[i]; bound the 2-step moving
	// average of consecutive velocity deltas against the algorithm's
	// documented 100% tolerance.
	velocity := func(d time.Duration) float64 {
		if d <= 0 {
			return 0
		}
		return float64(time.Second) / float64(d)
	}
	const tolerance = 2.0 // max_accel * (1 + 1.0)
	for i := 2; i < len(delays); i++ {
		dv1 := velocity(delays[i-1]) - velocity(delays[i-2])
		dv2 := velocity(delays[i]) - velocity(delays[i-1])
		avg := (dv1 + dv2) / 2
		if avg < 0 {
			avg = -avg
		}
		c.Assert(avg <= testMaxAccel*tolerance, qt.IsTrue)
	}
}

func TestContinuousJogRequiresHoming(t *testing.T) {
	c := qt.New(t)
	p := New(testConfig())
	_, err := p.ContinuousJog(func() bool { return true }, AwayFromHome)
	c.Assert(err, qt.Equals, ErrNotHomed)
}

func TestContinuousJogAdvancesUntilStopped(t *testing.T) {
	c := qt.New(t)
	p := New(testConfig())
	homeAt(c, p, 0)

	remaining := 10
	seq, err := p.ContinuousJog(func() bool {
		remaining--
		return remaining >= 0
	}, AwayFromHome)
	c.Assert(err, qt.IsNil)

	steps := 0
	for {
		_, ok := seq.Next()
		if !ok {
			break
		}
		steps++
	}
	c.Assert(steps, qt.Equals, 10)

	pos, known := p.Position()
	c.Assert(known, qt.IsTrue)
	c.Assert(pos, qt.Equals, uint32(10))
}

func TestContinuousJogTowardHomeSaturatesAtZero(t *testing.T) {
	c := qt.New(t)
	p := New(testConfig())
	homeAt(c, p, 0)

	remaining := 5
	seq, err := p.ContinuousJog(func() bool {
		remaining--
		return remaining >= 0
	}, ToHome)
	c.Assert(err, qt.IsNil)

	for {
		_, ok := seq.Next()
		if !ok {
			break
		}
	}

	pos, known := p.Position()
	c.Assert(known, qt.IsTrue)
	c.Assert(pos, qt.Equals, uint32(0))
}

// Package input implements the button tasks and the MQTT command
// ingress described in section 4.5: translating physical button
// presses and incoming MQTT payloads into Command values sent on the
// dispatcher's LastCommand signal.
package input

import (
	"time"

	"crabroll/internal/motorctl"
	"crabroll/internal/planner"
)

const (
	debounce           = 50 * time.Millisecond
	longPressThreshold = time.Second
)

// Pin is the minimal digital input this package needs: Get reports the
// electrical level, true for high. Every button is wired active-low
// with a pull-up, so a press reads false.
type Pin interface {
	Get() bool
}

// Kind identifies which of the four physical buttons a RunButton call
// is driving, since Home/Bottom distinguish short and long presses
// while Raise/Lower fire immediately on press and release.
type Kind int

const (
	Home Kind = iota
	Raise
	Lower
	Bottom
)

// RunButton polls pin forever, debouncing each press/release edge by
// debounce and sending the Kind's mapped Command(s) to commands. It
// never returns; callers run it as its own goroutine.
func RunButton(kind Kind, pin Pin, commands *motorctl.Signal[motorctl.Command]) {
	for {
		waitForLevel(pin, false) // low edge: button pressed
		pressedAt := time.Now()
		time.Sleep(debounce)

		switch kind {
		case Raise:
			commands.Send(motorctl.StartJogCommand(planner.ToHome))
			waitForLevel(pin, true)
			time.Sleep(debounce)
			commands.Send(motorctl.StopJogCommand())
		case Lower:
			commands.Send(motorctl.StartJogCommand(planner.AwayFromHome))
			waitForLevel(pin, true)
			time.Sleep(debounce)
			commands.Send(motorctl.StopJogCommand())
		case Home, Bottom:
			waitForLevel(pin, true)
			time.Sleep(debounce)
			commands.Send(shortOrLong(kind, time.Since(pressedAt)))
		}
	}
}

func shortOrLong(kind Kind, held time.Duration) motorctl.Command {
	long := held >= longPressThreshold
	switch kind {
	case Home:
		if long {
			return motorctl.HomeCommand()
		}
		return motorctl.MoveToPosCommand(0)
	case Bottom:
		if long {
			return motorctl.SetBottomCommand()
		}
		return motorctl.MoveToPosCommand(100)
	}
	panic("input: shortOrLong called for a non long/short button kind")
}

func waitForLevel(pin Pin, level bool) {
	for pin.Get() != level {
		time.Sleep(time.Millisecond)
	}
}

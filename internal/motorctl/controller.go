// Package motorctl implements MotorController: the dispatcher task that
// owns the StepPlanner, the step/direction GPIO outputs, the endstop
// input, and the PersistentStore, translating commands into plan
// iterations and GPIO toggling.
package motorctl

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"crabroll/internal/nvs"
	"crabroll/internal/planner"
	"crabroll/tmc2209"
)

// Boot-time motion constants, fixed for this application rather than
// configurable: the firmware drives exactly one stepper axis.
const (
	defaultTravelLimit uint32 = 2048
	maxVelocity        uint32 = 2048
	maxAcceleration    uint32 = 225
	startVelocity      uint32 = 64
)

// Boot-time register field values for the TMC2209, fixed by this
// application's wiring: UART-selected microstep resolution and
// power-down-disable (gconf), full-step chopping with interpolation
// (chopconf), and a conservative hold/run current split (iholdIrun).
var (
	bootGconf = tmc2209.Gconf{
		RegisterAddr:   tmc2209.GCONF,
		IScaleAnalog:   1,
		PdnDisable:     1,
		MstepRegSelect: 1,
		MultistepFilt:  1,
	}
	bootChopconf = tmc2209.Chopconf{
		RegisterAddr: tmc2209.CHOPCONF,
		Toff:         3,
		Hstrt:        1,
		Hend:         3,
		Mres:         8, // 8 selects full-step (no microstepping)
		Intpol:       1,
	}
	bootIholdIrun = tmc2209.IholdIrun{
		RegisterAddr: tmc2209.IHOLD_IRUN,
		Ihold:        0,
		Irun:         16,
	}
)

// GPIO is the motor's physical step/direction outputs.
type GPIO interface {
	SetStep(high bool)
	SetDir(dir planner.Direction)
}

// CommandKind enumerates the dispatcher's command variants.
type CommandKind int

const (
	CmdHome CommandKind = iota
	CmdStartJog
	CmdStopJog
	CmdSetBottom
	CmdMoveToPos
)

// Command is the unit the five input tasks signal to the dispatcher.
// Dir is meaningful only for CmdStartJog; Pct only for CmdMoveToPos.
type Command struct {
	Kind CommandKind
	Dir  planner.Direction
	Pct  uint8
}

func HomeCommand() Command      { return Command{Kind: CmdHome} }
func StopJogCommand() Command   { return Command{Kind: CmdStopJog} }
func SetBottomCommand() Command { return Command{Kind: CmdSetBottom} }

func StartJogCommand(dir planner.Direction) Command {
	return Command{Kind: CmdStartJog, Dir: dir}
}

func MoveToPosCommand(pct uint8) Command {
	return Command{Kind: CmdMoveToPos, Pct: pct}
}

// ErrorSeverity mirrors the taxonomy in the error handling design:
// Soft errors drop the offending command, Hard errors indicate a
// condition the controller continues past with a fallback.
type ErrorSeverity int

const (
	Soft ErrorSeverity = iota
	Hard
)

// ErrorEvent is sent on the error signal for the error-LED task to
// render as a blink pattern.
type ErrorEvent struct {
	Severity ErrorSeverity
	Err      error
}

// travelLimitKey is the single NVS key this controller persists.
const travelLimitKey uint8 = 0x00

// MotorController is the dispatcher task described in section 4.4: it
// owns the StepPlanner, the TMC2209 driver (configured once at boot),
// the PersistentStore, and the shared signals that connect it to the
// input and MQTT-publish tasks.
type MotorController struct {
	plan    *planner.Planner
	driver  *tmc2209.Driver
	addr    uint8
	gpio    GPIO
	endstop func() bool
	store   *nvs.Store
	log     *slog.Logger

	dirMu     sync.RWMutex
	dirToHome planner.Direction

	LastCommand   *Signal[Command]
	CurrentPos    *Signal[uint8]
	ConfirmSignal *Signal[struct{}]
	ErrorSignal   *Signal[ErrorEvent]
}

// New constructs a MotorController. The signals are owned by the
// caller (wired to the input tasks and the MQTT publish path in
// cmd/crabroll) rather than as package-level globals.
func New(driver *tmc2209.Driver, addr uint8, gpio GPIO, endstop func() bool, store *nvs.Store, dirToHome planner.Direction, log *slog.Logger) *MotorController {
	if log == nil {
		log = slog.Default()
	}
	return &MotorController{
		driver:        driver,
		addr:          addr,
		gpio:          gpio,
		endstop:       endstop,
		store:         store,
		log:           log,
		dirToHome:     dirToHome,
		LastCommand:   NewSignal[Command](),
		CurrentPos:    NewSignal[uint8](),
		ConfirmSignal: NewSignal[struct{}](),
		ErrorSignal:   NewSignal[ErrorEvent](),
	}
}

func (m *MotorController) DirToHome() planner.Direction {
	m.dirMu.RLock()
	defer m.dirMu.RUnlock()
	return m.dirToHome
}

func (m *MotorController) SetDirToHome(dir planner.Direction) {
	m.dirMu.Lock()
	defer m.dirMu.Unlock()
	m.dirToHome = dir
}

// Boot runs the fixed TMC2209 register-configuration sequence, then
// the travel-limit/PersistentStore bootstrap, constructs the
// StepPlanner, and performs the initial homing move. Register write
// failures panic: they indicate a wiring fault, not a condition this
// firmware retries.
func (m *MotorController) Boot() {
	gconf := bootGconf
	if err := gconf.Write(m.driver, m.addr, gconf.Pack()); err != nil {
		panic("motorctl: boot GCONF write failed: " + err.Error())
	}
	chopconf := bootChopconf
	if err := chopconf.Write(m.driver, m.addr, chopconf.Pack()); err != nil {
		panic("motorctl: boot CHOPCONF write failed: " + err.Error())
	}
	iholdIrun := bootIholdIrun
	if err := iholdIrun.Write(m.driver, m.addr, iholdIrun.Pack()); err != nil {
		panic("motorctl: boot IHOLD_IRUN write failed: " + err.Error())
	}

	travelLimit := defaultTravelLimit
	v, err := m.store.Get(travelLimitKey)
	switch {
	case err == nil:
		travelLimit = v
	case errors.Is(err, nvs.ErrNotFound):
		if putErr := m.store.Put(travelLimitKey, defaultTravelLimit); putErr != nil {
			m.raiseHard(putErr)
		}
	default:
		m.raiseHard(err)
	}

	m.plan = planner.New(planner.Config{
		TravelLimit: travelLimit,
		MaxSpeed:    maxVelocity,
		MaxAccel:    maxAcceleration,
		StartVel:    startVelocity,
	})

	m.doHome()
}

// Run consumes LastCommand until ctx-equivalent shutdown; callers run
// this as the step executor's only task. There is no context plumbed
// through here because every suspension point inside it is either the
// command wait or an absolute-time step delay, neither of which this
// firmware ever cancels externally — shutdown is a process restart.
func (m *MotorController) Run() {
	for {
		cmd := m.LastCommand.Recv()
		m.handle(cmd)
	}
}

func (m *MotorController) handle(cmd Command) {
	switch cmd.Kind {
	case CmdHome:
		m.doHome()
	case CmdStartJog:
		m.doJog(cmd.Dir)
	case CmdStopJog:
		// No-op at the dispatcher level: handled inside the jog
		// continuation predicate in doJog.
	case CmdSetBottom:
		m.doSetBottom()
	case CmdMoveToPos:
		m.doMoveToPos(cmd.Pct)
	}
}

func (m *MotorController) doHome() {
	dir := m.DirToHome()
	m.gpio.SetDir(dir)
	seq, _ := m.plan.HomingMove(m.endstop)
	for {
		delay, ok := seq.Next()
		if !ok {
			break
		}
		m.emitStep(delay)
	}
	m.publishPosition()
}

func (m *MotorController) doJog(dir planner.Direction) {
	m.gpio.SetDir(dir)
	continueFn := func() bool {
		cmd, ok := m.LastCommand.TryRecv()
		if !ok {
			return true
		}
		if cmd.Kind != CmdStopJog {
			// A new command preempts the jog; put it back so the
			// dispatcher processes it once this jog unwinds.
			m.LastCommand.Send(cmd)
		}
		return false
	}
	seq, err := m.plan.ContinuousJog(continueFn, dir)
	if err != nil {
		m.raiseSoft(err)
		return
	}
	for {
		delay, ok := seq.Next()
		if !ok {
			break
		}
		m.emitStep(delay)
	}
	m.publishPosition()
}

func (m *MotorController) doSetBottom() {
	pos, known := m.plan.Position()
	if !known {
		m.raiseSoft(planner.ErrNotHomed)
		return
	}
	limit := pos
	if limit < 1 {
		limit = 1
	}
	m.plan.SetTravelLimit(limit)
	if err := m.store.Put(travelLimitKey, limit); err != nil {
		m.raiseSoft(err)
		return
	}
	m.ConfirmSignal.Send(struct{}{})
	m.publishPosition()
}

func (m *MotorController) doMoveToPos(pct uint8) {
	limit := m.plan.TravelLimit()
	target := uint32(uint64(pct) * uint64(limit) / 100)
	seq, dir, err := m.plan.PlannedMove(target)
	if err != nil {
		m.raiseSoft(err)
		return
	}
	m.gpio.SetDir(dir)
	for {
		delay, ok := seq.Next()
		if !ok {
			break
		}
		m.emitStep(delay)
	}
	m.publishPosition()
}

func (m *MotorController) publishPosition() {
	pos, known := m.plan.Position()
	if !known {
		m.CurrentPos.Send(0)
		return
	}
	limit := m.plan.TravelLimit()
	if limit == 0 {
		m.CurrentPos.Send(0)
		return
	}
	pct := uint8(uint64(pos) * 100 / uint64(limit))
	m.CurrentPos.Send(pct)
}

// emitStep drives one step pulse: HIGH for the TMC2209's minimum pulse
// width, then LOW, then an absolute-time wait from the pulse's own
// start so cumulative delay drift is zero.
func (m *MotorController) emitStep(delay time.Duration) {
	t0 := time.Now()
	m.gpio.SetStep(true)
	time.Sleep(100 * time.Nanosecond)
	m.gpio.SetStep(false)
	if remaining := time.Until(t0.Add(delay)); remaining > 0 {
		time.Sleep(remaining)
	}
}

func (m *MotorController) raiseSoft(err error) {
	m.log.Warn("motor command failed", slog.String("error", err.Error()))
	m.ErrorSignal.Send(ErrorEvent{Severity: Soft, Err: err})
}

func (m *MotorController) raiseHard(err error) {
	m.log.Error("persistent store failure, continuing with defaults", slog.String("error", err.Error()))
	m.ErrorSignal.Send(ErrorEvent{Severity: Hard, Err: err})
}

//go:build tinygo

// Command crabroll is the firmware entrypoint: it wires the GPIO
// pinout, the TMC2209 driver, the PersistentStore, the motor
// dispatcher, the four button tasks, Wi-Fi maintenance, and the MQTT
// session to each other and starts them as goroutines, mirroring the
// two-executor split from the concurrency model (the dispatcher runs
// pinned to its own goroutine; everything else runs loosely on the
// others).
package main

import (
	"context"
	"log/slog"
	"machine"
	"net/netip"
	"time"

	"tinygo.org/x/drivers/netlink"

	"crabroll/config"
	"crabroll/internal/input"
	"crabroll/internal/motorctl"
	"crabroll/internal/mqttclient"
	"crabroll/internal/nvs"
	"crabroll/internal/planner"
	"crabroll/internal/wifinet"
	"crabroll/netdev/tcpip"
	"crabroll/netlink/probe"
	"crabroll/tmc2209"
)

// GPIO pinout: logical roles, exact pin numbers are board configuration.
var (
	stepPin    = machine.D2
	dirPin     = machine.D3
	endstopPin = machine.D4
	homeBtn    = machine.D5
	raiseBtn   = machine.D6
	lowerBtn   = machine.D7
	bottomBtn  = machine.D8
	greenLED   = machine.D9
	redLED     = machine.D10
)

// motorGPIO adapts the step/dir output pins to motorctl.GPIO.
type motorGPIO struct{ step, dir machine.Pin }

func (g motorGPIO) SetStep(high bool) { g.step.Set(high) }
func (g motorGPIO) SetDir(dir planner.Direction) {
	g.dir.Set(dir == planner.ToHome)
}

type pinRead struct{ pin machine.Pin }

func (p pinRead) Get() bool { return p.pin.Get() }

// netlinkRadio adapts a netlink.Netlinker (the board's Wi-Fi driver,
// selected by netlink/probe for the target build tag) to
// wifinet.Radio, tracking association state via NetNotify since
// Netlinker has no synchronous Connected query of its own.
type netlinkRadio struct {
	link      netlink.Netlinker
	connected bool
}

func newNetlinkRadio(link netlink.Netlinker) *netlinkRadio {
	r := &netlinkRadio{link: link}
	link.NetNotify(func(ev netlink.Event) {
		r.connected = ev == netlink.EventNetUp
	})
	return r
}

func (r *netlinkRadio) Connected() bool { return r.connected }

func (r *netlinkRadio) Connect(ssid, password string) error {
	return r.link.NetConnect(&netlink.ConnectParams{
		Ssid:       ssid,
		Passphrase: password,
	})
}

// flashBlockDevice is a placeholder nvs.BlockDevice over a reserved
// flash region; the concrete erase/program calls are board-specific
// and supplied by whatever flash package the target board ships.
type flashBlockDevice struct {
	data []byte
}

func newFlashBlockDevice(size int) *flashBlockDevice {
	return &flashBlockDevice{data: make([]byte, size)}
}
func (f *flashBlockDevice) Size() int64 { return int64(len(f.data)) }
func (f *flashBlockDevice) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, f.data[off:]), nil
}
func (f *flashBlockDevice) WriteAt(p []byte, off int64) (int, error) {
	return copy(f.data[off:], p), nil
}

func main() {
	log := slog.New(slog.NewTextHandler(machine.Serial, nil))

	cfg, err := config.Load()
	if err != nil {
		blinkErrorForever(log, err)
		return
	}

	for _, pin := range []machine.Pin{stepPin, dirPin, greenLED, redLED} {
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	for _, pin := range []machine.Pin{endstopPin, homeBtn, raiseBtn, lowerBtn, bottomBtn} {
		pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}

	uart, err := tmc2209.NewUARTStream(machine.UART1)
	if err != nil {
		blinkErrorForever(log, err)
		return
	}
	driver, err := tmc2209.New(uart, [4]bool{true, false, false, false})
	if err != nil {
		blinkErrorForever(log, err)
		return
	}

	store, err := nvs.Open(newFlashBlockDevice(4096))
	if err != nil {
		blinkErrorForever(log, err)
		return
	}

	gpio := motorGPIO{step: stepPin, dir: dirPin}
	endstop := func() bool { return !endstopPin.Get() } // active-low
	ctl := motorctl.New(driver, 0, gpio, endstop, store, planner.ToHome, log)
	ctl.Boot()
	go ctl.Run()

	go input.RunButton(input.Home, pinRead{homeBtn}, ctl.LastCommand)
	go input.RunButton(input.Raise, pinRead{raiseBtn}, ctl.LastCommand)
	go input.RunButton(input.Lower, pinRead{lowerBtn}, ctl.LastCommand)
	go input.RunButton(input.Bottom, pinRead{bottomBtn}, ctl.LastCommand)

	link, netdever := probe.Probe()
	stack := tcpip.New(link, log, 1500)

	ctx := context.Background()
	go wifinet.MaintainConnection(ctx, newNetlinkRadio(link), cfg.SSID, cfg.Password, log)

	go runMQTTSession(ctx, cfg, stack, ctl, log)
	go runErrorLED(ctl)

	_ = netdever
	select {}
}

func runMQTTSession(ctx context.Context, cfg config.Config, stack *tcpip.Tcpip, ctl *motorctl.MotorController, log *slog.Logger) {
	for {
		brokerAddr, err := netip.ParseAddr(cfg.MQTTBrokerIP)
		if err != nil {
			log.Error("mqtt: invalid broker address", slog.String("error", err.Error()))
			return
		}
		conn, err := stack.Dial(netip.AddrPortFrom(brokerAddr, 1883))
		if err != nil {
			log.Warn("mqtt: dial failed", slog.String("error", err.Error()))
			time.Sleep(mqttclient.ReconnectWait())
			continue
		}

		client := mqttclient.New(cfg, ctl.LastCommand, log)
		if err := client.Connect(ctx, conn); err != nil {
			log.Warn("mqtt: connect failed", slog.String("error", err.Error()))
			conn.Close()
			time.Sleep(mqttclient.ReconnectWait())
			continue
		}

		go bridgePosition(ctx, client, ctl, log)

		if err := client.Run(ctx); err != nil {
			log.Warn("mqtt: session ended", slog.String("error", err.Error()))
		}
		conn.Close()
		time.Sleep(mqttclient.ReconnectWait())
	}
}

func bridgePosition(ctx context.Context, client *mqttclient.Client, ctl *motorctl.MotorController, log *slog.Logger) {
	for {
		pct := ctl.CurrentPos.Recv()
		if err := client.PublishPosition(ctx, pct); err != nil {
			log.Warn("mqtt: publish position failed", slog.String("error", err.Error()))
			return
		}
	}
}

func runErrorLED(ctl *motorctl.MotorController) {
	for {
		ev := ctl.ErrorSignal.Recv()
		redLED.High()
		if ev.Severity == motorctl.Hard {
			time.Sleep(2 * time.Second)
		} else {
			time.Sleep(1 * time.Second)
		}
		redLED.Low()
	}
}

func blinkErrorForever(log *slog.Logger, err error) {
	log.Error("configuration error", slog.String("error", err.Error()))
	redLED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		redLED.High()
		time.Sleep(time.Second)
		redLED.Low()
		time.Sleep(time.Second)
	}
}

// Package wifinet implements the Wi-Fi connection-maintenance task
// from the concurrency model's main executor: a reconnect loop that
// keeps the station associated, backing off 5s after a failed connect
// attempt or a disconnect, mirroring the original firmware's
// connection task. Association and DHCP themselves are treated as an
// external collaborator (the board's native radio driver), not
// reimplemented here.
package wifinet

import (
	"context"
	"log/slog"
	"time"
)

// reconnectBackoff is the settle time after a disconnect or a failed
// connect attempt before retrying, matching the original task's fixed
// 5-second backoff.
const reconnectBackoff = 5 * time.Second

// pollInterval is how often MaintainConnection checks Connected while
// already associated, since this package has no disconnect-event
// primitive to wait on.
const pollInterval = time.Second

// Radio is the board's Wi-Fi station boundary: Connected reports
// current association state, Connect attempts to join ssid/password
// and blocks until the attempt succeeds or fails.
type Radio interface {
	Connected() bool
	Connect(ssid, password string) error
}

// MaintainConnection runs until ctx is cancelled, keeping radio
// associated to ssid/password and backing off reconnectBackoff after
// every disconnect or failed attempt.
func MaintainConnection(ctx context.Context, radio Radio, ssid, password string, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	for {
		if ctx.Err() != nil {
			return
		}
		if radio.Connected() {
			if !waitForDisconnect(ctx, radio) {
				return
			}
			sleep(ctx, reconnectBackoff)
			continue
		}

		log.Info("wifi: connecting", slog.String("ssid", ssid))
		if err := radio.Connect(ssid, password); err != nil {
			log.Warn("wifi: connect failed", slog.String("error", err.Error()))
			sleep(ctx, reconnectBackoff)
			continue
		}
		log.Info("wifi: connected")
	}
}

// waitForDisconnect polls until radio reports disconnected, returning
// false if ctx was cancelled first.
func waitForDisconnect(ctx context.Context, radio Radio) bool {
	for radio.Connected() {
		if !sleep(ctx, pollInterval) {
			return false
		}
	}
	return true
}

// sleep waits for d or ctx cancellation, reporting which happened.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

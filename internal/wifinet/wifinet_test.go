package wifinet

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

type fakeRadio struct {
	connected   int32
	connectErrs int32 // number of leading Connect calls that fail
	attempts    int32
}

func (r *fakeRadio) Connected() bool { return atomic.LoadInt32(&r.connected) == 1 }

func (r *fakeRadio) Connect(ssid, password string) error {
	n := atomic.AddInt32(&r.attempts, 1)
	if n <= atomic.LoadInt32(&r.connectErrs) {
		return errConnectFailed
	}
	atomic.StoreInt32(&r.connected, 1)
	return nil
}

var errConnectFailed = &connectError{}

type connectError struct{}

func (*connectError) Error() string { return "connect failed" }

func TestMaintainConnectionConnectsOnFirstTry(t *testing.T) {
	c := qt.New(t)
	radio := &fakeRadio{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		MaintainConnection(ctx, radio, "ssid", "pw", nil)
		close(done)
	}()

	c.Assert(waitUntil(func() bool { return radio.Connected() }, time.Second), qt.IsTrue)
	cancel()
	<-done
}

func waitUntil(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

package client

import (
	"sync"
	"time"
)

// heartbeat sends a ping every interval until stopped. A missing pong is
// never treated as a failure; only the transport closing ends a session.
type heartbeat struct {
	interval time.Duration
	send     func()

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// startHeartbeat starts pinging. A non-positive interval disables it and
// returns nil.
func startHeartbeat(interval time.Duration, send func()) *heartbeat {
	if interval <= 0 {
		return nil
	}
	hb := &heartbeat{
		interval: interval,
		send:     send,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go hb.loop()
	return hb
}

// stop ends the loop. It does not wait for a ping in progress.
func (hb *heartbeat) stop() {
	if hb == nil {
		return
	}
	hb.stopOnce.Do(func() { close(hb.stopCh) })
}

// done is closed when the loop has exited.
func (hb *heartbeat) done() <-chan struct{} {
	return hb.doneCh
}

func (hb *heartbeat) loop() {
	defer close(hb.doneCh)

	ticker := time.NewTicker(hb.interval)
	defer ticker.Stop()

	for {
		select {
		case <-hb.stopCh:
			return
		case <-ticker.C:
			// stop may race with a tick; prefer stopping.
			select {
			case <-hb.stopCh:
				return
			default:
			}
			hb.send()
		}
	}
}

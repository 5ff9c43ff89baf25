package main

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"cardledger/core/events"
	"cardledger/core/types"
)

// wireEvent is satisfied by every typed event in core/events — each exposes
// an Event() conversion to the wire-format types.Event, the same pattern the
// teacher's own event structs use.
type wireEvent interface {
	Event() *types.Event
}

// hub implements events.Emitter and fans every emitted event out to the
// daemon's connected websocket subscribers, in addition to whatever else the
// caller does with the engine's return values. A slow or absent subscriber
// never blocks the engine: Emit only ever sends on a buffered channel and
// drops the event if the buffer is full.
type hub struct {
	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
}

func newHub() *hub {
	return &hub{subscribers: make(map[chan []byte]struct{})}
}

// Emit implements events.Emitter.
func (h *hub) Emit(evt events.Event) {
	we, ok := evt.(wireEvent)
	if !ok {
		return
	}
	raw, err := json.Marshal(we.Event())
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- raw:
		default:
		}
	}
}

func (h *hub) subscribe() chan []byte {
	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subscribers, ch)
	h.mu.Unlock()
	close(ch)
}

// wallClock implements native/lending.Clock over the process wall clock.
type wallClock struct{}

func (wallClock) NowSeconds() uint64 { return uint64(time.Now().Unix()) }

// noopPauses implements native/common.PauseView with nothing ever paused;
// cardledgerd has no admin pause surface of its own yet.
type noopPauses struct{}

func (noopPauses) IsPaused(string) bool { return false }

// backgroundTicker runs fn every interval until ctx is cancelled.
func backgroundTicker(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

package feed

import (
	"context"
	"sync"
)

// Broadcaster is a minimal pub/sub for win updates. Every listener gets
// its own buffered channel; Send fans out to all of them.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[chan WinUpdate]struct{}
	buffer int
}

// NewBroadcaster creates a broadcaster; buffer sizes each listener channel.
func NewBroadcaster(buffer int) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[chan WinUpdate]struct{}),
		buffer: buffer,
	}
}

// Send delivers the update to every listener (non-blocking, a slow
// listener drops the update rather than stalling the rest).
func (b *Broadcaster) Send(update WinUpdate) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- update:
		default:
			// drop for this listener; keep simple
		}
	}
}

// Listen registers a subscriber and returns its channel plus a cancel
// function that unregisters it and closes the channel.
func (b *Broadcaster) Listen(ctx context.Context) (<-chan WinUpdate, context.CancelFunc) {
	listenerCtx, cancel := context.WithCancel(ctx)
	out := make(chan WinUpdate, b.buffer)

	b.mu.Lock()
	b.subs[out] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-listenerCtx.Done()
		b.mu.Lock()
		if _, ok := b.subs[out]; ok {
			delete(b.subs, out)
			close(out)
		}
		b.mu.Unlock()
	}()

	return out, cancel
}

// Listeners reports the current subscriber count.
func (b *Broadcaster) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

package queue

import (
	"context"
	"log"
	"sync"
	"time"
)

// Pinger reports whether the remote store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Watcher tracks connectivity to the remote store by pinging it on an
// interval. An offline-to-online transition immediately flushes the queue,
// mirroring how the courier app reacts to the browser's online event.
type Watcher struct {
	pinger   Pinger
	queue    *Queue
	interval time.Duration
	onChange func(online bool)
	stopChan chan struct{}

	mu     sync.RWMutex
	online bool
}

func NewWatcher(p Pinger, q *Queue, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Watcher{
		pinger:   p,
		queue:    q,
		interval: interval,
		stopChan: make(chan struct{}),
		online:   true, // assume online until a ping says otherwise
	}
}

// OnChange registers a callback for connectivity transitions. Set before
// Start.
func (w *Watcher) OnChange(fn func(online bool)) { w.onChange = fn }

// Online reports the last observed connectivity state.
func (w *Watcher) Online() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.online
}

func (w *Watcher) Start() {
	go w.run()
}

func (w *Watcher) Stop() {
	close(w.stopChan)
}

func (w *Watcher) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := w.pinger.Ping(ctx)
	cancel()

	nowOnline := err == nil
	w.mu.Lock()
	wasOnline := w.online
	w.online = nowOnline
	w.mu.Unlock()

	if nowOnline == wasOnline {
		return
	}
	if nowOnline {
		log.Printf("queue: remote store reachable again, flushing")
		flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		w.queue.Flush(flushCtx)
		cancel()
	} else {
		log.Printf("queue: remote store unreachable: %v", err)
	}
	if w.onChange != nil {
		w.onChange(nowOnline)
	}
}

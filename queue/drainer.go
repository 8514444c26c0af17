package queue

import (
	"context"
	"log"
	"time"
)

// Drainer periodically flushes the action queue so actions that missed an
// online transition or sync signal still get replayed.
type Drainer struct {
	queue    *Queue
	interval time.Duration
	stopChan chan struct{}
}

func NewDrainer(q *Queue, interval time.Duration) *Drainer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Drainer{
		queue:    q,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (d *Drainer) Start() {
	go d.run()
}

func (d *Drainer) Stop() {
	close(d.stopChan)
}

func (d *Drainer) run() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), d.interval)
			stats := d.queue.Flush(ctx)
			cancel()
			if stats.Attempted > 0 {
				log.Printf("queue: drain pass replayed %d/%d actions", stats.Replayed, stats.Attempted)
			}
		}
	}
}

package mqtt

import (
	"context"
	"log"

	"github.com/sweeney/castle/internal/logic"
)

// DefaultQueueSize is the number of door events that may wait for publishing.
const DefaultQueueSize = 64

// Queue hands door events from the control loop to a publishing goroutine
// so broker latency never delays the loop.
type Queue struct {
	ch chan logic.Event
}

// NewQueue creates a Queue holding up to size events.
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan logic.Event, size)}
}

// Offer enqueues e without blocking. It returns false and logs if the
// queue is full.
func (q *Queue) Offer(e logic.Event) bool {
	select {
	case q.ch <- e:
		return true
	default:
		log.Printf("mqtt: event queue full, dropping %s", e.Type)
		return false
	}
}

// Run publishes queued events until ctx is cancelled, then publishes
// whatever is still queued and returns.
func (q *Queue) Run(ctx context.Context, pub Publisher) {
	for {
		select {
		case e := <-q.ch:
			q.publish(pub, e)
		case <-ctx.Done():
			for {
				select {
				case e := <-q.ch:
					q.publish(pub, e)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) publish(pub Publisher, e logic.Event) {
	log.Printf("event: %s (lock=%s hinge=%s)", e.Type, e.Lock, e.Hinge)
	if err := pub.Publish(e); err != nil {
		log.Printf("publish error: %v", err)
	}
}

// Copyright 2024 The mqttd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mqtt

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/bdelacey/mqttd/internal/logger"
)

// queueRunner drains opaque keys once their deadline has passed. Multiple
// registrations for the same key coalesce: the latest enqueued deadline
// wins, and earlier heap entries are discarded as stale when they fire.
type queueRunner[K comparable] struct {
	log    *logger.Logger
	mu     sync.Mutex
	heap   deadlineHeap[K]
	latest map[K]time.Time
	wake   chan struct{}
}

func newQueueRunner[K comparable](name string, l *logger.Logger) *queueRunner[K] {
	return &queueRunner[K]{
		log:    l.WithPrefix(name),
		latest: make(map[K]time.Time),
		wake:   make(chan struct{}, 1),
	}
}

// enqueue registers a key to be drained no earlier than deadline. A second
// enqueue for the same key replaces the prior registration.
func (q *queueRunner[K]) enqueue(deadline time.Time, key K) {
	q.mu.Lock()
	q.latest[key] = deadline
	heap.Push(&q.heap, deadlineEntry[K]{deadline: deadline, key: key})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// run sleeps until the next deadline, then calls drain with the due key.
// Drain functions are invoked serially and may enqueue again. The loop
// terminates when ctx is cancelled; an in-flight drain completes first.
func (q *queueRunner[K]) run(ctx context.Context, drain func(key K)) {
	q.log.Debug().Msg("Queue runner started")

	for {
		q.mu.Lock()
		if q.heap.Len() == 0 {
			q.mu.Unlock()
			select {
			case <-ctx.Done():
				q.log.Debug().Msg("Queue runner stopped")
				return
			case <-q.wake:
			}
			continue
		}

		next := q.heap[0]
		wait := time.Until(next.deadline)
		if wait > 0 {
			q.mu.Unlock()

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				q.log.Debug().Msg("Queue runner stopped")
				return
			case <-q.wake:
				timer.Stop()
			case <-timer.C:
			}
			continue
		}

		entry := heap.Pop(&q.heap).(deadlineEntry[K])
		latest, ok := q.latest[entry.key]
		if !ok || !latest.Equal(entry.deadline) {
			// A later registration superseded this entry.
			q.mu.Unlock()
			continue
		}
		delete(q.latest, entry.key)
		q.mu.Unlock()

		drain(entry.key)

		select {
		case <-ctx.Done():
			q.log.Debug().Msg("Queue runner stopped")
			return
		default:
		}
	}
}

type deadlineEntry[K comparable] struct {
	deadline time.Time
	key      K
}

type deadlineHeap[K comparable] []deadlineEntry[K]

func (h deadlineHeap[K]) Len() int {
	return len(h)
}

func (h deadlineHeap[K]) Less(i, j int) bool {
	return h[i].deadline.Before(h[j].deadline)
}

func (h deadlineHeap[K]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *deadlineHeap[K]) Push(x any) {
	*h = append(*h, x.(deadlineEntry[K]))
}

func (h *deadlineHeap[K]) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}

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
	"context"
	"sync"
	"time"

	"github.com/bdelacey/mqttd/internal/logger"
	"github.com/bdelacey/mqttd/internal/mqtt/packet"
)

type retainedMessage struct {
	pub       *packet.Publish
	createdAt time.Time
	expiresAt *time.Time
}

// retainedStore holds the last retained message per topic. Messages with a
// Message-Expiry-Interval are evicted by the store's queue runner.
type retainedStore struct {
	log      *logger.Logger
	stats    *Stats
	db       *persistQueue
	runner   *queueRunner[string]
	mu       sync.RWMutex
	messages map[string]*retainedMessage
}

func newRetainedStore(st *Stats, db *persistQueue, l *logger.Logger) *retainedStore {
	return &retainedStore{
		log:      l.WithPrefix("mqtt.retained"),
		stats:    st,
		db:       db,
		runner:   newQueueRunner[string]("mqtt.retained.expiry", l),
		messages: make(map[string]*retainedMessage),
	}
}

// run drives the TTL eviction until ctx is cancelled.
func (rs *retainedStore) run(ctx context.Context) {
	rs.runner.run(ctx, rs.cleanup)
}

// retain stores, replaces or removes the retained message for the topic of
// the given publish. It is a no-op when the publish does not carry the
// retain flag; an empty payload removes the entry.
func (rs *retainedStore) retain(pr *packet.Publish) {
	if !pr.Retain {
		return
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if len(pr.Payload) == 0 {
		if _, ok := rs.messages[pr.TopicName]; ok {
			delete(rs.messages, pr.TopicName)
			rs.stats.add(&rs.stats.Retained, -1)
			rs.db.deleteRetained(pr.TopicName)
			rs.log.Debug().
				Str("TopicName", pr.TopicName).
				Msg("Retained message removed")
		}
		return
	}

	now := time.Now()
	msg := &retainedMessage{pub: pr.Clone(), createdAt: now}
	if exp := pr.MessageExpiryInterval(); exp != nil {
		at := now.Add(time.Duration(*exp) * time.Second)
		msg.expiresAt = &at
		rs.runner.enqueue(at, pr.TopicName)
	}

	if _, ok := rs.messages[pr.TopicName]; !ok {
		rs.stats.add(&rs.stats.Retained, 1)
	}
	rs.messages[pr.TopicName] = msg
	rs.db.saveRetained(&RetainedRecord{
		Topic:     pr.TopicName,
		Payload:   pr.Payload,
		QoS:       byte(pr.QoS),
		CreatedAt: msg.createdAt,
		ExpiresAt: msg.expiresAt,
	})

	rs.log.Debug().
		Uint8("QoS", byte(pr.QoS)).
		Str("TopicName", pr.TopicName).
		Msg("Retained message stored")
}

// match returns the retained messages whose topic matches the given
// filter, as clones of the stored publishes. Callers adjust the packet
// identifier, QoS and retain flag per subscription.
func (rs *retainedStore) match(filter string) []*packet.Publish {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	var matches []*packet.Publish
	for topic, msg := range rs.messages {
		if matchesFilter(filter, topic) {
			matches = append(matches, msg.pub.Clone())
		}
	}

	return matches
}

// cleanup removes the entry for the given topic once its expiry passed.
// The entry may have been replaced since the expiry was registered, so the
// current deadline is re-checked before removal.
func (rs *retainedStore) cleanup(topic string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	msg, ok := rs.messages[topic]
	if !ok || msg.expiresAt == nil {
		return
	}
	if time.Now().Before(*msg.expiresAt) {
		return
	}

	delete(rs.messages, topic)
	rs.stats.add(&rs.stats.Retained, -1)
	rs.db.deleteRetained(topic)
	rs.log.Debug().
		Str("TopicName", topic).
		Msg("Retained message expired")
}

// restore rehydrates the store from persistence at startup. Entries whose
// expiry already passed are discarded; the remaining TTLs are re-registered
// with the runner.
func (rs *retainedStore) restore(records []*RetainedRecord) {
	now := time.Now()

	rs.mu.Lock()
	defer rs.mu.Unlock()

	for _, rec := range records {
		if rec.ExpiresAt != nil && !now.Before(*rec.ExpiresAt) {
			rs.db.deleteRetained(rec.Topic)
			continue
		}

		pub := packet.NewPublish(0, rec.Topic, packet.QoS(rec.QoS), false,
			true, rec.Payload, nil)
		if rec.ExpiresAt != nil {
			remaining := uint32(rec.ExpiresAt.Sub(now).Seconds())
			pub.Properties = &packet.Properties{
				MessageExpiryInterval: packet.Uint32(remaining),
			}
			rs.runner.enqueue(*rec.ExpiresAt, rec.Topic)
		}

		rs.messages[rec.Topic] = &retainedMessage{
			pub:       &pub,
			createdAt: rec.CreatedAt,
			expiresAt: rec.ExpiresAt,
		}
		rs.stats.add(&rs.stats.Retained, 1)
	}

	rs.log.Info().
		Int("Messages", len(rs.messages)).
		Msg("Retained messages restored")
}

func (rs *retainedStore) count() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.messages)
}

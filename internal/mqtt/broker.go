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

// Package mqtt implements the core of a single-node MQTT v5 broker: the
// session registry, the subscription index, the retained message store,
// the publish routing engine, the per-session QoS state machines, topic
// alias handling and the expiry schedulers binding them together.
//
// The wire codec and the per-connection I/O loops are external
// collaborators. They call into the core through RegisterClient, Dispatch
// and UnregisterClient, and consume each session's outbound queue.
package mqtt

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bdelacey/mqttd/internal/logger"
	"github.com/bdelacey/mqttd/internal/mqtt/packet"
)

// Configuration holds the broker core configuration.
type Configuration struct {
	// Users known to the broker.
	Users []User

	// SessionExpiryDefault is the grace period, in seconds, applied to a
	// session whose client did not negotiate a Session-Expiry-Interval.
	SessionExpiryDefault uint32

	// OutboundQueueSize bounds the packet queue of each session.
	OutboundQueueSize int

	// BacklogSize bounds the per-session queue of publishes waiting for an
	// in-flight slot.
	BacklogSize int

	// SysInterval is the interval, in seconds, between $SYS statistics
	// publications.
	SysInterval int

	// AllowAnonymous indicates whether clients without valid credentials
	// are admitted.
	AllowAnonymous bool
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	// NextID generates a new identifier.
	NextID() uint64
}

// Broker is the broker core. All session and subscription state is shared
// memory protected by a single routing-core lock; the retained store, the
// schedulers and the persistence queue synchronize independently.
type Broker struct {
	conf     Configuration
	log      *logger.Logger
	idGen    IDGenerator
	auth     *authorizer
	stats    *Stats
	db       *persistQueue
	retained *retainedStore
	expiry   *queueRunner[SessionID]

	// mu is the routing-core lock guarding sessions, the subscription
	// index, and every session's mutable fields.
	mu       sync.Mutex
	sessions map[SessionID]*Session
	subs     *subTree[map[SessionID]subOptions]

	lastPacketID uint32
	lastConnID   uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a broker core using the given persistence store.
func New(conf Configuration, store Store, gen IDGenerator, l *logger.Logger) *Broker {
	db := newPersistQueue(store, l)
	st := newStats()

	return &Broker{
		conf:     conf,
		log:      l.WithPrefix("mqtt.broker"),
		idGen:    gen,
		auth:     newAuthorizer(conf.Users, conf.AllowAnonymous, l),
		stats:    st,
		db:       db,
		retained: newRetainedStore(st, db, l),
		expiry:   newQueueRunner[SessionID]("mqtt.session.expiry", l),
		sessions: make(map[SessionID]*Session),
		subs:     newSubTree[map[SessionID]subOptions](mergeSubscribers),
	}
}

// Start restores the persisted state and launches the broker runners: the
// session expiry scheduler, the retained message expiry scheduler, the
// $SYS publisher, and the persistence writer.
func (b *Broker) Start(ctx context.Context) error {
	ctx, b.cancel = context.WithCancel(ctx)

	if err := b.restore(ctx, b.db.store); err != nil {
		b.cancel()
		return err
	}

	b.wg.Add(4)
	go func() {
		defer b.wg.Done()
		b.db.run(ctx)
	}()
	go func() {
		defer b.wg.Done()
		b.retained.run(ctx)
	}()
	go func() {
		defer b.wg.Done()
		b.expiry.run(ctx, b.expireSession)
	}()
	go func() {
		defer b.wg.Done()
		b.runSysPublisher(ctx, time.Duration(b.conf.SysInterval)*time.Second)
	}()

	b.log.Info().Msg("Broker started")
	return nil
}

// Stop cancels the broker runners and waits for them to finish.
func (b *Broker) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	b.log.Info().Msg("Broker stopped")
}

// Stats returns the broker counters.
func (b *Broker) Stats() *Stats {
	return b.stats
}

// restore rehydrates the registry and the retained store from persistence
// and schedules an expiry check for every restored session.
func (b *Broker) restore(ctx context.Context, store Store) error {
	sessions, err := store.LoadSessions(ctx)
	if err != nil {
		return err
	}
	retained, err := store.LoadRetained(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	defaultExpiry := now.Add(time.Duration(b.conf.SessionExpiryDefault) * time.Second)

	b.mu.Lock()
	for _, rec := range sessions {
		sid := SessionID(rec.ID)
		s := newSession(sid, nil, nil, b.conf.OutboundQueueSize, 0, nil)

		// A session persisted without a deadline was connected when the
		// broker went down; it gets the default grace window, like any
		// other unclean disconnect.
		expiresAt := rec.ExpiresAt
		if expiresAt == nil {
			at := defaultExpiry
			expiresAt = &at
		}
		s.expiresAt = expiresAt

		if rec.WillTopic != "" {
			will := packet.NewPublish(0, rec.WillTopic, packet.QoS(rec.WillQoS),
				false, rec.WillRetain, rec.WillPayload, nil)
			s.will = &will
		}

		for _, t := range rec.Subscriptions {
			s.subscriptions[t.Filter] = optionsFromTopic(t)
			_ = b.subs.add(t.Filter, map[SessionID]subOptions{sid: optionsFromTopic(t)})
			b.stats.add(&b.stats.Subscriptions, 1)
		}

		b.sessions[sid] = s
		b.stats.add(&b.stats.ClientsTotal, 1)
		b.expiry.enqueue(now, sid)
	}
	b.mu.Unlock()

	b.retained.restore(retained)
	b.log.Info().
		Int("Sessions", len(sessions)).
		Int("Retained", len(retained)).
		Msg("Persisted state restored")
	return nil
}

// nextPacketID allocates a broker-wide packet identifier, wrapping from
// 65535 back to 1 and never producing zero.
func (b *Broker) nextPacketID() packet.ID {
	id := atomic.LoadUint32(&b.lastPacketID)
	if id >= uint32(65535) {
		atomic.StoreUint32(&b.lastPacketID, 1)
		return 1
	}

	return packet.ID(atomic.AddUint32(&b.lastPacketID, 1))
}

func (b *Broker) nextConnID() ConnID {
	return ConnID(atomic.AddUint64(&b.lastConnID, 1))
}

func mergeSubscribers(old, new map[SessionID]subOptions) map[SessionID]subOptions {
	for sid, opts := range new {
		old[sid] = opts
	}
	return old
}

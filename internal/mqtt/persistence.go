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
	"time"

	"github.com/bdelacey/mqttd/internal/logger"
	"github.com/bdelacey/mqttd/internal/mqtt/packet"
)

const dbQueueSize = 100

// SessionRecord is the durable snapshot of a session.
type SessionRecord struct {
	// ID is the session identifier.
	ID string `bson:"_id"`

	// Subscriptions holds the session's topic filters with their options.
	Subscriptions []packet.Topic `bson:"subscriptions"`

	// ExpiresAt is the wall-clock instant when the session may be reaped,
	// or nil when no expiry is pending.
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`

	// WillTopic is the topic of the Will Message, empty when there is none.
	WillTopic string `bson:"will_topic,omitempty"`

	// WillPayload is the payload of the Will Message.
	WillPayload []byte `bson:"will_payload,omitempty"`

	// WillQoS is the QoS of the Will Message.
	WillQoS byte `bson:"will_qos,omitempty"`

	// WillRetain indicates whether the Will Message is retained.
	WillRetain bool `bson:"will_retain,omitempty"`
}

// RetainedRecord is the durable snapshot of a retained message.
type RetainedRecord struct {
	// Topic is the topic the message was retained on.
	Topic string `bson:"_id"`

	// Payload is the message payload.
	Payload []byte `bson:"payload"`

	// QoS is the QoS the message was published with.
	QoS byte `bson:"qos"`

	// CreatedAt is the time the message was retained.
	CreatedAt time.Time `bson:"created_at"`

	// ExpiresAt is the absolute expiry of the message, or nil when the
	// publish did not carry a Message-Expiry-Interval.
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

// Store is the contract with the persistence backend. Implementations must
// be safe for concurrent use.
type Store interface {
	// SaveSession inserts or replaces the given session record.
	SaveSession(ctx context.Context, rec *SessionRecord) error

	// DeleteSession deletes the session record with the given identifier.
	DeleteSession(ctx context.Context, id string) error

	// SaveRetained inserts or replaces the given retained record.
	SaveRetained(ctx context.Context, rec *RetainedRecord) error

	// DeleteRetained deletes the retained record for the given topic.
	DeleteRetained(ctx context.Context, topic string) error

	// LoadSessions loads all session records.
	LoadSessions(ctx context.Context) ([]*SessionRecord, error)

	// LoadRetained loads all retained records.
	LoadRetained(ctx context.Context) ([]*RetainedRecord, error)
}

type dbOpKind byte

const (
	dbSaveSession dbOpKind = iota
	dbDeleteSession
	dbSaveRetained
	dbDeleteRetained
)

type dbOp struct {
	session  *SessionRecord
	retained *RetainedRecord
	id       string
	kind     dbOpKind
}

// persistQueue is the write-behind queue in front of the Store. The core
// enqueues operations and never blocks on them; a single writer drains the
// queue. Operations which would overflow the queue are dropped and logged.
type persistQueue struct {
	log   *logger.Logger
	store Store
	ops   chan dbOp
}

func newPersistQueue(store Store, l *logger.Logger) *persistQueue {
	return &persistQueue{
		log:   l.WithPrefix("mqtt.db"),
		store: store,
		ops:   make(chan dbOp, dbQueueSize),
	}
}

// run drains the queue until ctx is cancelled. Store errors are logged and
// never propagate to the core.
func (p *persistQueue) run(ctx context.Context) {
	p.log.Debug().Msg("Persistence writer started")

	for {
		select {
		case <-ctx.Done():
			p.log.Debug().Msg("Persistence writer stopped")
			return
		case op := <-p.ops:
			p.apply(ctx, op)
		}
	}
}

func (p *persistQueue) apply(ctx context.Context, op dbOp) {
	var err error

	switch op.kind {
	case dbSaveSession:
		err = p.store.SaveSession(ctx, op.session)
	case dbDeleteSession:
		err = p.store.DeleteSession(ctx, op.id)
	case dbSaveRetained:
		err = p.store.SaveRetained(ctx, op.retained)
	case dbDeleteRetained:
		err = p.store.DeleteRetained(ctx, op.id)
	}

	if err != nil && ctx.Err() == nil {
		p.log.Error().
			Uint8("Kind", byte(op.kind)).
			Str("Id", op.id).
			Msg("Failed to apply persistence operation: " + err.Error())
	}
}

func (p *persistQueue) enqueue(op dbOp) {
	select {
	case p.ops <- op:
	default:
		p.log.Warn().
			Uint8("Kind", byte(op.kind)).
			Str("Id", op.id).
			Msg("Persistence queue full, operation dropped")
	}
}

func (p *persistQueue) saveSession(rec *SessionRecord) {
	p.enqueue(dbOp{kind: dbSaveSession, session: rec, id: rec.ID})
}

func (p *persistQueue) deleteSession(id SessionID) {
	p.enqueue(dbOp{kind: dbDeleteSession, id: string(id)})
}

func (p *persistQueue) saveRetained(rec *RetainedRecord) {
	p.enqueue(dbOp{kind: dbSaveRetained, retained: rec, id: rec.Topic})
}

func (p *persistQueue) deleteRetained(topic string) {
	p.enqueue(dbOp{kind: dbDeleteRetained, id: topic})
}

// sessionRecord snapshots the durable parts of a session. The caller must
// hold the routing-core lock.
func sessionRecord(s *Session) *SessionRecord {
	rec := &SessionRecord{
		ID:            string(s.id),
		Subscriptions: make([]packet.Topic, 0, len(s.subscriptions)),
		ExpiresAt:     s.expiresAt,
	}

	for filter, opts := range s.subscriptions {
		rec.Subscriptions = append(rec.Subscriptions, packet.Topic{
			Filter:            filter,
			QoS:               opts.qos,
			RetainHandling:    opts.retainHandling,
			RetainAsPublished: opts.retainAsPublished,
			NoLocal:           opts.noLocal,
		})
	}

	if s.will != nil {
		rec.WillTopic = s.will.TopicName
		rec.WillPayload = s.will.Payload
		rec.WillQoS = byte(s.will.QoS)
		rec.WillRetain = s.will.Retain
	}

	return rec
}

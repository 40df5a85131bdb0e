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
	"container/list"
	"errors"
	"fmt"
	"time"

	"github.com/bdelacey/mqttd/internal/mqtt/packet"
)

// ErrSessionNotFound indicates that the session was not found.
var ErrSessionNotFound = errors.New("session not found")

// ErrProtocolViolation indicates a fatal protocol violation by the client.
// The connection worker must close the network connection when it receives
// this error.
var ErrProtocolViolation = errors.New("protocol violation")

// ErrPingTimeout indicates that the client did not send any packet within
// one and a half times the negotiated keep-alive interval.
var ErrPingTimeout = errors.New("ping timeout")

// SessionID is the session identifier: the client identifier from the
// CONNECT packet, as an opaque binary string.
type SessionID string

// ConnID identifies a single network connection attached to a session.
// Identifiers are allocated monotonically for the lifetime of the broker.
type ConnID uint64

// SessionTakenOverError is delivered to the worker of a connection evicted
// by a second connection using the same client identifier.
type SessionTakenOverError struct {
	// ID is the identifier of the session which was taken over.
	ID SessionID
}

// Error implements the error interface.
func (e *SessionTakenOverError) Error() string {
	return fmt.Sprintf("session %q taken over by another connection", string(e.ID))
}

// Worker is the handle of the connection I/O worker controlling a client.
type Worker interface {
	// Signal delivers a terminal error to the worker. The worker is
	// expected to close the network connection and exit. Signal must not
	// block.
	Signal(err error)
}

// subOptions holds the per-subscription options of a single topic filter.
type subOptions struct {
	qos               packet.QoS
	retainHandling    byte
	retainAsPublished bool
	noLocal           bool
}

func optionsFromTopic(t packet.Topic) subOptions {
	return subOptions{
		qos:               t.QoS,
		retainHandling:    t.RetainHandling,
		retainAsPublished: t.RetainAsPublished,
		noLocal:           t.NoLocal,
	}
}

// connectedClient is the connection-scoped state attached to a session
// while a network connection is open.
type connectedClient struct {
	// connect is the original CONNECT request, kept for property lookup.
	connect *packet.Connect

	// worker is the handle of the connection I/O worker.
	worker Worker

	// id is the monotonically allocated connection identifier.
	id ConnID

	// inAliases maps inbound topic aliases to topic names.
	inAliases map[uint16]string

	// outAliases maps topic names to outbound topic aliases.
	outAliases map[string]uint16

	// aliasesLeft is the number of outbound aliases still available,
	// seeded from the client's Topic-Alias-Maximum.
	aliasesLeft uint16
}

func newConnectedClient(id ConnID, connect *packet.Connect, worker Worker) *connectedClient {
	return &connectedClient{
		id:          id,
		connect:     connect,
		worker:      worker,
		inAliases:   make(map[uint16]string),
		outAliases:  make(map[string]uint16),
		aliasesLeft: connect.TopicAliasMaximum(),
	}
}

// Session represents the broker-side state of an MQTT client, surviving
// disconnections within its expiry window.
//
// All mutable fields are protected by the broker's routing-core lock.
type Session struct {
	id SessionID

	// acl is the ordered list of allow/deny rules derived from the
	// authorizer at connect time.
	acl []ACLRule

	// client is the currently attached connection, or nil while the
	// session is detached.
	client *connectedClient

	// outbound is the bounded packet queue drained by the connection
	// writer.
	outbound chan packet.Packet

	// inFlight is the number of delivery slots still available, seeded
	// from the client-negotiated Receive-Maximum.
	inFlight int

	// backlog holds publishes waiting for an in-flight slot. It is bounded;
	// entries beyond the bound are dropped.
	backlog *list.List

	// qosPending maps packet identifiers to publishes awaiting a QoS 1
	// acknowledgment or a QoS 2 release.
	qosPending map[packet.ID]*packet.Publish

	// subscriptions maps topic filters to their subscription options.
	subscriptions map[string]subOptions

	// expiresAt is the wall-clock instant when the detached session may be
	// reaped, or nil when no expiry is pending.
	expiresAt *time.Time

	// will is the message published when the client dies uncleanly.
	will *packet.Publish
}

// ID returns the session identifier.
func (s *Session) ID() SessionID {
	return s.id
}

// Outbound returns the session's outbound packet queue. The connection
// writer consumes it and serializes the packets onto the wire.
func (s *Session) Outbound() <-chan packet.Packet {
	return s.outbound
}

func newSession(id SessionID, acl []ACLRule, client *connectedClient,
	queueSize, receiveMaximum int, will *packet.Publish,
) *Session {
	return &Session{
		id:            id,
		acl:           acl,
		client:        client,
		outbound:      make(chan packet.Packet, queueSize),
		inFlight:      receiveMaximum,
		backlog:       list.New(),
		qosPending:    make(map[packet.ID]*packet.Publish),
		subscriptions: make(map[string]subOptions),
		will:          will,
	}
}

// hasQoSSubscription reports whether any subscription has QoS > 0.
func (s *Session) hasQoSSubscription() bool {
	for _, opts := range s.subscriptions {
		if opts.qos > packet.QoS0 {
			return true
		}
	}
	return false
}

func willFromConnect(c *packet.Connect) *packet.Publish {
	if !c.WillFlag {
		return nil
	}

	pub := packet.NewPublish(0, string(c.WillTopic), c.WillQoS, false,
		c.WillRetain, c.WillPayload, c.WillProperties.Clone())
	return &pub
}

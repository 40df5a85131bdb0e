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
	"time"

	"github.com/rs/xid"

	"github.com/bdelacey/mqttd/internal/mqtt/packet"
)

// RegisterClient creates or takes over the session for the client
// described by the CONNECT packet and attaches the given worker to it. It
// returns the session and whether an existing session was resumed.
//
// When a previous connection holds the same session, its worker is
// signaled with a SessionTakenOverError and the new connection replaces it
// without waiting.
func (b *Broker) RegisterClient(connect *packet.Connect, worker Worker) (
	s *Session, reuse bool, err error,
) {
	if connect.ReceiveMaximum() == 0 {
		b.log.Warn().
			Str("ClientId", string(connect.ClientID)).
			Msg("Rejecting CONNECT with Receive-Maximum 0")
		return nil, false, ErrProtocolViolation
	}

	acl, err := b.auth.authenticate(connect)
	if err != nil {
		return nil, false, err
	}

	if len(connect.ClientID) == 0 {
		connect.ClientID = packet.ClientID(xid.New().String())
	}

	sid := SessionID(connect.ClientID)
	client := newConnectedClient(b.nextConnID(), connect, worker)
	will := willFromConnect(connect)

	var evicted *connectedClient

	b.mu.Lock()
	prior, existed := b.sessions[sid]
	if existed && prior.client != nil {
		evicted = prior.client
	}

	s = newSession(sid, acl, client, b.conf.OutboundQueueSize,
		connect.ReceiveMaximum(), will)

	if existed && !connect.CleanSession {
		// Resume: keep the prior subscriptions and pending QoS state; the
		// connection-scoped state is replaced by the new one.
		s.subscriptions = prior.subscriptions
		s.qosPending = prior.qosPending
		reuse = true
	} else if existed {
		// A clean session discards everything the prior session owned.
		for filter := range prior.subscriptions {
			b.removeSubscriber(sid, filter)
			b.stats.add(&b.stats.Subscriptions, -1)
		}
	}

	b.sessions[sid] = s
	if !existed {
		b.stats.add(&b.stats.ClientsTotal, 1)
	}
	if evicted == nil {
		b.stats.add(&b.stats.ClientsConnected, 1)
	}
	rec := sessionRecord(s)
	b.mu.Unlock()

	if evicted != nil {
		go evicted.worker.Signal(&SessionTakenOverError{ID: sid})
	}

	b.db.saveSession(rec)
	b.log.Info().
		Str("ClientId", string(connect.ClientID)).
		Uint64("ConnId", uint64(client.id)).
		Bool("Reuse", reuse).
		Msg("Client registered")
	return s, reuse, nil
}

// UnregisterClient detaches the connection with the given identifier from
// its session and schedules the session expiry. The deadline is computed
// from the Session-Expiry-Interval negotiated at connect time: absent
// means the configured default grace window, zero means immediate.
//
// Calls for a connection which was already replaced by a takeover are
// ignored.
func (b *Broker) UnregisterClient(sid SessionID, cid ConnID) {
	b.mu.Lock()

	s, ok := b.sessions[sid]
	if !ok || s.client == nil || s.client.id != cid {
		b.mu.Unlock()
		return
	}

	grace := b.conf.SessionExpiryDefault
	if sei := s.client.connect.SessionExpiryInterval(); sei != nil {
		grace = *sei
	}

	at := time.Now().Add(time.Duration(grace) * time.Second)
	s.client = nil
	s.expiresAt = &at
	b.stats.add(&b.stats.ClientsConnected, -1)
	rec := sessionRecord(s)
	b.mu.Unlock()

	b.db.saveSession(rec)

	// The expiry fires immediately: a detached session without QoS > 0
	// subscriptions is reaped at once, the rest wait out their grace
	// window in the scheduler.
	b.expiry.enqueue(time.Now(), sid)

	b.log.Info().
		Str("ClientId", string(sid)).
		Uint64("ConnId", uint64(cid)).
		Time("ExpiresAt", at).
		Msg("Client unregistered")
}

// Modify applies fn to the session with the given identifier as a single
// atomic mutation.
func (b *Broker) Modify(sid SessionID, fn func(s *Session)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[sid]
	if !ok {
		return ErrSessionNotFound
	}

	fn(s)
	return nil
}

// expireSession is the drain function of the session expiry scheduler. A
// detached session which still holds QoS > 0 subscriptions and whose
// deadline has not passed is re-enqueued for its grace window; everything
// else that is detached gets reaped.
func (b *Broker) expireSession(sid SessionID) {
	b.mu.Lock()

	s, ok := b.sessions[sid]
	if !ok {
		b.mu.Unlock()
		return
	}
	if s.client != nil {
		b.mu.Unlock()
		b.log.Debug().
			Str("ClientId", string(sid)).
			Msg("Session still in use, expiry skipped")
		return
	}

	now := time.Now()
	if s.expiresAt != nil {
		ex := *s.expiresAt
		if s.hasQoSSubscription() && ex.After(now) {
			b.mu.Unlock()
			b.expiry.enqueue(ex, sid)
			b.log.Debug().
				Str("ClientId", string(sid)).
				Time("ExpiresAt", ex).
				Msg("Session expiry re-enqueued for grace window")
			return
		}
	}

	// Reap: the session is detached and past (or without) its deadline.
	delete(b.sessions, sid)
	for filter := range s.subscriptions {
		b.removeSubscriber(sid, filter)
		b.stats.add(&b.stats.Subscriptions, -1)
	}
	b.stats.add(&b.stats.ClientsTotal, -1)
	will := s.will
	b.mu.Unlock()

	b.db.deleteSession(sid)
	b.log.Info().
		Str("ClientId", string(sid)).
		Bool("HasWill", will != nil).
		Msg("Session expired")

	if will != nil {
		b.broadcast(&sid, will)
	}
}

// removeSubscriber deletes the session from the subscription index entry
// of the given filter. The caller must hold the routing-core lock.
func (b *Broker) removeSubscriber(sid SessionID, filter string) {
	b.subs.modify(filter, func(m map[SessionID]subOptions) (map[SessionID]subOptions, bool) {
		delete(m, sid)
		return m, len(m) > 0
	})
}

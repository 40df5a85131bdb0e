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
	"github.com/bdelacey/mqttd/internal/mqtt/packet"
)

// handleSubscribe merges the requested filters into the session and the
// subscription index, replies with the SUBACK, and delivers the matching
// retained messages for the accepted filters.
func (b *Broker) handleSubscribe(s *Session, p *packet.Subscribe) {
	codes := make([]packet.ReasonCode, len(p.Topics))
	sendRetained := make([]packet.Topic, 0, len(p.Topics))

	b.mu.Lock()
	for i, t := range p.Topics {
		if !authorizeTopic(t.Filter, s.acl) {
			codes[i] = packet.ReasonCodeNotAuthorized
			continue
		}

		_, existed := s.subscriptions[t.Filter]
		opts := optionsFromTopic(t)
		if err := b.subs.add(t.Filter, map[SessionID]subOptions{s.id: opts}); err != nil {
			codes[i] = packet.ReasonCodeUnspecifiedError
			continue
		}
		s.subscriptions[t.Filter] = opts

		if !existed {
			b.stats.add(&b.stats.Subscriptions, 1)
		}
		codes[i] = packet.ReasonCode(t.QoS)

		switch t.RetainHandling {
		case packet.RetainHandlingSendOnSubscribe:
			sendRetained = append(sendRetained, t)
		case packet.RetainHandlingSendIfNew:
			if !existed {
				sendRetained = append(sendRetained, t)
			}
		}
	}
	rec := sessionRecord(s)
	b.mu.Unlock()

	b.db.saveSession(rec)

	subAck := packet.NewSubAck(p.PacketID, codes, nil)
	b.enqueueOutbound(s, &subAck)

	for _, t := range sendRetained {
		b.deliverRetained(s, t)
	}

	b.log.Debug().
		Str("ClientId", string(s.id)).
		Uint16("PacketId", uint16(p.PacketID)).
		Int("Topics", len(p.Topics)).
		Msg("Client subscribed")
}

// deliverRetained sends the retained messages matching the given filter to
// the session. The QoS is capped by the subscription's QoS; the retain
// flag is kept only when the subscription asked for retain-as-published.
func (b *Broker) deliverRetained(s *Session, t packet.Topic) {
	matches := b.retained.match(t.Filter)
	if len(matches) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, pr := range matches {
		pub := pr.Clone()
		pub.Dup = false
		if pub.QoS > t.QoS {
			pub.QoS = t.QoS
		}
		pub.Retain = pr.Retain && t.RetainAsPublished
		pub.PacketID = b.nextPacketID()
		b.deliver(s, pub)
	}
}

// handleUnsubscribe removes the given filters from the session and the
// subscription index, and replies with the UNSUBACK.
func (b *Broker) handleUnsubscribe(s *Session, p *packet.Unsubscribe) {
	codes := make([]packet.ReasonCode, len(p.Topics))

	b.mu.Lock()
	for i, filter := range p.Topics {
		if _, ok := s.subscriptions[filter]; !ok {
			codes[i] = packet.ReasonCodeNoSubscriptionExisted
			continue
		}

		delete(s.subscriptions, filter)
		b.removeSubscriber(s.id, filter)
		b.stats.add(&b.stats.Subscriptions, -1)
		codes[i] = packet.ReasonCodeSuccess
	}
	rec := sessionRecord(s)
	b.mu.Unlock()

	b.db.saveSession(rec)

	unsubAck := packet.NewUnsubAck(p.PacketID, codes, nil)
	b.enqueueOutbound(s, &unsubAck)

	b.log.Debug().
		Str("ClientId", string(s.id)).
		Uint16("PacketId", uint16(p.PacketID)).
		Int("Topics", len(p.Topics)).
		Msg("Client unsubscribed")
}

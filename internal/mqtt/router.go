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

// broadcast routes a publish to every matching subscriber. The source is
// the session that published the message, or nil for messages originated
// by the broker itself; it is used for no-local filtering.
//
// Deliveries to a single subscriber preserve the order of publishes from a
// given source; no ordering across sources is promised.
func (b *Broker) broadcast(source *SessionID, pr *packet.Publish) {
	b.retained.retain(pr)

	b.mu.Lock()
	defer b.mu.Unlock()

	type target struct {
		s    *Session
		opts subOptions
	}
	var targets []target

	b.subs.findMatches(pr.TopicName, func(m map[SessionID]subOptions) {
		for sid, opts := range m {
			if opts.noLocal && source != nil && sid == *source {
				continue
			}
			s, ok := b.sessions[sid]
			if !ok {
				continue
			}
			targets = append(targets, target{s: s, opts: opts})
		}
	})

	if len(targets) == 0 {
		b.log.Trace().
			Str("TopicName", pr.TopicName).
			Msg("No subscription found")
		return
	}

	pktID := b.nextPacketID()
	for _, t := range targets {
		pub := pr.Clone()
		pub.Dup = false
		if pub.QoS > t.opts.qos {
			pub.QoS = t.opts.qos
		}
		pub.Retain = pr.Retain && t.opts.retainAsPublished
		pub.PacketID = pktID
		pub.StripTopicAlias()
		b.deliver(t.s, pub)
	}

	b.log.Trace().
		Uint16("PacketId", uint16(pktID)).
		Uint8("QoS", byte(pr.QoS)).
		Int("Subscriptions", len(targets)).
		Str("TopicName", pr.TopicName).
		Msg("Message routed to subscribers")
}

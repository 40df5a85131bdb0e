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
	"fmt"

	"github.com/bdelacey/mqttd/internal/mqtt/packet"
)

// Dispatch handles a packet received from the session's attached client.
// It returns an error only for fatal protocol violations; the connection
// worker must close the network connection in that case. Packets from one
// connection must be dispatched serially.
func (b *Broker) Dispatch(s *Session, pkt packet.Packet) error {
	switch p := pkt.(type) {
	case *packet.PingReq:
		resp := packet.PingResp{}
		b.enqueueOutbound(s, &resp)

	case *packet.PubAck:
		b.handlePubAck(s, p)

	case *packet.PubRec:
		b.handlePubRec(s, p)

	case *packet.PubRel:
		b.handlePubRel(s, p)

	case *packet.PubComp:
		b.mu.Lock()
		b.releaseFlightSlot(s)
		b.mu.Unlock()

	case *packet.Subscribe:
		b.handleSubscribe(s, p)

	case *packet.Unsubscribe:
		b.handleUnsubscribe(s, p)

	case *packet.Publish:
		b.handlePublish(s, p)

	case *packet.Disconnect:
		b.handleDisconnect(s, p)

	default:
		return fmt.Errorf("%w: unexpected %v packet", ErrProtocolViolation,
			pkt.Type())
	}

	return nil
}

// Publish delivers a message to the session, applying the outbound flight
// control: QoS 0 goes straight to the outbound queue; QoS > 0 consumes an
// in-flight slot or waits in the backlog for one.
func (b *Broker) Publish(s *Session, pub *packet.Publish) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deliver(s, pub)
}

// deliver implements the outbound delivery state machine. The caller must
// hold the routing-core lock.
func (b *Broker) deliver(s *Session, pub *packet.Publish) {
	if pub.QoS == packet.QoS0 {
		b.sendPublish(s, pub)
		return
	}

	s.qosPending[pub.PacketID] = pub

	if s.inFlight == 0 {
		if s.backlog.Len() >= b.conf.BacklogSize {
			// Bounded-memory back-pressure: the delivery is lost for this
			// subscriber only.
			b.stats.add(&b.stats.MsgDropped, 1)
			b.log.Debug().
				Str("ClientId", string(s.id)).
				Uint16("PacketId", uint16(pub.PacketID)).
				Msg("Backlog full, delivery dropped")
			return
		}
		s.backlog.PushBack(pub)
		return
	}

	s.inFlight--
	b.sendPublish(s, pub)
}

// sendPublish performs the outbound topic-alias substitution and enqueues
// the publish on the session's outbound queue. The caller must hold the
// routing-core lock.
func (b *Broker) sendPublish(s *Session, pub *packet.Publish) {
	if s.client != nil {
		s.client.applyOutboundAlias(pub)
	}
	b.enqueueOutbound(s, pub)
	b.stats.add(&b.stats.MsgSent, 1)
}

// releaseFlightSlot returns one in-flight slot to the session and, when
// the backlog is not empty, immediately spends it on the next waiting
// publish. The caller must hold the routing-core lock.
func (b *Broker) releaseFlightSlot(s *Session) {
	s.inFlight++

	if elem := s.backlog.Front(); elem != nil {
		s.backlog.Remove(elem)
		s.inFlight--
		b.sendPublish(s, elem.Value.(*packet.Publish))
	}
}

// enqueueOutbound pushes a packet onto the session's outbound queue. The
// queue is bounded; a packet which would overflow it is dropped.
func (b *Broker) enqueueOutbound(s *Session, pkt packet.Packet) {
	select {
	case s.outbound <- pkt:
	default:
		b.stats.add(&b.stats.MsgDropped, 1)
		b.log.Debug().
			Str("ClientId", string(s.id)).
			Str("PacketType", pkt.Type().String()).
			Msg("Outbound queue full, packet dropped")
	}
}

func (b *Broker) handlePubAck(s *Session, p *packet.PubAck) {
	b.mu.Lock()
	delete(s.qosPending, p.PacketID)
	b.releaseFlightSlot(s)
	b.mu.Unlock()
}

func (b *Broker) handlePubRec(s *Session, p *packet.PubRec) {
	b.mu.Lock()
	delete(s.qosPending, p.PacketID)
	b.mu.Unlock()

	pubRel := packet.NewPubRel(p.PacketID, packet.ReasonCodeSuccess, nil)
	b.enqueueOutbound(s, &pubRel)
}

func (b *Broker) handlePubRel(s *Session, p *packet.PubRel) {
	b.mu.Lock()
	pub, ok := s.qosPending[p.PacketID]
	if ok {
		delete(s.qosPending, p.PacketID)
	}
	b.mu.Unlock()

	code := packet.ReasonCodeSuccess
	if !ok {
		code = packet.ReasonCodePacketIDNotFound
	}
	pubComp := packet.NewPubComp(p.PacketID, code, nil)
	b.enqueueOutbound(s, &pubComp)

	if ok {
		sid := s.id
		b.broadcast(&sid, pub)
	}
}

func (b *Broker) handlePublish(s *Session, p *packet.Publish) {
	b.mu.Lock()
	if s.client != nil {
		s.client.resolveInboundAlias(p)
	}
	allowed := authorizeTopic(p.TopicName, s.acl)
	b.mu.Unlock()

	if !allowed {
		b.log.Debug().
			Str("ClientId", string(s.id)).
			Uint16("PacketId", uint16(p.PacketID)).
			Uint8("QoS", byte(p.QoS)).
			Str("TopicName", p.TopicName).
			Msg("Publish not authorized")

		switch p.QoS {
		case packet.QoS1:
			pubAck := packet.NewPubAck(p.PacketID, packet.ReasonCodeNotAuthorized, nil)
			b.enqueueOutbound(s, &pubAck)
		case packet.QoS2:
			pubRec := packet.NewPubRec(p.PacketID, packet.ReasonCodeNotAuthorized, nil)
			b.enqueueOutbound(s, &pubRec)
		}
		return
	}

	b.stats.add(&b.stats.MsgRecv, 1)

	var msgID uint64
	if b.idGen != nil {
		msgID = b.idGen.NextID()
	}
	b.log.Trace().
		Str("ClientId", string(s.id)).
		Uint64("MessageId", msgID).
		Uint16("PacketId", uint16(p.PacketID)).
		Uint8("QoS", byte(p.QoS)).
		Str("TopicName", p.TopicName).
		Msg("Client published a packet")

	sid := s.id

	switch p.QoS {
	case packet.QoS0:
		b.broadcast(&sid, p)

	case packet.QoS1:
		pubAck := packet.NewPubAck(p.PacketID, packet.ReasonCodeSuccess, nil)
		b.enqueueOutbound(s, &pubAck)
		b.broadcast(&sid, p)

	case packet.QoS2:
		pubRec := packet.NewPubRec(p.PacketID, packet.ReasonCodeSuccess, nil)
		b.enqueueOutbound(s, &pubRec)

		// The publish waits in qosPending until the client releases it
		// with a PUBREL.
		b.mu.Lock()
		if _, ok := s.qosPending[p.PacketID]; !ok {
			s.qosPending[p.PacketID] = p
		}
		b.mu.Unlock()
	}
}

func (b *Broker) handleDisconnect(s *Session, p *packet.Disconnect) {
	if p.ReasonCode == packet.ReasonCodeDisconnectWithWillMessage {
		return
	}

	b.mu.Lock()
	s.will = nil
	b.mu.Unlock()

	b.log.Debug().
		Str("ClientId", string(s.id)).
		Msg("Client disconnected, will message cleared")
}

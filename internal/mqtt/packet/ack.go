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

package packet

// PubAck represents the PUBACK packet, the response to a PUBLISH packet
// with QoS 1.
type PubAck struct {
	// Properties represents the PUBACK properties.
	Properties *Properties

	// PacketID represents the packet identifier.
	PacketID ID

	// ReasonCode indicates the result of the publication.
	ReasonCode ReasonCode
}

// Type returns the packet type.
func (p *PubAck) Type() Type {
	return PUBACK
}

// NewPubAck creates a new PUBACK packet.
func NewPubAck(id ID, code ReasonCode, props *Properties) PubAck {
	return PubAck{PacketID: id, ReasonCode: code, Properties: props}
}

// PubRec represents the PUBREC packet, the response to a PUBLISH packet
// with QoS 2. It is the second packet of the QoS 2 protocol exchange.
type PubRec struct {
	// Properties represents the PUBREC properties.
	Properties *Properties

	// PacketID represents the packet identifier.
	PacketID ID

	// ReasonCode indicates the result of the publication.
	ReasonCode ReasonCode
}

// Type returns the packet type.
func (p *PubRec) Type() Type {
	return PUBREC
}

// NewPubRec creates a new PUBREC packet.
func NewPubRec(id ID, code ReasonCode, props *Properties) PubRec {
	return PubRec{PacketID: id, ReasonCode: code, Properties: props}
}

// PubRel represents the PUBREL packet, the response to a PUBREC packet. It
// is the third packet of the QoS 2 protocol exchange.
type PubRel struct {
	// Properties represents the PUBREL properties.
	Properties *Properties

	// PacketID represents the packet identifier.
	PacketID ID

	// ReasonCode indicates the result of the release.
	ReasonCode ReasonCode
}

// Type returns the packet type.
func (p *PubRel) Type() Type {
	return PUBREL
}

// NewPubRel creates a new PUBREL packet.
func NewPubRel(id ID, code ReasonCode, props *Properties) PubRel {
	return PubRel{PacketID: id, ReasonCode: code, Properties: props}
}

// PubComp represents the PUBCOMP packet, the response to a PUBREL packet.
// It is the fourth and final packet of the QoS 2 protocol exchange.
type PubComp struct {
	// Properties represents the PUBCOMP properties.
	Properties *Properties

	// PacketID represents the packet identifier.
	PacketID ID

	// ReasonCode indicates the result of the completion.
	ReasonCode ReasonCode
}

// Type returns the packet type.
func (p *PubComp) Type() Type {
	return PUBCOMP
}

// NewPubComp creates a new PUBCOMP packet.
func NewPubComp(id ID, code ReasonCode, props *Properties) PubComp {
	return PubComp{PacketID: id, ReasonCode: code, Properties: props}
}

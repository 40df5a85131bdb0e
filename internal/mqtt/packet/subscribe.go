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

// Topic represents a single topic filter in a SUBSCRIBE packet together
// with its subscription options.
type Topic struct {
	// Filter is the topic filter the client subscribes to. It may contain
	// the '+' and '#' wildcards.
	Filter string

	// QoS is the maximum QoS level at which the broker sends application
	// messages matching the filter.
	QoS QoS

	// RetainHandling indicates whether retained messages are sent when the
	// subscription is established.
	RetainHandling byte

	// RetainAsPublished indicates whether the RETAIN flag is kept when
	// messages are forwarded using this subscription.
	RetainAsPublished bool

	// NoLocal indicates that messages must not be forwarded to the client
	// that published them.
	NoLocal bool
}

// Subscribe represents the SUBSCRIBE packet.
type Subscribe struct {
	// Topics is the list of topic filters the client subscribes to.
	Topics []Topic

	// Properties represents the SUBSCRIBE properties.
	Properties *Properties

	// PacketID represents the packet identifier.
	PacketID ID
}

// Type returns the packet type.
func (p *Subscribe) Type() Type {
	return SUBSCRIBE
}

// SubAck represents the SUBACK packet.
type SubAck struct {
	// ReasonCodes contains one reason code per topic of the SUBSCRIBE
	// packet being acknowledged, in the same order.
	ReasonCodes []ReasonCode

	// Properties represents the SUBACK properties.
	Properties *Properties

	// PacketID represents the packet identifier.
	PacketID ID
}

// Type returns the packet type.
func (p *SubAck) Type() Type {
	return SUBACK
}

// NewSubAck creates a new SUBACK packet.
func NewSubAck(id ID, codes []ReasonCode, props *Properties) SubAck {
	return SubAck{PacketID: id, ReasonCodes: codes, Properties: props}
}

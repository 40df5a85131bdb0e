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

// Unsubscribe represents the UNSUBSCRIBE packet.
type Unsubscribe struct {
	// Topics is the list of topic filters to unsubscribe from.
	Topics []string

	// Properties represents the UNSUBSCRIBE properties.
	Properties *Properties

	// PacketID represents the packet identifier.
	PacketID ID
}

// Type returns the packet type.
func (p *Unsubscribe) Type() Type {
	return UNSUBSCRIBE
}

// UnsubAck represents the UNSUBACK packet.
type UnsubAck struct {
	// ReasonCodes contains one reason code per topic of the UNSUBSCRIBE
	// packet being acknowledged, in the same order.
	ReasonCodes []ReasonCode

	// Properties represents the UNSUBACK properties.
	Properties *Properties

	// PacketID represents the packet identifier.
	PacketID ID
}

// Type returns the packet type.
func (p *UnsubAck) Type() Type {
	return UNSUBACK
}

// NewUnsubAck creates a new UNSUBACK packet.
func NewUnsubAck(id ID, codes []ReasonCode, props *Properties) UnsubAck {
	return UnsubAck{PacketID: id, ReasonCodes: codes, Properties: props}
}

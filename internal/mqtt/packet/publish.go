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

// Publish represents the PUBLISH packet.
type Publish struct {
	// TopicName identifies the information channel to which payload data is
	// published.
	TopicName string

	// Payload represents the message payload.
	Payload []byte

	// Properties represents the PUBLISH properties.
	Properties *Properties

	// PacketID represents the packet identifier.
	PacketID ID

	// QoS indicates the level of assurance for delivery of the message.
	QoS QoS

	// Dup indicates that this is not the first occasion that the client or
	// broker has attempted to send this packet.
	Dup bool

	// Retain indicates whether the broker must replace any existing
	// retained message for this topic and store the message, or not.
	Retain bool
}

// Type returns the packet type.
func (p *Publish) Type() Type {
	return PUBLISH
}

// Clone clones the PUBLISH packet.
func (p *Publish) Clone() *Publish {
	return &Publish{
		TopicName:  p.TopicName,
		Payload:    p.Payload,
		Properties: p.Properties.Clone(),
		PacketID:   p.PacketID,
		QoS:        p.QoS,
		Dup:        p.Dup,
		Retain:     p.Retain,
	}
}

// MessageExpiryInterval returns the Message-Expiry-Interval property, or
// nil when the property is absent.
func (p *Publish) MessageExpiryInterval() *uint32 {
	if p.Properties == nil {
		return nil
	}
	return p.Properties.MessageExpiryInterval
}

// TopicAlias returns the Topic-Alias property, or zero when the property is
// absent.
func (p *Publish) TopicAlias() uint16 {
	if p.Properties == nil || p.Properties.TopicAlias == nil {
		return 0
	}
	return *p.Properties.TopicAlias
}

// StripTopicAlias removes the Topic-Alias property from the packet.
func (p *Publish) StripTopicAlias() {
	if p.Properties != nil {
		p.Properties.TopicAlias = nil
	}
}

// SetTopicAlias sets the Topic-Alias property on the packet.
func (p *Publish) SetTopicAlias(alias uint16) {
	if p.Properties == nil {
		p.Properties = &Properties{}
	}
	p.Properties.TopicAlias = Uint16(alias)
}

// NewPublish creates a new PUBLISH packet.
func NewPublish(id ID, topic string, qos QoS, dup, retain bool, payload []byte,
	props *Properties,
) Publish {
	return Publish{
		PacketID:   id,
		TopicName:  topic,
		QoS:        qos,
		Dup:        dup,
		Retain:     retain,
		Payload:    payload,
		Properties: props,
	}
}

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

// Connect represents the CONNECT packet.
type Connect struct {
	// ClientID identifies the client to the broker.
	ClientID ClientID

	// KeepAlive is a time interval, measured in seconds, that is permitted
	// to elapse between the point at which the client finishes transmitting
	// one control packet and the point it starts sending the next.
	KeepAlive uint16

	// Username identifying the user who is connecting.
	Username []byte

	// Password of the user.
	Password []byte

	// WillTopic is the topic which the Will Message is published on.
	WillTopic []byte

	// WillPayload is the payload of the Will Message.
	WillPayload []byte

	// Properties represents the CONNECT properties.
	Properties *Properties

	// WillProperties represents the properties of the Will Message.
	WillProperties *Properties

	// WillQoS indicates the QoS level to be used when publishing the Will
	// Message.
	WillQoS QoS

	// CleanSession indicates if the session is temporary or not.
	CleanSession bool

	// WillFlag indicates that, if the connect request is accepted, a Will
	// Message must be stored and published on unclean death.
	WillFlag bool

	// WillRetain indicates if the Will Message is published as a retained
	// message.
	WillRetain bool
}

// Type returns the packet type.
func (p *Connect) Type() Type {
	return CONNECT
}

// ReceiveMaximum returns the Receive-Maximum negotiated by the client, or
// the protocol default of 65535 when the property is absent.
func (p *Connect) ReceiveMaximum() int {
	if p.Properties != nil && p.Properties.ReceiveMaximum != nil {
		return int(*p.Properties.ReceiveMaximum)
	}
	return 65535
}

// TopicAliasMaximum returns the highest topic alias the client accepts, or
// zero when the property is absent.
func (p *Connect) TopicAliasMaximum() uint16 {
	if p.Properties != nil && p.Properties.TopicAliasMaximum != nil {
		return *p.Properties.TopicAliasMaximum
	}
	return 0
}

// SessionExpiryInterval returns the Session-Expiry-Interval property, or
// nil when the property is absent.
func (p *Connect) SessionExpiryInterval() *uint32 {
	if p.Properties == nil {
		return nil
	}
	return p.Properties.SessionExpiryInterval
}

// ConnAck represents the CONNACK packet.
type ConnAck struct {
	// Properties represents the CONNACK properties.
	Properties *Properties

	// ReasonCode indicates the result of the connect request.
	ReasonCode ReasonCode

	// SessionPresent indicates if there is already a session associated
	// with the client identifier.
	SessionPresent bool
}

// Type returns the packet type.
func (p *ConnAck) Type() Type {
	return CONNACK
}

// NewConnAck creates a new CONNACK packet.
func NewConnAck(code ReasonCode, sessionPresent bool, props *Properties) ConnAck {
	return ConnAck{ReasonCode: code, SessionPresent: sessionPresent, Properties: props}
}

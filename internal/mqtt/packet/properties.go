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

// UserProperty is a name/value pair attached to a packet by the client or
// by the broker.
type UserProperty struct {
	Key   []byte
	Value []byte
}

// Properties represents the properties of an MQTT v5 packet. Only the
// properties the broker core consumes or produces are modeled; the codec is
// responsible for carrying any others through untouched.
type Properties struct {
	// SessionExpiryInterval represents the time, in seconds, which the
	// broker must store the session state after the network connection is
	// closed.
	SessionExpiryInterval *uint32

	// MessageExpiryInterval represents the lifetime, in seconds, of a
	// published application message.
	MessageExpiryInterval *uint32

	// ReceiveMaximum represents the maximum number of in-flight QoS > 0
	// messages the client is willing to process concurrently.
	ReceiveMaximum *uint16

	// TopicAliasMaximum represents the highest topic alias value the sender
	// of this packet accepts.
	TopicAliasMaximum *uint16

	// TopicAlias is an integer which is used to identify the topic instead
	// of using the topic name.
	TopicAlias *uint16

	// AssignedClientID represents the client ID assigned by the broker in
	// case the client connected without specifying one.
	AssignedClientID []byte

	// ReasonString represents the reason associated with the response.
	ReasonString []byte

	// WillDelayInterval represents the time, in seconds, which the broker
	// must delay publishing the Will Message.
	WillDelayInterval *uint32

	// UserProperties is a list of user properties.
	UserProperties []UserProperty
}

// Clone clones the Properties.
func (p *Properties) Clone() *Properties {
	if p == nil {
		return nil
	}

	np := &Properties{}
	np.SessionExpiryInterval = cloneUint32(p.SessionExpiryInterval)
	np.MessageExpiryInterval = cloneUint32(p.MessageExpiryInterval)
	np.ReceiveMaximum = cloneUint16(p.ReceiveMaximum)
	np.TopicAliasMaximum = cloneUint16(p.TopicAliasMaximum)
	np.TopicAlias = cloneUint16(p.TopicAlias)
	np.AssignedClientID = cloneBytes(p.AssignedClientID)
	np.ReasonString = cloneBytes(p.ReasonString)
	np.WillDelayInterval = cloneUint32(p.WillDelayInterval)

	if p.UserProperties != nil {
		np.UserProperties = make([]UserProperty, 0, len(p.UserProperties))
		for _, up := range p.UserProperties {
			np.UserProperties = append(np.UserProperties, UserProperty{
				Key:   cloneBytes(up.Key),
				Value: cloneBytes(up.Value),
			})
		}
	}

	return np
}

func cloneUint16(v *uint16) *uint16 {
	if v == nil {
		return nil
	}
	nv := *v
	return &nv
}

func cloneUint32(v *uint32) *uint32 {
	if v == nil {
		return nil
	}
	nv := *v
	return &nv
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	nb := make([]byte, len(b))
	copy(nb, b)
	return nb
}

// Uint16 returns a pointer to the given value. It is a helper for building
// properties in place.
func Uint16(v uint16) *uint16 {
	return &v
}

// Uint32 returns a pointer to the given value. It is a helper for building
// properties in place.
func Uint32(v uint32) *uint32 {
	return &v
}

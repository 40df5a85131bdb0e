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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketTypeString(t *testing.T) {
	assert.Equal(t, "PUBLISH", PUBLISH.String())
	assert.Equal(t, "CONNECT", CONNECT.String())
	assert.Equal(t, "UNKNOWN", Type(0xFF).String())
}

func TestPublishClone(t *testing.T) {
	p := NewPublish(10, "sensors/1/temp", QoS1, false, true, []byte("23"),
		&Properties{
			MessageExpiryInterval: Uint32(60),
			TopicAlias:            Uint16(3),
		},
	)

	clone := p.Clone()
	require.NotNil(t, clone)
	assert.Equal(t, p.TopicName, clone.TopicName)
	assert.Equal(t, p.Payload, clone.Payload)
	assert.Equal(t, p.QoS, clone.QoS)
	assert.Equal(t, p.Retain, clone.Retain)

	// Mutating the clone's properties must not affect the original.
	clone.SetTopicAlias(9)
	assert.Equal(t, uint16(3), p.TopicAlias())
	assert.Equal(t, uint16(9), clone.TopicAlias())

	clone.StripTopicAlias()
	assert.Zero(t, clone.TopicAlias())
	assert.Equal(t, uint16(3), p.TopicAlias())
}

func TestPublishCloneNilProperties(t *testing.T) {
	p := NewPublish(1, "t", QoS0, false, false, nil, nil)
	clone := p.Clone()
	require.NotNil(t, clone)
	assert.Nil(t, clone.Properties)
	assert.Nil(t, p.MessageExpiryInterval())
}

func TestConnectDefaults(t *testing.T) {
	c := Connect{ClientID: ClientID("c1")}
	assert.Equal(t, 65535, c.ReceiveMaximum())
	assert.Zero(t, c.TopicAliasMaximum())
	assert.Nil(t, c.SessionExpiryInterval())
}

func TestConnectProperties(t *testing.T) {
	c := Connect{
		ClientID: ClientID("c1"),
		Properties: &Properties{
			ReceiveMaximum:        Uint16(10),
			TopicAliasMaximum:     Uint16(5),
			SessionExpiryInterval: Uint32(120),
		},
	}
	assert.Equal(t, 10, c.ReceiveMaximum())
	assert.Equal(t, uint16(5), c.TopicAliasMaximum())
	require.NotNil(t, c.SessionExpiryInterval())
	assert.Equal(t, uint32(120), *c.SessionExpiryInterval())
}

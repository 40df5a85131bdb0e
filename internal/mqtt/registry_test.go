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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdelacey/mqttd/internal/mqtt/packet"
)

func TestRegistryRegisterNewSession(t *testing.T) {
	b, _ := newTestBroker(t)

	w := newWorkerMock()
	s, reuse, err := b.RegisterClient(newConnect("c1", false, nil), w)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.False(t, reuse)
	assert.Equal(t, SessionID("c1"), s.ID())
	assert.Equal(t, int64(1), b.stats.load(&b.stats.ClientsConnected))
	assert.Equal(t, int64(1), b.stats.load(&b.stats.ClientsTotal))
}

func TestRegistryRegisterAssignsClientID(t *testing.T) {
	b, _ := newTestBroker(t)

	connect := newConnect("", true, nil)
	s, _, err := b.RegisterClient(connect, newWorkerMock())
	require.NoError(t, err)
	assert.NotEmpty(t, connect.ClientID)
	assert.Equal(t, SessionID(connect.ClientID), s.ID())
}

func TestRegistryRegisterRejectsReceiveMaximumZero(t *testing.T) {
	b, _ := newTestBroker(t)

	connect := newConnect("c1", true, &packet.Properties{
		ReceiveMaximum: packet.Uint16(0),
	})
	_, _, err := b.RegisterClient(connect, newWorkerMock())
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestRegistryTakeoverSignalsEvictedWorker(t *testing.T) {
	b, _ := newTestBroker(t)

	s1, w1 := register(t, b, "x", false, nil)
	subscribe(t, b, s1, packet.Topic{Filter: "t/#", QoS: packet.QoS1})

	s2, reuse, err := b.RegisterClient(newConnect("x", false, nil), newWorkerMock())
	require.NoError(t, err)
	assert.True(t, reuse)

	err = w1.wait(t)
	var takenOver *SessionTakenOverError
	require.True(t, errors.As(err, &takenOver))
	assert.Equal(t, SessionID("x"), takenOver.ID)

	// The new session keeps the prior subscription.
	b.mu.Lock()
	_, ok := s2.subscriptions["t/#"]
	b.mu.Unlock()
	assert.True(t, ok)
}

func TestRegistryTakeoverCleanSessionDiscardsState(t *testing.T) {
	b, _ := newTestBroker(t)

	s1, w1 := register(t, b, "x", false, nil)
	subscribe(t, b, s1, packet.Topic{Filter: "t/#", QoS: packet.QoS1})

	s2, reuse, err := b.RegisterClient(newConnect("x", true, nil), newWorkerMock())
	require.NoError(t, err)
	assert.False(t, reuse)
	require.Error(t, w1.wait(t))

	b.mu.Lock()
	subCount := len(s2.subscriptions)
	b.mu.Unlock()
	assert.Zero(t, subCount)
	assert.Zero(t, b.stats.load(&b.stats.Subscriptions))

	// Publishes to the old filter are no longer delivered.
	pub := packetPublish("t/1", packet.QoS0, false, []byte("m"))
	b.broadcast(nil, pub)
	assertNoOutbound(t, s2)
}

func TestRegistryTakeoverResetsFlightTokens(t *testing.T) {
	b, _ := newTestBroker(t)

	_, _ = register(t, b, "x", false, &packet.Properties{
		ReceiveMaximum: packet.Uint16(1),
	})

	s2, _, err := b.RegisterClient(newConnect("x", false, &packet.Properties{
		ReceiveMaximum: packet.Uint16(7),
	}), newWorkerMock())
	require.NoError(t, err)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, 7, s2.inFlight)
}

func TestRegistryUnregisterComputesExpiry(t *testing.T) {
	testCases := []struct {
		name  string
		props *packet.Properties
		grace time.Duration
	}{
		{"default", nil, 300 * time.Second},
		{"zero", &packet.Properties{SessionExpiryInterval: packet.Uint32(0)}, 0},
		{"custom", &packet.Properties{SessionExpiryInterval: packet.Uint32(60)}, 60 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, _ := newTestBroker(t)
			s, _ := register(t, b, "c1", false, tc.props)

			before := time.Now()
			b.UnregisterClient(s.ID(), s.client.id)

			b.mu.Lock()
			defer b.mu.Unlock()
			assert.Nil(t, s.client)
			require.NotNil(t, s.expiresAt)
			assert.WithinDuration(t, before.Add(tc.grace), *s.expiresAt, time.Second)
		})
	}
}

func TestRegistryUnregisterStaleConnIgnored(t *testing.T) {
	b, _ := newTestBroker(t)

	s1, _ := register(t, b, "x", false, nil)
	oldConnID := s1.client.id

	s2, _, err := b.RegisterClient(newConnect("x", false, nil), newWorkerMock())
	require.NoError(t, err)

	// The evicted worker's unregister must not detach the new connection.
	b.UnregisterClient(s2.ID(), oldConnID)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.NotNil(t, s2.client)
}

func TestRegistryExpireReapsWithoutQoSSubscriptions(t *testing.T) {
	b, _ := newTestBroker(t)

	s, _ := register(t, b, "c1", false, nil)
	subscribe(t, b, s, packet.Topic{Filter: "t/#", QoS: packet.QoS0})
	b.UnregisterClient(s.ID(), s.client.id)

	// Despite the 300s grace window, a session holding only QoS 0
	// subscriptions is reaped at once.
	b.expireSession(s.ID())

	b.mu.Lock()
	_, ok := b.sessions[s.ID()]
	b.mu.Unlock()
	assert.False(t, ok)
	assert.Zero(t, b.stats.load(&b.stats.ClientsTotal))
	assert.Zero(t, b.stats.load(&b.stats.Subscriptions))
}

func TestRegistryExpireKeepsSessionInGraceWindow(t *testing.T) {
	b, _ := newTestBroker(t)

	s, _ := register(t, b, "c1", false, nil)
	subscribe(t, b, s, packet.Topic{Filter: "t/#", QoS: packet.QoS1})
	b.UnregisterClient(s.ID(), s.client.id)

	b.expireSession(s.ID())

	b.mu.Lock()
	_, ok := b.sessions[s.ID()]
	b.mu.Unlock()
	assert.True(t, ok)
}

func TestRegistryExpireReapsAfterDeadline(t *testing.T) {
	b, _ := newTestBroker(t)

	s, _ := register(t, b, "c1", false, &packet.Properties{
		SessionExpiryInterval: packet.Uint32(0),
	})
	subscribe(t, b, s, packet.Topic{Filter: "t/#", QoS: packet.QoS2})
	b.UnregisterClient(s.ID(), s.client.id)

	b.expireSession(s.ID())

	b.mu.Lock()
	_, ok := b.sessions[s.ID()]
	b.mu.Unlock()
	assert.False(t, ok)
}

func TestRegistryExpireConnectedSessionSkipped(t *testing.T) {
	b, _ := newTestBroker(t)

	s, _ := register(t, b, "c1", false, nil)
	b.expireSession(s.ID())

	b.mu.Lock()
	_, ok := b.sessions[s.ID()]
	b.mu.Unlock()
	assert.True(t, ok)
}

func TestRegistryExpireUnknownSessionNoop(t *testing.T) {
	b, _ := newTestBroker(t)
	b.expireSession(SessionID("missing"))
}

func TestRegistryExpirePublishesWill(t *testing.T) {
	b, _ := newTestBroker(t)

	sub, _ := register(t, b, "watcher", false, nil)
	subscribe(t, b, sub, packet.Topic{Filter: "goodbye", QoS: packet.QoS0})

	connect := newConnect("dying", false, &packet.Properties{
		SessionExpiryInterval: packet.Uint32(0),
	})
	connect.WillFlag = true
	connect.WillTopic = []byte("goodbye")
	connect.WillPayload = []byte("bye")
	s, _, err := b.RegisterClient(connect, newWorkerMock())
	require.NoError(t, err)

	b.UnregisterClient(s.ID(), s.client.id)
	b.expireSession(s.ID())

	pkt := nextOutbound(t, sub)
	require.Equal(t, packet.PUBLISH, pkt.Type())
	pub := pkt.(*packet.Publish)
	assert.Equal(t, "goodbye", pub.TopicName)
	assert.Equal(t, []byte("bye"), pub.Payload)
}

func TestRegistryModify(t *testing.T) {
	b, _ := newTestBroker(t)

	s, _ := register(t, b, "c1", false, nil)
	err := b.Modify(s.ID(), func(s *Session) {
		s.will = nil
	})
	require.NoError(t, err)

	err = b.Modify(SessionID("missing"), func(*Session) {})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

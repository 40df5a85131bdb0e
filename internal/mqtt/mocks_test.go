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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/bdelacey/mqttd/internal/mqtt/packet"
)

// storeFake is an in-memory Store used by the core tests.
type storeFake struct {
	mu       sync.Mutex
	sessions map[string]*SessionRecord
	retained map[string]*RetainedRecord
}

func newStoreFake() *storeFake {
	return &storeFake{
		sessions: make(map[string]*SessionRecord),
		retained: make(map[string]*RetainedRecord),
	}
}

func (f *storeFake) SaveSession(_ context.Context, rec *SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[rec.ID] = rec
	return nil
}

func (f *storeFake) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *storeFake) SaveRetained(_ context.Context, rec *RetainedRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retained[rec.Topic] = rec
	return nil
}

func (f *storeFake) DeleteRetained(_ context.Context, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.retained, topic)
	return nil
}

func (f *storeFake) LoadSessions(_ context.Context) ([]*SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recs := make([]*SessionRecord, 0, len(f.sessions))
	for _, rec := range f.sessions {
		recs = append(recs, rec)
	}
	return recs, nil
}

func (f *storeFake) LoadRetained(_ context.Context) ([]*RetainedRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recs := make([]*RetainedRecord, 0, len(f.retained))
	for _, rec := range f.retained {
		recs = append(recs, rec)
	}
	return recs, nil
}

// storeMock is a testify mock of the Store, for error paths.
type storeMock struct {
	mock.Mock
}

func (m *storeMock) SaveSession(_ context.Context, rec *SessionRecord) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *storeMock) DeleteSession(_ context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *storeMock) SaveRetained(_ context.Context, rec *RetainedRecord) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *storeMock) DeleteRetained(_ context.Context, topic string) error {
	args := m.Called(topic)
	return args.Error(0)
}

func (m *storeMock) LoadSessions(_ context.Context) ([]*SessionRecord, error) {
	args := m.Called()
	recs, _ := args.Get(0).([]*SessionRecord)
	return recs, args.Error(1)
}

func (m *storeMock) LoadRetained(_ context.Context) ([]*RetainedRecord, error) {
	args := m.Called()
	recs, _ := args.Get(0).([]*RetainedRecord)
	return recs, args.Error(1)
}

// workerMock collects the errors signaled to a connection worker.
type workerMock struct {
	errs chan error
}

func newWorkerMock() *workerMock {
	return &workerMock{errs: make(chan error, 1)}
}

func (w *workerMock) Signal(err error) {
	w.errs <- err
}

func (w *workerMock) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-w.errs:
		return err
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for worker signal")
		return nil
	}
}

func newTestBroker(t *testing.T) (*Broker, *storeFake) {
	t.Helper()

	store := newStoreFake()
	conf := Configuration{
		SessionExpiryDefault: 300,
		OutboundQueueSize:    1000,
		BacklogSize:          1000,
		SysInterval:          15,
		AllowAnonymous:       true,
	}

	return New(conf, store, nil, newTestLogger()), store
}

func newConnect(id string, clean bool, props *packet.Properties) *packet.Connect {
	return &packet.Connect{
		ClientID:     packet.ClientID(id),
		CleanSession: clean,
		Properties:   props,
	}
}

func register(t *testing.T, b *Broker, id string, clean bool,
	props *packet.Properties,
) (*Session, *workerMock) {
	t.Helper()

	w := newWorkerMock()
	s, _, err := b.RegisterClient(newConnect(id, clean, props), w)
	if err != nil {
		t.Fatalf("failed to register client %q: %v", id, err)
	}
	return s, w
}

func subscribe(t *testing.T, b *Broker, s *Session, topics ...packet.Topic) {
	t.Helper()

	sub := &packet.Subscribe{PacketID: 1, Topics: topics}
	if err := b.Dispatch(s, sub); err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}

	pkt := nextOutbound(t, s)
	if pkt.Type() != packet.SUBACK {
		t.Fatalf("expected SUBACK, got %v", pkt.Type())
	}
}

func nextOutbound(t *testing.T, s *Session) packet.Packet {
	t.Helper()
	select {
	case pkt := <-s.Outbound():
		return pkt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for outbound packet")
		return nil
	}
}

func assertNoOutbound(t *testing.T, s *Session) {
	t.Helper()
	select {
	case pkt := <-s.Outbound():
		t.Fatalf("unexpected outbound packet %v", pkt.Type())
	case <-time.After(20 * time.Millisecond):
	}
}

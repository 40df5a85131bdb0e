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

// Package store provides the persistence backends for the broker: a
// volatile in-memory store and a MongoDB-backed store.
package store

import (
	"context"
	"sync"

	"github.com/bdelacey/mqttd/internal/mqtt"
)

// Memory is a volatile in-memory implementation of the persistence store.
// It keeps sessions and retained messages for the lifetime of the process;
// it is the default backend.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*mqtt.SessionRecord
	retained map[string]*mqtt.RetainedRecord
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*mqtt.SessionRecord),
		retained: make(map[string]*mqtt.RetainedRecord),
	}
}

// SaveSession inserts or replaces the given session record.
func (m *Memory) SaveSession(_ context.Context, rec *mqtt.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[rec.ID] = rec
	return nil
}

// DeleteSession deletes the session record with the given identifier.
func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// SaveRetained inserts or replaces the given retained record.
func (m *Memory) SaveRetained(_ context.Context, rec *mqtt.RetainedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.retained[rec.Topic] = rec
	return nil
}

// DeleteRetained deletes the retained record for the given topic.
func (m *Memory) DeleteRetained(_ context.Context, topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.retained, topic)
	return nil
}

// LoadSessions loads all session records.
func (m *Memory) LoadSessions(_ context.Context) ([]*mqtt.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := make([]*mqtt.SessionRecord, 0, len(m.sessions))
	for _, rec := range m.sessions {
		recs = append(recs, rec)
	}
	return recs, nil
}

// LoadRetained loads all retained records.
func (m *Memory) LoadRetained(_ context.Context) ([]*mqtt.RetainedRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := make([]*mqtt.RetainedRecord, 0, len(m.retained))
	for _, rec := range m.retained {
		recs = append(recs, rec)
	}
	return recs, nil
}

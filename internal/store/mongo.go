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

package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bdelacey/mqttd/internal/mqtt"
)

const (
	sessionCollection  = "sessions"
	retainedCollection = "retained"

	mongoConnectTimeout   = 15 * time.Second
	mongoOperationTimeout = 5 * time.Second
)

// Mongo is a MongoDB-backed implementation of the persistence store.
// Sessions and retained messages live in their own collections, keyed by
// session identifier and topic respectively.
type Mongo struct {
	client   *mongo.Client
	sessions *mongo.Collection
	retained *mongo.Collection
}

// NewMongo connects to MongoDB and creates the store.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetAppName("mqttd"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	return &Mongo{
		client:   client,
		sessions: db.Collection(sessionCollection),
		retained: db.Collection(retainedCollection),
	}, nil
}

// Close disconnects from MongoDB.
func (m *Mongo) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOperationTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// SaveSession inserts or replaces the given session record.
func (m *Mongo) SaveSession(ctx context.Context, rec *mqtt.SessionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOperationTimeout)
	defer cancel()

	filter := bson.D{{Key: "_id", Value: rec.ID}}
	opts := options.Replace().SetUpsert(true)

	_, err := m.sessions.ReplaceOne(ctx, filter, rec, opts)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// DeleteSession deletes the session record with the given identifier.
func (m *Mongo) DeleteSession(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOperationTimeout)
	defer cancel()

	_, err := m.sessions.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SaveRetained inserts or replaces the given retained record.
func (m *Mongo) SaveRetained(ctx context.Context, rec *mqtt.RetainedRecord) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOperationTimeout)
	defer cancel()

	filter := bson.D{{Key: "_id", Value: rec.Topic}}
	opts := options.Replace().SetUpsert(true)

	_, err := m.retained.ReplaceOne(ctx, filter, rec, opts)
	if err != nil {
		return fmt.Errorf("failed to save retained message: %w", err)
	}
	return nil
}

// DeleteRetained deletes the retained record for the given topic.
func (m *Mongo) DeleteRetained(ctx context.Context, topic string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOperationTimeout)
	defer cancel()

	_, err := m.retained.DeleteOne(ctx, bson.D{{Key: "_id", Value: topic}})
	if err != nil {
		return fmt.Errorf("failed to delete retained message: %w", err)
	}
	return nil
}

// LoadSessions loads all session records.
func (m *Mongo) LoadSessions(ctx context.Context) ([]*mqtt.SessionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOperationTimeout)
	defer cancel()

	cursor, err := m.sessions.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	var recs []*mqtt.SessionRecord
	if err = cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return recs, nil
}

// LoadRetained loads all retained records.
func (m *Mongo) LoadRetained(ctx context.Context) ([]*mqtt.RetainedRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOperationTimeout)
	defer cancel()

	cursor, err := m.retained.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to load retained messages: %w", err)
	}

	var recs []*mqtt.RetainedRecord
	if err = cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("failed to decode retained messages: %w", err)
	}
	return recs, nil
}

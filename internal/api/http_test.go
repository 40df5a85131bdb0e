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

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdelacey/mqttd/internal/logger"
	"github.com/bdelacey/mqttd/internal/mqtt"
)

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()

	log := logger.New(&bytes.Buffer{}, nil, logger.LogFormatJson)
	s, err := NewHTTPServer(Configuration{Address: ":0"}, &mqtt.Stats{}, log)
	require.NoError(t, err)
	return s
}

func TestHTTPServerNewMissingAddress(t *testing.T) {
	log := logger.New(&bytes.Buffer{}, nil, logger.LogFormatJson)
	_, err := NewHTTPServer(Configuration{}, &mqtt.Stats{}, log)
	assert.Error(t, err)
}

func TestHTTPServerNewMissingLogger(t *testing.T) {
	_, err := NewHTTPServer(Configuration{Address: ":0"}, &mqtt.Stats{}, nil)
	assert.Error(t, err)
}

func TestHTTPServerHealth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHTTPServerStats(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Uptime   int64            `json:"uptime_seconds"`
		Counters map[string]int64 `json:"counters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Counters, "clients_connected")
	assert.Contains(t, body.Counters, "messages_sent")
}

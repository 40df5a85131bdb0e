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

package cli

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdelacey/mqttd/internal/config"
	"github.com/bdelacey/mqttd/internal/snowflake"
)

func TestStartNewLogger(t *testing.T) {
	log, err := newLogger("json", "debug", nil)
	require.NoError(t, err)
	assert.NotNil(t, log)

	log, err = newLogger("pretty", "info", nil)
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestStartNewLoggerInvalidLevel(t *testing.T) {
	_, err := newLogger("json", "invalid", nil)
	assert.Error(t, err)
}

func TestStartNewServerMemoryBackend(t *testing.T) {
	viper.Reset()
	conf, err := config.LoadConfig()
	require.NoError(t, err)
	conf.MetricsEnabled = false
	conf.APIEnabled = false

	log, err := newLogger("json", "info", nil)
	require.NoError(t, err)

	sf, err := snowflake.New(0)
	require.NoError(t, err)

	srv, err := newServer(conf, sf, log)
	require.NoError(t, err)
	assert.NotNil(t, srv)
}

func TestStartNewServerUnknownBackend(t *testing.T) {
	viper.Reset()
	conf, err := config.LoadConfig()
	require.NoError(t, err)
	conf.PersistenceBackend = "unknown"

	log, err := newLogger("json", "info", nil)
	require.NoError(t, err)

	sf, err := snowflake.New(0)
	require.NoError(t, err)

	_, err = newServer(conf, sf, log)
	assert.ErrorContains(t, err, "unknown persistence backend")
}

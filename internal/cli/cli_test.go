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
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIVersion(t *testing.T) {
	c := New("mqttd", "mqttd is an MQTT v5 message broker")

	out := bytes.Buffer{}
	err := c.Run(context.Background(), &out, []string{"version"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Version:")
	assert.Contains(t, out.String(), "Go version:")
}

func TestCLIUnknownCommand(t *testing.T) {
	c := New("mqttd", "mqttd is an MQTT v5 message broker")

	out := bytes.Buffer{}
	err := c.Run(context.Background(), &out, []string{"unknown"})
	assert.Error(t, err)
}

func TestCLIHelp(t *testing.T) {
	c := New("mqttd", "mqttd is an MQTT v5 message broker")

	out := bytes.Buffer{}
	err := c.Run(context.Background(), &out, []string{"--help"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "start")
	assert.Contains(t, out.String(), "version")
}

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

// Disconnect represents the DISCONNECT packet.
type Disconnect struct {
	// Properties represents the DISCONNECT properties.
	Properties *Properties

	// ReasonCode indicates the reason for the disconnection.
	ReasonCode ReasonCode
}

// Type returns the packet type.
func (p *Disconnect) Type() Type {
	return DISCONNECT
}

// SessionExpiryInterval returns the Session-Expiry-Interval property, or
// nil when the property is absent.
func (p *Disconnect) SessionExpiryInterval() *uint32 {
	if p.Properties == nil {
		return nil
	}
	return p.Properties.SessionExpiryInterval
}

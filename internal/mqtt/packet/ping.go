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

// PingReq represents the PINGREQ packet.
type PingReq struct{}

// Type returns the packet type.
func (p *PingReq) Type() Type {
	return PINGREQ
}

// PingResp represents the PINGRESP packet.
type PingResp struct{}

// Type returns the packet type.
func (p *PingResp) Type() Type {
	return PINGRESP
}

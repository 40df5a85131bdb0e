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
	"github.com/bdelacey/mqttd/internal/mqtt/packet"
)

// resolveInboundAlias rewrites a publish carrying a Topic-Alias property.
// A non-empty topic registers the alias; an empty topic is replaced by the
// topic currently registered for the alias. An unknown alias leaves the
// topic empty, which subsequently fails the ACL check. The Topic-Alias
// property is always stripped before routing.
//
// The caller must hold the routing-core lock.
func (c *connectedClient) resolveInboundAlias(p *packet.Publish) {
	alias := p.TopicAlias()
	if alias == 0 {
		return
	}

	if len(p.TopicName) > 0 {
		c.inAliases[alias] = p.TopicName
	} else {
		p.TopicName = c.inAliases[alias]
	}

	p.StripTopicAlias()
}

// applyOutboundAlias substitutes the topic of an outgoing publish by an
// alias. A known topic is sent with an empty topic name and its alias; an
// unknown topic allocates the next alias while aliases remain, sending
// both the topic and the new alias so the client learns the mapping.
//
// The caller must hold the routing-core lock.
func (c *connectedClient) applyOutboundAlias(p *packet.Publish) {
	if alias, ok := c.outAliases[p.TopicName]; ok {
		p.TopicName = ""
		p.SetTopicAlias(alias)
		return
	}

	if c.aliasesLeft == 0 {
		return
	}

	alias := uint16(len(c.outAliases) + 1)
	c.aliasesLeft--
	c.outAliases[p.TopicName] = alias
	p.SetTopicAlias(alias)
}

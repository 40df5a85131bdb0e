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

	"github.com/bdelacey/mqttd/internal/logger"
	"github.com/bdelacey/mqttd/internal/mqtt/packet"
)

// ErrBadCredentials indicates that the user name or password in the
// CONNECT packet is not valid.
var ErrBadCredentials = errors.New("bad user name or password")

type aclAction byte

const (
	aclAllow aclAction = iota
	aclDeny
)

// ACLRule is a single allow/deny rule over a topic filter.
type ACLRule struct {
	filter string
	action aclAction
}

// User holds the credentials and access rules of a single user.
type User struct {
	// Name of the user.
	Name string

	// Password of the user.
	Password string

	// ACLs is the ordered rule list; the first matching rule wins.
	ACLs []ACLRule
}

// NewACLRule creates a rule for the authorizer. Allowed actions are
// "allow" and "deny"; anything else is treated as "deny".
func NewACLRule(action, filter string) ACLRule {
	a := aclDeny
	if action == "allow" {
		a = aclAllow
	}
	return ACLRule{action: a, filter: filter}
}

// authorizer authenticates clients at connect time and evaluates topic
// access on publish and subscribe.
type authorizer struct {
	log            *logger.Logger
	users          map[string]User
	allowAnonymous bool
}

func newAuthorizer(users []User, allowAnonymous bool, l *logger.Logger) *authorizer {
	m := make(map[string]User, len(users))
	for _, u := range users {
		m[u.Name] = u
	}
	return &authorizer{
		log:            l.WithPrefix("mqtt.auth"),
		users:          m,
		allowAnonymous: allowAnonymous,
	}
}

// authenticate validates the credentials in the CONNECT packet and returns
// the ACL rules to attach to the session.
func (a *authorizer) authenticate(c *packet.Connect) ([]ACLRule, error) {
	if len(c.Username) == 0 {
		if a.allowAnonymous {
			return nil, nil
		}
		a.log.Debug().
			Str("ClientId", string(c.ClientID)).
			Msg("Anonymous client rejected")
		return nil, ErrBadCredentials
	}

	u, ok := a.users[string(c.Username)]
	if !ok || u.Password != string(c.Password) {
		a.log.Debug().
			Str("ClientId", string(c.ClientID)).
			Str("Username", string(c.Username)).
			Msg("Invalid credentials")
		return nil, ErrBadCredentials
	}

	return u.ACLs, nil
}

// authorizeTopic reports whether the given concrete topic is allowed by
// the given ordered rule list. The empty topic always fails; the first
// matching rule decides; no matching rule means allow.
func authorizeTopic(topic string, acls []ACLRule) bool {
	if len(topic) == 0 {
		return false
	}

	for _, rule := range acls {
		if matchesFilter(rule.filter, topic) {
			return rule.action == aclAllow
		}
	}

	return true
}

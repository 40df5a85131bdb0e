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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizerAnonymousAllowed(t *testing.T) {
	a := newAuthorizer(nil, true, newTestLogger())

	acl, err := a.authenticate(newConnect("c1", true, nil))
	require.NoError(t, err)
	assert.Nil(t, acl)
}

func TestAuthorizerAnonymousRejected(t *testing.T) {
	a := newAuthorizer(nil, false, newTestLogger())

	_, err := a.authenticate(newConnect("c1", true, nil))
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestAuthorizerCredentials(t *testing.T) {
	users := []User{{
		Name:     "alice",
		Password: "secret",
		ACLs:     []ACLRule{NewACLRule("allow", "sensors/#")},
	}}
	a := newAuthorizer(users, false, newTestLogger())

	connect := newConnect("c1", true, nil)
	connect.Username = []byte("alice")
	connect.Password = []byte("secret")

	acl, err := a.authenticate(connect)
	require.NoError(t, err)
	require.Len(t, acl, 1)

	connect.Password = []byte("wrong")
	_, err = a.authenticate(connect)
	assert.ErrorIs(t, err, ErrBadCredentials)

	connect.Username = []byte("bob")
	_, err = a.authenticate(connect)
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestAuthorizeTopicFirstMatchWins(t *testing.T) {
	acls := []ACLRule{
		NewACLRule("deny", "secret/#"),
		NewACLRule("allow", "secret/shared"),
		NewACLRule("allow", "#"),
	}

	// The deny on secret/# shadows the later allow on secret/shared.
	assert.False(t, authorizeTopic("secret/shared", acls))
	assert.False(t, authorizeTopic("secret/a/b", acls))
	assert.True(t, authorizeTopic("public/a", acls))
}

func TestAuthorizeTopicNoMatchAllows(t *testing.T) {
	acls := []ACLRule{NewACLRule("deny", "private/#")}

	assert.True(t, authorizeTopic("public/x", acls))
	assert.True(t, authorizeTopic("x", nil))
}

func TestAuthorizeTopicEmptyTopicFails(t *testing.T) {
	assert.False(t, authorizeTopic("", nil))
	assert.False(t, authorizeTopic("", []ACLRule{NewACLRule("allow", "#")}))
}

func TestAuthorizeTopicOrderMatters(t *testing.T) {
	allowFirst := []ACLRule{
		NewACLRule("allow", "a/+"),
		NewACLRule("deny", "a/b"),
	}
	denyFirst := []ACLRule{
		NewACLRule("deny", "a/b"),
		NewACLRule("allow", "a/+"),
	}

	assert.True(t, authorizeTopic("a/b", allowFirst))
	assert.False(t, authorizeTopic("a/b", denyFirst))
}

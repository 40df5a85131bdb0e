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

// ReasonCode is a one byte unsigned value that indicates the result of an
// operation, based on the MQTT v5 specification.
type ReasonCode byte

const (
	// ReasonCodeSuccess indicates success.
	ReasonCodeSuccess ReasonCode = 0x00

	// ReasonCodeNormalDisconnection indicates to close the connection
	// normally and do not send the Will Message.
	ReasonCodeNormalDisconnection ReasonCode = 0x00

	// ReasonCodeGrantedQoS0 indicates that the subscription was accepted and
	// the maximum QoS sent will be QoS 0.
	ReasonCodeGrantedQoS0 ReasonCode = 0x00

	// ReasonCodeGrantedQoS1 indicates that the subscription was accepted and
	// the maximum QoS sent will be QoS 1.
	ReasonCodeGrantedQoS1 ReasonCode = 0x01

	// ReasonCodeGrantedQoS2 indicates that the subscription was accepted and
	// any received QoS will be sent.
	ReasonCodeGrantedQoS2 ReasonCode = 0x02

	// ReasonCodeDisconnectWithWillMessage indicates to close the connection,
	// but the broker shall send the Will Message.
	ReasonCodeDisconnectWithWillMessage ReasonCode = 0x04

	// ReasonCodeNoMatchingSubscribers indicates that the message was
	// accepted but there are no subscribers.
	ReasonCodeNoMatchingSubscribers ReasonCode = 0x10

	// ReasonCodeNoSubscriptionExisted indicates that no matching topic
	// filter is being used by the client.
	ReasonCodeNoSubscriptionExisted ReasonCode = 0x11

	// ReasonCodeUnspecifiedError indicates that the broker does not wish to
	// reveal the reason for the failure, or none of the other codes apply.
	ReasonCodeUnspecifiedError ReasonCode = 0x80

	// ReasonCodeMalformedPacket indicates that data within the packet could
	// not be correctly parsed.
	ReasonCodeMalformedPacket ReasonCode = 0x81

	// ReasonCodeProtocolError indicates that data in the packet does not
	// conform with the v5 specification.
	ReasonCodeProtocolError ReasonCode = 0x82

	// ReasonCodeBadUserNameOrPassword indicates that the broker does not
	// accept the user name or password specified by the client.
	ReasonCodeBadUserNameOrPassword ReasonCode = 0x86

	// ReasonCodeNotAuthorized indicates that the client is not authorized to
	// perform the operation.
	ReasonCodeNotAuthorized ReasonCode = 0x87

	// ReasonCodeServerBusy indicates that the broker is busy and cannot
	// continue processing requests from the client.
	ReasonCodeServerBusy ReasonCode = 0x89

	// ReasonCodePacketIDInUse indicates that the packet identifier is
	// already in use.
	ReasonCodePacketIDInUse ReasonCode = 0x91

	// ReasonCodePacketIDNotFound indicates that the packet identifier is not
	// known, or is not the packet identifier of an in-flight message.
	ReasonCodePacketIDNotFound ReasonCode = 0x92

	// ReasonCodeSessionTakenOver indicates that another connection using the
	// same client identifier has connected.
	ReasonCodeSessionTakenOver ReasonCode = 0x8E

	// ReasonCodeQuotaExceeded indicates that an implementation or
	// administrative limit has been exceeded.
	ReasonCodeQuotaExceeded ReasonCode = 0x97
)

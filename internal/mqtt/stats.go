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
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bdelacey/mqttd/internal/build"
	"github.com/bdelacey/mqttd/internal/mqtt/packet"
)

const sysMessageExpiry uint32 = 60

// Stats holds the broker counters. All fields are updated atomically and
// exported both on $SYS topics and through the Prometheus endpoint.
type Stats struct {
	// ClientsConnected is the number of currently connected clients.
	ClientsConnected int64

	// ClientsTotal is the number of sessions known to the broker,
	// connected or not.
	ClientsTotal int64

	// MsgSent is the total number of PUBLISH packets sent to clients.
	MsgSent int64

	// MsgRecv is the total number of PUBLISH packets received from clients.
	MsgRecv int64

	// MsgDropped is the total number of outbound packets dropped because a
	// session's outbound queue or backlog was full.
	MsgDropped int64

	// Subscriptions is the number of active subscriptions.
	Subscriptions int64

	// Retained is the number of active retained messages.
	Retained int64

	startedAt time.Time
}

func newStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

func (st *Stats) add(counter *int64, delta int64) {
	atomic.AddInt64(counter, delta)
}

func (st *Stats) load(counter *int64) int64 {
	return atomic.LoadInt64(counter)
}

// Snapshot returns the current value of every counter, keyed by stat name.
func (st *Stats) Snapshot() map[string]int64 {
	return map[string]int64{
		"clients_connected": st.load(&st.ClientsConnected),
		"clients_total":     st.load(&st.ClientsTotal),
		"messages_sent":     st.load(&st.MsgSent),
		"messages_received": st.load(&st.MsgRecv),
		"messages_dropped":  st.load(&st.MsgDropped),
		"subscriptions":     st.load(&st.Subscriptions),
		"retained":          st.load(&st.Retained),
	}
}

// Uptime returns the time elapsed since the broker started.
func (st *Stats) Uptime() time.Duration {
	return time.Since(st.startedAt)
}

// runSysPublisher periodically publishes the broker statistics on the
// $SYS topics as retained QoS 2 messages with a short expiry.
func (b *Broker) runSysPublisher(ctx context.Context, interval time.Duration) {
	log := b.log.WithPrefix("mqtt.sys")
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Debug().Msg("Sys publisher started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Sys publisher stopped")
			return
		case <-ticker.C:
			b.publishSysStats()
		}
	}
}

func (b *Broker) publishSysStats() {
	st := b.stats

	topics := map[string]string{
		"$SYS/broker/clients/total":           strconv.FormatInt(st.load(&st.ClientsTotal), 10),
		"$SYS/broker/clients/connected":       strconv.FormatInt(st.load(&st.ClientsConnected), 10),
		"$SYS/broker/retained messages/count": strconv.FormatInt(st.load(&st.Retained), 10),
		"$SYS/broker/subscriptions/count":     strconv.FormatInt(st.load(&st.Subscriptions), 10),
		"$SYS/broker/uptime":                  strconv.FormatInt(int64(st.Uptime().Seconds()), 10),
		"$SYS/broker/version":                 build.GetInfo().Version,
	}
	for name, value := range st.Snapshot() {
		topics["$SYS/broker/stats/"+name] = strconv.FormatInt(value, 10)
	}

	for topic, value := range topics {
		pub := packet.NewPublish(0, topic, packet.QoS2, false, true,
			[]byte(value), &packet.Properties{
				MessageExpiryInterval: packet.Uint32(sysMessageExpiry),
			})
		b.broadcast(nil, &pub)
	}
}

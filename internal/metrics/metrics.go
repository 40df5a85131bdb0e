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

// Package metrics exports the broker counters through Prometheus.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bdelacey/mqttd/internal/mqtt"
)

type metric struct {
	metricType string
	name       string
	help       string
	value      *int64
}

// Register registers the broker counters with the default Prometheus
// registry.
func Register(st *mqtt.Stats) {
	metrics := []metric{
		{"gauge", "clients_connected", "Number of currently connected clients",
			&st.ClientsConnected},
		{"gauge", "clients_total",
			"Number of sessions known to the broker, connected or not",
			&st.ClientsTotal},
		{"counter", "messages_sent", "Total number of publish messages sent",
			&st.MsgSent},
		{"counter", "messages_received", "Total number of publish messages received",
			&st.MsgRecv},
		{"counter", "messages_dropped", "Total number of publish messages dropped",
			&st.MsgDropped},
		{"gauge", "subscriptions", "Total number of subscriptions active",
			&st.Subscriptions},
		{"gauge", "retained", "Total number of retained messages active",
			&st.Retained},
	}

	for _, m := range metrics {
		m := m
		fn := func() float64 {
			return float64(atomic.LoadInt64(m.value))
		}

		switch m.metricType {
		case "counter":
			prometheus.MustRegister(
				prometheus.NewCounterFunc(
					prometheus.CounterOpts{
						Namespace: "mqttd",
						Subsystem: "broker",
						Name:      m.name,
						Help:      m.help,
					},
					fn,
				),
			)
		case "gauge":
			prometheus.MustRegister(
				prometheus.NewGaugeFunc(
					prometheus.GaugeOpts{
						Namespace: "mqttd",
						Subsystem: "broker",
						Name:      m.name,
						Help:      m.help,
					},
					fn,
				),
			)
		}
	}
}

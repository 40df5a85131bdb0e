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

package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ACL is an ordered allow/deny rule over a topic filter.
type ACL struct {
	// Action is either "allow" or "deny".
	Action string `mapstructure:"action"`

	// Filter is the topic filter the rule applies to. It may contain the
	// '+' and '#' wildcards.
	Filter string `mapstructure:"filter"`
}

// User holds the credentials and access rules for a single user.
type User struct {
	// Name of the user as sent in the CONNECT packet.
	Name string `mapstructure:"name"`

	// Password of the user.
	Password string `mapstructure:"password"`

	// ACLs is the ordered list of rules evaluated on publish and subscribe.
	// The first matching rule wins; if no rule matches, access is allowed.
	ACLs []ACL `mapstructure:"acls"`
}

// Config holds all the application configuration.
type Config struct {
	// Minimal severity level of the logs.
	LogLevel string `mapstructure:"log_level"`

	// Format of the logs ("json" or "pretty").
	LogFormat string `mapstructure:"log_format"`

	// Indicate whether the broker exports Prometheus metrics or not.
	MetricsEnabled bool `mapstructure:"metrics_enabled"`

	// TCP address (<IP>:<port>) where the Prometheus metrics are exported.
	MetricsAddress string `mapstructure:"metrics_address"`

	// The path where the metrics are exported.
	MetricsPath string `mapstructure:"metrics_path"`

	// Indicate whether the profiling endpoints are exported or not.
	MetricsProfiling bool `mapstructure:"metrics_profiling"`

	// Indicate whether the admin HTTP API is enabled or not.
	APIEnabled bool `mapstructure:"api_enabled"`

	// TCP address (<IP>:<port>) that the admin HTTP API binds to.
	APIAddress string `mapstructure:"api_address"`

	// TCP address (<IP>:<port>) that the MQTT listener binds to.
	MQTTTCPAddress string `mapstructure:"mqtt_tcp_address"`

	// Indicate whether clients without valid credentials are admitted.
	AllowAnonymous bool `mapstructure:"allow_anonymous"`

	// Users known to the broker, with their passwords and ACLs.
	Users []User `mapstructure:"users"`

	// The grace period, in seconds, a session survives after the network
	// connection is closed when the client did not negotiate a
	// Session-Expiry-Interval.
	SessionExpiryDefault uint32 `mapstructure:"session_expiry_default"`

	// The maximum number of packets queued for delivery to a single client.
	OutboundQueueSize int `mapstructure:"outbound_queue_size"`

	// The maximum number of publishes waiting for an in-flight slot per
	// session.
	BacklogSize int `mapstructure:"backlog_size"`

	// The persistence backend: "memory" or "mongo".
	PersistenceBackend string `mapstructure:"persistence_backend"`

	// The MongoDB connection URI, used when the persistence backend is
	// "mongo".
	MongoURI string `mapstructure:"mongo_uri"`

	// The MongoDB database name, used when the persistence backend is
	// "mongo".
	MongoDatabase string `mapstructure:"mongo_database"`

	// The interval, in seconds, between $SYS statistics publications.
	SysInterval int `mapstructure:"sys_interval"`
}

// ReadConfigFile reads the configuration file.
//
// The configuration file can be stored at one of the following locations:
//   - mqttd.conf in the directory of the running executable
//   - mqttd.conf in the parent of that directory
//   - /etc/mqttd/mqttd.conf
//   - /etc/mqttd.conf
func ReadConfigFile() error {
	viper.SetConfigName("mqttd.conf")
	viper.SetConfigType("toml")

	if exe, err := os.Executable(); err == nil {
		pwd := filepath.Dir(exe)
		viper.AddConfigPath(pwd)

		root := filepath.Dir(pwd + "/../")
		viper.AddConfigPath(root)
	}

	viper.AddConfigPath("/etc/mqttd")
	viper.AddConfigPath("/etc")

	return viper.ReadInConfig()
}

// LoadConfig loads the configuration from the conf file, environment
// variables, or use the default values.
//
// Note: The ReadConfigFile must be called before in order to load the
// configuration from the conf file.
func LoadConfig() (Config, error) {
	viper.SetEnvPrefix("MQTTD")
	viper.AutomaticEnv()

	// Bind environment variables
	_ = viper.BindEnv("log_level")
	_ = viper.BindEnv("log_format")
	_ = viper.BindEnv("metrics_enabled")
	_ = viper.BindEnv("metrics_address")
	_ = viper.BindEnv("metrics_path")
	_ = viper.BindEnv("metrics_profiling")
	_ = viper.BindEnv("api_enabled")
	_ = viper.BindEnv("api_address")
	_ = viper.BindEnv("mqtt_tcp_address")
	_ = viper.BindEnv("allow_anonymous")
	_ = viper.BindEnv("session_expiry_default")
	_ = viper.BindEnv("outbound_queue_size")
	_ = viper.BindEnv("backlog_size")
	_ = viper.BindEnv("persistence_backend")
	_ = viper.BindEnv("mongo_uri")
	_ = viper.BindEnv("mongo_database")
	_ = viper.BindEnv("sys_interval")

	// Set the default values
	c := Config{
		LogLevel:             "info",
		LogFormat:            "pretty",
		MetricsEnabled:       true,
		MetricsAddress:       ":8888",
		MetricsPath:          "/metrics",
		APIEnabled:           true,
		APIAddress:           ":8080",
		MQTTTCPAddress:       ":1883",
		AllowAnonymous:       true,
		SessionExpiryDefault: 300,
		OutboundQueueSize:    1000,
		BacklogSize:          1000,
		PersistenceBackend:   "memory",
		MongoURI:             "mongodb://localhost:27017",
		MongoDatabase:        "mqttd",
		SysInterval:          15,
	}

	err := viper.Unmarshal(&c)
	return c, err
}

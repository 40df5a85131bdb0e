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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimiro1/banner"
	"github.com/mattn/go-colorable"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bdelacey/mqttd/internal/api"
	"github.com/bdelacey/mqttd/internal/config"
	"github.com/bdelacey/mqttd/internal/logger"
	"github.com/bdelacey/mqttd/internal/metrics"
	"github.com/bdelacey/mqttd/internal/mqtt"
	"github.com/bdelacey/mqttd/internal/server"
	"github.com/bdelacey/mqttd/internal/snowflake"
	"github.com/bdelacey/mqttd/internal/store"
)

var bannerTemplate = `{{ .Title "mqttd" "" 0 }}
{{ .AnsiColor.BrightCyan }}  An MQTT v5 Message Broker
{{ .AnsiColor.Default }}
`

const stopTimeout = 30 * time.Second

func newCommandStart() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start broker",
		Long:  "Start the mqttd broker",
		Run: func(_ *cobra.Command, _ []string) {
			machineID := 0

			sf, err := snowflake.New(machineID)
			if err != nil {
				fmt.Println("failed to start broker: " + err.Error())
				os.Exit(1)
			}

			conf, confFileFound, err := loadConfig()
			if err != nil {
				fmt.Println("failed to start broker: " + err.Error())
				os.Exit(1)
			}

			baseLog, err := newLogger(conf.LogFormat, conf.LogLevel, sf)
			if err != nil {
				fmt.Println("failed to start broker: " + err.Error())
				os.Exit(1)
			}

			bannerWriter := colorable.NewColorableStdout()
			banner.InitString(bannerWriter, true, true, bannerTemplate)

			bsLog := baseLog.WithPrefix("bootstrap")
			if confFileFound {
				bsLog.Info().Msg("Config file loaded with success")
			} else {
				bsLog.Info().Msg("No config file found")
			}

			cf, err := json.Marshal(conf)
			if err != nil {
				bsLog.Fatal().Msg("Failed to encode configuration: " + err.Error())
			}
			bsLog.Debug().RawJSON("Configuration", cf).Msg("Using configuration")

			srv, err := newServer(conf, sf, baseLog)
			if err != nil {
				bsLog.Fatal().Msg("Failed to create server: " + err.Error())
			}

			ctx := context.Background()
			if err = srv.Start(ctx); err != nil {
				bsLog.Fatal().Msg("Failed to start server: " + err.Error())
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			// Generates a new line to split the logs
			fmt.Println("")

			stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
			defer cancel()
			if err = srv.Stop(stopCtx); err != nil {
				bsLog.Error().Msg("Failed to stop server: " + err.Error())
			}
		},
	}
}

func loadConfig() (c config.Config, found bool, err error) {
	err = config.ReadConfigFile()
	if err == nil {
		found = true
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
		return c, found, err
	}

	c, err = config.LoadConfig()
	return c, found, err
}

func newLogger(format, level string, gen logger.LogIDGenerator) (*logger.Logger, error) {
	if err := logger.SetSeverityLevel(level); err != nil {
		return nil, err
	}

	lf := logger.LogFormatPretty
	if format == "json" {
		lf = logger.LogFormatJson
	}

	return logger.New(os.Stdout, gen, lf), nil
}

func newServer(conf config.Config, sf *snowflake.Snowflake, log *logger.Logger) (*server.Server, error) {
	var st mqtt.Store
	switch conf.PersistenceBackend {
	case "memory":
		st = store.NewMemory()
	case "mongo":
		mongoStore, err := store.NewMongo(context.Background(), conf.MongoURI,
			conf.MongoDatabase)
		if err != nil {
			return nil, err
		}
		st = mongoStore
	default:
		return nil, fmt.Errorf("unknown persistence backend %q",
			conf.PersistenceBackend)
	}

	users := make([]mqtt.User, 0, len(conf.Users))
	for _, u := range conf.Users {
		acls := make([]mqtt.ACLRule, 0, len(u.ACLs))
		for _, rule := range u.ACLs {
			acls = append(acls, mqtt.NewACLRule(rule.Action, rule.Filter))
		}
		users = append(users, mqtt.User{
			Name:     u.Name,
			Password: u.Password,
			ACLs:     acls,
		})
	}

	broker := mqtt.New(mqtt.Configuration{
		Users:                users,
		AllowAnonymous:       conf.AllowAnonymous,
		SessionExpiryDefault: conf.SessionExpiryDefault,
		OutboundQueueSize:    conf.OutboundQueueSize,
		BacklogSize:          conf.BacklogSize,
		SysInterval:          conf.SysInterval,
	}, st, sf, log)

	srv := server.New(log)
	srv.AddComponent(server.ComponentFunc{
		OnStart: broker.Start,
		OnStop: func(context.Context) error {
			broker.Stop()
			if mongoStore, ok := st.(*store.Mongo); ok {
				return mongoStore.Close(context.Background())
			}
			return nil
		},
	})

	if conf.MetricsEnabled {
		metrics.Register(broker.Stats())
		metricsSrv, err := metrics.NewServer(metrics.Configuration{
			Address:   conf.MetricsAddress,
			Path:      conf.MetricsPath,
			Profiling: conf.MetricsProfiling,
		}, log)
		if err != nil {
			return nil, err
		}
		srv.AddComponent(server.ComponentFunc{
			OnStart: func(context.Context) error { return metricsSrv.Start() },
			OnStop:  metricsSrv.Stop,
		})
	}

	if conf.APIEnabled {
		apiSrv, err := api.NewHTTPServer(api.Configuration{
			Address: conf.APIAddress,
		}, broker.Stats(), log)
		if err != nil {
			return nil, err
		}
		srv.AddComponent(server.ComponentFunc{
			OnStart: func(context.Context) error { return apiSrv.Start() },
			OnStop:  apiSrv.Stop,
		})
	}

	return srv, nil
}

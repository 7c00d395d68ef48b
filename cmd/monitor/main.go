package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solar-monitor/internal/config"
	"solar-monitor/internal/coordinator"
	"solar-monitor/internal/device"
	"solar-monitor/internal/entity"
	"solar-monitor/internal/sink"
	"solar-monitor/internal/store"
)

// Default poll interval per register group. Configuration registers change
// rarely, so they are polled an order of magnitude slower.
var defaultIntervals = map[string]time.Duration{
	"inverter":      30 * time.Second,
	"meter":         30 * time.Second,
	"storage":       30 * time.Second,
	"configuration": 5 * time.Minute,
	"optimizer":     5 * time.Minute,
}

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config/config.yaml", "path to YAML config")
	flag.Parse()

	// .env can carry broker passwords and the influx token.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load yaml config: %v", err)
	}
	if cfg.Influx.Enabled && cfg.Influx.Token == "" {
		cfg.Influx.Token = os.Getenv("INFLUX_TOKEN")
	}
	if cfg.MQTT.Enabled && cfg.MQTT.Password == "" {
		cfg.MQTT.Password = os.Getenv("MQTT_PASSWORD")
	}

	reader, err := device.NewModbusReader(cfg.ModbusConfig())
	if err != nil {
		log.Fatalf("connect inverter: %v", err)
	}
	defer reader.Close()

	groups, err := entity.Build(cfg.Capabilities())
	if err != nil {
		log.Fatalf("build entities: %v", err)
	}

	out, cleanup, err := buildSinks(cfg)
	if err != nil {
		log.Fatalf("build sinks: %v", err)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		log.Printf("received signal: %v, shutting down...", s)
		cancel()
	}()

	mgr := &coordinator.Manager{}
	for group, entities := range groups {
		name := group.String()
		reg := coordinator.NewRegistry()
		for _, ent := range entities {
			if err := ent.Attach(reg, out); err != nil {
				log.Fatalf("attach %s: %v", ent.ID, err)
			}
		}
		interval := cfg.Interval(name, defaultIntervals[name])
		mgr.Coordinators = append(mgr.Coordinators,
			coordinator.New(name, reader, reg, interval, cfg.Device.Timeout*2))
		log.Printf("group %s: %d entities, polling every %s", name, len(entities), interval)
	}

	if err := mgr.Run(ctx); err != nil {
		log.Printf("manager exited with error: %v", err)
	}
}

// buildSinks assembles the configured sink chain and returns a cleanup
// function that flushes and closes everything.
func buildSinks(cfg config.Root) (entity.Sink, func(), error) {
	var (
		sinks    sink.Multi
		closers  []func()
		noExtern = true
	)

	if cfg.MQTT.Enabled {
		m, err := sink.NewMQTT(sink.MQTTConfig{
			Broker:          cfg.MQTT.Broker,
			TopicPrefix:     cfg.MQTT.TopicPrefix,
			ClientID:        cfg.MQTT.ClientID,
			Username:        cfg.MQTT.Username,
			Password:        cfg.MQTT.Password,
			DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
			DedupTTL:        cfg.MQTT.DedupTTL,
		})
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, m)
		closers = append(closers, m.Close)
		noExtern = false
	}

	if cfg.Influx.Enabled {
		i := sink.NewInflux(sink.InfluxConfig{
			URL:         cfg.Influx.URL,
			Token:       cfg.Influx.Token,
			Org:         cfg.Influx.Org,
			Bucket:      cfg.Influx.Bucket,
			Measurement: cfg.Influx.Measurement,
		})
		sinks = append(sinks, i)
		closers = append(closers, i.Close)
		noExtern = false
	}

	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.DBPath)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, st)
		closers = append(closers, func() { _ = st.Close() })
	}

	if cfg.LogUpdates || noExtern {
		sinks = append(sinks, sink.Log{})
	}

	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	return sinks, cleanup, nil
}

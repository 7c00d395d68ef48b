package main

import (
	"context"
	"flag"
	"log"
	"time"

	"solar-monitor/internal/config"
	"solar-monitor/internal/output"
	"solar-monitor/internal/store"
)

func main() {
	var cfgPath string
	var dbPath string
	var deviceID string
	var outJSON string
	var outCSV string
	flag.StringVar(&cfgPath, "config", "config/config.yaml", "path to YAML config")
	flag.StringVar(&dbPath, "db", "", "path to the latest-value database (overrides config)")
	flag.StringVar(&deviceID, "device", "", "export only this device (optional)")
	flag.StringVar(&outJSON, "json", "", "path to write JSON export (optional)")
	flag.StringVar(&outCSV, "csv", "", "path to write CSV export (optional)")
	flag.Parse()

	if outJSON == "" && outCSV == "" {
		log.Fatalf("no output specified: set --json and/or --csv")
	}

	if dbPath == "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			log.Fatalf("load yaml config: %v", err)
		}
		if !cfg.Store.Enabled {
			log.Fatalf("store is disabled in %s: pass --db or enable it", cfgPath)
		}
		dbPath = cfg.Store.DBPath
	}

	st, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var states []store.LatestState
	if deviceID != "" {
		states, err = st.LatestForDevice(ctx, deviceID)
	} else {
		states, err = st.Latest(ctx)
	}
	if err != nil {
		log.Fatalf("read latest states: %v", err)
	}
	log.Printf("exporting %d entity states", len(states))

	if outJSON != "" {
		if err := output.WriteJSON(outJSON, states); err != nil {
			log.Printf("write json error: %v", err)
		}
	}
	if outCSV != "" {
		if err := output.WriteCSV(outCSV, states); err != nil {
			log.Printf("write csv error: %v", err)
		}
	}
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/suzarilshah/aquanexus-sub003/pkg/config"
	"github.com/suzarilshah/aquanexus-sub003/pkg/lifecycle"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
	"github.com/suzarilshah/aquanexus-sub003/pkg/replay"
)

func main() {
	configPath := flag.String("config", "/etc/aquanexus/replay.json", "Path to config file")
	once := flag.Bool("once", false, "Run a single replay tick and exit")
	flag.Parse()

	var cfg config.ReplayConfig
	if err := config.LoadAndValidate(*configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	app, err := newApp(&cfg)
	if err != nil {
		log.Fatalf("Failed to initialize replay service: %v", err)
	}

	ctx := context.Background()

	if *once {
		run, err := app.orchestrator.Run(ctx, replay.Trigger{Source: models.TriggerManual})
		closeErr := app.Stop(ctx)

		if err != nil {
			log.Fatalf("Run failed: %v", err)
		}

		if closeErr != nil {
			log.Printf("Failed to close store: %v", closeErr)
		}

		report, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode run report: %v", err)
		}

		fmt.Println(string(report))

		return
	}

	opts := &lifecycle.ServerOptions{
		ListenAddr:  cfg.ListenAddr,
		ServiceName: "replay",
		Service:     app,
		Handler:     app.server.Handler(),
	}

	if err := lifecycle.RunServer(ctx, opts); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

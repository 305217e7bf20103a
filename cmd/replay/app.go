package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/suzarilshah/aquanexus-sub003/pkg/alerts"
	"github.com/suzarilshah/aquanexus-sub003/pkg/api"
	"github.com/suzarilshah/aquanexus-sub003/pkg/config"
	"github.com/suzarilshah/aquanexus-sub003/pkg/dataset"
	"github.com/suzarilshah/aquanexus-sub003/pkg/db"
	"github.com/suzarilshah/aquanexus-sub003/pkg/dispatch"
	"github.com/suzarilshah/aquanexus-sub003/pkg/ingest"
	"github.com/suzarilshah/aquanexus-sub003/pkg/metrics"
	"github.com/suzarilshah/aquanexus-sub003/pkg/migration"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
	"github.com/suzarilshah/aquanexus-sub003/pkg/pubsub"
	"github.com/suzarilshah/aquanexus-sub003/pkg/replay"
	"github.com/suzarilshah/aquanexus-sub003/pkg/session"
	"github.com/suzarilshah/aquanexus-sub003/pkg/timing"
)

const (
	historySize  = 100
	eventsBuffer = 64
)

// app holds the wired replay components and implements lifecycle.Service.
type app struct {
	store        *db.DB
	datasets     *dataset.Store
	orchestrator *replay.Orchestrator
	server       *api.Server
}

func newApp(cfg *config.ReplayConfig) (*app, error) {
	store, err := db.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	datasets := dataset.NewStore(map[models.DeviceType]string{
		models.DeviceFish:  cfg.Datasets.Fish,
		models.DevicePlant: cfg.Datasets.Plant,
	})

	history := metrics.NewBuffer(historySize)
	m := metrics.New(history)
	broker := pubsub.NewBroker(eventsBuffer)

	client := ingest.NewHTTPClient(&cfg.Ingest, ingest.WithStateListener(m.BreakerState))
	m.BreakerState("ingest", client.BreakerState())

	alerter, err := newAlerter(cfg.Webhooks)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	mgr := session.NewManager(store, datasets, client,
		session.WithPublisher(broker),
		session.WithMetrics(m),
		session.WithErrorThreshold(cfg.ErrorThreshold))

	backend, err := replay.NewBackend(cfg.StreamingBackend, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	orchestrator := replay.NewOrchestrator(replay.Deps{
		Backend:    backend,
		Sessions:   mgr,
		Calculator: timing.NewCalculator(datasets),
		Devices:    store,
		Emitter:    dispatch.New(client),
		Runs:       store,
		Alerter:    alerter,
		Metrics:    m,
	}, replay.Config{
		LeaseTTL:  time.Duration(cfg.LeaseTTL),
		Retention: time.Duration(cfg.EventRetention),
	})

	var migrationOpts []migration.Option
	if cfg.Scheduler.LegacyJobID != "" {
		migrationOpts = append(migrationOpts,
			migration.WithScheduler(migration.NewHTTPScheduler(&cfg.Scheduler), cfg.Scheduler.LegacyJobID))
	}

	server := api.NewServer(cfg, api.Deps{
		Runner:       orchestrator,
		Sessions:     mgr,
		Environments: store,
		Migrator:     migration.NewService(store, mgr, migrationOpts...),
		Events:       broker,
		Metrics:      m,
		History:      history,
		Breaker:      client,
		Store:        store,
	})

	return &app{
		store:        store,
		datasets:     datasets,
		orchestrator: orchestrator,
		server:       server,
	}, nil
}

func newAlerter(webhooks []config.WebhookConfig) (alerts.AlertService, error) {
	var multi alerts.Multi

	for i, wh := range webhooks {
		if !wh.Enabled {
			continue
		}

		alerter, err := alerts.NewWebhookAlerter(wh)
		if err != nil {
			return nil, fmt.Errorf("webhook %d: %w", i, err)
		}

		multi = append(multi, alerter)
	}

	return multi, nil
}

// Start loads both datasets so the first run does not pay for parsing.
func (a *app) Start(context.Context) error {
	for _, t := range models.DeviceTypes {
		if _, err := a.datasets.Load(t); err != nil {
			return fmt.Errorf("load %s dataset: %w", t, err)
		}
	}

	return nil
}

func (a *app) Stop(context.Context) error {
	log.Printf("Closing replay store")

	return a.store.Close()
}

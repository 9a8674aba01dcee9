package cmd

import (
	"context"
	"net/http"

	"github.com/nextlevelbuilder/socialpilot/internal/alerts"
	"github.com/nextlevelbuilder/socialpilot/internal/config"
	"github.com/nextlevelbuilder/socialpilot/internal/dedup"
	httpapi "github.com/nextlevelbuilder/socialpilot/internal/http"
	"github.com/nextlevelbuilder/socialpilot/internal/messenger"
	"github.com/nextlevelbuilder/socialpilot/internal/metrics"
	"github.com/nextlevelbuilder/socialpilot/internal/monitor"
	"github.com/nextlevelbuilder/socialpilot/internal/queue"
	"github.com/nextlevelbuilder/socialpilot/internal/reply"
	"github.com/nextlevelbuilder/socialpilot/internal/store"
	"github.com/nextlevelbuilder/socialpilot/internal/webhook"
)

// app holds the wired serve components. Nothing runs until the caller starts
// the ledger janitor, the HTTP server and the monitor loop.
type app struct {
	stores  *store.Stores
	pageDir *config.PageDirectory
	ledger  *dedup.Ledger
	queue   *queue.Queue[string]
	monitor *monitor.Monitor
	metrics *metrics.Metrics
	mux     *http.ServeMux
}

// buildApp opens the stores and wires every serve component. ctx parents the
// reply queue; in-flight replies outlive its cancellation and Close bounds
// the wait.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	stores, pageDir, err := openStores(cfg)
	if err != nil {
		return nil, err
	}

	provider, err := buildProvider(cfg.Provider)
	if err != nil {
		stores.Close()
		return nil, err
	}

	m := metrics.New(Version)
	ledger := dedup.New(cfg.Dedup.TTL(), cfg.Dedup.Capacity)

	q := queue.New[string](context.WithoutCancel(ctx), queue.Options{
		Concurrency: cfg.Queue.Concurrency,
		Limit:       cfg.Queue.Limit,
		Window:      cfg.Queue.Window(),
		Hooks:       m.QueueHooks(),
	})
	m.GaugeFunc("queue_size", "Reply tasks waiting for admission.", func() float64 { return float64(q.Stats().Queued) })
	m.GaugeFunc("queue_pending", "Reply tasks running.", func() float64 { return float64(q.Stats().InFlight) })
	m.GaugeFunc("dedup_entries", "Live fingerprints in the dedup ledger.", func() float64 { return float64(ledger.Len()) })

	client := messenger.New(messengerOptions(cfg.Messenger)...)
	gen := reply.New(reply.Config{
		Provider:     provider,
		Deliverer:    client,
		Interactions: stores.Interactions,
		Model:        cfg.Provider.Model,
		Timeout:      cfg.Provider.Timeout(),
	})

	router := webhook.NewRouter(ledger, stores.Pages, q, gen, m)
	hook := webhook.NewHandler(webhook.HandlerConfig{
		VerifyToken:  cfg.Webhook.VerifyToken,
		AppSecret:    cfg.Webhook.AppSecret,
		MaxBodyBytes: cfg.Webhook.MaxBodyBytes,
		Limiter:      webhook.NewRejectLimiter(cfg.Webhook.RejectsPerMinute),
	}, router)

	sink := alerts.NewSink(stores.Alerts, stores.Logs, buildNotifiers(cfg.Alerts)...)
	mon := monitor.New(monitor.Config{
		Strategies:       stores.Strategies,
		Posts:            stores.Posts,
		Sink:             sink,
		Provider:         provider,
		Recorder:         m,
		FallbackImageURL: cfg.Monitor.FallbackImageURL,
		Timeout:          cfg.Provider.Timeout(),
	})

	mux := http.NewServeMux()
	hook.RegisterRoutes(mux, cfg.Webhook.Path)
	httpapi.NewHealthHandler(q, ledger, m.Handler()).RegisterRoutes(mux)
	httpapi.NewOpsHandler(mon, cfg.Server.AdminToken).RegisterRoutes(mux)

	return &app{
		stores:  stores,
		pageDir: pageDir,
		ledger:  ledger,
		queue:   q,
		monitor: mon,
		metrics: m,
		mux:     mux,
	}, nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	ifnats "github.com/Strob0t/invoiceflow/internal/adapter/nats"
	"github.com/Strob0t/invoiceflow/internal/adapter/natskv"
	ifotel "github.com/Strob0t/invoiceflow/internal/adapter/otel"
	"github.com/Strob0t/invoiceflow/internal/adapter/memory"
	"github.com/Strob0t/invoiceflow/internal/adapter/postgres"
	"github.com/Strob0t/invoiceflow/internal/adapter/ristretto"
	"github.com/Strob0t/invoiceflow/internal/adapter/tiered"
	"github.com/Strob0t/invoiceflow/internal/adapter/ws"
	"github.com/Strob0t/invoiceflow/internal/config"
	"github.com/Strob0t/invoiceflow/internal/domain/pipeline"
	"github.com/Strob0t/invoiceflow/internal/domain/policy"
	"github.com/Strob0t/invoiceflow/internal/domain/scoring"
	"github.com/Strob0t/invoiceflow/internal/port/cache"
	"github.com/Strob0t/invoiceflow/internal/port/fingerprint"
	"github.com/Strob0t/invoiceflow/internal/port/messagequeue"
	"github.com/Strob0t/invoiceflow/internal/port/notifier"
	pport "github.com/Strob0t/invoiceflow/internal/port/purchasing"
	"github.com/Strob0t/invoiceflow/internal/port/recordstore"
	"github.com/Strob0t/invoiceflow/internal/port/runarchive"
	"github.com/Strob0t/invoiceflow/internal/port/vendordir"
	"github.com/Strob0t/invoiceflow/internal/secrets"
	"github.com/Strob0t/invoiceflow/internal/service"
	"github.com/Strob0t/invoiceflow/internal/stage"
)

// Bounds of the seeded confidence scorer used for simulations.
const (
	simulationMinScore = 0.6
	simulationMaxScore = 0.99
)

// app is the wired service graph shared by all subcommands.
type app struct {
	cfg   *config.Config
	orch  *service.Orchestrator
	runs  runarchive.Archive
	cache cache.Cache
	hub   *ws.Hub
	pool  *pgxpool.Pool
	queue *ifnats.Queue
	vault *secrets.Vault

	cleanup []func()
}

type stores struct {
	records recordstore.Store
	vendors interface {
		vendordir.Directory
		vendordir.Writer
	}
	orders interface {
		pport.Book
		pport.Writer
	}
	runs runarchive.Archive
}

// close releases resources in reverse acquisition order.
func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

// buildApp wires storage, caches, messaging, telemetry and the pipeline.
// connectNATS is false for one-shot commands that never publish.
func buildApp(ctx context.Context, cfg *config.Config, connectNATS bool) (_ *app, err error) {
	a := &app{cfg: cfg, hub: ws.NewHub()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	shutdownOTel, err := ifotel.Setup(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.cleanup = append(a.cleanup, func() {
		if err := shutdownOTel(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	})
	metrics, err := ifotel.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}
	a.runs = st.runs

	if cfg.Pipeline.FixturesFile != "" {
		fx, err := memory.LoadFixtures(cfg.Pipeline.FixturesFile)
		if err != nil {
			return nil, err
		}
		if err := fx.Seed(ctx, st.vendors, st.orders); err != nil {
			return nil, err
		}
		slog.Info("fixtures seeded", "vendors", len(fx.Vendors), "purchase_orders", len(fx.PurchaseOrders))
	}

	if err := a.openCaches(ctx, connectNATS); err != nil {
		return nil, err
	}
	ledger, err := a.openLedger(ctx)
	if err != nil {
		return nil, err
	}

	table := policy.NewTable(policy.PresetRules(), policy.Bands{
		AutoLimit:     cfg.Approval.AutoLimit,
		ManagerLimit:  cfg.Approval.ManagerLimit,
		DirectorLimit: cfg.Approval.DirectorLimit,
		VPLimit:       cfg.Approval.VPLimit,
	}, cfg.Approval.DisabledRules...)

	settings := stage.DefaultSettings()
	settings.TolerancePercent = cfg.Matching.TolerancePercent
	settings.LargeAmount = cfg.Risk.LargeAmount
	settings.VelocityMedium = cfg.Risk.VelocityMedium
	settings.VelocityHigh = cfg.Risk.VelocityHigh
	settings.CardLimit = cfg.Payment.CardLimit
	settings.CardRebatePct = cfg.Payment.CardRebatePct
	settings.DefaultNetDays = cfg.Payment.DefaultNetDays

	deps := stage.Deps{
		Records:    st.records,
		Vendors:    service.NewCachedVendorDirectory(st.vendors, a.cache, cfg.Cache.VendorTTL),
		Orders:     st.orders,
		Duplicates: service.NewDuplicateIndex(ledger, cfg.Risk.DuplicateWindow),
		Velocity:   service.NewVelocityTracker(cfg.Risk.VelocityWindow),
		Policy:     table,
		Settings:   settings,
	}
	if seed := cfg.Pipeline.SimulationSeed; seed > 0 {
		deps.Scorer = scoring.NewSeeded(seed, simulationMinScore, simulationMaxScore)
		slog.Info("seeded confidence scoring enabled", "seed", seed)
	}

	var plan *pipeline.Plan
	if cfg.Pipeline.PlanFile != "" {
		if plan, err = pipeline.LoadFromFile(cfg.Pipeline.PlanFile); err != nil {
			return nil, fmt.Errorf("plan: %w", err)
		}
	}

	a.orch, err = service.NewOrchestrator(service.NewStageRegistry(cfg.Breaker), plan, cfg.Pipeline, metrics)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	for _, s := range stage.All(deps) {
		a.orch.RegisterAgent(s)
	}
	a.orch.AddOnRunComplete(service.ArchiveRuns(a.runs))

	var mq messagequeue.Queue
	if a.queue != nil {
		mq = a.queue
	}
	service.NewEventPublisher(mq, a.hub).Attach(a.orch)

	notify, err := a.openNotifiers()
	if err != nil {
		return nil, err
	}
	if notify.NotifierCount() > 0 {
		notify.Attach(a.orch)
		a.cleanup = append(a.cleanup, notify.Wait)
	}

	return a, nil
}

// secretEnv maps environment variables to the notifier settings they hold.
var secretEnv = map[string]string{
	"INVOICEFLOW_SLACK_WEBHOOK_URL": "slack_webhook_url",
	"INVOICEFLOW_SMTP_PASSWORD":     "smtp_password",
}

// openNotifiers builds the configured notification channels. Settings come
// from config with secrets from the vault taking precedence.
func (a *app) openNotifiers() (*service.NotificationService, error) {
	vault, err := secrets.NewVault(secrets.EnvLoader(secretEnv))
	if err != nil {
		return nil, err
	}
	a.vault = vault

	n := a.cfg.Notify
	lookup := vault.Resolver(map[string]string{
		"slack_webhook_url": n.SlackWebhook,
		"smtp_host":         n.SMTPHost,
		"smtp_port":         n.SMTPPort,
		"smtp_from":         n.SMTPFrom,
		"ops_recipients":    strings.Join(n.OpsRecipients, ","),
	})

	notifiers := make([]notifier.Notifier, 0, len(n.Channels))
	for _, name := range n.Channels {
		nt, err := notifier.New(name, lookup)
		if err != nil {
			return nil, fmt.Errorf("notify channel %q (available: %s): %w", name, strings.Join(notifier.Available(), ", "), err)
		}
		notifiers = append(notifiers, nt)
	}
	if len(notifiers) > 0 {
		slog.Info("notifications enabled", "channels", n.Channels, "slack_webhook", vault.Redacted("slack_webhook_url"))
	}
	return service.NewNotificationService(notifiers, n.Events), nil
}

// openStores uses PostgreSQL when a DSN is configured and in-memory stores
// otherwise.
func (a *app) openStores(ctx context.Context) (stores, error) {
	if a.cfg.Postgres.DSN == "" {
		slog.Info("no database configured, using in-memory stores")
		return stores{
			records: memory.NewRecordStore(),
			vendors: memory.NewVendorDirectory(),
			orders:  memory.NewPOBook(),
			runs:    memory.NewRunArchive(),
		}, nil
	}

	if err := postgres.RunMigrations(ctx, a.cfg.Postgres.DSN); err != nil {
		return stores{}, fmt.Errorf("migrations: %w", err)
	}
	pool, err := postgres.NewPool(ctx, a.cfg.Postgres)
	if err != nil {
		return stores{}, fmt.Errorf("postgres: %w", err)
	}
	a.pool = pool
	a.cleanup = append(a.cleanup, pool.Close)
	slog.Info("postgres connected", "max_conns", a.cfg.Postgres.MaxConns)

	return stores{
		records: postgres.NewRecordStore(pool),
		vendors: postgres.NewVendorDirectory(pool),
		orders:  postgres.NewPOBook(pool),
		runs:    postgres.NewRunArchive(pool),
	}, nil
}

// openCaches builds the ristretto L1 and, when NATS is reachable, the
// JetStream KV L2 behind a tiered cache.
func (a *app) openCaches(ctx context.Context, connectNATS bool) error {
	l1, err := ristretto.New(a.cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	a.cleanup = append(a.cleanup, l1.Close)

	var l2 cache.Cache
	if connectNATS && a.cfg.NATS.URL != "" {
		q, err := ifnats.Connect(ctx, a.cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		a.queue = q
		a.cleanup = append(a.cleanup, func() {
			if err := q.Drain(); err != nil {
				slog.Warn("nats drain failed", "error", err)
			}
		})

		kv, err := q.KeyValue(ctx, a.cfg.Cache.L2Bucket, a.cfg.Cache.L2TTL)
		if err != nil {
			slog.Warn("l2 cache unavailable, using l1 only", "error", err)
		} else {
			l2 = natskv.New(kv)
		}
	}

	a.cache = tiered.New(l1, l2, a.cfg.Cache.VendorTTL)
	return nil
}

// openLedger picks the duplicate fingerprint ledger: Postgres when a
// database is configured, else a JetStream KV bucket whose TTL is the
// duplicate window, else process memory.
func (a *app) openLedger(ctx context.Context) (fingerprint.Ledger, error) {
	switch {
	case a.pool != nil:
		return postgres.NewFingerprintLedger(a.pool), nil
	case a.queue != nil:
		kv, err := a.queue.KeyValue(ctx, a.cfg.Risk.DuplicateBucket, a.cfg.Risk.DuplicateWindow)
		if err != nil {
			return nil, fmt.Errorf("duplicate ledger: %w", err)
		}
		return natskv.NewLedger(kv), nil
	default:
		slog.Warn("duplicate ledger is in memory, fingerprints are lost on restart")
		return memory.NewFingerprintLedger(), nil
	}
}

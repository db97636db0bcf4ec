package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"casedesk/internal/cases/events"
	casehandler "casedesk/internal/cases/handler"
	casemetrics "casedesk/internal/cases/metrics"
	"casedesk/internal/cases/models"
	"casedesk/internal/cases/service"
	casestore "casedesk/internal/cases/store"
	cataloghandler "casedesk/internal/catalog/handler"
	"casedesk/internal/files"
	notifhandler "casedesk/internal/notification/handler"
	notifmetrics "casedesk/internal/notification/metrics"
	notifservice "casedesk/internal/notification/service"
	notifstore "casedesk/internal/notification/store"
	"casedesk/internal/platform/config"
	"casedesk/internal/platform/httpserver"
	"casedesk/internal/platform/idgen"
	"casedesk/internal/platform/kafka"
	"casedesk/internal/platform/logger"
	"casedesk/internal/platform/metrics"
	"casedesk/internal/platform/postgres"
	"casedesk/internal/platform/redis"
	"casedesk/internal/review"
	httptransport "casedesk/internal/transport/http"
)

const eventBufferSize = 1024

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Action: func(c *cli.Context) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			return serve(c.Context, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Server) error {
	log := logger.New(cfg.Environment, cfg.LogLevel)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	ids, err := idgen.FromStrategy(cfg.IDStrategy)
	if err != nil {
		return err
	}
	policy, err := service.ParseTerminalPolicy(cfg.TerminalPolicy)
	if err != nil {
		return err
	}

	checks := map[string]httptransport.HealthCheck{}
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	var caseStore service.Store
	switch cfg.StoreBackend {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		checks["postgres"] = db.PingContext
		caseStore = casestore.NewPostgres(db)
	default:
		caseStore = casestore.NewInMemory()
	}

	var notificationStore notifservice.Store
	switch cfg.NotificationBackend {
	case "redis":
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = client.Close() })
		checks["redis"] = client.Health
		notificationStore = notifstore.NewRedis(client.Client)
	default:
		notificationStore = notifstore.NewInMemory()
	}

	bus := events.NewBus(eventBufferSize)
	publisher := events.Fanout{bus}
	if len(cfg.KafkaBrokers) > 0 {
		kc, err := kafka.New(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		closers = append(closers, kc.Close)
		if err := kafka.EnsureTopic(ctx, kc, cfg.KafkaTopic, 3); err != nil {
			return err
		}
		checks["kafka"] = kc.Ping
		publisher = append(publisher, events.NewGuarded(
			events.NewKafkaPublisher(kc, cfg.KafkaTopic), "kafka", 5, 30*time.Second, log))
	}

	var transport files.Transport = files.NewMemory()
	if cfg.S3Bucket != "" {
		s3t, err := files.NewS3FromEnv(ctx, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return err
		}
		transport = s3t
	}

	cases := service.New(caseStore,
		service.WithLogger(log),
		service.WithMetrics(casemetrics.New(reg)),
		service.WithPublisher(publisher),
		service.WithIDGenerator(ids),
		service.WithTerminalPolicy(policy),
	)
	notifications := notifservice.New(notificationStore,
		notifservice.WithLogger(log),
		notifservice.WithMetrics(notifmetrics.New(reg)),
		notifservice.WithIDGenerator(ids),
	)
	// With NOTIFY_ON_EVENTS the listener owns notifications, so the
	// orchestrator must not send them a second time.
	decider := review.New(cases, notifications,
		review.WithLogger(log),
		review.WithDirectNotify(!cfg.NotifyOnEvents),
	)

	listeners := []events.Listener{eventLogger(log)}
	if cfg.NotifyOnEvents {
		listeners = append(listeners, review.NewListener(notifications))
	}
	worker := events.NewWorker(bus.Events(), log, listeners...)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Metrics:  metrics.New(reg),
		Gatherer: reg,
		Checks:   checks,
		Public:   []httptransport.Registrar{cataloghandler.New(cat, log)},
		Authenticated: []httptransport.Registrar{
			casehandler.New(cases, cat, decider, transport, log, cfg.MaxUploadBytes),
			notifhandler.New(notifications, log),
		},
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting casedesk",
			"addr", cfg.Addr,
			"store", cfg.StoreBackend,
			"notifications", cfg.NotificationBackend,
			"terminal_policy", string(policy),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func eventLogger(log *slog.Logger) events.Listener {
	return events.ListenerFunc(func(ctx context.Context, ev models.LifecycleEvent) error {
		log.DebugContext(ctx, "lifecycle event",
			"kind", string(ev.Kind),
			"case_id", ev.CaseID,
			"actor_id", ev.ActorID,
		)
		return nil
	})
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/lifedashboard/life-dashboard/config"
	"github.com/lifedashboard/life-dashboard/internal/infrastructure/messaging"
	"github.com/lifedashboard/life-dashboard/internal/infrastructure/observability"
	"github.com/lifedashboard/life-dashboard/internal/infrastructure/persistence/postgres"
	"github.com/lifedashboard/life-dashboard/internal/infrastructure/persistence/redis"
	"github.com/lifedashboard/life-dashboard/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION
// ══════════════════════════════════════════════════════════════════════════════

// app holds the wired dispatch pipeline and the backends behind it.
type app struct {
	log        *slog.Logger
	dispatcher *messaging.Dispatcher
	publisher  messaging.Publisher

	db       *postgres.Connection
	consents *postgres.ConsentRepository
	cache    *redis.ConsentCache
	redis    *goredis.Client

	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
	exporter *observability.MetricsExporter
}

// bootstrap wires the dispatcher, the consent chain and the optional metrics
// pipeline. The consent chain is gate -> cache -> breaker -> repository, with
// each backend skipped when it is not configured.
func bootstrap(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{log: log}

	a.dispatcher = messaging.NewDispatcherBuilder().
		WithLogger(log).
		WithEventLogging(cfg.Events.EventLog).
		WithEventLogLimit(cfg.Events.EventLogLimit).
		WithMiddleware(messaging.LoggingMiddleware(log)).
		Build()
	a.publisher = a.dispatcher

	if cfg.Events.PrivacyGate {
		checker, err := a.consentChecker(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.publisher = messaging.NewConsentGate(a.dispatcher, checker, log)
	}

	if cfg.Observability.MetricsEnabled {
		if err := a.setupMetrics(); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *app) consentChecker(ctx context.Context, cfg *config.Config) (messaging.ConsentChecker, error) {
	if !cfg.DatabaseEnabled() {
		a.log.Info("no consent store configured, all privacy-sensitive events pass")
		return messaging.AllowAll, nil
	}

	dbCfg := postgres.DefaultConfig(cfg.Database.URL)
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns
	dbCfg.ConnectAttempts = cfg.Database.ConnectAttempts
	dbCfg.ConnectBackoff = cfg.Database.ConnectBackoff
	dbCfg.Logger = a.log

	db, err := postgres.NewConnection(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db

	if cfg.Database.Migrate {
		if err := postgres.NewMigrator(db).Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a.consents = postgres.NewConsentRepository(db)
	breaker := circuitbreaker.ConsentStoreBreaker(a.logStateChange,
		circuitbreaker.WithFailureThreshold(cfg.Events.BreakerThreshold),
		circuitbreaker.WithCoolDown(cfg.Events.BreakerCoolDown),
	)
	var checker messaging.ConsentChecker = messaging.NewBreakerChecker(a.consents, breaker)

	if !cfg.RedisEnabled() {
		return checker, nil
	}

	redisCfg := redis.DefaultConfig()
	redisCfg.Addr = cfg.Redis.Addr
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB

	client, err := redis.NewClient(ctx, redisCfg)
	if err != nil {
		a.log.Warn("consent cache disabled", "error", err)
		return checker, nil
	}
	a.redis = client

	cache, err := redis.NewConsentCache(client, checker, redis.ConsentCacheConfig{
		TTL:       cfg.Events.ConsentCacheTTL,
		KeySecret: []byte(cfg.Events.ConsentCacheSecret),
		Logger:    a.log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consent cache: %w", err)
	}
	a.cache = cache
	return cache, nil
}

func (a *app) logStateChange(name string, from, to circuitbreaker.State) {
	a.log.Warn("circuit breaker state changed",
		"breaker", name,
		"from", from.String(),
		"to", to.String(),
	)
}

func (a *app) setupMetrics() error {
	a.reader = sdkmetric.NewManualReader()
	a.provider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(a.reader))

	exporter, err := observability.NewMetricsExporter(
		a.provider.Meter("github.com/lifedashboard/life-dashboard/events"),
		a.dispatcher.Metrics(),
		a.dispatcher,
	)
	if err != nil {
		return fmt.Errorf("failed to create metrics exporter: %w", err)
	}
	a.exporter = exporter
	return nil
}

// grantConsent records consent in the store and drops any cached decision.
// Without a store it is a no-op.
func (a *app) grantConsent(ctx context.Context, subjectID int64, purpose string) error {
	if a.consents == nil {
		return nil
	}
	if err := a.consents.GrantConsent(ctx, subjectID, purpose); err != nil {
		return err
	}
	if a.cache != nil {
		if err := a.cache.Invalidate(ctx, subjectID, purpose); err != nil {
			a.log.Warn("failed to invalidate consent cache", "purpose", purpose, "error", err)
		}
	}
	return nil
}

// writeMetrics collects once and prints every data point.
func (a *app) writeMetrics(ctx context.Context, w io.Writer) error {
	if a.reader == nil {
		return nil
	}

	var rm metricdata.ResourceMetrics
	if err := a.reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}

	fmt.Fprintln(w, "\nMetrics:")
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					fmt.Fprintf(w, "  %s%s = %d\n", m.Name, formatAttrs(dp.Attributes), dp.Value)
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					fmt.Fprintf(w, "  %s%s = %d\n", m.Name, formatAttrs(dp.Attributes), dp.Value)
				}
			case metricdata.Gauge[float64]:
				for _, dp := range data.DataPoints {
					fmt.Fprintf(w, "  %s%s = %g\n", m.Name, formatAttrs(dp.Attributes), dp.Value)
				}
			}
		}
	}
	return nil
}

func formatAttrs(set attribute.Set) string {
	if set.Len() == 0 {
		return ""
	}
	kvs := set.ToSlice()
	parts := make([]string, 0, len(kvs))
	for _, kv := range kvs {
		parts = append(parts, string(kv.Key)+"="+kv.Value.Emit())
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

// Close releases backends in reverse order of acquisition.
func (a *app) Close() {
	if a.exporter != nil {
		if err := a.exporter.Close(); err != nil {
			a.log.Warn("failed to unregister metrics", "error", err)
		}
	}
	if a.provider != nil {
		if err := a.provider.Shutdown(context.Background()); err != nil {
			a.log.Warn("failed to shut down meter provider", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("failed to close redis", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/asyncsoap"
	"github.com/aretw0/asyncsoap/internal/config"
	soaphttp "github.com/aretw0/asyncsoap/pkg/adapters/http"
	"github.com/aretw0/asyncsoap/pkg/adapters/redis"
	"github.com/aretw0/asyncsoap/pkg/description"
	"github.com/aretw0/asyncsoap/pkg/domain"
	"github.com/aretw0/asyncsoap/pkg/observability"
	"github.com/aretw0/asyncsoap/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// descriptionLockTTL bounds how long one replica may hold the cold-fetch lock.
const descriptionLockTTL = 30 * time.Second

// App is a configured client plus the resources it owns.
type App struct {
	Client   *asyncsoap.Client
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry

	closers []func() error
}

// AppOption tunes NewApp.
type AppOption func(*appOptions)

type appOptions struct {
	httpClient *http.Client
	transport  ports.Transport
	metrics    bool
}

// WithHTTPClient overrides the HTTP client used for calls and WSDL downloads.
func WithHTTPClient(c *http.Client) AppOption {
	return func(o *appOptions) {
		o.httpClient = c
	}
}

// WithTransport replaces the HTTP transport (tests).
func WithTransport(t ports.Transport) AppOption {
	return func(o *appOptions) {
		o.transport = t
	}
}

// WithMetrics registers Prometheus collectors on a fresh registry.
func WithMetrics() AppOption {
	return func(o *appOptions) {
		o.metrics = true
	}
}

// NewApp initializes a client following the CLI conventions: WSDL loads go
// through Redis when a cache is configured, calls are logged and optionally
// measured.
func NewApp(cfg *config.Config, logger *slog.Logger, opts ...AppOption) (*App, error) {
	o := appOptions{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg, Logger: logger}

	// 1. Description loading, shared through Redis when configured
	var loader ports.DescriptionLoader = description.NewLoader(
		description.WithHTTPClient(o.httpClient),
		description.WithLogger(logger),
	)
	if cfg.Cache.Enabled() {
		cache := redis.New(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB,
			redis.WithTTL(time.Duration(cfg.Cache.TTL)),
			redis.WithPrefix(cfg.Cache.Prefix),
		)
		app.closers = append(app.closers, cache.Client().Close)
		loader = description.Cached(loader, cache,
			description.WithLocker(redis.NewLocker(cache.Client(), cfg.Cache.Prefix), descriptionLockTTL),
			description.WithLogger(logger),
		)
		logger.Debug("description cache enabled", "addr", cfg.Cache.RedisAddr, "ttl", time.Duration(cfg.Cache.TTL))
	}

	// 2. Hooks: logging always, metrics on request
	hooks := observability.LoggingHooks(logger)
	if o.metrics {
		app.Registry = prometheus.NewRegistry()
		app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := observability.NewMetrics(app.Registry, "asyncsoap")
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		hooks = observability.ComposeHooks(hooks, m.Hooks())
	}

	// 3. Client
	factoryOpts := []asyncsoap.FactoryOption{
		asyncsoap.WithHTTPClient(o.httpClient),
		asyncsoap.WithDescriptionLoader(loader),
		asyncsoap.WithFactoryLogger(logger),
		asyncsoap.WithClientOptions(asyncsoap.WithLifecycleHooks(hooks)),
		asyncsoap.WithTransportOptions(
			soaphttp.WithTimeout(time.Duration(cfg.Timeout)),
			soaphttp.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		),
	}
	if o.transport != nil {
		factoryOpts = append(factoryOpts, asyncsoap.WithTransport(o.transport))
	}

	client, err := asyncsoap.NewFactory(factoryOpts...).Create(cfg.WSDL, cfg.ClientOptions())
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("error initializing client: %w", err)
	}
	app.Client = client
	return app, nil
}

// Dispatch runs a call with the configured default request options.
func (a *App) Dispatch(ctx context.Context, operation string, args []any, options domain.Options) (domain.Result, error) {
	return a.Client.Dispatch(ctx, operation, args, a.withDefaults(options))
}

// withDefaults merges the configured request options under the call's own.
func (a *App) withDefaults(options domain.Options) domain.Options {
	merged := domain.Options{}
	for k, v := range options {
		merged[k] = v
	}
	defaults := a.Config.RequestOptions()
	if len(defaults) == 0 {
		return merged
	}
	reqOpts := map[string]any{}
	for k, v := range defaults {
		reqOpts[k] = v
	}
	for k, v := range merged.RequestOptions() {
		reqOpts[k] = v
	}
	merged[domain.OptionRequestOptions] = reqOpts
	return merged
}

// Operations implements ports.Caller.
func (a *App) Operations(ctx context.Context) ([]string, error) {
	return a.Client.Operations(ctx)
}

var _ ports.Caller = (*App)(nil)

// Version is the trimmed release version.
func Version() string {
	return strings.TrimSpace(asyncsoap.Version)
}

// Close releases owned resources.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Package app arma el proceso completo a partir de la configuración:
// store, cache, issuer, métricas, provisioner, trigger de setup y handler HTTP.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dropDatabas3/printdesk/internal/cache"
	"github.com/dropDatabas3/printdesk/internal/config"
	"github.com/dropDatabas3/printdesk/internal/email"
	"github.com/dropDatabas3/printdesk/internal/http/controllers"
	"github.com/dropDatabas3/printdesk/internal/http/router"
	"github.com/dropDatabas3/printdesk/internal/http/services"
	jwtx "github.com/dropDatabas3/printdesk/internal/jwt"
	"github.com/dropDatabas3/printdesk/internal/metrics"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
	"github.com/dropDatabas3/printdesk/internal/provision"
	"github.com/dropDatabas3/printdesk/internal/rate"
	"github.com/dropDatabas3/printdesk/internal/setup"
	store "github.com/dropDatabas3/printdesk/internal/store"

	// registra memory, postgres y remote
	_ "github.com/dropDatabas3/printdesk/internal/store/adapters/all"
)

// App es el proceso ya cableado.
type App struct {
	Config   *config.Config
	Store    store.Connection
	Cache    cache.Client
	Registry *prometheus.Registry

	Provisioner *provision.Provisioner
	Trigger     *setup.Trigger // nil si setup.enabled=false

	Handler http.Handler

	closers []func() error
}

// Close libera cache y store en orden inverso de apertura.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build crea el App. Si algo falla a mitad de camino cierra lo ya abierto.
func Build(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	log := logger.From(ctx).With(logger.Component("app"))
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	// 1. store
	a.Store, err = OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Store.Close)
	log.Info("store ready", logger.Driver(a.Store.Name()))

	if cfg.Storage.AutoMigrate {
		if _, err = Migrate(ctx, a.Store); err != nil {
			return nil, err
		}
	}

	// 2. cache + rate limiters
	a.Cache, err = cache.New(ctx, cache.Config{
		Kind:       cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		Password:   cfg.Cache.Redis.Password,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: config.Duration(cfg.Cache.Memory.DefaultTTL, 2*time.Minute),
	})
	if err != nil {
		return nil, fmt.Errorf("app: cache: %w", err)
	}
	a.closers = append(a.closers, a.Cache.Close)
	log.Info("cache ready", logger.Driver(a.Cache.Driver()))

	loginLimiter, setupLimiter := newLimiters(cfg, a.Cache)

	// 3. issuer
	issuer, err := newIssuer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 4. métricas
	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	provMetrics, err := provision.NewMetrics(a.Registry)
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}
	httpMetrics, err := metrics.NewHTTP(a.Registry)
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	// 5. provisioner + trigger
	a.Provisioner = NewProvisioner(cfg, a.Store, provMetrics)
	if cfg.Setup.Enabled {
		a.Trigger = setup.NewTrigger(a.Provisioner, setup.Config{
			Input:     ProvisionInput(cfg),
			Timeout:   config.Duration(cfg.Setup.Timeout, 30*time.Second),
			Notifiers: Notifiers(ctx, cfg),
		})
	}

	// 6. HTTP
	sd := services.Deps{
		Store:        a.Store,
		Cache:        a.Cache,
		Issuer:       issuer,
		SessionTTL:   config.Duration(cfg.Auth.Session.TTL, 12*time.Hour),
		RoleCacheTTL: config.Duration(cfg.Auth.RoleCacheTTL, time.Minute),
		Version:      cfg.App.Version,
	}
	if a.Trigger != nil {
		sd.Trigger = a.Trigger
	}
	svcs := services.New(sd)

	a.Handler = router.New(router.Deps{
		Controllers:    controllers.New(svcs),
		Issuer:         issuer,
		Sessions:       svcs.Auth.Sessions,
		Roles:          svcs.Auth.Roles,
		LoginLimiter:   loginLimiter,
		SetupLimiter:   setupLimiter,
		CORSOrigins:    cfg.Server.CORSAllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		HTTPMetrics:    httpMetrics,
		MetricsHandler: metrics.Handler(a.Registry),
	})
	return a, nil
}

// OpenStore abre la conexión del driver configurado.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Connection, error) {
	conn, err := store.Open(ctx, store.AdapterConfig{
		Name:         cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Storage.Postgres.MaxIdleConns,
		ConnMaxLife:  config.Duration(cfg.Storage.Postgres.ConnMaxLifetime, 0),
		RemoteURL:    cfg.Remote.URL,
		ServiceKey:   cfg.Remote.ServiceKey,
		AnonKey:      cfg.Remote.AnonKey,
		Timeout:      config.Duration(cfg.Remote.Timeout, 10*time.Second),
		SessionTTL:   config.Duration(cfg.Auth.Session.TTL, 12*time.Hour),
	})
	if err != nil {
		return nil, fmt.Errorf("app: open store %q: %w", cfg.Storage.Driver, err)
	}
	return conn, nil
}

// ErrNotMigratable lo retorna Migrate para drivers sin schema propio.
var ErrNotMigratable = errors.New("app: store driver has no migrations")

// Migrate aplica las migraciones embebidas si el driver las soporta.
func Migrate(ctx context.Context, conn store.Connection) (*store.MigrationResult, error) {
	m, ok := conn.(store.Migratable)
	if !ok {
		return nil, ErrNotMigratable
	}
	res, err := m.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: migrate: %w", err)
	}
	logger.From(ctx).Info("migrations applied",
		logger.Driver(conn.Name()),
		logger.Int("applied", len(res.Applied)),
		logger.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// ProvisionInput arma el input del admin desde config.
func ProvisionInput(cfg *config.Config) provision.Input {
	return provision.Input{
		Email:    cfg.Setup.AdminEmail,
		Password: cfg.Setup.AdminPassword,
		FullName: cfg.Setup.AdminFullName,
	}
}

// NewProvisioner crea el provisioner sobre los repositorios de conn.
// metrics puede ser nil.
func NewProvisioner(cfg *config.Config, conn store.Connection, m *provision.Metrics) *provision.Provisioner {
	return provision.New(provision.Deps{
		Credentials: conn.Credentials(),
		Profiles:    conn.Profiles(),
		Metrics:     m,
	}, provision.Options{
		RepairPassword: cfg.RepairPasswordEnabled(),
		FinalCheck:     cfg.FinalCheckEnabled(),
	})
}

func newIssuer(ctx context.Context, cfg *config.Config) (*jwtx.Issuer, error) {
	var (
		ks  *jwtx.KeySet
		err error
	)
	if cfg.JWT.SigningSeed != "" {
		ks, err = jwtx.NewKeySetFromSeed(cfg.JWT.SigningSeed)
	} else {
		logger.From(ctx).Warn("jwt.signing_seed not set, using ephemeral key; tokens will not survive a restart")
		ks, err = jwtx.NewEphemeralKeySet()
	}
	if err != nil {
		return nil, fmt.Errorf("app: signing key: %w", err)
	}
	return jwtx.NewIssuer(cfg.JWT.Issuer, ks, config.Duration(cfg.JWT.AccessTTL, 15*time.Minute)), nil
}

// newLimiters comparte el cliente redis de la cache cuando existe.
func newLimiters(cfg *config.Config, c cache.Client) (login, setupL rate.Limiter) {
	if !cfg.Rate.Enabled {
		return nil, nil
	}
	loginWin := config.Duration(cfg.Rate.Login.Window, time.Minute)
	setupWin := config.Duration(cfg.Rate.Setup.Window, time.Minute)

	if rc, ok := c.(*cache.RedisClient); ok {
		prefix := cfg.Cache.Redis.Prefix + ":rl"
		return rate.NewRedisLimiter(rc.Raw(), prefix+":login", cfg.Rate.Login.Limit, loginWin),
			rate.NewRedisLimiter(rc.Raw(), prefix+":setup", cfg.Rate.Setup.Limit, setupWin)
	}
	return rate.NewMemoryLimiter("rl:login", cfg.Rate.Login.Limit, loginWin),
		rate.NewMemoryLimiter("rl:setup", cfg.Rate.Setup.Limit, setupWin)
}

// Notifiers arma los avisos del setup (hoy sólo email en caso de falla).
func Notifiers(ctx context.Context, cfg *config.Config) []setup.Notifier {
	if cfg.SMTP.Host == "" || cfg.Setup.NotifyEmail == "" {
		return nil
	}
	sender, err := email.NewSMTPSender(email.SMTPConfig{
		Host:               cfg.SMTP.Host,
		Port:               cfg.SMTP.Port,
		From:               cfg.SMTP.From,
		User:               cfg.SMTP.User,
		Password:           cfg.SMTP.Password,
		TLSMode:            cfg.SMTP.TLSMode,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
	})
	if err != nil {
		logger.From(ctx).Warn("setup failure email disabled", logger.Err(err))
		return nil
	}
	return []setup.Notifier{&setup.EmailNotifier{
		Sender: sender,
		To:     cfg.Setup.NotifyEmail,
		App:    cfg.App.Name,
	}}
}

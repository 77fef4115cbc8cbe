package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/georgemunganga/shopdesk-backend/internal/modules/audit"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/auth"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/billing"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/catalog"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/inventory"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/membership"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/order"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/report"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/shop"
	"github.com/georgemunganga/shopdesk-backend/internal/modules/user"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/cache"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/config"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/database"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/httpx"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/metrics"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/notify"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Job names accepted by the scheduler and the sweep command.
const (
	jobExpiry      = "subscription-expiry"
	jobReminder    = "subscription-reminder"
	jobTempCleanup = "temp-cleanup"
)

type repositories struct {
	users     user.Repository
	members   membership.Repository
	audit     audit.Repository
	shops     shop.Repository
	catalog   catalog.Repository
	inventory inventory.Repository
	orders    order.Repository
	billing   billing.Repository
}

// app holds the wired services of one process.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	db        *sql.DB
	repos     repositories
	cache     cache.Cache
	limiter   *httpx.RateLimiter
	tokens    *auth.TokenIssuer
	users     user.Service
	auth      auth.Service
	members   membership.Resolver
	auditLog  audit.Logger
	shops     shop.Service
	catalog   catalog.Service
	ledger    *inventory.Ledger
	inventory inventory.Service
	orders    order.Service
	billing   billing.Service
	reports   report.Service
	scheduler *scheduler.Scheduler
}

func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.repos = repositories{
			users:     user.NewPostgresRepository(db),
			members:   membership.NewPostgresRepository(db),
			audit:     audit.NewPostgresRepository(db),
			shops:     shop.NewPostgresRepository(db),
			catalog:   catalog.NewPostgresRepository(db),
			inventory: inventory.NewPostgresRepository(db),
			orders:    order.NewPostgresRepository(db),
			billing:   billing.NewPostgresRepository(db),
		}
	default:
		log.Warn("using in-memory storage, data is lost on exit")
		a.repos = repositories{
			users:     user.NewMemoryRepository(),
			members:   membership.NewMemoryRepository(),
			audit:     audit.NewMemoryRepository(),
			shops:     shop.NewMemoryRepository(),
			catalog:   catalog.NewMemoryRepository(),
			inventory: inventory.NewMemoryRepository(),
			orders:    order.NewMemoryRepository(),
			billing:   billing.NewMemoryRepository(billing.DefaultPlans()...),
		}
	}

	if cfg.RedisURL != "" {
		c, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.cache = c
	} else {
		a.cache = cache.NewMemory()
	}

	var notifier notify.Notifier = notify.LogNotifier{Log: log}
	if cfg.SESFromEmail != "" {
		ses, err := notify.NewSESNotifier(ctx, cfg.AWSRegion, cfg.SESFromEmail)
		if err != nil {
			a.Close()
			return nil, err
		}
		notifier = ses
	}

	r := a.repos
	a.tokens = auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	a.users = user.NewService(r.users, log)
	a.auth = auth.NewService(a.users, a.tokens, log)
	a.auditLog = audit.NewBestEffort(r.audit, log)
	a.members = membership.NewResolver(r.members, a.users, a.auditLog, notifier, log)
	a.billing = billing.NewService(r.billing, a.members, r.shops, a.users, notifier, a.auditLog, log)
	a.shops = shop.NewService(r.shops, a.members, a.billing, a.cache, cfg.CacheTTL, a.auditLog, log)
	a.catalog = catalog.NewService(r.catalog, a.members, a.auditLog, log)
	a.ledger = inventory.NewLedger(r.inventory, a.shops, a.auditLog, log)
	a.inventory = inventory.NewService(r.inventory, a.ledger, a.members, a.shops, a.catalog, a.auditLog, log)
	a.orders = order.NewService(r.orders, a.ledger, a.shops, a.members, a.auditLog, log)
	a.reports = report.NewService(a.members, a.orders, r.inventory, a.shops, a.catalog, cfg.TempDir, log)

	a.scheduler = scheduler.New(log, 10*time.Minute)
	jobs := []struct {
		name, spec string
		job        scheduler.Job
	}{
		{jobExpiry, cfg.CronExpiry, a.sweepExpired},
		{jobReminder, cfg.CronReminder, a.remindExpiring},
		{jobTempCleanup, cfg.CronTempCleanup, scheduler.TempCleanup(cfg.TempDir, cfg.TempFileMaxAge)},
	}
	for _, j := range jobs {
		if err := a.scheduler.Add(j.name, j.spec, j.job); err != nil {
			a.Close()
			return nil, fmt.Errorf("schedule %s: %w", j.name, err)
		}
	}
	return a, nil
}

func (a *app) sweepExpired(ctx context.Context) (int, error) {
	res, err := a.billing.SweepExpired(ctx, time.Now().UTC())
	return res.Expired + res.Renewed, err
}

func (a *app) remindExpiring(ctx context.Context) (int, error) {
	return a.billing.RemindExpiring(ctx, time.Now().UTC(), a.cfg.ReminderDays)
}

func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.RequestLogger(a.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.health)
	r.Handle("/metrics", metrics.Handler())

	a.limiter = httpx.NewRateLimiter(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst)
	limiter := a.limiter
	r.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		auth.NewHandler(a.auth, a.log).RegisterPublicRoutes(r)
		user.NewHandler(a.users, a.log).RegisterPublicRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(httpx.Authenticate(a.tokens, a.log))
		r.Use(limiter.Handler)

		user.NewHandler(a.users, a.log).RegisterRoutes(r)
		shop.NewHandler(a.shops, a.log).RegisterRoutes(r)
		membership.NewHandler(a.members, a.log).RegisterRoutes(r)
		audit.NewHandler(a.repos.audit, func(ctx context.Context, shopID, userID uuid.UUID) error {
			return a.members.Authorize(ctx, shopID, nil, userID, membership.PermAuditView)
		}, a.log).RegisterRoutes(r)
		catalog.NewHandler(a.catalog, a.log).RegisterRoutes(r)
		inventory.NewHandler(a.inventory, a.log).RegisterRoutes(r)
		order.NewHandler(a.orders, a.log).RegisterRoutes(r)
		billing.NewHandler(a.billing, a.log).RegisterRoutes(r)
		report.NewHandler(a.reports, a.log).RegisterRoutes(r)
	})
	return r
}

func (a *app) health(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.PingContext(ctx); err != nil {
			a.log.WithError(err).Warn("health check failed")
			httpx.Respond(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	httpx.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.WithError(err).Warn("closing cache")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

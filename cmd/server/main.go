package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/sessions"

	"kiddeo/internal/cart"
	"kiddeo/internal/catalog"
	"kiddeo/internal/config"
	"kiddeo/internal/database"
	"kiddeo/internal/filter"
	"kiddeo/internal/logger"
	"kiddeo/internal/middleware"
	"kiddeo/internal/repositories"
	"kiddeo/internal/server"
)

const (
	cartIdleTimeout = 30 * time.Minute
	sweepInterval   = 5 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		log.Fatal("failed to load catalog", "path", cfg.Catalog.Path, "error", err)
	}

	var (
		events  filter.EventStore
		presets filter.PresetStore
		remote  cart.RemoteStore
		local   cart.LocalStore
		checks  []func(context.Context) error
	)

	// Initialize database connection
	db, err := database.NewConnection(ctx, database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		if !cfg.IsDevelopment() {
			log.Fatal("failed to connect to database", "error", err)
		}
		log.Warn("database unavailable, serving from memory", "error", err)
		events = repositories.NewMemoryEventRepository()
		presets = repositories.NewMemoryPresetRepository()
		remote = repositories.NewMemoryCartRepository()
	} else {
		defer db.Close()
		if err := db.RunMigrations(ctx); err != nil {
			log.Fatal("failed to run migrations", "error", err)
		}
		log.Info("database connection established")
		events = repositories.NewEventRepository(db.DB)
		presets = repositories.NewPresetRepository(db.DB)
		remote = repositories.NewCartRepository(db.DB)
		checks = append(checks, db.PingContext)
	}

	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		if !cfg.IsDevelopment() {
			log.Fatal("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
		}
		log.Warn("redis unavailable, device carts kept in memory", "error", err)
		local = repositories.NewMemoryCartStore()
	} else {
		defer rdb.Close()
		store := repositories.NewRedisCartStore(rdb, 0)
		local = store
		checks = append(checks, store.Ping)
	}

	engine, err := filter.NewEngine(events, presets, cat, filterConfig(cfg.Filter), log.With("component", "filter"))
	if err != nil {
		log.Fatal("failed to build filter engine", "error", err)
	}

	carts := cart.NewRegistry(remote, local, cart.Config{
		PersistDelay:   cfg.Cart.PersistDelay,
		AnimationReset: cfg.Cart.AnimationReset,
	}, log.With("component", "cart"))

	// Create session store
	sessionStore := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		HttpOnly: true,
		Secure:   !cfg.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go limiter.Run(ctx, sweepInterval, cartIdleTimeout)
	go sweepCarts(ctx, carts, log)

	corsConfig := middleware.DefaultCORSConfig()
	if !cfg.IsDevelopment() {
		corsConfig.AllowedOrigins = []string{"https://kiddeo.ru", "*.kiddeo.ru"}
	}

	router := server.NewRouter(server.Deps{
		Engine:      engine,
		Catalog:     cat,
		Carts:       carts,
		Sessions:    middleware.NewSessionMiddleware(sessionStore, cfg.Session.Name, log),
		RateLimiter: limiter,
		CORS:        corsConfig,
		Log:         log,
		DevSessions: cfg.IsDevelopment(),
		Health: func(r *http.Request) error {
			for _, check := range checks {
				if err := check(r.Context()); err != nil {
					return err
				}
			}
			return nil
		},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server starting", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down http server", "error", err)
	}
	if err := carts.Close(shutdownCtx); err != nil {
		log.Error("failed to flush carts", "error", err)
	}
}

func filterConfig(c config.FilterConfig) filter.Config {
	return filter.Config{
		DatePolicy:         filter.DatePolicy(strings.ToLower(c.DatePolicy)),
		PageSize:           c.PageSize,
		CategoryPushdown:   c.CategoryPushdown,
		FreeTicketFallback: c.FreeTicketFallback,
		FacetConcurrency:   c.FacetConcurrency,
	}
}

func sweepCarts(ctx context.Context, carts *cart.Registry, log logger.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := carts.Sweep(ctx, cartIdleTimeout); n > 0 {
				log.Debug("evicted idle carts", "count", n, "open", carts.Len())
			}
		}
	}
}

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Wolverine971/bubble-search/config"
	"github.com/Wolverine971/bubble-search/internal/entity"
	"github.com/Wolverine971/bubble-search/internal/runtime"
	"github.com/Wolverine971/bubble-search/internal/search"
	"github.com/Wolverine971/bubble-search/internal/store"
	"github.com/Wolverine971/bubble-search/internal/telemetry"
	"github.com/Wolverine971/bubble-search/provider"
	web_search "github.com/Wolverine971/bubble-search/tools/web_search"
)

func Run(cfg *config.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()

	// Schema is applied on boot; a migration no-op (already up to date) is fine.
	_ = Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0)

	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr(),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
	}

	tele := telemetry.New(cfg.Telemetry)

	searcher, err := web_search.NewSearcher(web_search.Provider(cfg.Search.Provider), cfg.Search)
	if err != nil {
		return err
	}
	cached := &web_search.CachedSearcher{
		Inner:  searcher,
		Cache:  web_search.RedisCache{Client: rdb},
		TTL:    cfg.Search.CacheTTL,
		Logger: log.New(log.Writer(), "[CACHE] ", log.LstdFlags),
	}

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}

	analyzer := entity.NewService(cfg.Entity, tele)
	pipeline := search.NewPipeline(cfg.Engine, llm, tele)
	engine := search.NewEngine(cfg.Engine, cached, analyzer, pipeline, tele)

	secret, err := runtime.LoadJWTSecret(cfg)
	if err != nil {
		return err
	}

	api := e.Group("/api")

	auth := &AuthHandler{Store: st, Secret: secret}
	auth.Register(api.Group("/auth"))

	keys := api.Group("/keys")
	keys.Use(runtime.EchoAuthMiddleware(secret))
	(&APIKeysHandler{Store: st}).Register(keys)

	NewSearchHandler(pipeline, engine, cached, analyzer).Register(api.Group("/search"))

	if addr == "" {
		addr = cfg.Server.Address
		if addr == "" {
			addr = ":3001"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

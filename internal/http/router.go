package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/queue/redisclient"
	"github.com/geocoder89/userhub/internal/repo/postgres"
	"github.com/geocoder89/userhub/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB is plenty for account payloads

func NewRouter(cfg config.Config, log *slog.Logger, pool *pgxpool.Pool, queue *redisclient.Client) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(otelgin.Middleware("userhub"))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	prom := observability.NewProm(prometheus.DefaultRegisterer)
	r.Use(prom.GinHandleMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// health

	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	// wire up the user stack

	usersRepo := postgres.NewUsersRepo(pool, prom)

	var enqueuer service.Enqueuer
	if queue != nil {
		enqueuer = queue
	}

	usersService := service.NewUsersService(usersRepo, enqueuer, log)
	usersHandler := handlers.NewUsersHandlerWithCache(usersService, cache.New(30*time.Second))

	users := r.Group("/users")

	if cfg.RateLimitPerMin > 0 {
		rl := middlewares.NewRateLimiter(cfg.RateLimitPerMin, time.Minute)
		users.POST("", rl.RateLimiterMiddleware(middlewares.KeyByIP), usersHandler.CreateUser)
	} else {
		users.POST("", usersHandler.CreateUser)
	}

	users.GET("", usersHandler.ListUsers)
	users.GET("/:id", usersHandler.GetUserById)
	users.PUT("/:id", usersHandler.UpdateUser)
	users.DELETE("/:id", usersHandler.DeleteUser)
	users.PUT("/:id/password", usersHandler.UpdatePassword)

	return r
}

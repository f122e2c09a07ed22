package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/gymdesk/docs"
	"github.com/fatflowers/gymdesk/internal/app/api/handlers"
	mw "github.com/fatflowers/gymdesk/internal/app/api/middleware"
	"github.com/fatflowers/gymdesk/internal/app/service/activity"
	"github.com/fatflowers/gymdesk/internal/app/service/admin"
	"github.com/fatflowers/gymdesk/internal/app/service/inventory"
	"github.com/fatflowers/gymdesk/internal/app/service/live"
	"github.com/fatflowers/gymdesk/internal/app/service/membership"
	"github.com/fatflowers/gymdesk/internal/app/service/statistics"
	cfgpkg "github.com/fatflowers/gymdesk/pkg/config"
	metrics "github.com/fatflowers/gymdesk/pkg/metrics"
)

func newEngine(cfg *cfgpkg.Config) *gin.Engine {
	if cfg.Env == cfgpkg.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeParams struct {
	fx.In

	Log        *zap.SugaredLogger
	Cfg        *cfgpkg.Config
	Membership *membership.Service
	Inventory  *inventory.Service
	Admin      *admin.Service
	Stats      *statistics.Service
	Live       *live.Service
	Activity   *activity.Service
}

func registerRoutes(r *gin.Engine, p routeParams) {
	log, cfg := p.Log, p.Cfg
	// Prometheus metrics
	if cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return "unmatched"
			},
			Logger: log,
		})
		prom.SetListenAddress(cfg.MetricsAddr)
		prom.Use(r)

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterAuthRoutes(apiV1, p.Admin, mw.NewRateLimiter(cfg.Auth.LoginRate, cfg.Auth.LoginBurst))

	// Protected group using auth middleware
	authed := apiV1.Group("")
	authed.Use(mw.AuthMiddleware(p.Admin, log))
	handlers.RegisterAdminRoutes(authed, p.Admin)
	handlers.RegisterSubscriberRoutes(authed, p.Membership)
	handlers.RegisterInventoryRoutes(authed, p.Inventory)
	handlers.RegisterDashboardRoutes(authed, p.Stats)
	handlers.RegisterStreamRoutes(authed, p.Live)
	handlers.RegisterActivityRoutes(authed, p.Activity)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	// Request contexts derive from streams; cancelling it ends open event streams.
	streams, endStreams := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return streams },
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			endStreams()
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)

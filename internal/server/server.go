package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	billingdomain "github.com/andreymarc/magnex-billing/internal/billing/domain"
	checkoutdomain "github.com/andreymarc/magnex-billing/internal/checkout/domain"
	"github.com/andreymarc/magnex-billing/internal/clock"
	"github.com/andreymarc/magnex-billing/internal/config"
	"github.com/andreymarc/magnex-billing/internal/observability/logger"
	profiledomain "github.com/andreymarc/magnex-billing/internal/profile/domain"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	Clock       clock.Clock
	BillingSvc  billingdomain.Service
	CheckoutSvc checkoutdomain.Service
	Profiles    profiledomain.Repository
	EventLog    billingdomain.EventLogRepository
}

// Server owns the HTTP surface: the provider webhook, the billing session
// endpoints, and the profile/entitlement API consumed by the SPA.
type Server struct {
	cfg         config.Config
	log         *zap.Logger
	clock       clock.Clock
	billingSvc  billingdomain.Service
	checkoutSvc checkoutdomain.Service
	profiles    profiledomain.Repository
	eventLog    billingdomain.EventLogRepository
	engine      *gin.Engine
}

// NewEngine builds the gin engine with recovery, request logging, and
// method-not-allowed handling (the webhook contract promises 405 on
// non-POST).
func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	return engine
}

func NewServer(p Params, engine *gin.Engine) *Server {
	return &Server{
		cfg:         p.Cfg,
		log:         p.Log.Named("server"),
		clock:       p.Clock,
		billingSvc:  p.BillingSvc,
		checkoutSvc: p.CheckoutSvc,
		profiles:    p.Profiles,
		eventLog:    p.EventLog,
		engine:      engine,
	}
}

// RegisterRoutes attaches all endpoints. The session endpoints are called
// directly from the browser, so they get wildcard CORS with preflight; the
// webhook endpoint is provider-to-server and stays CORS-free.
func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", s.Health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine.POST("/webhooks/:provider", s.HandleWebhook)

	api := s.engine.Group("/api")
	api.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	{
		api.POST("/billing/portal", s.CreatePortalSession)
		api.POST("/billing/checkout", s.CreateCheckoutSession)
		api.GET("/profiles/:userID", s.GetProfile)
		api.PATCH("/profiles/:userID", s.UpdateProfileSettings)
		api.GET("/profiles/:userID/events", s.ListBillingEvents)
		api.GET("/entitlements/:userID", s.CheckEntitlement)
	}
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    ":" + s.cfg.Port,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("http server starting", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.log.Info("http server shutting down")
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

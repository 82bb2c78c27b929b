package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
	authdomain "github.com/nivalabs/creditgate/internal/auth/domain"
	billingdomain "github.com/nivalabs/creditgate/internal/billing/domain"
	catalogdomain "github.com/nivalabs/creditgate/internal/catalog/domain"
	"github.com/nivalabs/creditgate/internal/config"
	"github.com/nivalabs/creditgate/internal/observability"
	paymentdomain "github.com/nivalabs/creditgate/internal/payment/domain"
	ratelimitdomain "github.com/nivalabs/creditgate/internal/ratelimit/domain"
	syscontroldomain "github.com/nivalabs/creditgate/internal/syscontrol/domain"
	usagedomain "github.com/nivalabs/creditgate/internal/usage/domain"
)

type Param struct {
	fx.In

	DB      *gorm.DB
	Redis   *redis.Client `optional:"true"`
	Log     *zap.Logger
	Cfg     config.Config
	Metrics *observability.Metrics

	AccountRepo accountdomain.Repository

	AuthSvc    authdomain.Service
	GateSvc    billingdomain.Service
	ControlSvc syscontroldomain.Service
	CatalogSvc catalogdomain.Service
	UsageSvc   usagedomain.Service
	PaymentSvc paymentdomain.Service
	Limiter    ratelimitdomain.Limiter
	LimiterCfg *ratelimitdomain.Config
}

type Server struct {
	db      *gorm.DB
	rdb     *redis.Client
	log     *zap.Logger
	cfg     config.Config
	metrics *observability.Metrics

	accountRepo accountdomain.Repository

	authSvc    authdomain.Service
	gateSvc    billingdomain.Service
	controlSvc syscontroldomain.Service
	catalogSvc catalogdomain.Service
	usageSvc   usagedomain.Service
	paymentSvc paymentdomain.Service
	limiter    ratelimitdomain.Limiter
	limiterCfg *ratelimitdomain.Config
}

func New(p Param) *Server {
	return &Server{
		db:          p.DB,
		rdb:         p.Redis,
		log:         p.Log.Named("server"),
		cfg:         p.Cfg,
		metrics:     p.Metrics,
		accountRepo: p.AccountRepo,
		authSvc:     p.AuthSvc,
		gateSvc:     p.GateSvc,
		controlSvc:  p.ControlSvc,
		catalogSvc:  p.CatalogSvc,
		usageSvc:    p.UsageSvc,
		paymentSvc:  p.PaymentSvc,
		limiter:     p.Limiter,
		limiterCfg:  p.LimiterCfg,
	}
}

func (s *Server) Router() *gin.Engine {
	if s.cfg.Server.Mode != "" {
		gin.SetMode(s.cfg.Server.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.GET("/readyz", s.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.Use(s.RateLimitByIP("auth", s.limiterCfg.AuthAttempts, s.limiterCfg.AuthWindow))
		auth.POST("/signup", s.SignUp)
		auth.POST("/signin", s.SignIn)

		// The catalog is public; a session only adds the caller's own limit.
		api.GET("/billing/plans", s.SessionOptional(), s.GetPlans)

		billing := api.Group("/billing")
		billing.Use(s.SessionRequired())
		billing.GET("/usage", s.GetUsage)
		billing.GET("/payments", s.GetPaymentHistory)

		payment := api.Group("/payment/payu")
		payment.POST("/checkout", s.SessionRequired(), s.CreateCheckout)
		// Gateway-facing routes carry their own hash authentication.
		payment.POST("/webhook", s.PayUWebhook)
		payment.POST("/validate", s.PayUValidate)
		payment.POST("/return", s.PayUReturn)
		payment.GET("/return", s.PayUReturn)

		admin := api.Group("/admin")
		admin.Use(s.SessionRequired(), s.AdminRequired(),
			s.RateLimitByAccount("admin", s.limiterCfg.AdminOps, s.limiterCfg.AdminWindow))
		admin.GET("/system-control", s.GetSystemControl)
		admin.PATCH("/system-control", s.PatchSystemControl)
		admin.PATCH("/accounts/:id/billing", s.PatchAccountBilling)

		api.POST("/ai/generate", s.SessionRequired(), s.GenerateAI)
		api.POST("/deployments", s.SessionRequired(), s.CreateDeployment)
	}

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(start),
)

func start(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: s.Router(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.Server.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

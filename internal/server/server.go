package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/voxlane/voxlane/internal/account"
	accountdomain "github.com/voxlane/voxlane/internal/account/domain"
	"github.com/voxlane/voxlane/internal/assistant"
	assistantdomain "github.com/voxlane/voxlane/internal/assistant/domain"
	"github.com/voxlane/voxlane/internal/calllog"
	calllogdomain "github.com/voxlane/voxlane/internal/calllog/domain"
	"github.com/voxlane/voxlane/internal/config"
	"github.com/voxlane/voxlane/internal/enforcement"
	"github.com/voxlane/voxlane/internal/observability"
	obsmiddleware "github.com/voxlane/voxlane/internal/observability/logger"
	"github.com/voxlane/voxlane/internal/phonenumber"
	phonedomain "github.com/voxlane/voxlane/internal/phonenumber/domain"
	identityprovider "github.com/voxlane/voxlane/internal/providers/identity"
	voiceprovider "github.com/voxlane/voxlane/internal/providers/voice"
	"github.com/voxlane/voxlane/internal/quota"
	quotadomain "github.com/voxlane/voxlane/internal/quota/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	observability.Module,
	identityprovider.Module,
	voiceprovider.Module,
	account.Module,
	quota.Module,
	enforcement.Module,
	assistant.Module,
	phonenumber.Module,
	calllog.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log, obsmiddleware.MiddlewareConfig{
		Debug:           cfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, log *zap.Logger) *gin.Engine {
	return NewEngine(cfg, log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	identity     identityprovider.Resolver
	accountSvc   accountdomain.Service
	assistantSvc assistantdomain.Service
	phoneSvc     phonedomain.Service
	callSvc      calllogdomain.Service
	quotaSvc     quotadomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	Identity     identityprovider.Resolver
	AccountSvc   accountdomain.Service
	AssistantSvc assistantdomain.Service
	PhoneSvc     phonedomain.Service
	CallSvc      calllogdomain.Service
	QuotaSvc     quotadomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		identity:     p.Identity,
		accountSvc:   p.AccountSvc,
		assistantSvc: p.AssistantSvc,
		phoneSvc:     p.PhoneSvc,
		callSvc:      p.CallSvc,
		quotaSvc:     p.QuotaSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.AuthRequired())

	api.GET("/assistants", s.ListAssistants)
	api.POST("/assistants", s.CreateAssistant)
	api.GET("/assistants/:id", s.GetAssistant)
	api.PATCH("/assistants/:id", s.UpdateAssistant)
	api.DELETE("/assistants/:id", s.DeleteAssistant)

	api.GET("/phone-numbers", s.ListPhoneNumbers)
	api.POST("/phone-numbers", s.CreatePhoneNumber)
	api.POST("/phone-numbers/:id/assign", s.AssignPhoneNumber)
	api.POST("/phone-numbers/:id/release", s.ReleasePhoneNumber)
	api.DELETE("/phone-numbers/:id", s.DeletePhoneNumber)

	api.GET("/calls", s.ListCalls)
	api.POST("/calls", s.RecordCall)
	api.GET("/calls/analytics", s.CallAnalytics)

	api.GET("/limits", s.GetLimits)
	api.GET("/limits/history", s.LimitsHistory)
	api.POST("/limits/reset", s.ResetLimits)

	api.DELETE("/account", s.DeleteAccount)
}

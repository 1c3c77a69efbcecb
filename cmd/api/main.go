package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpadp "approvalflow/internal/adapter/http"
	"approvalflow/internal/adapter/middleware"
	"approvalflow/internal/adapter/repository/mysql"
	"approvalflow/internal/config"
	delegationDomain "approvalflow/internal/domain/delegation"
	workflowDomain "approvalflow/internal/domain/workflow"
	"approvalflow/internal/infrastructure/cache"
	"approvalflow/internal/infrastructure/db"
	"approvalflow/internal/infrastructure/events"
	delegationUC "approvalflow/internal/usecase/delegation"
	templateUC "approvalflow/internal/usecase/template"
	workflowUC "approvalflow/internal/usecase/workflow"
)

func main() {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(os.Stderr)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config invalid")
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("mysql connect failed")
	}
	if err := gdb.AutoMigrate(
		&workflowDomain.Template{},
		&workflowDomain.TemplateStep{},
		&workflowDomain.Instance{},
		&workflowDomain.Step{},
		&delegationDomain.Delegation{},
	); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate failed")
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}

	nc, err := events.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatal().Err(err).Msg("nats connect failed")
	}
	publisher := events.NewNATSPublisher(nc, log.Logger)

	templateRepo := mysql.NewTemplateRepository(gdb)
	instanceRepo := mysql.NewInstanceRepository(gdb)
	delegationRepo := mysql.NewDelegationRepository(gdb)
	uow := mysql.NewGormUoW(gdb)

	// No HR directory wired here: MANAGER steps rely on the elevated-role
	// fallback until one is.
	resolver := workflowUC.NewResolver(delegationRepo, nil)
	orchestrator := workflowUC.NewOrchestrator(uow, resolver, publisher, log.Logger)
	query := workflowUC.NewQuery(instanceRepo, templateRepo, resolver)

	h := httpadp.NewHandler()
	th := httpadp.NewTemplateHandler(templateUC.NewUsecase(templateRepo))
	dh := httpadp.NewDelegationHandler(delegationUC.NewUsecase(delegationRepo))
	wh := httpadp.NewWorkflowHandler(orchestrator, query)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())

	e.GET("/health", h.Health)

	v1 := e.Group("/v1")
	v1.POST("/templates", th.Create)
	v1.GET("/templates", th.List)
	v1.GET("/templates/:template_id", th.Get)
	v1.PATCH("/templates/:template_id", th.Update)
	v1.POST("/templates/:template_id/deactivate", th.Deactivate)

	v1.POST("/delegations", dh.Create)
	v1.GET("/delegations", dh.List)
	v1.DELETE("/delegations/:delegation_id", dh.Revoke)

	idemp := middleware.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)
	v1.POST("/workflows", wh.Start, idemp)
	v1.GET("/workflows", wh.List)
	v1.GET("/workflows/:instance_id", wh.Get)
	v1.POST("/workflows/:instance_id/cancel", wh.Cancel, idemp)
	v1.POST("/steps/:step_id/approve", wh.Approve, idemp)
	v1.POST("/steps/:step_id/reject", wh.Reject, idemp)
	v1.GET("/approvals/pending", wh.Pending)

	addr := ":" + cfg.AppPort
	log.Info().Str("addr", addr).Msg("listening")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

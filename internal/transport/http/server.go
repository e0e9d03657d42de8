package http

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"docqa/internal/bootstrap"
	"docqa/internal/config"
	"docqa/internal/transport/http/handler"
	"docqa/internal/transport/http/middleware"
)

var errConnectionClosed = errors.New("connection closed")

// Services are the application entry points the router exposes.
type Services struct {
	Documents handler.DocumentService
	QA        handler.Asker
	Health    *handler.HealthHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	checks := map[string]handler.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := app.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"vector_index": app.VectorStore.Ping,
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}
	}
	if app.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if app.MQConn.IsClosed() {
				return errConnectionClosed
			}
			return nil
		}
	}

	return NewEngine(app.Config, app.Logger, Services{
		Documents: app.Documents,
		QA:        app.QA,
		Health:    handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, checks),
	})
}

// NewEngine wires middleware and routes. Every route sits behind bearer auth.
func NewEngine(cfg *config.Config, logger *slog.Logger, svc Services) *gin.Engine {
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.RequestLogger(logger),
	)
	if len(cfg.HTTP.CORSOrigins) > 0 {
		router.Use(middleware.CORS(cfg.HTTP.CORSOrigins))
	}

	documentHandler := handler.NewDocumentHandler(svc.Documents, cfg.Upload.MaxBytes)
	qaHandler := handler.NewQAHandler(svc.QA)

	secured := router.Group("/")
	secured.Use(middleware.AuthBearer(cfg.Auth.SecretToken))
	secured.GET("/secure-endpoint", handler.Secure)
	secured.POST("/upload", documentHandler.Upload)
	secured.GET("/documents", documentHandler.List)
	secured.DELETE("/documents/:id", documentHandler.Delete)
	secured.POST("/ask", qaHandler.Ask)
	if svc.Health != nil {
		secured.GET("/healthz", svc.Health.Check)
	}

	return router
}

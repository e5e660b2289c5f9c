package server

import (
	"context"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/FACorreiaa/go-voyage/internal/app/common"
	"github.com/FACorreiaa/go-voyage/internal/app/middleware"
	database "github.com/FACorreiaa/go-voyage/internal/db"
	"github.com/FACorreiaa/go-voyage/internal/pkg/config"
	"github.com/FACorreiaa/go-voyage/internal/routes"
)

const requestIDHeader = "X-Request-Id"

// SetupRouter configures and returns the Gin router with all middleware and routes
func SetupRouter(ctx context.Context, db database.Querier, pinger routes.Pinger, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := common.TrustProxies(r, cfg.TrustedProxies); err != nil {
		logger.Error("Invalid trusted proxy list, forwarding headers ignored", zap.Error(err))
		_ = common.TrustProxies(r, nil)
	}

	r.Use(requestID())
	r.Use(ginzap.GinzapWithConfig(logger, &ginzap.Config{
		UTC:        true,
		TimeFormat: time.RFC3339,
		Context:    zapContextFunc(),
		SkipPaths:  []string{"/healthz"},
	}))
	r.Use(ginzap.RecoveryWithZap(logger, true))
	r.Use(middleware.OTELGinMiddleware(cfg.Observability.ServiceName))
	r.Use(middleware.HTTPMetrics())
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middleware.SecurityMiddleware())

	routes.Setup(ctx, r, db, pinger, cfg, logger)

	return r
}

// requestID reuses the caller's request id or mints one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// zapContextFunc returns the Zap context function for logging. Request bodies
// are not logged since they carry passwords.
func zapContextFunc() ginzap.Fn {
	return func(c *gin.Context) []zapcore.Field {
		fields := []zapcore.Field{}

		if requestID := c.Writer.Header().Get(requestIDHeader); requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}

		if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().IsValid() {
			fields = append(fields,
				zap.String("trace_id", span.SpanContext().TraceID().String()),
				zap.String("span_id", span.SpanContext().SpanID().String()),
			)
		}

		return fields
	}
}

package gateway

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/laurateck/examdesk/internal/config"
	"github.com/laurateck/examdesk/internal/response"
)

// SetupRouter wires the local gateway the kiosk shell talks to. The surface
// is loopback-only in practice; CORS still restricts which shell origins can
// reach it.
func SetupRouter(cfg *config.Config, handler *SessionHandler, log zerolog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(response.RequestIDMiddleware())
	r.Use(requestLogger(log))

	// If AllowedOrigins is set in config, restrict to that list; otherwise the
	// shell may come from anywhere (the listener is loopback-bound anyway).
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/login", handler.Login)
		api.GET("/colleges", handler.Colleges)
		api.POST("/contact/:kind", handler.Contact)

		api.GET("/preflight", handler.Preflight)
		api.POST("/preflight/:action", handler.PreflightAction)

		exam := api.Group("/exam")
		{
			exam.POST("/start", handler.StartExam)
			exam.GET("/overview", handler.Overview)
			exam.POST("/subject/:subject/start", handler.StartSubject)
			exam.GET("/question", handler.Question)
			exam.POST("/answer", handler.Answer)
			exam.POST("/navigate/:action", handler.Navigate)
			exam.POST("/section/submit", handler.SubmitSection)
			exam.POST("/submit", handler.Submit)
		}

		api.POST("/supervisor/unlock", handler.Unlock)
	}

	return r
}

// requestLogger logs each request with its latency and request id.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		requestID, _ := c.Get(response.ContextKeyRequestID)
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Interface("request_id", requestID).
			Msg("Request handled")
	}
}

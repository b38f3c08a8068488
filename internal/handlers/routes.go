package handlers

import (
	"net/http"

	"aptitude-service/internal/middleware"
	"aptitude-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	ServiceName string
	Version     string
	Production  bool
	JWTSecret   string
}

// RegisterRoutes mounts the health, metrics and /api/ai endpoints on r.
func RegisterRoutes(r *gin.Engine, svc *service.TestService, cfg RouterConfig) {
	tests := NewTestHandler(svc, cfg.Production)
	content := NewContentHandler(tests)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": cfg.ServiceName,
			"version": cfg.Version,
			"chunks":  svc.ChunkCount(),
			"store":   svc.StoreBackend(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/ai")
	api.Use(middleware.OptionalAuth(cfg.JWTSecret))
	{
		api.POST("/tests", tests.CreateTest)
		api.GET("/tests/:id/question", tests.GetQuestion)
		api.POST("/tests/:id/submit", tests.SubmitAnswer)
		api.GET("/tests/:id/results", tests.GetResults)

		api.POST("/random-aptitude-questions", content.RandomQuestions)
		api.POST("/intelligent-aptitude-test", content.IntelligentTest)
		api.POST("/google-ai-test", content.ModelTest)
		api.GET("/content-analysis", content.ContentAnalysis)
		api.POST("/ask", content.Ask)
	}
}

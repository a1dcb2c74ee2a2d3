package router

import (
	"github.com/gin-gonic/gin"

	"rateintake/internal/handler"
	"rateintake/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	onboardingH *handler.OnboardingHandler,
	healthH *handler.HealthHandler,
	allowedOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	sessions := v1.Group("/sessions")
	sessions.POST("", onboardingH.CreateSession)
	sessions.GET("/:id", onboardingH.GetSession)
	sessions.DELETE("/:id", onboardingH.DiscardSession)
	sessions.POST("/:id/reset", onboardingH.ResetSession)
	sessions.POST("/:id/confirm", onboardingH.Confirm)

	// Document slots
	sessions.POST("/:id/slots/:category/files", onboardingH.UploadDocument)
	sessions.DELETE("/:id/slots/:category/files/:index", onboardingH.RemoveDocument)
	sessions.POST("/:id/slots/:category/files/:index/retry", onboardingH.RetryDocument)
	sessions.GET("/:id/slots/:category/files/:index/url", onboardingH.DocumentURL)

	// Record and rate table edits
	sessions.PATCH("/:id/record", onboardingH.UpdateRecord)
	sessions.POST("/:id/rates", onboardingH.AddRateRow)
	sessions.GET("/:id/rates/export", onboardingH.ExportRates)
	sessions.PUT("/:id/rates/:row/:column", onboardingH.EditRateCell)
	sessions.DELETE("/:id/rates/:row", onboardingH.RemoveRateRow)

	drafts := v1.Group("/drafts")
	drafts.GET("", onboardingH.ListDrafts)
	drafts.POST("/:id/resume", onboardingH.ResumeDraft)

	return r
}

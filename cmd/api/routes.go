package main

import (
	"net/http"
	"time"

	"signaling-platform/internal/auth"
	"signaling-platform/internal/httpapi"
	"signaling-platform/internal/sessions"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, authManager *auth.Manager, coordinator *sessions.Service) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Token issuance for the API gateway.
	// NOTE: credential verification happens upstream; the gateway exchanges a
	// verified user id for a token pair here. Do not expose this route to the
	// public internet.
	r.POST("/internal/token", func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
			return
		}
		pair, err := authManager.IssuePair(time.Now(), req.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
	})

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(authManager))
	{
		h := httpapi.Handlers{Calls: coordinator}

		calls := v1.Group("/calls")
		{
			calls.POST("", h.InitiateCall)
			calls.GET("/history", h.History)
			calls.GET("/missed", h.Missed)
			calls.GET("/recent", h.Recent)

			calls.GET("/:session_id", h.GetCall)
			calls.POST("/:session_id/answer", h.AnswerCall)
			calls.POST("/:session_id/reject", h.RejectCall)
			calls.POST("/:session_id/end", h.EndCall)
			calls.POST("/:session_id/status", h.UpdateStatus)
			calls.POST("/:session_id/candidates", h.UpdateCandidates)
		}
	}
}

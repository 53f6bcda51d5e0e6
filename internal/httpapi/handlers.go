package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"signaling-platform/internal/auth"
	"signaling-platform/internal/sessions"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
// The acting user id always comes from the verified token in request
// context, never from the request body.

type Handlers struct {
	Calls *sessions.Service
}

// writeError maps the sessions error taxonomy onto HTTP statuses.
// Anything unrecognized is a transient backend failure.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call session not found"})
	case errors.Is(err, sessions.ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not a participant of this call"})
	case errors.Is(err, sessions.ErrActiveCallExists):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "caller already has an active call"})
	case errors.Is(err, sessions.ErrInvalidStatus):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid call status transition"})
	case errors.Is(err, sessions.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	default:
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
	}
}

func actingUser(c *gin.Context) (string, bool) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil || uid == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return "", false
	}
	return uid, true
}

// --- Lifecycle operations ---

type initiateCallRequest struct {
	CalleeID  string `json:"callee_id"`
	CallType  string `json:"call_type"`
	CallerSDP string `json:"caller_sdp"`
}

func (h Handlers) InitiateCall(c *gin.Context) {
	callerID, ok := actingUser(c)
	if !ok {
		return
	}
	var req initiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	session, err := h.Calls.InitiateCall(c.Request.Context(), callerID, req.CalleeID, sessions.CallType(req.CallType), req.CallerSDP)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

type answerCallRequest struct {
	CalleeSDP     string `json:"callee_sdp"`
	ICECandidates string `json:"ice_candidates,omitempty"`
}

func (h Handlers) AnswerCall(c *gin.Context) {
	calleeID, ok := actingUser(c)
	if !ok {
		return
	}
	var req answerCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	session, err := h.Calls.AnswerCall(c.Request.Context(), c.Param("session_id"), calleeID, req.CalleeSDP, req.ICECandidates)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type reasonRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h Handlers) RejectCall(c *gin.Context) {
	calleeID, ok := actingUser(c)
	if !ok {
		return
	}
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	session, err := h.Calls.RejectCall(c.Request.Context(), c.Param("session_id"), calleeID, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h Handlers) EndCall(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	session, err := h.Calls.EndCall(c.Request.Context(), c.Param("session_id"), userID, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h Handlers) UpdateStatus(c *gin.Context) {
	if _, ok := actingUser(c); !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	session, err := h.Calls.UpdateStatus(c.Request.Context(), c.Param("session_id"), sessions.CallStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type updateCandidatesRequest struct {
	ICECandidates string `json:"ice_candidates"`
}

func (h Handlers) UpdateCandidates(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	var req updateCandidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	session, err := h.Calls.UpdateCandidates(c.Request.Context(), c.Param("session_id"), userID, req.ICECandidates)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// --- Read-only projections ---

func (h Handlers) GetCall(c *gin.Context) {
	if _, ok := actingUser(c); !ok {
		return
	}
	session, err := h.Calls.GetBySessionID(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h Handlers) History(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	page, err := h.Calls.History(c.Request.Context(), userID, c.Query("page_token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h Handlers) Missed(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	missed, err := h.Calls.Missed(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": missed})
}

func (h Handlers) Recent(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 0)
	windowDays := intQuery(c, "window_days", 0)
	recent, err := h.Calls.Recent(c.Request.Context(), userID, limit, windowDays)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": recent})
}

func intQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

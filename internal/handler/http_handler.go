package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/anandupg/Lyvo-Backend-sub001/internal/domain"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/service"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/log"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/middleware"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/response"
)

// HTTPHandler exposes the REST side of the gateway: internal endpoints
// for the booking authority and read endpoints for participants.
type HTTPHandler struct {
	chatService    service.ChatService
	authMiddleware *middleware.AuthMiddleware
	internalAPIKey string
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(chatService service.ChatService, authMiddleware *middleware.AuthMiddleware, internalAPIKey string) *HTTPHandler {
	return &HTTPHandler{
		chatService:    chatService,
		authMiddleware: authMiddleware,
		internalAPIKey: internalAPIKey,
	}
}

// RegisterRoutes registers all REST routes.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		internal := api.Group("/internal", middleware.RequireInternalKey(h.internalAPIKey))
		{
			internal.POST("/sessions", h.CreateSession)
			internal.PUT("/sessions/:booking_id/status", h.SetStatus)
		}

		sessions := api.Group("/sessions", h.authMiddleware.RequireAuth())
		{
			sessions.GET("", h.ListSessions)
			sessions.GET("/:session_id/messages", h.ListMessages)
		}
	}

	r.GET("/health", h.HealthCheck)
}

// CreateSession handles the booking authority's creation request.
// Repeatable: a booking that already has a session gets 200 with the
// existing record, a fresh creation gets 201.
func (h *HTTPHandler) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	session, created, err := h.chatService.CreateSession(ctx, req.BookingID, req.OwnerID, req.SeekerID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidArgument) {
			response.BadRequest(c, "booking_id, owner_id and seeker_id are required")
			return
		}
		l.Error().Err(err).Str(log.FieldBookingID, req.BookingID).Msg("failed to create session")
		response.InternalError(c, "failed to create session")
		return
	}

	if created {
		response.Created(c, session)
		return
	}
	response.Success(c, session)
}

// SetStatus handles the booking authority's status-change request.
func (h *HTTPHandler) SetStatus(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	bookingID := c.Param("booking_id")

	var req domain.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	session, err := h.chatService.SetStatus(ctx, bookingID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidArgument):
			response.BadRequest(c, "status must be 'active' or 'readonly'")
		case errors.Is(err, service.ErrSessionNotFound):
			response.NotFound(c, "no chat session for this booking")
		default:
			l.Error().Err(err).Str(log.FieldBookingID, bookingID).Msg("failed to set session status")
			response.InternalError(c, "failed to set session status")
		}
		return
	}

	response.Success(c, session)
}

// ListSessions returns the caller's sessions with counterpart display
// data.
func (h *HTTPHandler) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	summaries, err := h.chatService.ListSessions(ctx, userID)
	if err != nil {
		l.Error().Err(err).Msg("failed to list sessions")
		response.InternalError(c, "failed to list sessions")
		return
	}

	response.Success(c, gin.H{"sessions": summaries})
}

// ListMessages returns one page of a session's history.
func (h *HTTPHandler) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	sessionID := c.Param("session_id")
	cursor := c.Query("cursor")
	direction := c.DefaultQuery("direction", "backward")

	if direction != "backward" && direction != "forward" {
		response.BadRequest(c, "direction must be 'backward' or 'forward'")
		return
	}

	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.chatService.ListMessages(ctx, userID, sessionID, cursor, query.Limit, direction)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidArgument):
			response.BadRequest(c, "invalid cursor or limit")
		case errors.Is(err, service.ErrSessionNotFound):
			response.NotFound(c, "session not found")
		case errors.Is(err, service.ErrNotParticipant):
			response.Forbidden(c, domain.ErrCodeNotParticipant, "you are not a participant of this session")
		default:
			l.Error().Err(err).Str(log.FieldSessionID, sessionID).Msg("failed to list messages")
			response.InternalError(c, "failed to list messages")
		}
		return
	}

	response.Success(c, page)
}

// HealthCheck reports liveness.
func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

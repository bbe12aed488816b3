package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/publicchat/internal/matching"
	"github.com/quocanhngo/publicchat/internal/model"
	"github.com/quocanhngo/publicchat/internal/service"
	"github.com/quocanhngo/publicchat/pkg/logger"
)

// PublicChatHandler handles public chat discovery and lifecycle endpoints
type PublicChatHandler struct {
	svc *service.MatchmakingService
	log *logger.Logger
}

func NewPublicChatHandler(svc *service.MatchmakingService, log *logger.Logger) *PublicChatHandler {
	return &PublicChatHandler{svc: svc, log: log.Named("public_chat_handler")}
}

// RegisterRoutes mounts the endpoints on an authenticated group
func (h *PublicChatHandler) RegisterRoutes(rg *gin.RouterGroup) {
	pc := rg.Group("/public-chat")
	{
		pc.GET("/recommended", h.Recommended)
		pc.GET("/browse", h.Browse)
		pc.POST("/create", h.Create)
		pc.GET("/user/active-count", h.ActiveCount)
		pc.POST("/:id/join", h.Join)
		pc.POST("/:id/reject", h.Reject)
		pc.POST("/:id/leave", h.Leave)
		pc.POST("/:id/reveal-identity", h.RevealIdentity)
		pc.GET("/:id/summary", h.GetSummary)
		pc.PUT("/:id/summary", h.UpsertSummary)
		pc.POST("/:id/end", h.End)
		pc.POST("/:id/cancel", h.Cancel)
	}
}

// Recommended godoc
// @Summary Ranked public chat suggestions
// @Description Ranks every eligible chat for the caller by interest, distance and urgency, then pages the result.
// @Tags PublicChat
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 5, max 50)"
// @Param w_interest query number false "Interest weight"
// @Param w_location query number false "Location weight"
// @Param w_time query number false "Time weight"
// @Success 200 {object} model.RecommendResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /public-chat/recommended [get]
func (h *PublicChatHandler) Recommended(c *gin.Context) {
	var q model.RecommendQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query", err)
		return
	}

	var weights matching.Weights
	switch countSet(q.InterestWeight, q.LocationWeight, q.TimeWeight) {
	case 0:
	case 3:
		weights = matching.Weights{Interest: *q.InterestWeight, Location: *q.LocationWeight, Time: *q.TimeWeight}
		// explicit weights are checked here; zero weights would otherwise mean "use defaults"
		if err := weights.Validate(); err != nil {
			respondError(c, h.log, err)
			return
		}
	default:
		badRequest(c, "w_interest, w_location and w_time must be given together", nil)
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	page, err := h.svc.Recommend(c.Request.Context(), userID, q.Page, q.Limit, weights)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	items := make([]model.RecommendedChat, 0, len(page.Items))
	for _, r := range page.Items {
		items = append(items, model.RecommendedChat{
			PublicChatItem: model.NewPublicChatItem(r.Chat),
			MatchScore:     r.Score.Total,
			MatchDetails: model.MatchDetails{
				Interest: r.Score.Interest,
				Location: r.Score.Location,
				Time:     r.Score.Time,
				Weights:  r.Score.Weights.Map(),
			},
		})
	}

	c.JSON(http.StatusOK, model.RecommendResponse{
		Envelope:        ok(""),
		Page:            page.Page,
		Count:           len(items),
		Recommendations: items,
	})
}

func countSet(vals ...*float64) int {
	n := 0
	for _, v := range vals {
		if v != nil {
			n++
		}
	}
	return n
}

// Browse godoc
// @Summary Browse public chats
// @Description Unranked listing of eligible chats, optionally filtered by summary topic.
// @Tags PublicChat
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10, max 50)"
// @Param filter query string false "Topic substring"
// @Success 200 {object} model.BrowseResponse
// @Router /public-chat/browse [get]
func (h *PublicChatHandler) Browse(c *gin.Context) {
	var q model.BrowseQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query", err)
		return
	}

	page, err := h.svc.Browse(c.Request.Context(), q.Page, q.Limit, q.Filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	chats := make([]model.PublicChatItem, 0, len(page.Chats))
	for i := range page.Chats {
		chat := &page.Chats[i]
		item := model.NewPublicChatItem(chat)
		creatorID, anonymous := chat.CreatorID, chat.IsAnonymous
		item.CreatorID = &creatorID
		item.IsAnonymous = &anonymous
		chats = append(chats, item)
	}

	c.JSON(http.StatusOK, model.BrowseResponse{
		Envelope: ok(""),
		Page:     page.Page,
		Limit:    page.Limit,
		Total:    page.Total,
		Chats:    chats,
	})
}

// Create godoc
// @Summary Create a public chat
// @Description Creates a chat with the caller as its first, visible member. scheduled_end_time defaults to two hours after scheduled_date.
// @Tags PublicChat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreatePublicChatRequest true "Chat fields"
// @Success 201 {object} model.CreatePublicChatResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /public-chat/create [post]
func (h *PublicChatHandler) Create(c *gin.Context) {
	var req model.CreatePublicChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}

	start, err := parseTime(req.ScheduledDate)
	if err != nil {
		badRequest(c, "Invalid scheduled_date", err)
		return
	}
	end, err := parseTime(req.ScheduledEndTime)
	if err != nil {
		badRequest(c, "Invalid scheduled_end_time", err)
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	chat, err := h.svc.Create(c.Request.Context(), userID, service.CreateChatInput{
		Name:             req.Name,
		Description:      req.Description,
		LocationName:     req.LocationName,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		ScheduledDate:    start,
		ScheduledEndTime: end,
		IsAnonymous:      req.IsAnonymous,
		MaxMembers:       req.MaxMembers,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, model.CreatePublicChatResponse{
		Envelope: ok("Chat created successfully"),
		ChatID:   chat.ID,
	})
}

// ActiveCount godoc
// @Summary Caller's active chat count
// @Tags PublicChat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ActiveCountResponse
// @Router /public-chat/user/active-count [get]
func (h *PublicChatHandler) ActiveCount(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	count, err := h.svc.ActiveCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, model.ActiveCountResponse{
		Envelope:        ok(""),
		ActiveChatCount: count,
		MaxAllowed:      h.svc.MaxActivePerUser(),
	})
}

// Join godoc
// @Summary Join a public chat
// @Tags PublicChat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param body body model.JoinPublicChatRequest false "Anonymity choice"
// @Success 200 {object} model.JoinResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /public-chat/{id}/join [post]
func (h *PublicChatHandler) Join(c *gin.Context) {
	chatID, valid := chatIDParam(c)
	if !valid {
		return
	}

	var req model.JoinPublicChatRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request", err)
			return
		}
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	member, err := h.svc.Join(c.Request.Context(), userID, chatID, req.IsAnonymous)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, model.JoinResponse{
		Envelope:    ok("Successfully joined chat"),
		ChatID:      chatID,
		IsAnonymous: member.IsAnonymous,
	})
}

// Reject godoc
// @Summary Decline a public chat
// @Tags PublicChat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param body body model.RejectPublicChatRequest false "Reason"
// @Success 200 {object} model.Envelope
// @Failure 404 {object} model.ErrorResponse
// @Router /public-chat/{id}/reject [post]
func (h *PublicChatHandler) Reject(c *gin.Context) {
	chatID, valid := chatIDParam(c)
	if !valid {
		return
	}

	var req model.RejectPublicChatRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request", err)
			return
		}
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	if _, err := h.svc.Reject(c.Request.Context(), userID, chatID, req.Reason); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, ok("Chat rejected"))
}

// Leave godoc
// @Summary Leave a public chat
// @Tags PublicChat
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {object} model.Envelope
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /public-chat/{id}/leave [post]
func (h *PublicChatHandler) Leave(c *gin.Context) {
	chatID, valid := chatIDParam(c)
	if !valid {
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	if _, err := h.svc.Leave(c.Request.Context(), userID, chatID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, ok("Left chat"))
}

// RevealIdentity godoc
// @Summary Reveal identity to the room
// @Description One-way. Returns the usernames of every visible joined member.
// @Tags PublicChat
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {object} model.RevealResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /public-chat/{id}/reveal-identity [post]
func (h *PublicChatHandler) RevealIdentity(c *gin.Context) {
	chatID, valid := chatIDParam(c)
	if !valid {
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	names, err := h.svc.Reveal(c.Request.Context(), userID, chatID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, model.RevealResponse{
		Envelope:     ok("Identity revealed"),
		NowVisibleTo: names,
	})
}

// GetSummary godoc
// @Summary Get a chat's summary and topics
// @Tags PublicChat
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {object} model.SummaryResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /public-chat/{id}/summary [get]
func (h *PublicChatHandler) GetSummary(c *gin.Context) {
	chatID, valid := chatIDParam(c)
	if !valid {
		return
	}

	summary, err := h.svc.Summary(c.Request.Context(), chatID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, model.SummaryResponse{
		Envelope:    ok(""),
		Summary:     summary.SummaryText,
		Topics:      summary.Topics(),
		GeneratedAt: summary.GeneratedAt,
	})
}

// UpsertSummary godoc
// @Summary Set a chat's summary and topics
// @Tags PublicChat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param body body model.UpsertSummaryRequest true "Summary"
// @Success 200 {object} model.SummaryResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /public-chat/{id}/summary [put]
func (h *PublicChatHandler) UpsertSummary(c *gin.Context) {
	chatID, valid := chatIDParam(c)
	if !valid {
		return
	}

	var req model.UpsertSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	summary, err := h.svc.UpsertSummary(c.Request.Context(), userID, chatID, req.Summary, req.Topics)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, model.SummaryResponse{
		Envelope:    ok("Summary saved"),
		Summary:     summary.SummaryText,
		Topics:      summary.Topics(),
		GeneratedAt: summary.GeneratedAt,
	})
}

// End godoc
// @Summary End a public chat
// @Tags PublicChat
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {object} model.ChatStatusResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /public-chat/{id}/end [post]
func (h *PublicChatHandler) End(c *gin.Context) {
	h.closeChat(c, h.svc.End)
}

// Cancel godoc
// @Summary Cancel a public chat
// @Tags PublicChat
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {object} model.ChatStatusResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /public-chat/{id}/cancel [post]
func (h *PublicChatHandler) Cancel(c *gin.Context) {
	h.closeChat(c, h.svc.Cancel)
}

type closeFunc = func(ctx context.Context, userID, chatID uuid.UUID) (*model.PublicChat, error)

func (h *PublicChatHandler) closeChat(c *gin.Context, fn closeFunc) {
	chatID, valid := chatIDParam(c)
	if !valid {
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	chat, err := fn(c.Request.Context(), userID, chatID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, model.ChatStatusResponse{
		Envelope: ok(""),
		ChatID:   chat.ID,
		Status:   chat.Status,
	})
}

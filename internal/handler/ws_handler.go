package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/quocanhngo/publicchat/internal/model"
	"github.com/quocanhngo/publicchat/internal/service"
	"github.com/quocanhngo/publicchat/internal/ws"
	"github.com/quocanhngo/publicchat/pkg/auth"
	"github.com/quocanhngo/publicchat/pkg/logger"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are enforced by the CORS allow list upstream
	},
}

// WSHandler serves the live room feed of a public chat
type WSHandler struct {
	hub        *ws.Hub
	svc        *service.MatchmakingService
	jwtManager *auth.JWTManager
	log        *logger.Logger
}

func NewWSHandler(hub *ws.Hub, svc *service.MatchmakingService, jwtManager *auth.JWTManager, log *logger.Logger) *WSHandler {
	return &WSHandler{
		hub:        hub,
		svc:        svc,
		jwtManager: jwtManager,
		log:        log.Named("ws_handler"),
	}
}

// HandleLive godoc
// @Summary Live room feed
// @Description Upgrades to a WebSocket that pushes member_joined, member_left, identity_revealed and chat_closed events. Only joined members may connect.
// @Tags PublicChat
// @Param id path string true "Chat ID"
// @Param token query string true "JWT access token"
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /public-chat/{id}/live [get]
func (h *WSHandler) HandleLive(c *gin.Context) {
	// WebSocket clients can't set the Authorization header
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Envelope: model.Envelope{Error: "Token required"}})
		return
	}

	claims, err := h.jwtManager.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Envelope: model.Envelope{Error: "Invalid token"}})
		return
	}

	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	joined, err := h.svc.IsJoinedMember(c.Request.Context(), chatID, claims.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !joined {
		c.JSON(http.StatusForbidden, model.ErrorResponse{
			Envelope: model.Envelope{Error: "Only joined members can follow the room"},
			Kind:     model.KindForbidden.String(),
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, chatID, claims.UserID)
	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	h.log.Info("✅ room connected",
		zap.String("chat_id", chatID.String()),
		zap.String("user_id", claims.UserID.String()),
	)

	go client.WritePump()
	go client.ReadPump()
}

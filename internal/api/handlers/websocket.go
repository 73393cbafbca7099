package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"collab-service/internal/api/middleware"
	"collab-service/internal/models"
	"collab-service/internal/realtime"
	"collab-service/internal/repositories/postgres"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser clients
		}
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			return true
		}
		for _, allowed := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
			if origin == strings.TrimSpace(allowed) {
				return true
			}
		}
		return false
	},
}

type WSHandler struct {
	hub      *realtime.Hub
	userRepo *postgres.UserRepository
}

func NewWSHandler(hub *realtime.Hub, userRepo *postgres.UserRepository) *WSHandler {
	return &WSHandler{hub: hub, userRepo: userRepo}
}

// HandleWebSocket completes the handshake for an authenticated connection.
// WSAuth already validated the token; what remains is resolving the account
// (a valid token for a deleted user is still refused) and upgrading. Success
// is implicit: the client infers it from subsequent events.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	userID := middleware.UserID(c)

	user, err := h.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "user not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to resolve user",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "userID", userID, "error", err)
		return
	}

	client := realtime.NewClient(h.hub, conn, user.ID, user.Username, user.FullName)
	slog.Info("websocket connection established", "connID", client.ID(), "userID", user.ID, "username", user.Username)

	h.hub.Attach(c.Request.Context(), client)
}

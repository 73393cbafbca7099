package handlers

import (
	"net/http"
	"strconv"

	"collab-service/internal/api/middleware"
	"collab-service/internal/models"
	"collab-service/internal/realtime"
	"collab-service/internal/repositories/postgres"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messageRepo *postgres.MessageRepository
	userRepo    *postgres.UserRepository
	dispatcher  *realtime.EventDispatcher
}

func NewMessageHandler(messageRepo *postgres.MessageRepository, userRepo *postgres.UserRepository, dispatcher *realtime.EventDispatcher) *MessageHandler {
	return &MessageHandler{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		dispatcher:  dispatcher,
	}
}

// Send persists a direct message and pushes new_message to the recipient's
// private room. The HTTP response carries the stored record, so the sender
// learns the generated id the same way the websocket flow confirms it.
func (h *MessageHandler) Send(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Recipient ID and content are required",
		})
		return
	}

	senderID := middleware.UserID(c)
	if req.RecipientID == senderID {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "cannot message yourself",
		})
		return
	}

	sender, err := h.userRepo.FindByID(senderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to load sender",
		})
		return
	}
	if _, err := h.userRepo.FindByID(req.RecipientID); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "recipient not found",
		})
		return
	}

	msg := &models.DirectMessage{
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Content:     req.Content,
	}
	if err := h.messageRepo.SaveDirectMessage(c.Request.Context(), msg); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to send message",
		})
		return
	}

	record := models.DirectMessageResponse{
		DirectMessage:  *msg,
		SenderUsername: sender.Username,
		SenderName:     sender.FullName,
	}
	h.dispatcher.SendToUser(req.RecipientID, realtime.EventNewMessage, record)
	c.JSON(http.StatusCreated, record)
}

// Conversations lists the requester's conversation partners with the latest
// message and unread count per partner.
func (h *MessageHandler) Conversations(c *gin.Context) {
	summaries, err := h.messageRepo.Conversations(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to list conversations",
		})
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// Conversation pages through the message history with one partner, newest
// first.
func (h *MessageHandler) Conversation(c *gin.Context) {
	otherID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid user id",
		})
		return
	}
	limit, offset := pageParams(c, 50)

	messages, err := h.messageRepo.Conversation(c.Request.Context(), middleware.UserID(c), uint(otherID), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to load conversation",
		})
		return
	}
	c.JSON(http.StatusOK, messages)
}

// MarkRead marks every message from the given partner as read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	otherID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid user id",
		})
		return
	}

	if err := h.messageRepo.MarkConversationRead(c.Request.Context(), middleware.UserID(c), uint(otherID)); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to mark conversation read",
		})
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Message: "conversation marked read"})
}

func (h *MessageHandler) UnreadCount(c *gin.Context) {
	count, err := h.messageRepo.UnreadCount(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to count unread messages",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// pageParams reads limit/offset query params with sane bounds.
func pageParams(c *gin.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 || limit > 100 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

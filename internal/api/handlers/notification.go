package handlers

import (
	"net/http"
	"strconv"

	"collab-service/internal/api/middleware"
	"collab-service/internal/models"
	"collab-service/internal/repositories/postgres"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationRepo *postgres.NotificationRepository
}

func NewNotificationHandler(notificationRepo *postgres.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notificationRepo: notificationRepo}
}

func (h *NotificationHandler) List(c *gin.Context) {
	limit, offset := pageParams(c, 20)

	notifications, err := h.notificationRepo.ListForUser(c.Request.Context(), middleware.UserID(c), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to list notifications",
		})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notificationRepo.UnreadCount(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to count notifications",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead marks one of the requester's own notifications as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("notificationId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid notification id",
		})
		return
	}

	if err := h.notificationRepo.MarkRead(c.Request.Context(), uint(id), middleware.UserID(c)); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "notification not found",
		})
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Message: "notification marked read"})
}

package handlers

import (
	"net/http"
	"strconv"

	"collab-service/internal/models"
	"collab-service/internal/realtime"
	"collab-service/internal/repositories/postgres"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userRepo   *postgres.UserRepository
	dispatcher *realtime.EventDispatcher
}

func NewUserHandler(userRepo *postgres.UserRepository, dispatcher *realtime.EventDispatcher) *UserHandler {
	return &UserHandler{userRepo: userRepo, dispatcher: dispatcher}
}

// Search finds users by partial username for the invite dialog.
func (h *UserHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "query parameter q is required",
		})
		return
	}

	users, err := h.userRepo.Search(query, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "search failed",
		})
		return
	}

	responses := make([]models.UserResponse, len(users))
	for i, u := range users {
		responses[i] = u.ToResponse()
	}
	c.JSON(http.StatusOK, responses)
}

func (h *UserHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid user id",
		})
		return
	}

	user, err := h.userRepo.FindByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "user not found",
		})
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}

// Online answers presence for one user from the in-memory registry.
func (h *UserHandler) Online(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid user id",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": uint(id), "online": h.dispatcher.IsUserOnline(uint(id))})
}

// OnlineCount reports how many users currently hold a live connection.
func (h *UserHandler) OnlineCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": h.dispatcher.OnlineCount()})
}

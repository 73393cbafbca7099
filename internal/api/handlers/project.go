package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"collab-service/internal/api/middleware"
	"collab-service/internal/models"
	"collab-service/internal/realtime"
	"collab-service/internal/repositories/postgres"

	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	projectRepo    *postgres.ProjectRepository
	membershipRepo *postgres.MembershipRepository
	userRepo       *postgres.UserRepository
	activityRepo   *postgres.ActivityRepository
	dispatcher     *realtime.EventDispatcher
}

func NewProjectHandler(
	projectRepo *postgres.ProjectRepository,
	membershipRepo *postgres.MembershipRepository,
	userRepo *postgres.UserRepository,
	activityRepo *postgres.ActivityRepository,
	dispatcher *realtime.EventDispatcher,
) *ProjectHandler {
	return &ProjectHandler{
		projectRepo:    projectRepo,
		membershipRepo: membershipRepo,
		userRepo:       userRepo,
		activityRepo:   activityRepo,
		dispatcher:     dispatcher,
	}
}

func projectIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("projectId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid project id",
		})
		return 0, false
	}
	return uint(id), true
}

// requireMember aborts unless the requester belongs to the project.
func (h *ProjectHandler) requireMember(c *gin.Context, projectID uint) bool {
	ok, err := h.membershipRepo.IsMember(c.Request.Context(), projectID, middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "membership check failed",
		})
		return false
	}
	if !ok {
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    http.StatusForbidden,
			Message: "not a project member",
		})
		return false
	}
	return true
}

// requireAdmin aborts unless the requester is a project admin.
func (h *ProjectHandler) requireAdmin(c *gin.Context, projectID uint) bool {
	role, err := h.membershipRepo.Role(c.Request.Context(), projectID, middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "membership check failed",
		})
		return false
	}
	if role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    http.StatusForbidden,
			Message: "admin role required",
		})
		return false
	}
	return true
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid input data",
		})
		return
	}

	project := &models.Project{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   middleware.UserID(c),
	}
	if err := h.projectRepo.Create(c.Request.Context(), project); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to create project",
		})
		return
	}
	c.JSON(http.StatusCreated, project.ToResponse())
}

func (h *ProjectHandler) ListMine(c *gin.Context) {
	projects, err := h.projectRepo.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to list projects",
		})
		return
	}
	responses := make([]models.ProjectResponse, len(projects))
	for i, p := range projects {
		responses[i] = p.ToResponse()
	}
	c.JSON(http.StatusOK, responses)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok || !h.requireMember(c, projectID) {
		return
	}

	project, err := h.projectRepo.FindByID(c.Request.Context(), projectID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, postgres.ErrProjectNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, models.ErrorResponse{Code: status, Message: "project not found"})
		return
	}
	c.JSON(http.StatusOK, project.ToResponse())
}

func (h *ProjectHandler) Update(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok || !h.requireAdmin(c, projectID) {
		return
	}

	var req models.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid input data",
		})
		return
	}

	project, err := h.projectRepo.FindByID(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "project not found",
		})
		return
	}
	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if err := h.projectRepo.Update(c.Request.Context(), project); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to update project",
		})
		return
	}

	// The project row is durable; a lost feed entry is not worth failing the
	// request over.
	_, _ = h.dispatcher.EmitProjectActivity(c.Request.Context(), projectID, middleware.UserID(c), "project_updated", project.Name)
	c.JSON(http.StatusOK, project.ToResponse())
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok || !h.requireAdmin(c, projectID) {
		return
	}

	if err := h.projectRepo.Delete(c.Request.Context(), projectID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to delete project",
		})
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Message: "project deleted"})
}

// Members lists project members with their live presence merged in.
func (h *ProjectHandler) Members(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok || !h.requireMember(c, projectID) {
		return
	}

	members, err := h.membershipRepo.List(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to list members",
		})
		return
	}
	for i := range members {
		members[i].Online = h.dispatcher.IsUserOnline(members[i].UserID)
	}
	c.JSON(http.StatusOK, members)
}

// AddMember invites a user into the project. The invitation notification is
// persisted and pushed through the dispatcher; the project room hears about
// the new member as activity.
func (h *ProjectHandler) AddMember(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok || !h.requireAdmin(c, projectID) {
		return
	}

	var req models.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid input data",
		})
		return
	}

	user, err := h.userRepo.FindByID(req.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "user not found",
		})
		return
	}
	project, err := h.projectRepo.FindByID(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "project not found",
		})
		return
	}

	if already, err := h.membershipRepo.IsMember(c.Request.Context(), projectID, req.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "membership check failed",
		})
		return
	} else if already {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Code:    http.StatusConflict,
			Message: "user is already a member",
		})
		return
	}

	member := &models.ProjectMember{ProjectID: projectID, UserID: req.UserID, Role: req.Role}
	if err := h.membershipRepo.Add(c.Request.Context(), member); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to add member",
		})
		return
	}

	if _, err := h.dispatcher.Notify(c.Request.Context(), req.UserID, realtime.NotificationDraft{
		Type:    models.NotificationProjectInvitation,
		Content: fmt.Sprintf("You were added to project %q", project.Name),
		LinkTo:  fmt.Sprintf("/projects/%d", projectID),
	}); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "member added but notification failed",
		})
		return
	}

	_, _ = h.dispatcher.EmitProjectActivity(c.Request.Context(), projectID, middleware.UserID(c), "member_added", user.Username)
	c.JSON(http.StatusCreated, models.SuccessResponse{Message: "member added"})
}

// RemoveMember revokes membership. The user's open connection stays up, but
// any later join_project for this project is refused by the authoritative
// directory re-check in the room router.
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok || !h.requireAdmin(c, projectID) {
		return
	}

	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid user id",
		})
		return
	}

	if err := h.membershipRepo.Remove(c.Request.Context(), projectID, uint(userID)); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to remove member",
		})
		return
	}

	if _, err := h.dispatcher.Notify(c.Request.Context(), uint(userID), realtime.NotificationDraft{
		Type:    models.NotificationMemberRemoved,
		Content: "You were removed from a project",
		LinkTo:  "/projects",
	}); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "member removed but notification failed",
		})
		return
	}

	_, _ = h.dispatcher.EmitProjectActivity(c.Request.Context(), projectID, middleware.UserID(c), "member_removed", fmt.Sprintf("user %d", userID))
	c.JSON(http.StatusOK, models.SuccessResponse{Message: "member removed"})
}

// UpdateMemberRole promotes or demotes an existing member.
func (h *ProjectHandler) UpdateMemberRole(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok || !h.requireAdmin(c, projectID) {
		return
	}

	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid user id",
		})
		return
	}

	var req models.UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid input data",
		})
		return
	}

	if err := h.membershipRepo.UpdateRole(c.Request.Context(), projectID, uint(userID), req.Role); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "member not found",
		})
		return
	}

	_, _ = h.dispatcher.EmitProjectActivity(c.Request.Context(), projectID, middleware.UserID(c), "member_role_updated", fmt.Sprintf("user %d is now %s", userID, req.Role))
	c.JSON(http.StatusOK, models.SuccessResponse{Message: "member role updated"})
}

// Activity pages through the persisted project activity feed, newest first.
func (h *ProjectHandler) Activity(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok || !h.requireMember(c, projectID) {
		return
	}
	limit, offset := pageParams(c, 50)

	entries, err := h.activityRepo.ListByProject(c.Request.Context(), projectID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to list activity",
		})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// OnlineMembers lists which project members are currently connected.
func (h *ProjectHandler) OnlineMembers(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok || !h.requireMember(c, projectID) {
		return
	}

	memberIDs, err := h.membershipRepo.MemberIDs(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to list members",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"project_id": projectID,
		"online":     h.dispatcher.OnlineProjectMembers(memberIDs),
	})
}

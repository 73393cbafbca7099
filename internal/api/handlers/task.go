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

type TaskHandler struct {
	taskRepo       *postgres.TaskRepository
	projectRepo    *postgres.ProjectRepository
	membershipRepo *postgres.MembershipRepository
	userRepo       *postgres.UserRepository
	dispatcher     *realtime.EventDispatcher
}

func NewTaskHandler(
	taskRepo *postgres.TaskRepository,
	projectRepo *postgres.ProjectRepository,
	membershipRepo *postgres.MembershipRepository,
	userRepo *postgres.UserRepository,
	dispatcher *realtime.EventDispatcher,
) *TaskHandler {
	return &TaskHandler{
		taskRepo:       taskRepo,
		projectRepo:    projectRepo,
		membershipRepo: membershipRepo,
		userRepo:       userRepo,
		dispatcher:     dispatcher,
	}
}

func (h *TaskHandler) requireMember(c *gin.Context, projectID uint) bool {
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

// loadTask fetches the task from the path param and verifies the requester
// belongs to its project.
func (h *TaskHandler) loadTask(c *gin.Context) (*models.Task, bool) {
	id, err := strconv.ParseUint(c.Param("taskId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid task id",
		})
		return nil, false
	}
	task, err := h.taskRepo.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, postgres.ErrTaskNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, models.ErrorResponse{Code: status, Message: "task not found"})
		return nil, false
	}
	if !h.requireMember(c, task.ProjectID) {
		return nil, false
	}
	return task, true
}

func (h *TaskHandler) Create(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok || !h.requireMember(c, projectID) {
		return
	}

	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid input data",
		})
		return
	}

	task := &models.Task{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		CreatorID:   middleware.UserID(c),
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if err := h.taskRepo.Create(c.Request.Context(), task, req.AssigneeIDs); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to create task",
		})
		return
	}

	h.dispatcher.EmitTaskUpdate(projectID, "created", task)
	h.notifyAssignees(c, task, req.AssigneeIDs)
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) List(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok || !h.requireMember(c, projectID) {
		return
	}

	tasks, err := h.taskRepo.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to list tasks",
		})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) Get(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Update(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	var req models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid input data",
		})
		return
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if err := h.taskRepo.Update(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to update task",
		})
		return
	}

	h.dispatcher.EmitTaskUpdate(task.ProjectID, "updated", task)
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	if err := h.taskRepo.Delete(c.Request.Context(), task.ID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to delete task",
		})
		return
	}

	h.dispatcher.EmitTaskUpdate(task.ProjectID, "deleted", gin.H{"id": task.ID, "project_id": task.ProjectID})
	c.JSON(http.StatusOK, models.SuccessResponse{Message: "task deleted"})
}

// Assign replaces the assignee set and notifies the new assignees.
func (h *TaskHandler) Assign(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	var req models.AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid input data",
		})
		return
	}

	if err := h.taskRepo.Assign(c.Request.Context(), task, req.UserIDs); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to assign task",
		})
		return
	}

	h.dispatcher.EmitTaskUpdate(task.ProjectID, "updated", task)
	h.notifyAssignees(c, task, req.UserIDs)
	c.JSON(http.StatusOK, models.SuccessResponse{Message: "task assigned"})
}

// MyTasks lists tasks assigned to the requester across all projects.
func (h *TaskHandler) MyTasks(c *gin.Context) {
	tasks, err := h.taskRepo.ListAssignedTo(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to list tasks",
		})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) CreateComment(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	var req models.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid input data",
		})
		return
	}

	userID := middleware.UserID(c)
	comment := &models.Comment{
		Content:         req.Content,
		UserID:          userID,
		TaskID:          &task.ID,
		ParentCommentID: req.ParentCommentID,
	}
	if err := h.taskRepo.CreateComment(c.Request.Context(), comment); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to create comment",
		})
		return
	}

	author, err := h.userRepo.FindByID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to load comment author",
		})
		return
	}
	response := models.CommentResponse{
		ID:              comment.ID,
		Content:         comment.Content,
		UserID:          comment.UserID,
		Username:        author.Username,
		FullName:        author.FullName,
		TaskID:          comment.TaskID,
		ParentCommentID: comment.ParentCommentID,
		CreatedAt:       comment.CreatedAt,
	}

	h.dispatcher.EmitNewComment(task.ProjectID, response)
	c.JSON(http.StatusCreated, response)
}

func (h *TaskHandler) ListComments(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	comments, err := h.taskRepo.ListComments(c.Request.Context(), task.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to list comments",
		})
		return
	}
	c.JSON(http.StatusOK, comments)
}

// CreateProjectComment posts to the project discussion thread rather than a
// task.
func (h *TaskHandler) CreateProjectComment(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok || !h.requireMember(c, projectID) {
		return
	}

	var req models.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid input data",
		})
		return
	}

	userID := middleware.UserID(c)
	comment := &models.Comment{
		Content:         req.Content,
		UserID:          userID,
		ProjectID:       &projectID,
		ParentCommentID: req.ParentCommentID,
	}
	if err := h.taskRepo.CreateComment(c.Request.Context(), comment); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to create comment",
		})
		return
	}

	author, err := h.userRepo.FindByID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to load comment author",
		})
		return
	}
	response := models.CommentResponse{
		ID:              comment.ID,
		Content:         comment.Content,
		UserID:          comment.UserID,
		Username:        author.Username,
		FullName:        author.FullName,
		ProjectID:       comment.ProjectID,
		ParentCommentID: comment.ParentCommentID,
		CreatedAt:       comment.CreatedAt,
	}

	h.dispatcher.EmitNewComment(projectID, response)
	c.JSON(http.StatusCreated, response)
}

func (h *TaskHandler) ListProjectComments(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok || !h.requireMember(c, projectID) {
		return
	}

	comments, err := h.taskRepo.ListProjectComments(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to list comments",
		})
		return
	}
	c.JSON(http.StatusOK, comments)
}

// notifyAssignees persists and pushes a TASK_ASSIGNED notification for every
// assignee other than the actor.
func (h *TaskHandler) notifyAssignees(c *gin.Context, task *models.Task, assigneeIDs []uint) {
	actorID := middleware.UserID(c)
	for _, assigneeID := range assigneeIDs {
		if assigneeID == actorID {
			continue
		}
		if _, err := h.dispatcher.Notify(c.Request.Context(), assigneeID, realtime.NotificationDraft{
			Type:    models.NotificationTaskAssigned,
			Content: fmt.Sprintf("You were assigned to task %q", task.Title),
			LinkTo:  fmt.Sprintf("/projects/%d/tasks/%d", task.ProjectID, task.ID),
		}); err != nil {
			// Task state is already durable; a lost notification is
			// recoverable from the task list itself.
			continue
		}
	}
}

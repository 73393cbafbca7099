package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"collab-service/internal/api/middleware"
	"collab-service/internal/database"
	"collab-service/internal/models"
	"collab-service/internal/repositories/postgres"

	"github.com/gin-gonic/gin"
)

const (
	maxAttachmentSize = 20 << 20 // 20 MiB
	downloadURLExpiry = 15 * time.Minute
)

type AttachmentHandler struct {
	attachmentRepo *postgres.AttachmentRepository
	taskRepo       *postgres.TaskRepository
	membershipRepo *postgres.MembershipRepository
	storage        *database.MinIOClient
}

func NewAttachmentHandler(
	attachmentRepo *postgres.AttachmentRepository,
	taskRepo *postgres.TaskRepository,
	membershipRepo *postgres.MembershipRepository,
	storage *database.MinIOClient,
) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentRepo: attachmentRepo,
		taskRepo:       taskRepo,
		membershipRepo: membershipRepo,
		storage:        storage,
	}
}

// loadTaskForMember resolves the task in the path and checks the requester
// belongs to its project.
func (h *AttachmentHandler) loadTaskForMember(c *gin.Context) (*models.Task, bool) {
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

	ok, err := h.membershipRepo.IsMember(c.Request.Context(), task.ProjectID, middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "membership check failed",
		})
		return nil, false
	}
	if !ok {
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    http.StatusForbidden,
			Message: "not a project member",
		})
		return nil, false
	}
	return task, true
}

// Upload stores the file body in object storage first, then records the
// metadata row. An orphaned object from a failed metadata write is acceptable;
// a metadata row pointing at nothing is not.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	task, ok := h.loadTaskForMember(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "file is required",
		})
		return
	}
	if file.Size > maxAttachmentSize {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
			Code:    http.StatusRequestEntityTooLarge,
			Message: "file exceeds the upload limit",
		})
		return
	}

	objectName, err := h.storage.UploadAttachment(c.Request.Context(), file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to store file",
		})
		return
	}

	attachment := &models.Attachment{
		FileName:   file.Filename,
		FilePath:   objectName,
		MimeType:   file.Header.Get("Content-Type"),
		UploaderID: middleware.UserID(c),
		TaskID:     &task.ID,
	}
	if err := h.attachmentRepo.Create(c.Request.Context(), attachment); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to save attachment",
		})
		return
	}
	c.JSON(http.StatusCreated, attachment)
}

func (h *AttachmentHandler) List(c *gin.Context) {
	task, ok := h.loadTaskForMember(c)
	if !ok {
		return
	}

	attachments, err := h.attachmentRepo.ListByTask(c.Request.Context(), task.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to list attachments",
		})
		return
	}
	c.JSON(http.StatusOK, attachments)
}

// DownloadURL returns a short-lived presigned link instead of proxying the
// file body through the API.
func (h *AttachmentHandler) DownloadURL(c *gin.Context) {
	attachment, ok := h.loadAttachmentForMember(c)
	if !ok {
		return
	}

	url, err := h.storage.PresignedURL(c.Request.Context(), attachment.FilePath, downloadURLExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to presign download",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"file_name":  attachment.FileName,
		"url":        url,
		"expires_in": int(downloadURLExpiry.Seconds()),
	})
}

func (h *AttachmentHandler) Delete(c *gin.Context) {
	attachment, ok := h.loadAttachmentForMember(c)
	if !ok {
		return
	}

	if err := h.attachmentRepo.Delete(c.Request.Context(), attachment.ID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to delete attachment",
		})
		return
	}
	// Metadata is gone; the object body is best effort from here.
	_ = h.storage.Delete(c.Request.Context(), attachment.FilePath)
	c.JSON(http.StatusOK, models.SuccessResponse{Message: "attachment deleted"})
}

func (h *AttachmentHandler) loadAttachmentForMember(c *gin.Context) (*models.Attachment, bool) {
	id, err := strconv.ParseUint(c.Param("attachmentId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid attachment id",
		})
		return nil, false
	}
	attachment, err := h.attachmentRepo.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, postgres.ErrAttachmentNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, models.ErrorResponse{Code: status, Message: "attachment not found"})
		return nil, false
	}

	if attachment.TaskID != nil {
		task, err := h.taskRepo.FindByID(c.Request.Context(), *attachment.TaskID)
		if err != nil {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "task not found",
			})
			return nil, false
		}
		ok, err := h.membershipRepo.IsMember(c.Request.Context(), task.ProjectID, middleware.UserID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "membership check failed",
			})
			return nil, false
		}
		if !ok {
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Code:    http.StatusForbidden,
				Message: "not a project member",
			})
			return nil, false
		}
	} else if attachment.UploaderID != middleware.UserID(c) {
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    http.StatusForbidden,
			Message: "not the uploader",
		})
		return nil, false
	}
	return attachment, true
}

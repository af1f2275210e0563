package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"qbank-service/internal/middleware"
	"qbank-service/internal/repository"
	"qbank-service/internal/service"
	"qbank-service/internal/utils"
)

type StudyHandler struct {
	Service *service.StudyService
}

func NewStudyHandler(s *service.StudyService) *StudyHandler {
	return &StudyHandler{Service: s}
}

type bookmarkRequest struct {
	QuestionID int64  `json:"question_id" binding:"required"`
	Subject    string `json:"subject" binding:"required"`
	Topic      string `json:"topic"`
}

func (h *StudyHandler) ToggleBookmark(c *gin.Context) {
	var req bookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid bookmark request", err.Error())
		return
	}

	action, err := h.Service.ToggleBookmark(context.Background(),
		middleware.UserID(c), req.QuestionID, req.Subject, req.Topic)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to toggle bookmark", err.Error())
		return
	}
	utils.SuccessResponse(c, "Bookmark "+action, gin.H{"action": action})
}

func (h *StudyHandler) AddBookmark(c *gin.Context) {
	var req bookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid bookmark request", err.Error())
		return
	}

	action, err := h.Service.AddBookmark(context.Background(),
		middleware.UserID(c), req.QuestionID, req.Subject, req.Topic)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to add bookmark", err.Error())
		return
	}
	utils.SuccessResponse(c, "Bookmark "+action, gin.H{"action": action})
}

func (h *StudyHandler) RemoveBookmark(c *gin.Context) {
	bookmarkID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid bookmark id", err.Error())
		return
	}

	err = h.Service.RemoveBookmark(context.Background(), middleware.UserID(c), bookmarkID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "Bookmark not found")
			return
		}
		utils.InternalErrorResponse(c, "Failed to remove bookmark", err.Error())
		return
	}
	utils.SuccessResponse(c, "Bookmark removed", nil)
}

func (h *StudyHandler) ListBookmarks(c *gin.Context) {
	h.listBookmarks(c, "")
}

func (h *StudyHandler) ListBookmarksBySubject(c *gin.Context) {
	h.listBookmarks(c, c.Param("subject"))
}

func (h *StudyHandler) listBookmarks(c *gin.Context, subject string) {
	bookmarks, err := h.Service.ListBookmarks(context.Background(), middleware.UserID(c), subject)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list bookmarks", err.Error())
		return
	}
	utils.SuccessResponse(c, "", gin.H{"bookmarks": bookmarks})
}

type noteRequest struct {
	QuestionID int64  `json:"question_id" binding:"required"`
	Subject    string `json:"subject" binding:"required"`
	NoteText   string `json:"note_text"`
}

func (h *StudyHandler) SaveNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid note request", err.Error())
		return
	}

	action, err := h.Service.SetNote(context.Background(),
		middleware.UserID(c), req.QuestionID, req.Subject, req.NoteText)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to save note", err.Error())
		return
	}
	utils.SuccessResponse(c, "Note "+action, gin.H{"action": action})
}

type completeTopicRequest struct {
	Subject string `json:"subject" binding:"required"`
	Topic   string `json:"topic" binding:"required"`
}

func (h *StudyHandler) CompleteTopic(c *gin.Context) {
	var req completeTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request", err.Error())
		return
	}

	created, err := h.Service.MarkTopicComplete(context.Background(),
		middleware.UserID(c), req.Subject, req.Topic)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to mark topic complete", err.Error())
		return
	}
	message := "Topic completed"
	if !created {
		message = "Topic already completed"
	}
	utils.SuccessResponse(c, message, gin.H{"newly_completed": created})
}

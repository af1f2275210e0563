package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"qbank-service/internal/middleware"
	"qbank-service/internal/repository"
	"qbank-service/internal/service"
	"qbank-service/internal/utils"
)

type BrowseHandler struct {
	Service *service.BrowseService
	Access  *service.AccessService
}

func NewBrowseHandler(s *service.BrowseService, access *service.AccessService) *BrowseHandler {
	return &BrowseHandler{Service: s, Access: access}
}

func (h *BrowseHandler) Home(c *gin.Context) {
	groups, err := h.Service.Home(context.Background(), middleware.UserID(c))
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load home page", err.Error())
		return
	}
	utils.SuccessResponse(c, "", gin.H{"groups": groups, "logged_in": middleware.IsLoggedIn(c)})
}

func (h *BrowseHandler) Subject(c *gin.Context) {
	subject := c.Param("subject")
	chapters, err := h.Service.ListChaptersAndTopics(context.Background(), subject,
		middleware.UserID(c), middleware.IsLoggedIn(c))
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load subject", err.Error())
		return
	}
	utils.SuccessResponse(c, "", gin.H{"subject": subject, "chapters": chapters})
}

// Topic resolves the topic's first question, after the access gate.
func (h *BrowseHandler) Topic(c *gin.Context) {
	subject := c.Param("subject")
	topic := c.Param("topic")
	if !h.passGate(c, subject, topic) {
		return
	}

	firstID, err := h.Service.FirstQuestionID(context.Background(), subject, topic)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "Topic has no questions")
			return
		}
		utils.InternalErrorResponse(c, "Failed to load topic", err.Error())
		return
	}
	utils.SuccessResponse(c, "", gin.H{
		"subject":           subject,
		"topic":             topic,
		"first_question_id": firstID,
	})
}

func (h *BrowseHandler) Question(c *gin.Context) {
	h.questionPage(c, false)
}

func (h *BrowseHandler) Answer(c *gin.Context) {
	h.questionPage(c, true)
}

func (h *BrowseHandler) questionPage(c *gin.Context, withAnswer bool) {
	subject := c.Param("subject")
	topic := c.Param("topic")
	questionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid question id", err.Error())
		return
	}
	if !h.passGate(c, subject, topic) {
		return
	}

	view, err := h.Service.ShowQuestion(context.Background(), subject, topic,
		questionID, middleware.UserID(c), withAnswer)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "Question not found")
			return
		}
		utils.InternalErrorResponse(c, "Failed to load question", err.Error())
		return
	}
	utils.SuccessResponse(c, "", view)
}

// passGate enforces the access gate: anonymous callers on gated topics
// get a signup-required response. Returns false when the request was
// rejected.
func (h *BrowseHandler) passGate(c *gin.Context, subject, topic string) bool {
	if middleware.IsLoggedIn(c) {
		return true
	}
	if !h.Access.IsTopicLoginRequired(context.Background(), subject, topic) {
		return true
	}
	c.JSON(http.StatusUnauthorized, utils.APIResponse{
		Success: false,
		Message: "Login required for this topic",
		Data:    gin.H{"signup_required": true, "subject": subject, "topic": topic},
	})
	c.Abort()
	return false
}

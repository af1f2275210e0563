package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"qbank-service/internal/middleware"
	"qbank-service/internal/models"
	"qbank-service/internal/repository"
	"qbank-service/internal/service"
	"qbank-service/internal/utils"
)

var mcqSubmissions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "qbank_mcq_submissions_total",
	Help: "Submitted MCQ test attempts",
})

type MCQHandler struct {
	Service *service.MCQService
}

func NewMCQHandler(s *service.MCQService) *MCQHandler {
	return &MCQHandler{Service: s}
}

func (h *MCQHandler) Home(c *gin.Context) {
	stats, err := h.Service.SubjectStats(context.Background())
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load MCQ home", err.Error())
		return
	}
	utils.SuccessResponse(c, "", gin.H{"subjects": stats})
}

func (h *MCQHandler) Subject(c *gin.Context) {
	page, err := h.Service.SubjectPage(context.Background(), c.Param("subject"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "No MCQ database available")
			return
		}
		utils.InternalErrorResponse(c, "Failed to load subject", err.Error())
		return
	}
	utils.SuccessResponse(c, "", page)
}

func (h *MCQHandler) Topics(c *gin.Context) {
	topics, err := h.Service.Topics(context.Background(), c.Param("subject"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "No MCQ database available")
			return
		}
		utils.InternalErrorResponse(c, "Failed to list topics", err.Error())
		return
	}
	utils.SuccessResponse(c, "", gin.H{"topics": topics})
}

func (h *MCQHandler) Practice(c *gin.Context) {
	topic := c.Param("topic")
	if topic == "" {
		topic = c.Query("topic")
	}
	questions, err := h.Service.Practice(context.Background(), c.Param("subject"), topic)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "No MCQ database available")
			return
		}
		utils.InternalErrorResponse(c, "Failed to load practice questions", err.Error())
		return
	}
	utils.SuccessResponse(c, "", gin.H{"questions": questions})
}

func (h *MCQHandler) CreateTest(c *gin.Context) {
	var req models.CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid test request", err.Error())
		return
	}

	creator := strconv.FormatInt(middleware.UserID(c), 10)
	test, err := h.Service.CreateTest(context.Background(), &req, creator)
	if err != nil {
		var insufficient *service.ErrInsufficientQuestions
		if errors.As(err, &insufficient) {
			utils.ErrorResponse(c, http.StatusConflict, insufficient.Error(), "insufficient questions")
			return
		}
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "No MCQ database available")
			return
		}
		utils.InternalErrorResponse(c, "Failed to create test", err.Error())
		return
	}
	utils.CreatedResponse(c, "Test created", test)
}

func (h *MCQHandler) TakeTest(c *gin.Context) {
	testID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid test id", err.Error())
		return
	}

	page, err := h.Service.TakeTest(context.Background(), testID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "Test not found")
			return
		}
		utils.InternalErrorResponse(c, "Failed to load test", err.Error())
		return
	}
	utils.SuccessResponse(c, "", page)
}

func (h *MCQHandler) SubmitTest(c *gin.Context) {
	testID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid test id", err.Error())
		return
	}
	var req models.SubmitTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid submission", err.Error())
		return
	}

	submission, err := h.Service.SubmitTest(context.Background(),
		middleware.UserID(c), testID, &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "Test not found")
			return
		}
		utils.InternalErrorResponse(c, "Failed to submit test", err.Error())
		return
	}
	mcqSubmissions.Inc()
	utils.SuccessResponse(c, "Test submitted", submission)
}

func (h *MCQHandler) Results(c *gin.Context) {
	results, err := h.Service.UserResults(context.Background(), middleware.UserID(c))
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load results", err.Error())
		return
	}
	utils.SuccessResponse(c, "", gin.H{"results": results})
}

func (h *MCQHandler) AddQuestion(c *gin.Context) {
	var q models.MCQQuestion
	if err := c.ShouldBindJSON(&q); err != nil {
		utils.BadRequestResponse(c, "Invalid question", err.Error())
		return
	}
	if err := h.Service.AddQuestion(context.Background(), &q); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "No MCQ database available")
			return
		}
		utils.BadRequestResponse(c, "Failed to add question", err.Error())
		return
	}
	utils.CreatedResponse(c, "Question added", q)
}

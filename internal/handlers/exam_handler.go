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
	"qbank-service/internal/repository"
	"qbank-service/internal/service"
	"qbank-service/internal/utils"
)

var examSubmissions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "qbank_exam_submissions_total",
	Help: "Submitted sequential test attempts",
})

type ExamHandler struct {
	Service *service.ExamService
}

func NewExamHandler(s *service.ExamService) *ExamHandler {
	return &ExamHandler{Service: s}
}

func (h *ExamHandler) ListTests(c *gin.Context) {
	tests, err := h.Service.ListTests(context.Background())
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list tests", err.Error())
		return
	}
	utils.SuccessResponse(c, "", gin.H{"tests": tests})
}

func (h *ExamHandler) TestQuestions(c *gin.Context) {
	testID, ok := h.testID(c)
	if !ok {
		return
	}
	groups, err := h.Service.QuestionsGrouped(context.Background(), testID)
	if err != nil {
		h.examError(c, err)
		return
	}
	utils.SuccessResponse(c, "", gin.H{"groups": groups})
}

func (h *ExamHandler) Start(c *gin.Context) {
	testID, ok := h.testID(c)
	if !ok {
		return
	}
	page, err := h.Service.Start(context.Background(), middleware.SittingID(c), testID)
	if err != nil {
		h.examError(c, err)
		return
	}
	utils.SuccessResponse(c, "Test started", page)
}

func (h *ExamHandler) Question(c *gin.Context) {
	testID, ok := h.testID(c)
	if !ok {
		return
	}
	qnum, ok := h.questionNumber(c)
	if !ok {
		return
	}

	page, err := h.Service.Question(context.Background(), middleware.SittingID(c), testID, qnum)
	if err != nil {
		h.examError(c, err)
		return
	}
	utils.SuccessResponse(c, "", page)
}

type navigateRequest struct {
	Action   string `json:"action" binding:"required"`
	Selected string `json:"selected"`
}

func (h *ExamHandler) Navigate(c *gin.Context) {
	testID, ok := h.testID(c)
	if !ok {
		return
	}
	qnum, ok := h.questionNumber(c)
	if !ok {
		return
	}
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid navigation request", err.Error())
		return
	}

	result, err := h.Service.Navigate(context.Background(),
		middleware.SittingID(c), testID, qnum, req.Action, req.Selected)
	if err != nil {
		if errors.Is(err, service.ErrNoOptionSelected) {
			// Same page, retry prompt.
			c.JSON(http.StatusOK, utils.APIResponse{
				Success: false,
				Message: err.Error(),
				Data:    gin.H{"question": qnum, "retry": true},
			})
			return
		}
		h.examError(c, err)
		return
	}
	if result.Submitted {
		examSubmissions.Inc()
	}
	utils.SuccessResponse(c, "", result)
}

func (h *ExamHandler) ToggleMark(c *gin.Context) {
	testID, ok := h.testID(c)
	if !ok {
		return
	}
	qnum, ok := h.questionNumber(c)
	if !ok {
		return
	}

	marked, err := h.Service.ToggleMark(context.Background(), middleware.SittingID(c), testID, qnum)
	if err != nil {
		h.examError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "marked": marked})
}

func (h *ExamHandler) Submit(c *gin.Context) {
	testID, ok := h.testID(c)
	if !ok {
		return
	}

	score, err := h.Service.Submit(context.Background(), middleware.SittingID(c), testID)
	if err != nil {
		h.examError(c, err)
		return
	}
	examSubmissions.Inc()
	utils.SuccessResponse(c, "Test submitted", score)
}

func (h *ExamHandler) Review(c *gin.Context) {
	testID, ok := h.testID(c)
	if !ok {
		return
	}
	filter := c.Param("filter")
	if filter == "" {
		filter = "all"
	}

	entries, correct, incorrect, err := h.Service.Review(context.Background(),
		middleware.SittingID(c), testID, filter)
	if err != nil {
		h.examError(c, err)
		return
	}
	utils.SuccessResponse(c, "", gin.H{
		"filter":          filter,
		"entries":         entries,
		"correct_count":   correct,
		"incorrect_count": incorrect,
	})
}

func (h *ExamHandler) ReviewQuestion(c *gin.Context) {
	testID, ok := h.testID(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid review index", err.Error())
		return
	}

	page, err := h.Service.ReviewQuestion(context.Background(),
		middleware.SittingID(c), testID, c.Param("filter"), index)
	if err != nil {
		h.examError(c, err)
		return
	}
	utils.SuccessResponse(c, "", page)
}

func (h *ExamHandler) testID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid test id", err.Error())
		return 0, false
	}
	return id, true
}

func (h *ExamHandler) questionNumber(c *gin.Context) (int, bool) {
	qnum, err := strconv.Atoi(c.Param("qnum"))
	if err != nil {
		utils.NotFoundResponse(c, "Question not found")
		return 0, false
	}
	return qnum, true
}

func (h *ExamHandler) examError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.NotFoundResponse(c, "Test not found")
	case errors.Is(err, service.ErrQuestionOutOfRange):
		utils.NotFoundResponse(c, "Question not found")
	case errors.Is(err, service.ErrInvalidFilter):
		utils.BadRequestResponse(c, "Unknown review filter", err.Error())
	case errors.Is(err, service.ErrNoAttempt):
		utils.NotFoundResponse(c, "No submitted attempt to review")
	default:
		utils.InternalErrorResponse(c, "Test operation failed", err.Error())
	}
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"qbank-service/internal/models"
	"qbank-service/internal/service"
	"qbank-service/internal/utils"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qbank_login_attempts_total",
		Help: "Login attempts by status",
	}, []string{"status", "kind"})

	signupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qbank_signups_total",
		Help: "Successful signups",
	})

	loginDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qbank_login_duration_seconds",
		Help:    "Login handler duration",
		Buckets: prometheus.DefBuckets,
	})
)

type AuthHandler struct {
	Service *service.AuthService
}

func NewAuthHandler(s *service.AuthService) *AuthHandler {
	return &AuthHandler{Service: s}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid signup request", err.Error())
		return
	}

	result, err := h.Service.Signup(context.Background(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			utils.ErrorResponse(c, http.StatusConflict, "Email already registered", err.Error())
			return
		}
		utils.InternalErrorResponse(c, "Signup failed", err.Error())
		return
	}

	signupsTotal.Inc()
	h.setAuthCookie(c, result.Token)
	utils.CreatedResponse(c, "Account created", result)
}

func (h *AuthHandler) Login(c *gin.Context) {
	h.login(c, "student", h.Service.Login)
}

func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, "admin", h.Service.AdminLogin)
}

func (h *AuthHandler) login(c *gin.Context, kind string, fn func(context.Context, *models.LoginRequest) (*models.LoginResult, error)) {
	timer := prometheus.NewTimer(loginDuration)
	defer timer.ObserveDuration()

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid login request", err.Error())
		return
	}

	result, err := fn(context.Background(), &req)
	if err != nil {
		loginAttempts.WithLabelValues("failure", kind).Inc()
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			utils.UnauthorizedResponse(c, "Invalid email or password")
		case errors.Is(err, service.ErrAdminLogin):
			utils.ForbiddenResponse(c, "Admin accounts must use the admin login")
		case errors.Is(err, service.ErrNotAdmin):
			utils.ForbiddenResponse(c, "Not an admin account")
		default:
			utils.InternalErrorResponse(c, "Login failed", err.Error())
		}
		return
	}

	loginAttempts.WithLabelValues("success", kind).Inc()
	h.setAuthCookie(c, result.Token)
	utils.SuccessResponse(c, "Logged in", result)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie("auth_token", "", -1, "/", "", false, true)
	utils.SuccessResponse(c, "Logged out", nil)
}

func (h *AuthHandler) setAuthCookie(c *gin.Context, token string) {
	c.SetCookie("auth_token", token, 86400, "/", "", false, true)
}

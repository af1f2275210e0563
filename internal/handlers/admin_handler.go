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

type AdminHandler struct {
	Service   *service.AdminService
	Migration *service.MigrationService
	Access    *service.AccessService
}

func NewAdminHandler(s *service.AdminService, migration *service.MigrationService, access *service.AccessService) *AdminHandler {
	return &AdminHandler{Service: s, Migration: migration, Access: access}
}

func (h *AdminHandler) Databases(c *gin.Context) {
	stats, err := h.Service.Stats(context.Background())
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load database stats", err.Error())
		return
	}
	utils.SuccessResponse(c, "", gin.H{"databases": stats})
}

type createDatabaseRequest struct {
	Category string `json:"category" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

func (h *AdminHandler) CreateDatabase(c *gin.Context) {
	var req createDatabaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request", err.Error())
		return
	}

	filename, err := h.Service.CreateDatabase(context.Background(),
		middleware.UserID(c), req.Category, req.Name)
	if err != nil {
		utils.BadRequestResponse(c, "Failed to create database", err.Error())
		return
	}
	utils.CreatedResponse(c, "Database created", gin.H{"filename": filename})
}

func (h *AdminHandler) UploadDatabase(c *gin.Context) {
	category := c.PostForm("category")
	if category == "" {
		utils.BadRequestResponse(c, "Database category is required", "")
		return
	}
	file, err := c.FormFile("database_file")
	if err != nil {
		utils.BadRequestResponse(c, "No file selected", err.Error())
		return
	}
	src, err := file.Open()
	if err != nil {
		utils.BadRequestResponse(c, "Failed to read upload", err.Error())
		return
	}
	defer src.Close()

	filename, err := h.Service.UploadDatabase(context.Background(), middleware.UserID(c),
		category, file.Filename, src)
	if err != nil {
		utils.BadRequestResponse(c, "Failed to upload database", err.Error())
		return
	}
	utils.CreatedResponse(c, "Database uploaded", gin.H{"filename": filename})
}

func (h *AdminHandler) DeleteDatabase(c *gin.Context) {
	name := c.Param("name")
	err := h.Service.DeleteDatabase(context.Background(), middleware.UserID(c), name)
	if err != nil {
		if errors.Is(err, service.ErrProtectedDatabase) {
			utils.ForbiddenResponse(c, err.Error())
			return
		}
		utils.InternalErrorResponse(c, "Failed to delete database", err.Error())
		return
	}
	utils.SuccessResponse(c, "Database deleted", nil)
}

func (h *AdminHandler) Rescan(c *gin.Context) {
	if err := h.Service.Rescan(context.Background(), middleware.UserID(c)); err != nil {
		utils.InternalErrorResponse(c, "Rescan failed", err.Error())
		return
	}
	utils.SuccessResponse(c, "Databases rescanned", nil)
}

func (h *AdminHandler) Backup(c *gin.Context) {
	dir, err := h.Service.Backup(context.Background(), middleware.UserID(c))
	if err != nil {
		utils.InternalErrorResponse(c, "Backup failed", err.Error())
		return
	}
	utils.SuccessResponse(c, "Backup complete", gin.H{"directory": dir})
}

func (h *AdminHandler) Tables(c *gin.Context) {
	tables, err := h.Service.ListTables(context.Background(), c.Param("name"))
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list tables", err.Error())
		return
	}
	utils.SuccessResponse(c, "", gin.H{"tables": tables})
}

func (h *AdminHandler) TablePage(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	result, err := h.Service.TablePage(context.Background(),
		c.Param("name"), c.Param("table"), page)
	if err != nil {
		utils.BadRequestResponse(c, "Failed to read table", err.Error())
		return
	}
	utils.SuccessResponse(c, "", result)
}

type recordRequest struct {
	Fields map[string]interface{} `json:"fields" binding:"required"`
}

func (h *AdminHandler) UpdateRecord(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("record_id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid record id", err.Error())
		return
	}
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid record request", err.Error())
		return
	}

	err = h.Service.UpdateRecord(context.Background(), middleware.UserID(c),
		c.Param("name"), c.Param("table"), id, req.Fields)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "Record not found")
			return
		}
		utils.BadRequestResponse(c, "Failed to update record", err.Error())
		return
	}
	utils.SuccessResponse(c, "Record updated", nil)
}

func (h *AdminHandler) AddRecord(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid record request", err.Error())
		return
	}

	id, err := h.Service.InsertRecord(context.Background(), middleware.UserID(c),
		c.Param("name"), c.Param("table"), req.Fields)
	if err != nil {
		utils.BadRequestResponse(c, "Failed to add record", err.Error())
		return
	}
	utils.CreatedResponse(c, "Record added", gin.H{"id": id})
}

func (h *AdminHandler) DeleteRecord(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("record_id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid record id", err.Error())
		return
	}

	err = h.Service.DeleteRecord(context.Background(), middleware.UserID(c),
		c.Param("name"), c.Param("table"), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "Record not found")
			return
		}
		utils.BadRequestResponse(c, "Failed to delete record", err.Error())
		return
	}
	utils.SuccessResponse(c, "Record deleted", nil)
}

type migrateRequest struct {
	LegacyDatabase string `json:"legacy_database" binding:"required"`
	Cascade        bool   `json:"cascade"`
}

func (h *AdminHandler) MigrateUsers(c *gin.Context) {
	var req migrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid migration request", err.Error())
		return
	}

	report, err := h.Migration.MigrateUsers(context.Background(),
		req.LegacyDatabase, req.Cascade)
	if err != nil {
		utils.InternalErrorResponse(c, "Migration failed", err.Error())
		return
	}
	utils.SuccessResponse(c, "Migration complete", report)
}

func (h *AdminHandler) DebugUsers(c *gin.Context) {
	dump, err := h.Migration.DebugUsers(context.Background(), c.Query("legacy"))
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to dump users", err.Error())
		return
	}
	utils.SuccessResponse(c, "", dump)
}

func (h *AdminHandler) SetupFreeContent(c *gin.Context) {
	if err := h.Access.SetupFreeContent(context.Background()); err != nil {
		utils.InternalErrorResponse(c, "Failed to apply free content", err.Error())
		return
	}
	utils.SuccessResponse(c, "Free content configured", nil)
}

type premiumRequest struct {
	Subject string `json:"subject" binding:"required"`
	Topic   string `json:"topic" binding:"required"`
	Premium *bool  `json:"premium" binding:"required"`
}

func (h *AdminHandler) SetPremium(c *gin.Context) {
	var req premiumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request", err.Error())
		return
	}

	err := h.Access.SetTopicPremium(context.Background(), req.Subject, req.Topic, *req.Premium)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to update premium flag", err.Error())
		return
	}
	utils.SuccessResponse(c, "Premium flag updated", nil)
}

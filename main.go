package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qbank-service/configs"
	"qbank-service/internal/db"
	"qbank-service/internal/event"
	"qbank-service/internal/handlers"
	"qbank-service/internal/logger"
	"qbank-service/internal/middleware"
	"qbank-service/internal/repository"
	"qbank-service/internal/service"
	"qbank-service/internal/utils"
)

func main() {
	cfg := configs.LoadConfig()

	log, err := logger.New(cfg.Mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	utils.SetJWTSecret(cfg.JWTSecret)
	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Centralized user store
	userDB, err := db.OpenWithSchema(filepath.Join(cfg.DataDir, cfg.UserDBFile), db.UserStoreSchema)
	if err != nil {
		log.Fatal("failed to open user database", "error", err)
	}
	defer userDB.Close()

	// Content database registry
	registry, err := db.NewRegistry(cfg.DataDir, cfg.RegistryRefresh, log)
	if err != nil {
		log.Fatal("failed to scan databases", "error", err)
	}
	defer registry.Close()

	// RabbitMQ event publisher
	var publisher *event.EventPublisher
	if cfg.RabbitURL != "" && cfg.EventExchange != "" {
		publisher, err = event.NewEventPublisher(cfg.RabbitURL, cfg.EventExchange, log)
		if err != nil {
			log.Fatal("failed to connect to RabbitMQ", "error", err)
		}
		defer publisher.Close()
	} else {
		log.Info("RabbitMQ not configured, events will not be published")
	}

	// Repositories
	userRepo := repository.NewUserRepository(userDB)
	qbankRepo := repository.NewQbankRepository(registry, cfg.DefaultQbankDB)
	studyRepo := repository.NewStudyRepository(userDB)
	mcqRepo := repository.NewMCQRepository(registry)
	resultRepo := repository.NewResultRepository(userDB)
	examRepo := repository.NewExamRepository(registry, userDB)
	adminRepo := repository.NewAdminRepository(registry, userDB)

	// Services
	authService := service.NewAuthService(userRepo, log)
	accessService := service.NewAccessService(qbankRepo, log)
	browseService := service.NewBrowseService(qbankRepo, studyRepo, accessService, log)
	studyService := service.NewStudyService(studyRepo, qbankRepo, log)
	mcqService := service.NewMCQService(mcqRepo, resultRepo, log)
	examService := service.NewExamService(examRepo, log)
	migrationService := service.NewMigrationService(registry, userDB, adminRepo, log)
	adminService := service.NewAdminService(registry, adminRepo, cfg.UserDBFile, cfg.BackupDir, log)

	if err := authService.SeedAdmin(context.Background(), "admin", cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Warn("failed to seed admin account", "error", err)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	browseHandler := handlers.NewBrowseHandler(browseService, accessService)
	studyHandler := handlers.NewStudyHandler(studyService)
	mcqHandler := handlers.NewMCQHandler(mcqService)
	examHandler := handlers.NewExamHandler(examService)
	adminHandler := handlers.NewAdminHandler(adminService, migrationService, accessService)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.Identify())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/signup", func(c *gin.Context) {
			authHandler.Signup(c)
			if publisher != nil {
				publisher.Publish("user.signup", gin.H{"timestamp": time.Now()})
			}
		})
		auth.POST("/login", func(c *gin.Context) {
			authHandler.Login(c)
			if publisher != nil {
				publisher.Publish("user.login", gin.H{"timestamp": time.Now()})
			}
		})
		auth.POST("/admin/login", authHandler.AdminLogin)
		auth.POST("/logout", authHandler.Logout)
	}

	// Browsing: gate checks run inside the handlers, so these routes stay
	// open to anonymous callers.
	api.GET("/home", browseHandler.Home)
	api.GET("/subjects/:subject", browseHandler.Subject)
	api.GET("/subjects/:subject/topics/:topic", browseHandler.Topic)
	api.GET("/subjects/:subject/topics/:topic/questions/:id", browseHandler.Question)
	api.GET("/subjects/:subject/topics/:topic/answers/:id", browseHandler.Answer)

	user := api.Group("/user")
	user.Use(middleware.RequireAuth())
	{
		user.POST("/bookmarks/toggle", studyHandler.ToggleBookmark)
		user.POST("/bookmarks", studyHandler.AddBookmark)
		user.DELETE("/bookmarks/:id", studyHandler.RemoveBookmark)
		user.GET("/bookmarks", studyHandler.ListBookmarks)
		user.GET("/bookmarks/subject/:subject", studyHandler.ListBookmarksBySubject)
		user.POST("/notes", studyHandler.SaveNote)
		user.POST("/topics/complete", func(c *gin.Context) {
			studyHandler.CompleteTopic(c)
			if publisher != nil {
				publisher.Publish("topic.completed", gin.H{
					"user_id":   middleware.UserID(c),
					"timestamp": time.Now(),
				})
			}
		})
	}

	mcq := api.Group("/mcq")
	{
		mcq.GET("/home", mcqHandler.Home)
		mcq.GET("/subjects/:subject", mcqHandler.Subject)
		mcq.GET("/subjects/:subject/topics", mcqHandler.Topics)

		mcqAuth := mcq.Group("")
		mcqAuth.Use(middleware.RequireAuth())
		{
			mcqAuth.GET("/practice/:subject", mcqHandler.Practice)
			mcqAuth.GET("/practice/:subject/topics/:topic", mcqHandler.Practice)
			mcqAuth.GET("/tests/:id", mcqHandler.TakeTest)
			mcqAuth.POST("/tests", func(c *gin.Context) {
				mcqHandler.CreateTest(c)
				if publisher != nil {
					publisher.Publish("mcq.test.created", gin.H{
						"user_id":   middleware.UserID(c),
						"timestamp": time.Now(),
					})
				}
			})
			mcqAuth.POST("/tests/:id/submit", func(c *gin.Context) {
				mcqHandler.SubmitTest(c)
				if publisher != nil {
					publisher.Publish("mcq.test.submitted", gin.H{
						"user_id":   middleware.UserID(c),
						"test_id":   c.Param("id"),
						"timestamp": time.Now(),
					})
				}
			})
			mcqAuth.GET("/results", mcqHandler.Results)
		}

		mcq.POST("/questions", middleware.RequireAdmin(), mcqHandler.AddQuestion)
	}

	tests := api.Group("/tests")
	{
		tests.GET("", examHandler.ListTests)
		tests.GET("/:id/questions", examHandler.TestQuestions)
		tests.POST("/:id/start", examHandler.Start)
		tests.GET("/:id/questions/:qnum", examHandler.Question)
		tests.POST("/:id/questions/:qnum", examHandler.Navigate)
		tests.POST("/:id/questions/:qnum/mark", examHandler.ToggleMark)
		tests.POST("/:id/submit", func(c *gin.Context) {
			examHandler.Submit(c)
			if publisher != nil {
				publisher.Publish("exam.submitted", gin.H{
					"test_id":   c.Param("id"),
					"timestamp": time.Now(),
				})
			}
		})
		tests.GET("/:id/review", examHandler.Review)
		tests.GET("/:id/review/:filter", examHandler.Review)
		tests.GET("/:id/review/:filter/:index", examHandler.ReviewQuestion)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAuth(), middleware.RequireAdmin())
	{
		admin.GET("/databases", adminHandler.Databases)
		admin.POST("/databases", adminHandler.CreateDatabase)
		admin.POST("/databases/upload", adminHandler.UploadDatabase)
		admin.DELETE("/databases/:name", adminHandler.DeleteDatabase)
		admin.POST("/rescan", adminHandler.Rescan)
		admin.POST("/backup", adminHandler.Backup)
		admin.GET("/databases/:name/tables", adminHandler.Tables)
		admin.GET("/databases/:name/tables/:table", adminHandler.TablePage)
		admin.PUT("/databases/:name/tables/:table/records/:record_id", adminHandler.UpdateRecord)
		admin.POST("/databases/:name/tables/:table/records", adminHandler.AddRecord)
		admin.DELETE("/databases/:name/tables/:table/records/:record_id", adminHandler.DeleteRecord)
		admin.POST("/migrate/users", func(c *gin.Context) {
			adminHandler.MigrateUsers(c)
			if publisher != nil {
				publisher.Publish("db.migrated", gin.H{"timestamp": time.Now()})
			}
		})
		admin.GET("/debug/users", adminHandler.DebugUsers)
		admin.POST("/content/setup-free", adminHandler.SetupFreeContent)
		admin.POST("/content/premium", adminHandler.SetPremium)
	}

	log.Info("starting server", "port", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatal("server exited", "error", err)
	}
}

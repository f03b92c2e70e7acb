package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kb-portal/cache"
	"kb-portal/config"
	"kb-portal/events"
	"kb-portal/handlers"
	"kb-portal/helper"
	"kb-portal/middleware"
	"kb-portal/repositories"
	"kb-portal/scheduler"
	"kb-portal/services"
	"kb-portal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fatal("load config", err)
	}
	gin.SetMode(cfg.Server.Mode)
	loc := cfg.Location()

	// Initialize database
	db, err := config.OpenDB(cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		fatal("open database", err)
	}
	if err := config.Migrate(db); err != nil {
		fatal("migrate database", err)
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		fatal("open storage", err)
	}

	var guard cache.ViewGuard = cache.NoopGuard{}
	rdb, err := cache.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, view dedupe uses the database only", "error", err)
	} else if rdb != nil {
		guard = cache.NewRedisViewGuard(rdb)
		defer rdb.Close()
	}

	publisher := events.NewPublisher(cfg.Kafka)
	defer publisher.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrgUnitRepository(db)
	categoryRepo := repositories.NewCategoryRepository(db)
	articleRepo := repositories.NewArticleRepository(db)
	galleryRepo := repositories.NewGalleryRepository(db)
	ratingRepo := repositories.NewRatingRepository(db)
	viewRepo := repositories.NewViewRepository(db)
	releaseRepo := repositories.NewBlobReleaseRepository(db)

	// Initialize services
	releaser := services.NewBlobReleaser(store, releaseRepo, publisher)
	authService := services.NewAuthService(userRepo, cfg.JWT, nil)
	userService := services.NewUserService(userRepo, orgRepo)
	orgService := services.NewOrgService(orgRepo)
	categoryService := services.NewCategoryService(categoryRepo, nil)
	viewService := services.NewViewService(viewRepo, guard, publisher, loc, nil)
	articleService := services.NewArticleService(articleRepo, categoryRepo, orgRepo, viewService, releaser, publisher, nil)
	ratingService := services.NewRatingService(articleRepo, ratingRepo, publisher, nil)
	galleryService := services.NewGalleryService(galleryRepo, articleRepo, store, releaser, publisher, cfg.Gallery, nil)
	dashboardService := services.NewDashboardService(articleRepo, categoryRepo, userRepo, nil)
	attachmentService := services.NewAttachmentService(articleRepo, store, releaser, publisher, nil)

	sched := scheduler.NewScheduler(galleryService, releaser, cfg.Gallery, loc)
	if err := sched.Start(); err != nil {
		fatal("start scheduler", err)
	}
	defer sched.Stop()

	// Initialize handlers
	h := helper.NewHTTPHelper()
	routes := handlers.Handlers{
		Auth:       handlers.NewAuthHandler(authService, h),
		Article:    handlers.NewArticleHandler(articleService, ratingService, h),
		Attachment: handlers.NewAttachmentHandler(attachmentService, h),
		Category:   handlers.NewCategoryHandler(categoryService, h),
		OrgUnit:    handlers.NewOrgUnitHandler(orgService, h),
		User:       handlers.NewUserHandler(userService, h),
		Gallery:    handlers.NewGalleryHandler(galleryService, cfg.Gallery.MaxUploadSize, h),
		Dashboard:  handlers.NewDashboardHandler(dashboardService, h),
	}

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS())
	router.MaxMultipartMemory = 8 << 20
	if cfg.Storage.Driver == "local" || cfg.Storage.Driver == "" {
		router.Static(cfg.Storage.Local.BaseURL, cfg.Storage.Local.Root)
	}
	handlers.RegisterRoutes(router, routes, authService)

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("listen", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	slog.Info("Server stopped")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

package server

import (
	"log"
	"strings"
	"time"

	"github.com/contactkeeper/backend/internal/config"
	"github.com/contactkeeper/backend/internal/handler"
	"github.com/contactkeeper/backend/internal/middleware"
	"github.com/contactkeeper/backend/internal/model"
	"github.com/contactkeeper/backend/internal/repository"
	"github.com/contactkeeper/backend/internal/service"
	"github.com/contactkeeper/backend/pkg/cache"
	"github.com/contactkeeper/backend/pkg/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// accountCooldown throttles the account endpoints to one request per user
// per window.
const accountCooldown = 20 * time.Second

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	contactRepo := repository.NewContactRepository(db)

	imageStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		log.Fatalf("failed to initialize cloudinary storage: %v", err)
	}

	tokenSvc, err := service.NewTokenService(cfg.JWTSecret, cfg.JWTAlgorithm)
	if err != nil {
		log.Fatalf("failed to initialize token service: %v", err)
	}

	var indexer service.ContactIndexer
	if cfg.MeiliSearchHost != "" {
		meiliHost := cfg.MeiliSearchHost
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		indexer = service.NewMeiliContactIndexer(meiliClient)
	}

	userCache := cache.NewRedisUserCache(redisClient, cache.DefaultUserTTL)
	mailer := service.NewSMTPMailer(cfg)

	authSvc := service.NewAuthService(userRepo, roleRepo, tokenSvc, userCache, mailer, imageStorage)
	contactSvc := service.NewContactService(contactRepo, indexer)
	adminSvc := service.NewAdminService(roleRepo, contactSvc)

	authHandler := handler.NewAuthHandler(authSvc)
	contactHandler := handler.NewContactHandler(contactSvc)
	adminHandler := handler.NewAdminHandler(adminSvc)
	healthHandler := handler.NewHealthHandler(db)

	router := gin.New()

	setupCORS(router, cfg)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(authSvc)
	rateLimit := middleware.NewRateLimitMiddleware(service.NewRateLimiter(redisClient))

	router.GET("/", healthHandler.Index)

	api := router.Group("/api")
	api.GET("/healthchecker", healthHandler.Check)

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/token", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/confirmed_email/:token", authHandler.ConfirmEmail)
		auth.POST("/request_email", authHandler.RequestEmail)
	}

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/auth/me", rateLimit.Limit("me", accountCooldown), authHandler.Me)
		protected.PATCH("/auth/avatar", rateLimit.Limit("avatar", accountCooldown), authHandler.UpdateAvatar)

		contacts := protected.Group("/contacts")
		contacts.Use(authMiddleware.RequireRoles(model.RoleUser, model.RoleAdmin, model.RoleModerator))
		{
			contacts.GET("", contactHandler.List)
			contacts.POST("", contactHandler.Create)
			contacts.GET("/birthdays", contactHandler.UpcomingBirthdays)
			contacts.GET("/search", contactHandler.Search)
			contacts.GET("/:id", contactHandler.Get)
			contacts.PUT("/:id", contactHandler.Update)
			contacts.DELETE("/:id", contactHandler.Delete)
		}

		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireRoles(model.RoleAdmin))
		{
			adminGroup.POST("/roles", adminHandler.CreateRole)
			adminGroup.GET("/roles", adminHandler.ListRoles)
			adminGroup.GET("/contacts", adminHandler.ListAllContacts)
			adminGroup.GET("/contacts/birthdays", adminHandler.AllUpcomingBirthdays)
			adminGroup.GET("/contacts/search", adminHandler.SearchAllContacts)
		}
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, cfg *config.Config) {
	var origins []string
	if cfg.AllowedOrigins != "" {
		origins = strings.Split(cfg.AllowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"converse-service/internal/config"
	"converse-service/internal/db"
	"converse-service/internal/genai"
	"converse-service/internal/handlers"
	"converse-service/internal/identity"
	"converse-service/internal/middleware"
	"converse-service/internal/observability"
	"converse-service/internal/rabbitmq"
	"converse-service/internal/repositories"
	"converse-service/internal/telemetry"
)

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer(context.Background(), "converse-service", cfg.OTLPEndpoint)
		if err != nil {
			log.Printf("tracing disabled: %v", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	identityClient := identity.NewClient(cfg.IdentityBaseURL, cfg.IdentityAPIKey)
	genaiClient := genai.NewClient(cfg.GenAIBaseURL, cfg.GenAIAPIKey, cfg.GenAIChatModel, cfg.GenAIImageModel)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, "audit.converse", "converse-service", cfg.Environment)

	convRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	userHandler := handlers.NewUserHandler(identityClient)
	convHandler := handlers.NewConversationHandler(convRepo, messageRepo)
	groupHandler := handlers.NewGroupHandler(convRepo, audit)
	aiHandler := handlers.NewAIHandler(genaiClient, audit)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(otelgin.Middleware("converse-service"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(identityClient)
	aiLimiter := middleware.NewRateLimiter(cfg.AIRequestsPerMinute)

	router.GET("/api/users/search", authMiddleware, userHandler.Search)

	router.GET("/api/conversations", authMiddleware, convHandler.List)
	router.POST("/api/conversations/direct", authMiddleware, convHandler.StartDirect)
	router.GET("/api/conversations/candidates", authMiddleware, convHandler.Candidates)
	router.GET("/api/conversations/:conversation_id/messages", authMiddleware, convHandler.GetMessages)
	router.POST("/api/conversations/:conversation_id/messages", authMiddleware, convHandler.PostMessage)
	router.POST("/api/conversations/:conversation_id/messages/:message_id/reactions", authMiddleware, convHandler.ToggleReaction)

	router.POST("/api/groups", authMiddleware, groupHandler.Create)
	router.GET("/api/groups/:group_id/members", authMiddleware, groupHandler.ListMembers)
	router.GET("/api/groups/:group_id/candidates", authMiddleware, groupHandler.Candidates)
	router.POST("/api/groups/:group_id/members", authMiddleware, groupHandler.AddMembers)
	router.DELETE("/api/groups/:group_id/members/:user_id", authMiddleware, groupHandler.RemoveMember)

	router.POST("/api/ai/reply", authMiddleware, aiLimiter.Middleware(), aiHandler.Reply)
	router.POST("/api/ai/summary", authMiddleware, aiLimiter.Middleware(), aiHandler.Summarize)
	router.POST("/api/ai/image", authMiddleware, aiLimiter.Middleware(), aiHandler.Image)

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// Package main is the entry point for the civic complaint backend. It
// provides a REST API for citizens to report civic issues (potholes,
// garbage, utility failures), for authorities to track, assign, and
// resolve them, plus a public read-only view and a conversational query
// assistant.
//
// Architecture:
//   - Complaint records live in MongoDB; users and the audit trail in
//     PostgreSQL
//   - All lifecycle decisions (state machine, role capabilities) live in
//     the services layer; handlers only translate HTTP
//   - Lifecycle events are published to RabbitMQ for downstream consumers
//   - Redis caps per-user complaint submissions
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nagarseva/civic-server/internal/config"
	"github.com/nagarseva/civic-server/internal/database"
	"github.com/nagarseva/civic-server/internal/handlers"
	"github.com/nagarseva/civic-server/internal/middleware"
	"github.com/nagarseva/civic-server/internal/queue"
	"github.com/nagarseva/civic-server/internal/services"
	"github.com/nagarseva/civic-server/internal/store"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	sugar.Infow("Starting civic complaint server",
		"port", cfg.Port,
		"env", cfg.Environment,
	)

	// PostgreSQL: users and audit trail
	db, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(context.Background(), db); err != nil {
		sugar.Fatalf("Failed to ensure schema: %v", err)
	}

	// MongoDB: complaint records. Without a URI the server falls back to
	// the in-memory store for local development.
	var complaints store.ComplaintStore
	var complaintsPing handlers.Pinger
	if cfg.MongoURI != "" {
		mongoDB, err := database.ConnectMongo(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			sugar.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		complaints = store.NewMongoStore(mongoDB)
		complaintsPing = database.NewMongoPinger(mongoDB)
	} else {
		sugar.Warn("MONGO_URI not set, using in-memory complaint store")
		complaints = store.NewMemoryStore()
	}

	// Redis: complaint-creation rate limiting (optional)
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			sugar.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
	} else {
		sugar.Warn("REDIS_URL not set, complaint rate limiting disabled")
	}

	// RabbitMQ: lifecycle events (optional)
	var events queue.Publisher = queue.NopPublisher{}
	if cfg.AMQPURL != "" {
		conn, ch, err := queue.Connect(cfg.AMQPURL)
		if err != nil {
			sugar.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer conn.Close()
		defer ch.Close()

		events, err = queue.NewAMQPPublisher(ch, cfg.EventQueue)
		if err != nil {
			sugar.Fatalf("Failed to set up event publisher: %v", err)
		}
		sugar.Infow("Event publishing enabled", "queue", cfg.EventQueue)
	}

	// Initialize services
	identitySvc := services.NewIdentityService(db, cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour, sugar)
	auditSvc := services.NewAuditService(db, sugar)
	lifecycleSvc := services.NewLifecycleService(complaints, identitySvc, sugar)
	chatbotSvc := services.NewChatbotService(complaints, sugar)
	integritySvc := services.NewIntegrityService(sugar)

	// Background worker keeping the audit integrity root fresh
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	worker := services.NewIntegrityWorker(integritySvc, auditSvc, sugar)
	go worker.Start(workerCtx, time.Duration(cfg.IntegrityRebuildMinutes)*time.Minute)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(identitySvc, sugar)
	complaintHandler := handlers.NewComplaintHandler(lifecycleSvc, auditSvc, events, sugar)
	chatbotHandler := handlers.NewChatbotHandler(chatbotSvc, sugar)
	integrityHandler := handlers.NewIntegrityHandler(integritySvc, sugar)
	healthHandler := handlers.NewHealthHandler(db, complaintsPing, sugar)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Check)
		r.Get("/health/ready", healthHandler.Ready)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Route("/complaints", func(r chi.Router) {
			// Public read-only view
			r.Get("/public", complaintHandler.Public)
			r.Get("/public/stats", complaintHandler.PublicStats)

			// Authenticated
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireActor(identitySvc))
				r.With(middleware.RateLimitPerActor(rdb, cfg.ComplaintsPerDay, 24*time.Hour, sugar)).
					Post("/", complaintHandler.Create)
				r.Get("/mine", complaintHandler.Mine)
				r.Get("/{id}", complaintHandler.Get)
			})
		})

		// Authority/admin surface
		r.Route("/admin/complaints", func(r chi.Router) {
			r.Use(middleware.RequireActor(identitySvc))
			r.Get("/", complaintHandler.ListAdmin)
			r.Patch("/{id}/status", complaintHandler.UpdateStatus)
			r.Patch("/{id}/assign", complaintHandler.Assign)
			r.Post("/{id}/comment", complaintHandler.Comment)
			r.Get("/{id}/audit", complaintHandler.AuditTrail)
		})

		// Audit trail tamper-evidence: root and proofs are public
		r.Route("/integrity", func(r chi.Router) {
			r.Get("/root", integrityHandler.Root)
			r.Get("/proof/{index}", integrityHandler.Proof)
			r.Post("/verify", integrityHandler.Verify)
		})

		// Chatbot: public, personalized when a token is present
		r.With(middleware.AttachActor(identitySvc)).
			Post("/chatbot/query", chatbotHandler.Query)
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		sugar.Fatalf("Forced shutdown: %v", err)
	}

	sugar.Info("Server stopped")
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classledger/internal/attendance"
	"classledger/internal/classroom"
	"classledger/internal/config"
	"classledger/internal/httpapi"
	"classledger/internal/httpmiddleware"
	"classledger/internal/identity"
	"classledger/internal/material"
	"classledger/internal/queue"
	"classledger/internal/store"
	"classledger/internal/verifier"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "classledger:notifications")
	}

	local := verifier.NewLocal(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
	var v verifier.Verifier = local
	if cfg.VerifierMode == "remote" {
		remote := verifier.NewRemote(cfg.VerifierURL, cfg.VerifierSkip)
		if err := remote.Health(context.Background()); err != nil {
			log.Printf("warning: identity service not reachable: %v", err)
		}
		v = remote
	}

	userRepo := identity.NewRepository(db.Client)
	ids := identity.NewService(userRepo, q, cfg.AdminMatch)

	classRepo := classroom.NewRepository(db.Client)
	ledger := attendance.NewRepository(db.Client)
	att := attendance.NewService(ledger, classRepo, cfg.AttendanceEditGraceDays)

	materialRepo := material.NewRepository(db.Client)
	var blobs *material.BlobStore
	if cfg.BlobStoreName != "" && cfg.BlobStoreKey != "" && cfg.BlobStoreSecret != "" {
		blobs = material.NewBlobStore(cfg.BlobStoreName, cfg.BlobStoreKey, cfg.BlobStoreSecret, cfg.BlobStoreFolder)
		log.Println("blob store configured:", cfg.BlobStoreName)
	} else {
		log.Println("blob store not configured (BLOBSTORE_NAME / API_KEY / API_SECRET not set)")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.Metrics())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	// Dev-only credential mint so the whole flow can be exercised without
	// an external identity provider.
	if cfg.VerifierMode == "local" && cfg.Env != "production" && cfg.Env != "prod" {
		r.POST("/v1/auth/dev-token", func(c *gin.Context) {
			var req struct {
				SubjectID   string `json:"subject_id" binding:"required"`
				Email       string `json:"email" binding:"required,email"`
				DisplayName string `json:"display_name"`
				Role        string `json:"role"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			token, exp, err := local.Issue(verifier.Identity{
				SubjectID:   req.SubjectID,
				Email:       req.Email,
				DisplayName: req.DisplayName,
				Role:        req.Role,
			})
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
				return
			}
			c.JSON(http.StatusCreated, gin.H{"access_token": token, "expires_at": exp.Unix()})
		})
	}

	h := httpapi.New(v, ids, att, classRepo, materialRepo, blobs)
	h.Routes(r)

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

/**
 * @description
 * This is the main entry point for the kyc-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, the dossier renderer, the SMTP mailer, the AI summary client, the
 * job dispatcher with its RabbitMQ workers, repositories, the core application
 * service, and the HTTP server. It wires everything together and starts the
 * service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/joho/godotenv: Optional .env loading for local development.
 * - github.com/redis/go-redis/v9: Registration rate limiting backend.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - internal/mailer, internal/pdf: Outcome notifications and dossier rendering.
 * - pkg/llmclient: Client for the AI summary providers.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/onboardhq/kyc-service/internal/api"
	"github.com/onboardhq/kyc-service/internal/app"
	"github.com/onboardhq/kyc-service/internal/config"
	"github.com/onboardhq/kyc-service/internal/mailer"
	"github.com/onboardhq/kyc-service/internal/pdf"
	"github.com/onboardhq/kyc-service/internal/store"
	"github.com/onboardhq/kyc-service/pkg/llmclient"
)

func main() {
	// Load a local .env if present before viper reads the environment.
	if err := godotenv.Load(); err == nil {
		log.Println("level=info component=bootstrap msg=\".env file loaded\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url must be configured\" env=DATABASE_URL")
	}

	log.Printf("level=info component=bootstrap msg=\"starting kyc-service\" port=%s broker_enabled=%t", cfg.ServerPort, cfg.EnableRabbitMQ)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	repository := store.NewPostgresRepository(dbpool)

	// The mailer stays nil when SMTP is not configured; every mail path then
	// fails with ErrSMTPNotConfigured instead of dialing a dead host.
	var outcomeMailer app.OutcomeMailer
	if cfg.SMTPConfigured() {
		outcomeMailer = mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.FromEmail, cfg.PDFStoragePath)
		log.Printf("level=info component=bootstrap msg=\"smtp mailer configured\" host=%s port=%d", cfg.SMTPHost, cfg.SMTPPort)
	} else {
		log.Println("level=warn component=bootstrap msg=\"smtp not configured; outcome emails disabled\"")
	}

	renderer := pdf.NewRenderer()
	summaries := llmclient.NewClient(cfg.SummaryProvider, cfg.HFAPIKey, cfg.OllamaURL)

	dispatcher := app.NewDispatcher(repository, renderer, outcomeMailer, cfg.PDFStoragePath, cfg.RabbitMQURL, cfg.EnableRabbitMQ)
	defer dispatcher.Close()

	// Worker startup failure is not fatal: the dispatcher flips to degraded
	// mode and every subsequent job runs inline at its call site.
	if cfg.EnableRabbitMQ {
		if err := dispatcher.StartWorkers(); err != nil {
			log.Printf("level=warn component=bootstrap msg=\"rabbitmq workers unavailable; running degraded\" err=%v", err)
		} else {
			log.Println("level=info component=bootstrap msg=\"rabbitmq workers started\"")
		}
	}

	var redisClient *redis.Client
	if cfg.RegistrationRateLimitPerMinute > 0 {
		if cfg.RedisURL == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; registration rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; registration rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; registration rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	var limiter *app.RedisRegistrationRateLimiter
	if redisClient != nil {
		limiter = app.NewRedisRegistrationRateLimiter(redisClient, "", time.Minute)
	}

	service := app.NewService(repository, dispatcher, summaries, cfg.MaxCustomers)
	authService := app.NewAuthService(repository, cfg.JWTSecret, cfg.AdminEmailDomain)

	handlers := api.NewHandlers(service, authService, limiter, cfg.RegistrationRateLimitPerMinute, cfg.MaxCustomers, cfg.PDFStoragePath)
	router := api.NewRouter(handlers, []byte(cfg.JWTSecret))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}

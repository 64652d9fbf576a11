package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillbridge/console/internal/auth"
	"github.com/skillbridge/console/internal/crypto"
	"github.com/skillbridge/console/internal/handler"
	"github.com/skillbridge/console/internal/infra"
	"github.com/skillbridge/console/internal/provider"
	"github.com/skillbridge/console/internal/repository"
	"github.com/skillbridge/console/internal/service"
	"github.com/skillbridge/console/internal/telemetry"
)

// dispatchQueueDepth bounds in-flight notification work.
const dispatchQueueDepth = 256

// Deps holds everything NewRouter needs to assemble the console.
type Deps struct {
	Cfg    *infra.Config
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// App is the assembled console with handles to the pieces main must shut down.
type App struct {
	Router chi.Router
	Hub    *infra.Hub
	Queue  *telemetry.DispatchQueue
	Kafka  *infra.KafkaProducer
}

// New assembles repositories, services, handlers, and routes.
func New(deps Deps) *App {
	cfg := deps.Cfg
	pool := deps.Pool
	logger := deps.Logger

	cookieMaxAge, err := time.ParseDuration(cfg.CookieMaxAge)
	if err != nil {
		cookieMaxAge = 24 * time.Hour
	}

	// Repositories
	profileRepo := repository.NewPgProfileRepository()
	sessionRepo := repository.NewPgSessionRepository()
	auditRepo := repository.NewPgAuditRepository()
	settingsRepo := repository.NewPgSettingsRepository()
	chatRepo := repository.NewPgChatRepository()

	// Infra
	hub := infra.NewHub(logger)
	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	queue := telemetry.NewDispatchQueue(dispatchQueueDepth, logger)

	// External providers
	geoClient := provider.NewGeoIPClient(cfg.GeoBaseURL, logger)
	mailer := provider.NewResendMailer(cfg.MailAPIKey, cfg.MailBaseURL, cfg.MailFrom, logger)
	pinger := provider.NewPinger(cfg.PulseTargets, func(ctx context.Context) error {
		_, err := settingsRepo.Get(ctx, pool)
		return err
	}, logger)

	// Core
	cookies := auth.NewCookieSigner(cfg.CookieSecret, cookieMaxAge)
	authority := auth.NewAuthority(pool, profileRepo, sessionRepo, auditRepo, cookies, cfg.AdminEmail, cfg.Subdomain, logger)
	collector := telemetry.NewCollector(telemetry.CollectorDeps{
		DB:        pool,
		Audits:    auditRepo,
		Settings:  settingsRepo,
		Geo:       geoClient,
		Mailer:    mailer,
		Publisher: producer,
		Hub:       hub,
		Queue:     queue,
		Subdomain: cfg.Subdomain,
		Logger:    logger,
	})

	// Services
	securitySvc := service.NewSecurityService(pool, auditRepo, settingsRepo, authority, hub, logger)
	chatSvc := service.NewChatService(pool, chatRepo, crypto.RoomKeyDeriver{}, hub, logger)

	// Handlers
	authHandler := handler.NewAuthHandler(authority)
	eventsHandler := handler.NewEventsHandler(collector)
	geoHandler := handler.NewGeoHandler(geoClient)
	securityHandler := handler.NewSecurityHandler(securitySvc)
	chatHandler := handler.NewChatHandler(chatSvc)
	streamHandler := handler.NewStreamHandler(hub)
	pulseHandler := handler.NewPulseHandler(pinger)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS(cfg.CORSAllowedOrigins))
	r.Use(auth.Gate(cookies))

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(pool))

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Use(handler.JSONContentType)
		r.Post("/login", authHandler.Login)
		r.Post("/revalidate", authHandler.Revalidate)
		r.Post("/path", authHandler.CheckPath)
		r.Post("/logout", authHandler.Logout)
	})

	// Telemetry ingest (public: anonymous visitors are the signal)
	r.With(handler.JSONContentType).Post("/events", eventsHandler.Ingest)

	// Same-origin geolocation proxy (public)
	r.With(handler.JSONContentType).Get("/api/geo", geoHandler.Lookup)

	// Gated console API
	r.Route("/api/security", func(r chi.Router) {
		r.Use(handler.JSONContentType)
		r.Get("/events", securityHandler.ListEvents)
		r.Post("/events/{id}/resolve", securityHandler.ResolveEvent)
		r.Post("/blacklist", securityHandler.BlacklistIP)
		r.Post("/whitelist", securityHandler.WhitelistIP)
		r.Post("/countries", securityHandler.BlockCountry)
		r.Get("/settings", securityHandler.GetSettings)
		r.Patch("/settings", securityHandler.UpdateToggles)
		r.Post("/rotate-slug", securityHandler.RotateSlug)
	})

	r.Route("/api/chat", func(r chi.Router) {
		r.Use(handler.JSONContentType)
		r.Get("/rooms", chatHandler.ListRooms)
		r.Get("/rooms/{roomID}/messages", chatHandler.ListMessages)
		r.Post("/rooms/{roomID}/messages", chatHandler.SendMessage)
	})

	// Realtime feed (SSE, no JSON content-type)
	r.Get("/api/stream", streamHandler.Subscribe)

	// Operational keep-alive
	r.With(handler.JSONContentType).Get("/ops/pulse", pulseHandler.Run)

	return &App{
		Router: r,
		Hub:    hub,
		Queue:  queue,
		Kafka:  producer,
	}
}

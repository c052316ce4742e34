package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/redis/go-redis/v9"
	"google.golang.org/genai"

	"github.com/arashthr/markcentral/internal/auth"
	"github.com/arashthr/markcentral/internal/backup"
	"github.com/arashthr/markcentral/internal/bookmarks"
	"github.com/arashthr/markcentral/internal/classifier"
	"github.com/arashthr/markcentral/internal/config"
	"github.com/arashthr/markcentral/internal/db"
	"github.com/arashthr/markcentral/internal/linkcheck"
	"github.com/arashthr/markcentral/internal/logging"
	"github.com/arashthr/markcentral/internal/mailer"
	"github.com/arashthr/markcentral/internal/ratelimit"
	"github.com/arashthr/markcentral/internal/service"
	"github.com/arashthr/markcentral/internal/store"
)

func setupStore(ctx context.Context, cfg *config.AppConfig) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		if err := db.Migrate(cfg.PSQL.PgConnectionString()); err != nil {
			return nil, nil, fmt.Errorf("migrating db: %w", err)
		}
		pool, err := db.Open(cfg.PSQL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to db: %w", err)
		}
		return store.NewPostgresStore(pool), pool.Close, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return store.NewRedisStore(client), func() { _ = client.Close() }, nil
	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}

func main() {
	cfg, err := config.LoadEnvConfig()
	if err != nil {
		panic(err)
	}

	logging.Init(cfg)
	defer logging.Sync()

	if err := run(cfg); err != nil {
		panic(err)
	}
}

func run(cfg *config.AppConfig) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, closeStore, err := setupStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	logging.Logger.Infow("store ready", "backend", cfg.Store.Backend)

	// Classification runs without a key; the endpoint reports it as not
	// configured.
	var gen classifier.TextGenerator
	if cfg.Gemini.APIKey != "" {
		genAIClient, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.Gemini.APIKey})
		if err != nil {
			logging.Logger.Errorw("failed to create Gemini client", "error", err)
		} else {
			gen = &classifier.GeminiGenerator{Client: genAIClient, Model: cfg.Gemini.Model}
		}
	}

	// Codes go out over SMTP when configured, otherwise through the log.
	var codeSender auth.CodeSender
	if cfg.SMTP.Host != "" {
		codeSender = mailer.NewEmailService(cfg.SMTP)
	}

	// Services
	userService := &auth.UserService{
		Store:  kv,
		Logger: logging.Logger,
		Sender: codeSender,
	}
	sessionService := &auth.SessionService{
		Store: kv,
		Users: userService,
	}
	collection := &bookmarks.Collection{
		Store: kv,
	}
	backupService := &backup.Service{
		Store: kv,
	}
	engine := classifier.NewEngine(gen, logging.Logger)

	signInLimiter := ratelimit.NewRateLimiter(10, time.Minute)
	defer signInLimiter.Stop()

	// Middlewares
	umw := service.UserMiddleware{
		SessionService: sessionService,
	}
	csrfMw := csrf.Protect(
		[]byte(cfg.CSRF.Key),
		csrf.Secure(cfg.CSRF.Secure),
		csrf.Path("/"),
	)

	// Controllers
	usersController := &service.Users{
		UserService:    userService,
		SessionService: sessionService,
		SignInLimiter:  signInLimiter,
	}
	bookmarksController := &service.Bookmarks{
		Collection: collection,
		Sessions:   bookmarks.NewSessionTracker(),
		Classifier: engine,
		Checker:    linkcheck.NewChecker(logging.Logger),
		Enricher:   service.NewTitleEnricher(),
	}
	backupsController := &service.Backups{
		Service:    backupService,
		Collection: collection,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(service.WithLogger)
	r.Use(umw.SetUser)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "pong")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(csrfMw)
		r.Use(service.ExposeCSRFToken)

		// Clients bootstrap here: the response carries the X-CSRF-Token
		// header to echo on mutating requests.
		r.Get("/auth/csrf", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		r.Post("/auth/signup", usersController.SignUp)
		r.Post("/auth/verify", usersController.VerifyEmail)
		r.Post("/auth/resend-verification", usersController.ResendVerification)
		r.Post("/auth/signin", usersController.SignIn)
		r.Post("/auth/signout", usersController.SignOut)
		r.Post("/auth/forgot-password", usersController.ForgotPassword)
		r.Post("/auth/reset-password", usersController.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(umw.RequireUser)

			r.Get("/user", usersController.CurrentUser)

			r.Route("/bookmarks", func(r chi.Router) {
				r.Get("/", bookmarksController.List)
				r.Post("/import", bookmarksController.Import)
				r.Get("/import-session", bookmarksController.ImportSession)
				r.Get("/duplicates", bookmarksController.Duplicates)
				r.Get("/export", bookmarksController.Export)
				r.Post("/classify", bookmarksController.Classify)
				r.Post("/check-links", bookmarksController.CheckLinks)
				r.Post("/reset-link-status", bookmarksController.ResetLinkStatus)
				r.Post("/enrich-titles", bookmarksController.EnrichTitles)
				r.Get("/collections", bookmarksController.SmartCollections)
				r.Get("/collections/{id}", bookmarksController.SmartCollection)
				r.Delete("/{id}", bookmarksController.Delete)
				r.Post("/{id}/favorite", bookmarksController.ToggleFavorite)
				r.Put("/{id}/title", bookmarksController.UpdateTitle)
			})

			r.Route("/backup", func(r chi.Router) {
				r.Post("/", backupsController.Save)
				r.Get("/", backupsController.Meta)
				r.Post("/restore", backupsController.Restore)
				r.Delete("/", backupsController.Delete)
			})
		})
	})

	logging.Logger.Infow("Starting the server", "address", cfg.Server.Address)
	return http.ListenAndServe(cfg.Server.Address, r)
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/pyae198022/ShopHub/internal/auth"
	"github.com/pyae198022/ShopHub/internal/cart"
	"github.com/pyae198022/ShopHub/internal/catalog"
	"github.com/pyae198022/ShopHub/internal/changefeed"
	"github.com/pyae198022/ShopHub/internal/config"
	"github.com/pyae198022/ShopHub/internal/handlers"
	"github.com/pyae198022/ShopHub/internal/media"
	"github.com/pyae198022/ShopHub/internal/notify"
	"github.com/pyae198022/ShopHub/internal/orders"
	"github.com/pyae198022/ShopHub/internal/profile"
	"github.com/pyae198022/ShopHub/internal/reviews"
	"github.com/pyae198022/ShopHub/internal/store"
	"github.com/pyae198022/ShopHub/internal/wishlist"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Using TextHandler for console readability
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// 2. Init DB
	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background(), store.Migrations()); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// 3. Session Setup: login in a cookie, carts on disk
	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	if err := os.MkdirAll(cfg.CartDir, 0755); err != nil {
		slog.Error("Failed to create cart directory", "dir", cfg.CartDir, "error", err)
		os.Exit(1)
	}
	cartStore := cart.NewFilesystemStore(cfg.CartDir, cfg.CookieSecure, cfg.SessionKey)
	if cfg.CookieDomain != "" {
		cartStore.Options.Domain = cfg.CookieDomain
	}

	// 4. Email
	templates := notify.NewTemplateCache()
	if err := templates.Load(notify.Templates()); err != nil {
		slog.Error("Failed to load email templates", "error", err)
		os.Exit(1)
	}
	mailer := notify.NewMailer(cfg.MailProvider, cfg.ResendAPIKey, cfg.MailFrom)

	images, err := media.NewImageStore(cfg.UploadDir, "/static/uploads")
	if err != nil {
		slog.Error("Failed to prepare upload directory", "dir", cfg.UploadDir, "error", err)
		os.Exit(1)
	}

	// 5. Services
	hub := changefeed.NewHub()
	authSvc := auth.NewService(db, sessionStore, cfg.JWTSecret, cfg.TokenTTL)
	catalogSvc := catalog.NewService(db, images, hub)
	orderMgr := orders.NewManager(db, db, hub, mailer, templates,
		orders.WithStrictTransitions(cfg.StrictOrderTransitions),
		orders.WithNotifyTimeout(cfg.NotifyTimeout),
		orders.WithStoreName(cfg.StoreName),
	)
	if cfg.StrictOrderTransitions {
		slog.Info("Strict order transitions enabled")
	}

	rateLimiter := handlers.NewRateLimiter(2 * time.Second)
	defer rateLimiter.Close()

	carts := &handlers.CartHandler{Store: cartStore, Products: catalogSvc}
	reviewSvc := reviews.NewService(db, hub)

	// 6. Routes
	mux := http.NewServeMux()
	fileServer := http.FileServer(http.Dir(cfg.StaticDir))
	mux.Handle("GET /static/", http.StripPrefix("/static", fileServer))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	handlers.Register(mux, handlers.Handlers{
		Auth:     &handlers.AuthHandler{Auth: authSvc},
		Products: &handlers.ProductHandler{Catalog: catalogSvc, Reviews: reviewSvc, Wishlist: wishlist.NewService(db)},
		Cart:     carts,
		Orders:   &handlers.OrderHandler{Orders: orderMgr, Carts: carts, Feed: hub},
		Admin:    &handlers.AdminHandler{Orders: orderMgr, Catalog: catalogSvc, Stats: db},
		Profile:  &handlers.ProfileHandler{Profiles: profile.NewService(db), Reviews: reviewSvc},
		Limiter:  rateLimiter,
	})

	// 7. Middleware Setup
	CSRF := csrf.Protect(
		cfg.CSRFKey,
		csrf.Secure(cfg.CookieSecure),
		csrf.Path("/"),
		csrf.TrustedOrigins([]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}),
	)

	// Chain: Logger -> Security Headers -> Bearer exemption -> CSRF -> Identity -> Mux
	handler := handlers.LoggingMiddleware(
		handlers.SecurityHeadersMiddleware(
			handlers.SkipCSRFForBearer(
				CSRF(handlers.IdentifyMiddleware(authSvc, mux)),
			),
		),
	)

	// 8. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "port", cfg.Port, "db", filepath.Clean(cfg.DBPath), "mail_provider", cfg.MailProvider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	<-stop

	slog.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown; they close
	// when the process exits.
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited gracefully.")
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shortreel/backend/internal/media"
	"github.com/shortreel/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Logger        *slog.Logger
	Users         UserStore
	Videos        VideoStore
	Feed          FeedInvalidator
	Authenticator Authenticator
	Sessions      SessionManager
	Uploads       media.Signer
	// Google is nil when external sign-in is not configured.
	Google   OAuthProvider
	Database HealthChecker
	// AuthLimiter guards login and register per client IP.
	AuthLimiter middleware.RateLimiter

	SecureCookies           bool
	FeedIncludeOwnerPicture bool
	CORSOrigins             []string
	// TrustProxy takes the client address from forwarding headers.
	TrustProxy bool
}

// NewRouter wires HTTP handlers and middleware into a chi router.
func NewRouter(deps Dependencies) http.Handler {
	authHandler := AuthHandler{
		Users:         deps.Users,
		Authenticator: deps.Authenticator,
		Sessions:      deps.Sessions,
		Feed:          deps.Feed,
		SecureCookies: deps.SecureCookies,
	}
	oauth := OAuthHandler{
		Provider:      deps.Google,
		Authenticator: deps.Authenticator,
		Sessions:      deps.Sessions,
		SecureCookies: deps.SecureCookies,
	}
	videos := VideoHandler{Videos: deps.Videos, IncludeOwnerPicture: deps.FeedIncludeOwnerPicture}
	uploads := MediaHandler{Signer: deps.Uploads}
	health := HealthHandler{Database: deps.Database}

	r := chi.NewRouter()
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.StripSlashes)
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	var verifier middleware.SessionVerifier
	if deps.Sessions != nil {
		verifier = deps.Sessions
	}
	r.Use(middleware.LoadSession(verifier))
	r.Use(middleware.Gate(verifier))

	r.Get("/healthz", health.Handle)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(deps.AuthLimiter, "register")).Post("/register", authHandler.Register)
			r.With(middleware.RateLimit(deps.AuthLimiter, "login")).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/session", authHandler.Session)
			r.Post("/session", authHandler.UpdateSession)
			r.Put("/profile-picture", authHandler.UpdateProfilePicture)
			r.Get("/imagekit-auth", uploads.UploadAuth)
			r.Get("/google", oauth.Start)
			r.Get("/callback/google", oauth.Callback)
		})

		r.Get("/videos", videos.List)
		r.Post("/videos", videos.Create)
	})

	return r
}

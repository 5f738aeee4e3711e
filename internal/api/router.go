package api

import (
	"fmt"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "github.com/vaps-tech/vaps-server/docs"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/vaps-tech/vaps-server/internal/api/handlers"
	"github.com/vaps-tech/vaps-server/internal/api/middleware"
	"github.com/vaps-tech/vaps-server/internal/config"
)

func SetupRouter() http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(config.Envs.CorsConfig)

	mainMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	// ---------- PUBLIC ROUTES ----------
	userMux := http.NewServeMux()
	userMux.HandleFunc("/register", handlers.Wrap(handlers.RegisterUser))
	userMux.HandleFunc("/send-otp", handlers.Wrap(handlers.SendOtp))
	userMux.HandleFunc("/verify", handlers.Wrap(handlers.VerifyUser))
	userMux.HandleFunc("/login", handlers.Wrap(handlers.LoginUser))
	userMux.HandleFunc("/refresh-token", handlers.Wrap(handlers.RefreshAccessToken))

	// ---------- PROTECTED ROUTES ----------
	userMux.Handle("/logout", middleware.AuthMiddleware(handlers.Wrap(handlers.Logout)))
	userMux.Handle("/me", middleware.AuthMiddleware(handlers.Wrap(handlers.CurrentUser)))
	userMux.Handle("/password", middleware.AuthMiddleware(handlers.Wrap(handlers.ChangePassword)))
	userMux.Handle("/profile", middleware.AuthMiddleware(handlers.Wrap(handlers.UpdateProfile)))
	userMux.Handle("/avatar", middleware.AuthMiddleware(handlers.Wrap(handlers.UpdateAvatar)))

	mainMux.Handle("/api/v1/users/",
		http.StripPrefix("/api/v1/users", userMux),
	)

	mainMux.HandleFunc("/api/v1/contact", handlers.Wrap(handlers.SubmitContactForm))

	authMux := http.NewServeMux()
	authMux.HandleFunc("/google/login", handlers.HandleGoogleLogin)
	authMux.HandleFunc("/google/callback", handlers.HandleGoogleCallback)

	mainMux.Handle("/api/v1/auth/",
		http.StripPrefix("/api/v1/auth", authMux),
	)

	log.Info().Msg("router initialized")
	handler := c.Handler(mainMux)
	handler = middleware.Logger(handler)
	return handler
}

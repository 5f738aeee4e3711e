package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vaps-tech/vaps-server/internal/api"
	"github.com/vaps-tech/vaps-server/internal/api/handlers"
	"github.com/vaps-tech/vaps-server/internal/config"
	"github.com/vaps-tech/vaps-server/internal/mailer"
	"github.com/vaps-tech/vaps-server/internal/repositories"
)

// @title VAPS API
// @version 1.0
// @description Account management and contact-form backend for VAPS technology.
// @BasePath /api/v1
func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	log.Logger = logger

	repositories.ConnectDatabase()

	handlers.Mail = mailer.New(&logger)
	handlers.Avatars = repositories.NewR2Store(config.Envs.R2)

	mux := api.SetupRouter()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Envs.Port),
		Handler: mux,
		// Timeouts prevent resource exhaustion from slow clients
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Str("port", config.Envs.Port).Msg("starting VAPS server")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/raushankrgupta/maternity-matters/api"
	"github.com/raushankrgupta/maternity-matters/auth"
	"github.com/raushankrgupta/maternity-matters/chat"
	"github.com/raushankrgupta/maternity-matters/complaints"
	"github.com/raushankrgupta/maternity-matters/config"
	"github.com/raushankrgupta/maternity-matters/notify"
	"github.com/raushankrgupta/maternity-matters/store"
	"github.com/raushankrgupta/maternity-matters/utils"
)

const serviceName = "maternity-matters-api"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	utils.SetupLogger(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	utils.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err := cfg.ValidateServer(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	shutdownTracing, err := utils.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	// Initialize MongoDB
	if err := utils.ConnectMongo(ctx, cfg.MongoURI); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		if err := utils.DisconnectMongo(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}()

	db := utils.GetDatabase(cfg.DBName)
	users := store.NewMongoUsers(db)
	complaintStore := store.NewMongoComplaints(db)
	resets := store.NewMongoPasswordResets(db)
	for name, ensure := range map[string]func(context.Context) error{
		store.UsersCollection:          users.EnsureIndexes,
		store.ComplaintsCollection:     complaintStore.EnsureIndexes,
		store.PasswordResetsCollection: resets.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Fatal().Err(err).Str("collection", name).Msg("Failed to create indexes")
		}
	}

	notifier, err := notify.New(utils.NewSendGridSender(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFromAddress), cfg.ClientURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load email templates")
	}
	tokens, err := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token issuer")
	}

	authSvc := auth.NewService(users, resets, notifier, tokens, utils.NewGoogleVerifier(cfg.GoogleClientID),
		auth.WithBcryptCost(cfg.BcryptCost),
		auth.WithOAuthConfig(auth.NewGoogleOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)),
	)
	complaintSvc := complaints.NewService(complaintStore, notifier)

	gemini, err := utils.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	defer gemini.Close()
	prompts, err := chat.LoadPrompts()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load chat prompts")
	}

	handler := api.NewHandler(authSvc, complaintSvc, chat.NewAssistant(gemini, prompts), tokens)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitRequests:  cfg.RateLimitRequests,
		RateLimitWindow:    cfg.RateLimitWindow,
		TrustedProxyHeader: cfg.TrustedProxyHeader,
		StaticDir:          cfg.StaticDir,
		SecureCookies:      strings.HasPrefix(cfg.ClientURL, "https://"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           utils.InstrumentHandler(router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Strs("allowed_origins", cfg.AllowedOrigins).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}

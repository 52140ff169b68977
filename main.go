package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"postbridge/domain/model"
	"postbridge/domain/repository"
	"postbridge/infrastructure/cache"
	"postbridge/infrastructure/clients/backend"
	"postbridge/infrastructure/configuration"
	"postbridge/infrastructure/logger"
	"postbridge/infrastructure/persistence"
	"postbridge/infrastructure/realtime"
	httpHandler "postbridge/interfaces/http"
	"postbridge/server"
	"postbridge/usecase"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	// Redis is optional: without it the session record falls back to a local
	// file and link attempts live in process memory.
	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - using file and in-memory stores")
		redisClient = nil
	} else {
		logger.GetLogger().Info("Redis client initialized successfully.")
	}

	var sessionRecord repository.ISessionRecord
	var linkAttempts repository.ILinkAttempt
	if redisClient != nil {
		sessionRecord = persistence.NewRedisSessionRepository(redisClient)
		linkAttempts = persistence.NewRedisLinkAttemptRepository(redisClient)
	} else {
		sessionRecord = persistence.NewFileSessionRepository(configuration.C.Session.StorePath)
		linkAttempts = persistence.NewMemoryLinkAttemptRepository()
	}

	sessions := usecase.NewSessionStore(sessionRecord)
	sessions.Subscribe(func(session *model.Session) {
		logger.GetLogger().WithField("loggedIn", session != nil).Info("Session changed")
	})

	client := backend.NewClient(configuration.C.Backend.Host, sessions, configuration.C.Backend.Timeout())
	authAPI := backend.NewAuthAPI(client)
	platformAPI := backend.NewPlatformAPI(client)
	publishingAPI := backend.NewPublishingAPI(client)

	jobHub := realtime.NewJobHub()
	navigator := realtime.NewBrowserNavigator()

	authUsecase := usecase.NewAuthUsecase(authAPI, sessions)
	linkUsecase := usecase.NewLinkUsecase(
		platformAPI,
		linkAttempts,
		sessions,
		navigator,
		configuration.C.OAuth.AttemptTTL(),
		app.SuccessRedirect,
	)
	publishingUsecase := usecase.NewPublishingUsecase(publishingAPI, jobHub)

	authHandler := httpHandler.NewAuthHandler(authUsecase)
	oauthHandler := httpHandler.NewOAuthHandler(linkUsecase, platformAPI, configuration.C.OAuth.Providers)
	publishingHandler := httpHandler.NewPublishingHandler(publishingUsecase)

	router := server.InitiateRouter(
		authHandler,
		oauthHandler,
		publishingHandler,
		sessions,
		jobHub,
		navigator,
		app.AllowedOrigins,
	)

	port := app.Port
	logger.GetLogger().WithField("port", port).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

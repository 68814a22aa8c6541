package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/mediation-portal/internal/application"
	"github.com/example/mediation-portal/internal/config"
	httptransport "github.com/example/mediation-portal/internal/http"
	"github.com/example/mediation-portal/internal/persistence/sqlite"
)

const version = "0.3.0"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.SQLiteDSN))
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := func() string { return randomHex(16) }
	now := time.Now

	sessionRepo := newSessionRepositoryAdapter(sqlite.NewSessionRepository(pool))
	waitingRepo := newWaitingRepositoryAdapter(sqlite.NewWaitingRepository(pool))
	tokenRepo := newTokenRepositoryAdapter(sqlite.NewTokenRepository(pool))
	rosterRepo := newRosterAdapter(sqlite.NewRosterRepository(pool))
	breakoutRepo := newBreakoutRepositoryAdapter(sqlite.NewBreakoutRepository(pool))
	messagingRepo := newMessagingRepositoryAdapter(sqlite.NewMessagingRepository(pool))
	inviteRepo := newInviteRepositoryAdapter(sqlite.NewInviteRepository(pool))

	locks := application.NewLockTable()

	magicLinks, err := application.NewMagicLinkSigner(cfg.MagicLinkSecret, cfg.JoinBaseURL, cfg.TokenTTL, now)
	if err != nil {
		logger.Error("failed to configure magic link signer", "error", err)
		os.Exit(1)
	}

	issuer := application.NewTokenIssuer(tokenRepo, cfg.JoinBaseURL, cfg.TokenTTL, idGenerator, now, logger)
	authorityService := application.NewAuthorityService(sessionRepo, rosterRepo, locks, now, logger)
	breakoutService := application.NewBreakoutService(sessionRepo, breakoutRepo, rosterRepo, authorityService, locks, idGenerator, now, logger)
	sessionService := application.NewSessionService(sessionRepo, inviteRepo, breakoutService, magicLinks, locks, cfg.JoinBaseURL, idGenerator, now, logger)
	admissionService := application.NewAdmissionService(application.AdmissionConfig{
		Sessions:     sessionRepo,
		Waiting:      waitingRepo,
		Attempts:     waitingRepo,
		Participants: rosterRepo,
		Invites:      inviteRepo,
		Issuer:       issuer,
		MagicLinks:   magicLinks,
		Authority:    authorityService,
		Starter:      sessionService,
		Locks:        locks,
		WaitingTTL:   cfg.WaitingTTL,
		MaxAttempts:  cfg.MaxJoinAttempts,
		IDGenerator:  idGenerator,
		Now:          now,
		Logger:       logger,
	})
	messagingService := application.NewMessagingService(sessionRepo, messagingRepo, messagingRepo, authorityService, locks, idGenerator, now, logger)

	sweeper := application.NewExpirySweeper(admissionService, cfg.SweepInterval, logger)
	go sweeper.Run(ctx)

	sessionHandler := httptransport.NewSessionHandler(sessionService, authorityService, logger)
	admissionHandler := httptransport.NewAdmissionHandler(admissionService, logger)
	breakoutHandler := httptransport.NewBreakoutHandler(breakoutService, logger)
	messagingHandler := httptransport.NewMessagingHandler(messagingService, logger)
	healthHandler := httptransport.NewHealthHandler(pool, sessionService, version, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Sessions:  sessionHandler,
		Admission: admissionHandler,
		Breakouts: breakoutHandler,
		Messaging: messagingHandler,
		Health:    healthHandler,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.ResolveActor(),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("mediation portal API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

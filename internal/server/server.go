// Package server hosts the relay's HTTP surface and the per-connection
// lifecycle: accept, allocate an identifier, register the session, pump
// inbound frames through the router, and tear down on close.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Pir-CHILD/RTC-Learning/internal/router"
	"github.com/Pir-CHILD/RTC-Learning/internal/server/middleware"
	"github.com/Pir-CHILD/RTC-Learning/pkg/config"
	"github.com/Pir-CHILD/RTC-Learning/pkg/state"
	"github.com/Pir-CHILD/RTC-Learning/pkg/state/statemanager"
	"github.com/Pir-CHILD/RTC-Learning/pkg/transport"
)

type App struct {
	logger   *slog.Logger
	registry state.Registry
	ids      state.IDAllocator
	router   *router.MessageRouter
	wg       sync.WaitGroup
	http     *http.Server
	metrics  *http.Server
	config   *config.Config

	ctx context.Context
}

func NewApp(logger *slog.Logger, rootCtx context.Context, cfg *config.Config) *App {
	registry := statemanager.NewInMemoryRegistry(logger)
	msgRouter := router.NewMessageRouter(logger, registry, cfg.Relay)

	app := &App{
		logger:   logger,
		registry: registry,
		ids:      state.NewSequence(0),
		router:   msgRouter,
		config:   cfg,
		ctx:      rootCtx,
	}

	mux := http.NewServeMux()
	upgradeHandler := http.HandlerFunc(app.upgradeHandler)
	originPolicy := middleware.NewOriginPolicy(logger, cfg.Server.AllowedOrigins)
	mux.Handle("/ws",
		middleware.Chain(upgradeHandler,
			middleware.RequestMetadataMiddleware(),
			middleware.NewRequestLogger(logger),
			middleware.NewOriginCheck(logger, originPolicy),
			middleware.NewConnectionLimiter(logger, registry.CountByIP, cfg.Server.ConnectionLimit),
			middleware.NewAuthMiddleware(logger, cfg.Server.Auth.JWTSecret),
		),
	)

	app.http = &http.Server{Addr: cfg.Server.Address, Handler: mux, BaseContext: func(l net.Listener) context.Context {
		return app.ctx
	}}

	if cfg.Metrics.Address != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		app.metrics = &http.Server{Addr: cfg.Metrics.Address, Handler: metricsMux}
	}

	return app
}

// Run serves until the root context is cancelled. Failure to bind the listen
// address is the one fatal startup error.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Relay listening", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	if a.metrics != nil {
		go func() {
			a.logger.Info("Metrics listening", slog.String("addr", a.metrics.Addr))
			if err := a.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Error("Metrics server failed", slog.Any("error", err))
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-a.ctx.Done():
		return a.Shutdown()
	}
}

// upgradeHandler is the connection lifecycle controller: it accepts the
// transport, allocates an identity, registers the session, sends the
// identity notice, and then lets the connection's read loop feed the router
// until close.
func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, _ := middleware.ReqMetadataFrom(r.Context())

	// Origin was already enforced by the policy middleware.
	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		a.logger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	conn := transport.NewConnection(
		r.Context(),
		&a.wg,
		wsConn,
		transport.ConnectionConfig{
			ReadTimeout: a.config.Transport.ReadTimeout,
			SendBuffer:  a.config.Transport.SendBuffer,
		},
		a.logger,
	)

	clientID := a.ids.Next()
	connLogger := a.logger.With(
		slog.String("remoteAddr", reqMeta.IP),
		slog.Int64("clientID", clientID),
	)

	if _, err := a.registry.Register(clientID, conn, reqMeta.IP); err != nil {
		connLogger.Error("Failed to register session", slog.Any("error", err))
		conn.Close(err)
		return
	}

	conn.SetOnMessageHandler(func(ctx context.Context, _ uuid.UUID, frame []byte) {
		a.router.HandleMessage(ctx, clientID, frame)
	})
	conn.SetOnCloseHandler(func(id uuid.UUID, err error) {
		connLogger.Info("Session closing", slog.String("connID", id.String()), slog.Any("reason", err))
		a.router.HandleDisconnect(clientID)
	})

	// Queue the identity notice before the read loop starts so the client
	// sees it ahead of any reply.
	a.router.HandleConnect(clientID)
	conn.Run()

	connLogger.Info("Session established", slog.String("connID", conn.ID().String()))
	<-conn.Done()
}

// Shutdown runs the graceful shutdown sequence.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down relay...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if a.metrics != nil {
		if err := a.metrics.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Metrics server shutdown failed", slog.Any("error", err))
		}
	}
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	a.logger.Info("Closing all active sessions...")
	for _, sess := range a.registry.AllSessions() {
		sess.Transport.Close(errors.New("graceful shutdown"))
	}

	// wait for all connection goroutines to finish their cleanup.
	a.wg.Wait()
	a.logger.Info("Relay shut down gracefully.")
	return nil
}

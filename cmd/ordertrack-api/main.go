// README: Entry point; loads config, wires services and sinks, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/config"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/events"
	httptransport "github.com/heinNell/MobileOrderTracker-sub002/internal/http"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/infra"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/maps"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/metrics"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/order"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/tracking"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/qrcode"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/realtime"
)

func main() {
	if err := run(); err != nil {
		slog.Error("ordertrack-api exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))
	metrics.Register()
	slog.Info("config loaded", "env", cfg.Env, "qr", cfg.QR)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		return errors.New("ORDERTRACK_FIREBASE_PROJECT_ID is required")
	}
	fbApp, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile, cfg.Firebase.DatabaseURL)
	if err != nil {
		return err
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, fbApp)
	if err != nil {
		return err
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	var publisher events.Publisher = events.Discard{}
	if cfg.AMQP.URL != "" {
		conn, err := infra.DialAMQP(ctx, cfg.AMQP.URL)
		if err != nil {
			return err
		}
		defer conn.Close()
		pub, err := events.NewAMQPPublisher(conn, cfg.AMQP.Exchange)
		if err != nil {
			return err
		}
		defer pub.Close()
		publisher = pub
	} else {
		slog.Warn("ORDERTRACK_AMQP_URL not set, domain events are discarded")
	}

	var planner tracking.RoutePlanner
	if cfg.Maps.APIKey != "" {
		routes, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			return err
		}
		planner = routes
	} else {
		slog.Warn("ORDERTRACK_MAPS_API_KEY not set, progress uses straight-line distance")
	}

	progressStore := tracking.NewStore(dbPool, redisClient, cfg.Tracking.ProgressCacheTTL)
	hub := realtime.NewHub()
	sinks := []tracking.Sink{progressStore, events.NewTripSink(publisher), hub}
	if cfg.Firebase.DatabaseURL != "" {
		mirror, err := tracking.NewFirebaseMirror(ctx, fbApp)
		if err != nil {
			return err
		}
		sinks = append(sinks, mirror)
	}
	registry := tracking.NewRegistry(cfg.Tracking, planner, sinks...)

	var (
		source qrcode.SignatureSource
		signer *qrcode.LocalSigner
	)
	if cfg.QR.HasSecret() {
		if signer, err = qrcode.NewLocalSigner(cfg.QR.Secret); err != nil {
			return err
		}
	}
	if s, err := qrcode.NewSignatureSource(cfg.QR, &http.Client{Timeout: 10 * time.Second}); err == nil {
		source = s
	} else {
		slog.Warn("no qr signature source configured, payload generation disabled", "err", err)
	}

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Order:     order.NewService(order.NewStore(dbPool)),
		Registry:  registry,
		Cache:     progressStore,
		Hub:       hub,
		Builder:   qrcode.NewBuilder(cfg.QR, source),
		Signer:    signer,
		Validator: qrcode.NewValidator(cfg.QR),
		Publisher: publisher,
		Verifier:  verifier,
		QR:        cfg.QR,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	slog.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}

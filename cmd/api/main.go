package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/aishield/internal/application"
	appanalysis "github.com/bryanwahyu/aishield/internal/application/analysis"
	"github.com/bryanwahyu/aishield/internal/config"
	"github.com/bryanwahyu/aishield/internal/infra/ai"
	"github.com/bryanwahyu/aishield/internal/infra/httpserver"
	"github.com/bryanwahyu/aishield/internal/infra/metrics"
	"github.com/bryanwahyu/aishield/internal/infra/notify"
	"github.com/bryanwahyu/aishield/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// init analyzer client
	client, err := ai.New(ai.Options{
		Provider:         cfg.Analyzer.Provider,
		Endpoint:         cfg.Analyzer.Endpoint,
		APIKey:           cfg.Analyzer.APIKey,
		Model:            cfg.Analyzer.Model,
		Timeout:          cfg.Analyzer.Timeout,
		MaxResponseBytes: cfg.Analyzer.MaxResponseBytes,
	})
	if err != nil {
		log.Fatalf("analyzer client error: %v", err)
	}

	m := metrics.New()
	health := map[string]middleware.HealthChecker{}

	// init notification sinks
	hub := httpserver.NewHub()
	sinks := []notify.Sink{hub}
	if cfg.Notify.Log {
		sinks = append(sinks, notify.NewLogSink(nil))
	}
	if cfg.Notify.WebhookURL != "" {
		wh, err := notify.NewWebhookSink(cfg.Notify.WebhookURL, nil, cfg.Notify.WebhookTimeout)
		if err != nil {
			log.Fatalf("webhook sink error: %v", err)
		}
		sinks = append(sinks, wh)
	}
	if cfg.Notify.NATSURL != "" {
		ns, err := notify.NewNATSSink(notify.NATSConfig{URL: cfg.Notify.NATSURL, Subject: cfg.Notify.NATSSubject})
		if err != nil {
			log.Fatalf("nats sink error: %v", err)
		}
		sinks = append(sinks, ns)
		health["nats"] = ns
	}
	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		QueueSize: cfg.Notify.QueueSize,
		Workers:   cfg.Notify.Workers,
	}, sinks...)
	m.TrackDispatcher(dispatcher)

	// init sessions
	clock := application.SystemClock{}
	sessions := appanalysis.NewSessions(func(id string) *appanalysis.Controller {
		return appanalysis.NewController(client, appanalysis.Options{
			SessionID: id,
			Timeout:   cfg.Analyzer.Timeout,
			Notifier:  dispatcher,
			Clock:     clock,
			Recorder:  m,
		})
	}, cfg.Server.SessionTTL, clock)
	m.TrackSessions(sessions.Len)
	go sessions.Run(ctx, time.Minute)

	// init router
	handler := httpserver.NewRouter(httpserver.Options{
		Sessions:       sessions,
		Hub:            hub,
		Metrics:        m.Handler(),
		Observer:       m,
		Health:         health,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		APIKeys:        cfg.Server.APIKeys,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Analyzer.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s analyzer=%s", srv.Addr, cfg.Analyzer.Provider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	sessions.Close()
	dispatcher.Close(ctx2)
}

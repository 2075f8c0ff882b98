package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/gbcanteen/operator-console/internal/alert"
	"github.com/gbcanteen/operator-console/internal/api"
	"github.com/gbcanteen/operator-console/internal/config"
	"github.com/gbcanteen/operator-console/internal/console"
	"github.com/gbcanteen/operator-console/internal/httpx"
	"github.com/gbcanteen/operator-console/internal/journal"
	"github.com/gbcanteen/operator-console/internal/orders"
	"github.com/gbcanteen/operator-console/internal/realtime"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := orders.NewStore()

	alerts := alert.NewCoordinator(store,
		alert.LogNotifier{}, alert.LogSoundPlayer{}, alert.LogHaptics{},
		cfg.AlertTimeout)
	alerts.Init(ctx)

	// Journal (optional; nil when no brokers configured)
	jr := journal.New(cfg.KafkaBrokers, cfg.ServiceName, 1024)
	jr.Start(ctx)

	// Realtime transport
	var transport realtime.Transport
	switch cfg.Transport {
	case "amqp":
		transport = realtime.NewAMQPTransport(cfg.AMQPURL)
	default:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		transport = realtime.NewRedisTransport(rdb)
	}
	channel := realtime.NewChannel(transport, store, alerts, jr, func(s realtime.State) {
		log.Printf("realtime state: %s", s)
	})

	apiClient := api.New(cfg.APIBaseURL)
	ctrl := console.NewController(cfg, store, apiClient, alerts, channel, jr)

	if cfg.Token != "" {
		if err := ctrl.Initialize(ctx, cfg.Token); err != nil {
			log.Printf("initialize: %v", err)
		}
	} else {
		log.Println("no SESSION_TOKEN set; waiting for POST /api/session")
	}

	router := httpx.NewRouter()
	h := &httpx.ConsoleHandler{Store: store, Controller: ctrl, Alerts: alerts}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	ctrl.Shutdown()
	jr.Close()
	cancel()
	jr.WaitClosed()
}

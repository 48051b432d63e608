// The expiration service schedules a delayed cancellation check for every
// new order. The schedule lives in Redis so pending checks survive a
// restart; due checks publish expiration.complete and the orders service
// decides whether anything is cancelled.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/amkh3780/Ticketing-Microservices/internal/config"
	"github.com/amkh3780/Ticketing-Microservices/internal/expiration"
	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
	"github.com/amkh3780/Ticketing-Microservices/internal/messaging/kafka"
	"github.com/amkh3780/Ticketing-Microservices/internal/messaging/noop"
	memstore "github.com/amkh3780/Ticketing-Microservices/internal/store/memory"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("service", "expiration")
	if err := run(log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load("expiration")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	var ready atomic.Bool
	ready.Store(true)

	var pub messaging.Publisher = noop.Publisher{}
	var client *kafka.Client
	if len(cfg.KafkaBrokers) > 0 {
		var err error
		client, err = kafka.Connect(ctx, kafka.Config{Brokers: cfg.KafkaBrokers, ClientID: "expiration"}, log)
		if err != nil {
			return err
		}
		client.NotifyDown(func(err error) {
			log.Error("bus down", "error", err)
			ready.Store(false)
		})
		kpub := kafka.NewPublisher(client)
		defer kpub.Close()
		pub = kpub
	} else {
		log.Warn("KAFKA_BROKERS not set, expirations will not reach the orders service")
	}

	sched := expiration.NewScheduler(rdb, pub, log, expiration.Config{})
	go sched.Run(ctx)

	if client != nil {
		// The schedule itself is the durable state; the listener only has
		// to record each new order's expiry. Dead letters have nowhere
		// better to go than the in-memory queue here since this service
		// owns no database.
		dlq := memstore.NewOutbox()
		l := kafka.NewListener(client, kafka.ListenerConfig{
			Topic:   messaging.TopicOrderCreated,
			GroupID: cfg.GroupID,
		}, sched.HandleOrderCreated, dlq, log)
		defer l.Close()
		go func() {
			if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("listener stopped", "error", err)
			}
		}()
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("listening", "addr", cfg.HTTPAddr)

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

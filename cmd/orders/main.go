// The orders service owns orders and a ticket replica. It serves the
// reserve endpoint, reacts to catalog, payment and expiration events, and
// relays its outbox to the bus.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/amkh3780/Ticketing-Microservices/internal/config"
	"github.com/amkh3780/Ticketing-Microservices/internal/domain"
	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
	"github.com/amkh3780/Ticketing-Microservices/internal/messaging/kafka"
	"github.com/amkh3780/Ticketing-Microservices/internal/messaging/noop"
	"github.com/amkh3780/Ticketing-Microservices/internal/outbox"
	"github.com/amkh3780/Ticketing-Microservices/internal/service/orders"
	"github.com/amkh3780/Ticketing-Microservices/internal/store"
	memstore "github.com/amkh3780/Ticketing-Microservices/internal/store/memory"
	"github.com/amkh3780/Ticketing-Microservices/internal/store/postgres"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("service", "orders")
	if err := run(log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load("orders")

	var (
		orderStore  store.OrderStore
		ticketStore store.TicketStore
		outboxStore interface {
			outbox.Store
			outbox.DeadLetterStore
		}
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		orderStore = postgres.NewOrders(pool)
		ticketStore = postgres.NewTickets(pool)
		outboxStore = postgres.NewOutbox(pool)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		ob := memstore.NewOutbox()
		orderStore = memstore.NewOrders(ob)
		ticketStore = memstore.NewTickets(ob)
		outboxStore = ob
	}

	var ready atomic.Bool
	ready.Store(true)

	var pub messaging.Publisher = noop.Publisher{}
	svc := orders.New(orderStore, ticketStore, cfg.ExpirationWindow, log)

	if len(cfg.KafkaBrokers) > 0 {
		client, err := kafka.Connect(ctx, kafka.Config{Brokers: cfg.KafkaBrokers, ClientID: "orders"}, log)
		if err != nil {
			return err
		}
		client.NotifyDown(func(err error) {
			log.Error("bus down, refusing writes", "error", err)
			ready.Store(false)
		})

		kpub := kafka.NewPublisher(client)
		defer kpub.Close()
		pub = kpub

		listeners := map[string]messaging.Handler{
			messaging.TopicTicketCreated:      svc.HandleTicketCreated,
			messaging.TopicTicketUpdated:      svc.HandleTicketUpdated,
			messaging.TopicPaymentCreated:     svc.HandlePaymentCreated,
			messaging.TopicExpirationComplete: svc.HandleExpirationComplete,
		}
		for topic, h := range listeners {
			l := kafka.NewListener(client, kafka.ListenerConfig{Topic: topic, GroupID: cfg.GroupID}, h, outboxStore, log)
			defer l.Close()
			go func(topic string) {
				if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("listener stopped", "topic", topic, "error", err)
				}
			}(topic)
		}
	} else {
		log.Warn("KAFKA_BROKERS not set, events stay in the outbox unpublished to any peer")
	}

	relay := outbox.NewRelay(outboxStore, pub, log, outbox.RelayConfig{})
	go relay.Run(ctx)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/orders", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			TicketID string `json:"ticket_id"`
			UserID   string `json:"user_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		o, err := svc.Reserve(req.Context(), body.TicketID, body.UserID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, o)
	})
	r.Get("/orders/{id}", func(w http.ResponseWriter, req *http.Request) {
		o, err := svc.Get(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	})

	return serve(ctx, cfg.HTTPAddr, r, log)
}

func serve(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("listening", "addr", addr)

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrTicketReserved),
		errors.Is(err, domain.ErrStaleVersion),
		errors.Is(err, domain.ErrDuplicate):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

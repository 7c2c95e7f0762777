package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arenalivre/courtbook/internal/consumer"
	"github.com/arenalivre/courtbook/internal/handlers"
	"github.com/arenalivre/courtbook/internal/inbox"
	"github.com/arenalivre/courtbook/internal/model"
	"github.com/arenalivre/courtbook/internal/outbox"
	"github.com/arenalivre/courtbook/internal/storage"
	"github.com/arenalivre/courtbook/libs/config"
	"github.com/arenalivre/courtbook/libs/db"
	"github.com/arenalivre/courtbook/libs/httpx"
	"github.com/arenalivre/courtbook/libs/kafkax"
	otelx "github.com/arenalivre/courtbook/libs/otel"
	"github.com/arenalivre/courtbook/libs/runtime"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "court-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	courts := storage.NewCourtRepository(pool)
	bookings := storage.NewBookingRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	inboxRepo := inbox.NewRepository(pool)
	startConsumer := func(topic string) {
		if strings.TrimSpace(topic) == "" {
			return
		}
		consumerCfg := consumer.Config{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", "court-service"),
			Topic:   topic,
		}
		eventConsumer := consumer.New(logger, inboxRepo, consumerCfg, bookingEventHandler(logger, bookings))
		go eventConsumer.Run(ctx)
	}

	startConsumer(config.String("KAFKA_CONSUME_TOPIC", "booking.confirmed.v1"))
	startConsumer(config.String("KAFKA_CONSUME_TOPIC_2", "booking.cancelled.v1"))

	availabilityHandler := handlers.NewAvailabilityHandler(courts, bookings, logger)
	courtHandler := handlers.NewCourtHandler(courts, outboxRepo, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/public/courts", courtHandler.PublicCourts)
	mux.HandleFunc("/api/v1/public/availability", availabilityHandler.Grid)
	mux.HandleFunc("/api/v1/public/availability/duration", availabilityHandler.MaxDuration)
	mux.HandleFunc("/api/v1/courts", courtHandler.Courts)
	mux.HandleFunc("/api/v1/courts/schedule", courtHandler.Schedule)
	mux.HandleFunc("/api/v1/courts/schedule/template", courtHandler.ApplyTemplate)

	bodyLimit := int64(1 << 20) // 1MB
	if v, err := strconv.Atoi(config.String("REQUEST_BODY_LIMIT_BYTES", "1048576")); err == nil && v > 0 {
		bodyLimit = int64(v)
	}
	requestTimeout := 10 * time.Second
	if v, err := strconv.Atoi(config.String("REQUEST_TIMEOUT_SECONDS", "10")); err == nil && v > 0 {
		requestTimeout = time.Duration(v) * time.Second
	}

	limitPerMinute := 120
	if v, err := strconv.Atoi(config.String("RATE_LIMIT_PER_MINUTE", "120")); err == nil && v > 0 {
		limitPerMinute = v
	}

	var rateLimitMW httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB := 0
		if v, err := strconv.Atoi(config.String("REDIS_DB", "0")); err == nil && v >= 0 {
			redisDB = v
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, isTruthy(config.String("RATE_LIMIT_FAIL_OPEN", "true")))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id,X-Owner-Id")),
			AllowCredentials: isTruthy(config.String("CORS_ALLOW_CREDENTIALS", "false")),
			MaxAge:           time.Duration(corsMaxAgeSeconds()) * time.Second,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(bodyLimit),
		httpx.WithTimeout(requestTimeout),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, "court")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// bookingWriter is the slice of the booking repository the event handler
// needs.
type bookingWriter interface {
	UpsertConfirmed(ctx context.Context, b model.Booking) error
	MarkCancelled(ctx context.Context, bookingID string) error
}

// bookingEventHandler applies booking announcements to the local snapshot.
// It dispatches on the event type the consumer deduplicated on, which falls
// back to the topic when the event_type header is missing; a cancellation
// must never be misread as a confirmation just because a producer omitted
// the header.
func bookingEventHandler(logger *slog.Logger, bookings bookingWriter) consumer.Handler {
	return func(ctx context.Context, meta kafkax.EventMeta, msg kafka.Message) error {
		var payload struct {
			BookingID string `json:"booking_id"`
			CourtID   string `json:"court_id"`
			Date      string `json:"date"`
			StartHour int    `json:"start_hour"`
			EndHour   int    `json:"end_hour"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if payload.BookingID == "" {
			logger.Error("missing booking_id in event", "topic", msg.Topic)
			return nil
		}

		switch meta.EventType {
		case "booking.confirmed.v1":
			if payload.CourtID == "" || payload.Date == "" {
				logger.Error("missing required event fields", "topic", msg.Topic)
				return nil
			}
			return bookings.UpsertConfirmed(ctx, model.Booking{
				ID:        payload.BookingID,
				CourtID:   payload.CourtID,
				Date:      payload.Date,
				StartHour: payload.StartHour,
				EndHour:   payload.EndHour,
				Status:    model.BookingConfirmed,
			})
		case "booking.cancelled.v1":
			return bookings.MarkCancelled(ctx, payload.BookingID)
		default:
			logger.Error("unexpected event type", "event_type", meta.EventType, "topic", msg.Topic)
			return nil
		}
	}
}

func isTruthy(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func corsMaxAgeSeconds() int {
	value := 600
	if v, err := strconv.Atoi(config.String("CORS_MAX_AGE_SECONDS", "600")); err == nil && v > 0 {
		value = v
	}
	return value
}

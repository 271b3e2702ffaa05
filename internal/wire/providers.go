package wire

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"freelancehub/internal/chat/handler"
	"freelancehub/internal/chat/ratelimit"
	"freelancehub/internal/chat/service"
	"freelancehub/internal/common"
	"freelancehub/internal/config"
	"freelancehub/internal/dbmongo"
	"freelancehub/internal/dbmysql"
	"freelancehub/internal/events"
	"freelancehub/internal/memstore"
	"freelancehub/internal/metrics"
	"freelancehub/internal/notif"
	"freelancehub/internal/readstate"
	"freelancehub/internal/realtime"

	"github.com/redis/go-redis/v9"
)

// Application holds everything cmd/notifs-svc serves.
type Application struct {
	Config      *config.Config
	Metrics     *metrics.Metrics
	Verifier    *common.JWTVerifier
	Emitter     *notif.Emitter
	Hub         *realtime.Hub
	Broker      realtime.Broker
	Consumer    *notif.Consumer
	Notif       *notif.HTTPHandler
	Chat        *handler.ChatHandler
	EmitterGRPC *notif.GRPCHandler
	Stream      *realtime.StreamHandler
}

// Stores groups the three collaborators the subsystem persists through.
type Stores struct {
	Notifications common.NotificationRepository
	Messages      common.MessageRepository
	Users         common.UserDirectory
}

func ProvideLogger(cfg *config.Config) *slog.Logger {
	logger := common.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	return logger
}

func ProvideMetrics() *metrics.Metrics {
	return metrics.NewWithRuntime()
}

func ProvideVerifier(cfg *config.Config) *common.JWTVerifier {
	return common.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
}

// ProvideStores opens Mongo for notifications and messages and MySQL for the user
// directory, or an in-process store when STORE_DRIVER=memory.
func ProvideStores(ctx context.Context, cfg *config.Config) (*Stores, func(), error) {
	switch strings.ToLower(cfg.Store.Driver) {
	case "memory":
		users, err := memstore.ParseUsers(cfg.Store.SeedUsers)
		if err != nil {
			return nil, nil, fmt.Errorf("STORE_SEED_USERS: %w", err)
		}
		store := memstore.New()
		for _, u := range users {
			store.PutUser(u)
		}
		slog.Warn("using in-memory store; data is lost on restart",
			slog.Int("seeded_users", len(users)))
		return &Stores{
			Notifications: store.Notifications(),
			Messages:      store.Messages(),
			Users:         store.Users(),
		}, func() {}, nil
	case "", "mongo":
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	mc, err := dbmongo.NewMongoConnection(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeMongo := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mc.Close(ctx); err != nil {
			slog.Warn("mongo disconnect failed", slog.Any("error", err))
		}
	}
	if err := mc.EnsureIndexes(ctx); err != nil {
		closeMongo()
		return nil, nil, err
	}
	slog.Info("connected to mongodb", slog.String("database", cfg.MongoDB.Database))

	db, err := dbmysql.NewMySQL(cfg)
	if err != nil {
		closeMongo()
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		closeMongo()
	}

	return &Stores{
		Notifications: dbmongo.NewNotificationRepository(mc),
		Messages:      dbmongo.NewMessageRepository(mc),
		Users:         dbmysql.NewUserDirectory(db),
	}, cleanup, nil
}

func ProvideNotificationRepository(s *Stores) common.NotificationRepository { return s.Notifications }
func ProvideMessageRepository(s *Stores) common.MessageRepository { return s.Messages }
func ProvideUserDirectory(s *Stores) common.UserDirectory { return s.Users }

// ProvideRedis returns nil when Redis is disabled.
func ProvideRedis(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	slog.Info("connected to redis", slog.String("addr", cfg.RedisAddr()))
	return rdb, func() { _ = rdb.Close() }, nil
}

// ProvideBroker returns nil without Redis, so the hub delivers locally.
func ProvideBroker(rdb *redis.Client, cfg *config.Config) realtime.Broker {
	if rdb == nil {
		return nil
	}
	return realtime.NewRedisBroker(rdb, cfg.Redis.Channel)
}

func ProvideHub(verifier *common.JWTVerifier, broker realtime.Broker, m *metrics.Metrics, cfg *config.Config) *realtime.Hub {
	return realtime.NewHub(verifier, broker, m, cfg.Notification.ConnectionBuffer)
}

func ProvideSink(cfg *config.Config, logger *slog.Logger) (events.Sink, func(), error) {
	sink, err := events.NewSink(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return sink, func() {
		if err := sink.Close(); err != nil {
			slog.Warn("event sink close failed", slog.Any("error", err))
		}
	}, nil
}

func ProvideEmitter(
	cfg *config.Config,
	repo common.NotificationRepository,
	users common.UserDirectory,
	m *metrics.Metrics,
	sink events.Sink,
) (*notif.Emitter, func()) {
	return notif.NewNotificationService(cfg, repo, users, m,
		notif.NewEventSinkObserver(sink),
		notif.NewMetricsObserver(m),
	)
}

// ProvideLimiter returns nil, meaning unlimited, unless both Redis and the limit are enabled.
func ProvideLimiter(rdb *redis.Client, cfg *config.Config) ratelimit.Allower {
	if rdb == nil || !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(rdb, int64(cfg.RateLimit.SendsPerWindow), time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)
}

// ProvideConsumer returns nil unless inbound consumption is enabled.
func ProvideConsumer(cfg *config.Config, emitter *notif.Emitter) *notif.Consumer {
	if !cfg.Events.ConsumeEnabled {
		return nil
	}
	return notif.NewConsumer(cfg.Events.KafkaBrokers, cfg.Events.ConsumeGroupID, cfg.Events.ConsumeTopic, emitter)
}

func ProvideChatService(
	messages common.MessageRepository,
	users common.UserDirectory,
	emitter *notif.Emitter,
	tracker *readstate.Tracker,
	hub *realtime.Hub,
	sink events.Sink,
	m *metrics.Metrics,
) service.ChatService {
	return service.NewChatService(messages, users, emitter, tracker, hub, sink, m)
}

func ProvideTracker(
	notifications common.NotificationRepository,
	messages common.MessageRepository,
	hub *realtime.Hub,
	sink events.Sink,
	m *metrics.Metrics,
) *readstate.Tracker {
	return readstate.NewTracker(notifications, messages, hub, sink, m)
}

//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"freelancehub/internal/chat/handler"
	"freelancehub/internal/config"
	"freelancehub/internal/notif"
	"freelancehub/internal/realtime"

	"github.com/google/wire"
)

var storeSet = wire.NewSet(
	ProvideStores,
	ProvideNotificationRepository,
	ProvideMessageRepository,
	ProvideUserDirectory,
)

var realtimeSet = wire.NewSet(
	ProvideRedis,
	ProvideBroker,
	ProvideHub,
	realtime.NewStreamHandler,
)

// This is just a declaration; wire generates the real body in wire_gen.go
func InitializeApplication(ctx context.Context, cfg *config.Config) (*Application, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideVerifier,
		storeSet,
		realtimeSet,
		ProvideSink,
		ProvideEmitter,
		ProvideTracker,
		ProvideChatService,
		ProvideLimiter,
		ProvideConsumer,
		notif.NewHTTPHandler,
		notif.NewGRPCHandler,
		handler.NewChatHandler,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil, nil
}

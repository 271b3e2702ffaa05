package wire

import (
	"net/http"

	"freelancehub/internal/common"
	"freelancehub/internal/httpx"
	"freelancehub/internal/notif"
	"freelancehub/internal/realtime"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HTTPHandler mounts /health, /metrics and the authenticated /api/v1 routes.
func (a *Application) HTTPHandler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	}).Methods(http.MethodGet)
	router.Handle("/metrics", a.Metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(common.AuthMiddleware(a.Verifier))
	a.Notif.Register(api)
	a.Chat.Register(api)

	return otelhttp.NewHandler(router, "notifs-svc")
}

// GRPCServer registers the emitter API, the realtime stream, health and reflection.
// Emitter calls need an admin or service token; the stream authenticates itself.
func (a *Application) GRPCServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			common.LoggingUnaryInterceptor,
			common.AuthInterceptor(a.Verifier, common.RoleAdmin, common.RoleService),
		),
		grpc.ChainStreamInterceptor(common.LoggingStreamInterceptor),
	)
	notif.RegisterEmitterServer(srv, a.EmitterGRPC)
	realtime.RegisterRealtimeServer(srv, a.Stream)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	reflection.Register(srv)
	return srv, healthSrv
}

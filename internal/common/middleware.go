package common

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey int

const identityKey ctxKey = iota

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", Authf("invalid auth header")
	}
	return parts[1], nil
}

// TokenFromMetadata reads the bearer token from incoming gRPC metadata.
func TokenFromMetadata(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", Authf("missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return "", Authf("authorization required")
	}
	return BearerToken(vals[0])
}

// AuthInterceptor validates the bearer token of every unary call and injects the
// caller identity. When roles is non-empty the caller must hold one of them.
func AuthInterceptor(verifier TokenVerifier, roles ...Role) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
			return handler(ctx, req)
		}

		token, err := TokenFromMetadata(ctx)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		identity, err := verifier.Verify(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		if !HasRole(identity, roles...) {
			return nil, status.Error(codes.PermissionDenied, "caller role not allowed")
		}

		return handler(WithIdentity(ctx, identity), req)
	}
}

func LoggingUnaryInterceptor(ctx context.Context, req interface{},
	info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		slog.Warn("grpc call failed", slog.String("method", info.FullMethod),
			slog.Duration("duration", time.Since(start)), slog.Any("error", err))
	} else {
		slog.Debug("grpc call completed", slog.String("method", info.FullMethod),
			slog.Duration("duration", time.Since(start)))
	}
	return resp, err
}

func LoggingStreamInterceptor(srv interface{}, stream grpc.ServerStream,
	info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {

	slog.Debug("grpc stream started", slog.String("method", info.FullMethod))
	err := handler(srv, stream)
	if err != nil {
		slog.Debug("grpc stream ended", slog.String("method", info.FullMethod), slog.Any("error", err))
	}
	return err
}

// HasRole reports whether id holds one of roles; no roles means any identity.
func HasRole(id *Identity, roles ...Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

// AuthMiddleware rejects HTTP requests without a valid bearer token.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "authorization required")
				return
			}
			identity, err := verifier.Verify(token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "authorization required")
				return
			}
			if !HasRole(identity, roles...) {
				writeAuthError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}

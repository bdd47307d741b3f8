package middleware

import (
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
)

// ServerInterceptors returns the handler interceptor chain, outermost first.
// When metrics is non-nil it wraps the whole chain, so calls rejected by
// authentication or validation are counted as well.
func ServerInterceptors(jwtManager *auth.JWTManager, logger *slog.Logger, metrics *Metrics, public ...string) []connect.Interceptor {
	interceptors := make([]connect.Interceptor, 0, 4)
	if metrics != nil {
		interceptors = append(interceptors, metrics.Interceptor())
	}
	return append(interceptors,
		RequireAuth(jwtManager, public...),
		ValidationInterceptor(),
		LoggingInterceptor(logger),
	)
}

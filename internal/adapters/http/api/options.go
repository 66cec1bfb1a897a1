package api

import "github.com/okian/podium/pkg/logger"

const (
	defaultLimit    = 100
	defaultOrigin   = "*"
	defaultBodySize = 1 << 20
)

// Option configures a Server.
type Option func(*Server)

// WithMaxLimit caps ?limit on the ranked endpoints.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithClientOrigin sets the allowed CORS origins, comma separated.
func WithClientOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.origin = origin
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

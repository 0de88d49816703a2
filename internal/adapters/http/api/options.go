package api

// DefaultMaxBodyBytes bounds the size of a POST /runs body.
const DefaultMaxBodyBytes = 8 << 20

// Option configures a Server.
type Option func(*Server)

// WithMaxBodyBytes sets the largest accepted request body.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

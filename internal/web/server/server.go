package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Server represents an optimized HTTP server with production-ready configuration
type Server struct {
	httpServer *http.Server
	config     *Config
	listener   net.Listener
}

// Config holds server configuration
type Config struct {
	// Address is the server listen address (e.g., ":8080")
	Address string

	// Handler is the HTTP handler for the server
	Handler http.Handler

	// TLS configuration
	TLSConfig *TLSConfig

	// Timeouts
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration

	// Connection limits
	MaxHeaderBytes int

	// HTTP/2 settings
	EnableHTTP2 bool
}

// TLSConfig holds TLS/SSL configuration
type TLSConfig struct {
	// CertFile is the path to the TLS certificate
	CertFile string

	// KeyFile is the path to the TLS private key
	KeyFile string

	// MinVersion is the minimum TLS version (default: TLS 1.2)
	MinVersion uint16

	// Custom tls.Config (optional)
	Config *tls.Config
}

// DefaultConfig returns a production-ready server configuration
func DefaultConfig(handler http.Handler) *Config {
	return &Config{
		Address:           ":8080",
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
		EnableHTTP2:       true,
	}
}

// New creates a new optimized server instance
func New(config *Config) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("server config cannot be nil")
	}

	if config.Handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	// Create HTTP server
	httpServer := &http.Server{
		Addr:              config.Address,
		Handler:           config.Handler,
		ReadTimeout:       config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		MaxHeaderBytes:    config.MaxHeaderBytes,
	}

	// Configure TLS and HTTP/2 if enabled
	if config.TLSConfig != nil {
		tlsConfig := buildTLSConfig(config.TLSConfig, config.EnableHTTP2)
		httpServer.TLSConfig = tlsConfig
	}

	return &Server{
		httpServer: httpServer,
		config:     config,
	}, nil
}

// Start starts the server
func (s *Server) Start() error {
	// Create listener
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	// Start server
	if s.config.TLSConfig != nil {
		// Use TLS listener
		tlsListener := tls.NewListener(listener, s.httpServer.TLSConfig)
		return s.httpServer.Serve(tlsListener)
	}

	return s.httpServer.Serve(listener)
}

// ListenAndServe starts the server (convenience method)
func (s *Server) ListenAndServe() error {
	if s.config.TLSConfig != nil {
		return s.httpServer.ListenAndServeTLS(
			s.config.TLSConfig.CertFile,
			s.config.TLSConfig.KeyFile,
		)
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Close immediately closes the server
func (s *Server) Close() error {
	return s.httpServer.Close()
}

// Addr returns the server's network address
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}

// buildTLSConfig builds a TLS configuration with HTTP/2 support
func buildTLSConfig(tlsConfig *TLSConfig, enableHTTP2 bool) *tls.Config {
	// Use custom config if provided
	if tlsConfig.Config != nil {
		config := tlsConfig.Config.Clone()
		if enableHTTP2 {
			config.NextProtos = []string{"h2", "http/1.1"}
		}
		return config
	}

	// Build default config
	config := &tls.Config{
		MinVersion: tlsConfig.MinVersion,
	}

	// Set default minimum TLS version if not specified
	if config.MinVersion == 0 {
		config.MinVersion = tls.VersionTLS12
	}

	// Enable HTTP/2
	if enableHTTP2 {
		config.NextProtos = []string{"h2", "http/1.1"}
	}

	return config
}

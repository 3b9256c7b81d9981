package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// TLSConfig holds TLS/HTTPS configuration
type TLSConfig struct {
	Enabled  bool   `json:"enabled"`
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`
	// MinVersion sets minimum TLS version (default: TLS 1.2)
	MinVersion string `json:"min_version"`
}

// Server wraps http.Server with TLS support and graceful shutdown.
type Server struct {
	httpServer *http.Server
	tlsConfig  *TLSConfig
	log        *logrus.Logger
}

// NewServer creates a new server with optional TLS support
func NewServer(addr string, handler http.Handler, tlsConfig *TLSConfig, log *logrus.Logger) *Server {
	server := &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	if tlsConfig != nil && tlsConfig.Enabled {
		server.TLSConfig = &tls.Config{
			MinVersion: getTLSVersion(tlsConfig.MinVersion),
			CurvePreferences: []tls.CurveID{
				tls.CurveP256,
				tls.X25519,
			},
		}
	}

	return &Server{httpServer: server, tlsConfig: tlsConfig, log: log}
}

// Start starts the server (with or without TLS)
func (s *Server) Start() error {
	if s.tlsConfig != nil && s.tlsConfig.Enabled {
		s.log.WithField("addr", s.httpServer.Addr).Info("Starting HTTPS server")
		if err := s.httpServer.ListenAndServeTLS(s.tlsConfig.CertFile, s.tlsConfig.KeyFile); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTPS server error: %w", err)
		}
		return nil
	}

	s.log.WithField("addr", s.httpServer.Addr).Info("Starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func getTLSVersion(version string) uint16 {
	switch version {
	case "1.3", "TLS1.3":
		return tls.VersionTLS13
	case "1.2", "TLS1.2":
		return tls.VersionTLS12
	default:
		return tls.VersionTLS12
	}
}

// Package rpc exposes the node over JSON-RPC 2.0 on HTTP, optionally behind
// TLS and bearer-token auth.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr      string
	AuthToken string // empty disables auth
	TLSCert   string // path to certificate PEM, empty disables TLS
	TLSKey    string // path to key PEM
}

// Server is the JSON-RPC HTTP server.
type Server struct {
	cfg     ServerConfig
	handler *Handler
	httpSrv *http.Server
}

// NewServer creates a Server for handler.
func NewServer(cfg ServerConfig, handler *Handler) *Server {
	s := &Server{cfg: cfg, handler: handler}
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.serveRPC)
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return s
}

// Start begins serving. Blocks until the listener stops.
func (s *Server) Start() error {
	if s.cfg.TLSCert != "" {
		log.Printf("[rpc] listening on %s (TLS)", s.cfg.Addr)
		return s.httpSrv.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
	}
	log.Printf("[rpc] listening on %s", s.cfg.Addr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if s.cfg.AuthToken != "" {
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.AuthToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var req Request
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, errorResponse(nil, codeParseError, fmt.Sprintf("parse error: %v", err)))
		return
	}
	writeResponse(w, s.handler.Handle(req))
}

func writeResponse(w http.ResponseWriter, resp Response) {
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[rpc] write response: %v", err)
	}
}

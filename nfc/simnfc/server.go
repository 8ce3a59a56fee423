package simnfc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dotside-studios/tapboard/buildinfo"
	"github.com/dotside-studios/tapboard/nfc"
	"github.com/dotside-studios/tapboard/protocol"
)

// ServerConfig configures the simulator's control endpoint.
type ServerConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:9190".
	Addr string

	Reader *Reader
	Logger *zap.Logger
}

// Server exposes the simulated reader over local HTTP so scripts and the
// tap subcommand can drive it:
//
//	POST /api/v1/tap     inject a tag (protocol.TagInputRequest)
//	POST /api/v1/status  flip the simulated radio {"enabled": bool}
//	POST /api/v1/cancel  cancel the session {"reason": "..."}
//	GET  /api/v1/health  liveness and version
type Server struct {
	addr   string
	reader *Reader
	logger *zap.Logger

	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates the control endpoint for reader.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		addr:   cfg.Addr,
		reader: cfg.Reader,
		logger: logger.Named("simnfc"),
	}
}

// Routes builds the HTTP handler. Exposed separately so tests can drive it
// through httptest without binding a port.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/tap", s.handleTap)
		r.Post("/status", s.handleStatus)
		r.Post("/cancel", s.handleCancel)
	})
	return r
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.Routes()}

	s.logger.Info("control endpoint listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("control endpoint failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address, useful when Addr was ":0".
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop shuts the endpoint down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   buildinfo.Version,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	var req protocol.TagInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.TagInputResponse{
			Success:   false,
			Error:     "invalid JSON body: " + err.Error(),
			ErrorCode: protocol.ErrCodeInvalidRequest,
		})
		return
	}

	if code, msg := req.Validate(); code != "" {
		writeJSON(w, http.StatusBadRequest, protocol.TagInputResponse{
			Success:   false,
			Error:     msg,
			ErrorCode: code,
		})
		return
	}

	tag, err := ToTagInfo(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.TagInputResponse{
			Success:   false,
			Error:     err.Error(),
			ErrorCode: protocol.ErrCodeInvalidRequest,
		})
		return
	}

	if err := s.reader.Tap(tag); err != nil {
		status := http.StatusInternalServerError
		code := protocol.ErrCodeInternalError
		if errors.Is(err, nfc.ErrNoSession) {
			status = http.StatusConflict
			code = protocol.ErrCodeNotListening
		}
		writeJSON(w, status, protocol.TagInputResponse{
			Success:   false,
			Error:     err.Error(),
			ErrorCode: code,
			UID:       tag.SerialNumber(),
		})
		return
	}

	s.logger.Info("tag injected via http", zap.String("uid", tag.SerialNumber()))
	writeJSON(w, http.StatusOK, protocol.TagInputResponse{
		Success: true,
		Message: "tag delivered",
		UID:     tag.SerialNumber(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool   `json:"enabled"`
		Message string `json:"message,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid JSON body: " + err.Error(),
		})
		return
	}

	s.reader.SetEnabled(req.Enabled, req.Message)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid JSON body: " + err.Error(),
		})
		return
	}
	if req.Reason == "" {
		req.Reason = "canceled via control endpoint"
	}

	s.reader.CancelSession(req.Reason)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Package http exposes the decision engine over a JSON REST surface with
// an SSE event stream, embedded OpenAPI documentation, and optional
// Prometheus scraping.
package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/caseflow/playbook/api"
	"github.com/caseflow/playbook/internal/logging"
	"github.com/caseflow/playbook/internal/presentation/graph"
	"github.com/caseflow/playbook/pkg/ports"
)

// heartbeatInterval is how often SSE connections receive a comment frame
// so intermediaries do not reap idle streams.
const heartbeatInterval = 15 * time.Second

// Server translates HTTP requests into engine commands.
type Server struct {
	engine   ports.DecisionEngine
	provider ports.GraphProvider
	streams  *StreamManager
	logger   *slog.Logger
	metrics  http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreamManager injects a shared stream manager. Wire the same manager's
// Hooks() into the engine so decisions made through any transport reach SSE
// subscribers.
func WithStreamManager(streams *StreamManager) Option {
	return func(s *Server) {
		s.streams = streams
	}
}

// WithMetricsHandler mounts a handler (typically promhttp.Handler()) at
// GET /metrics.
func WithMetricsHandler(handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = handler
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine ports.DecisionEngine, provider ports.GraphProvider, opts ...Option) http.Handler {
	s := &Server{
		engine:   engine,
		provider: provider,
		streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams.logger = s.logger

	r := chi.NewRouter()

	r.Post("/sessions", s.startSession)
	r.Get("/sessions/{sessionID}", s.getSession)
	r.Post("/sessions/{sessionID}/decisions", s.submitDecision)
	r.Post("/sessions/{sessionID}/reset", s.resetSession)
	r.Get("/sessions/{sessionID}/events", s.subscribeEvents)

	r.Get("/playbooks", s.listPlaybooks)
	r.Get("/playbooks/{playbookID}/graph", s.renderGraph)

	r.Get("/openapi.yaml", s.openapiSpec)
	r.Get("/swagger", s.swaggerUI)
	r.Get("/healthz", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// startSession handles POST /sessions.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var body StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, s.logger, "invalid request body")
		return
	}

	session, err := s.engine.StartSession(r.Context(), body.CaseID, body.PlaybookID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusCreated, session)
}

// getSession handles GET /sessions/{sessionID}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.engine.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, session)
}

// submitDecision handles POST /sessions/{sessionID}/decisions.
func (s *Server) submitDecision(w http.ResponseWriter, r *http.Request) {
	var body SubmitDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, s.logger, "invalid request body")
		return
	}

	session, err := s.engine.SubmitDecision(r.Context(), chi.URLParam(r, "sessionID"), ports.SubmitDecisionCommand{
		SelectedOption:  body.SelectedOption,
		Rationale:       body.Rationale,
		Confidence:      body.Confidence,
		ExpectedVersion: body.ExpectedVersion,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, session)
}

// resetSession handles POST /sessions/{sessionID}/reset.
func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.engine.ResetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, session)
}

// subscribeEvents handles GET /sessions/{sessionID}/events (SSE).
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	// Reject unknown sessions before upgrading to a stream.
	if _, err := s.engine.GetSession(r.Context(), sessionID); err != nil {
		writeError(w, s.logger, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeBadRequest(w, s.logger, "streaming not supported")
		return
	}

	// The stream outlives the server's write timeout; clear the deadline
	// for this response only.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()

	s.logger.Info("SSE: Subscribed to session events", "session_id", sessionID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: Client disconnected", "session_id", sessionID)
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// listPlaybooks handles GET /playbooks.
func (s *Server) listPlaybooks(w http.ResponseWriter, r *http.Request) {
	ids, err := s.provider.Playbooks(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, s.logger, http.StatusOK, PlaybookListResponse{Playbooks: ids})
}

// renderGraph handles GET /playbooks/{playbookID}/graph.
func (s *Server) renderGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.provider.Graph(r.Context(), chi.URLParam(r, "playbookID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(g, nil))
}

// openapiSpec handles GET /openapi.yaml.
func (s *Server) openapiSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	w.Write(api.Spec)
}

// swaggerUI handles GET /swagger.
func (s *Server) swaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(swaggerHTML))
}

// health handles GET /healthz.
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Playbook API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

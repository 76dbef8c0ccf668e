package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/caseflow/playbook"
	"github.com/caseflow/playbook/internal/presentation/graph"
	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/ports"
	"github.com/caseflow/playbook/pkg/schema"
)

// SessionResponse aligns with the HTTP payloads and provides a unified
// structure across adapters.
type SessionResponse struct {
	Session  *domain.DecisionSession `json:"session" jsonschema_description:"The full decision session record"`
	Terminal bool                    `json:"terminal" jsonschema_description:"True when the session has completed"`
}

// Server wraps the decision engine and exposes it as an MCP Server, so
// agent frameworks can start sessions and submit decisions as tools.
type Server struct {
	engine    ports.DecisionEngine
	provider  ports.GraphProvider
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.DecisionEngine, provider ports.GraphProvider) *Server {
	s := &Server{
		engine:    engine,
		provider:  provider,
		mcpServer: server.NewMCPServer("playbook-mcp", strings.TrimSpace(playbook.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		// Create a timeout context for the graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		fmt.Println("\nShutdown signal received, shutting down server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("CORS Middleware", "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Baggage, Sentry-Trace")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: start_session
	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Start a new decision session for a case against a playbook. Fails if the pair already has an active session."),
		mcp.WithString("case_id", mcp.Required(), mcp.Description("The legal case identifier")),
		mcp.WithString("playbook_id", mcp.Required(), mcp.Description("The playbook to walk")),
		mcp.WithOutputSchema[SessionResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStartSession))

	// TOOL: submit_decision
	submitTool := mcp.NewTool("submit_decision",
		mcp.WithDescription("Record one decision against an active session and advance the traversal. Completing the path returns the synthesized recommendations."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session to advance")),
		mcp.WithString("selected_option", mcp.Required(), mcp.Description("An option label on the session's current node")),
		mcp.WithString("rationale", mcp.Required(), mcp.Description("Free-text justification for this decision")),
		mcp.WithNumber("confidence", mcp.Required(), mcp.Description("Certainty in this decision, between 0 and 1")),
		mcp.WithNumber("expected_version", mcp.Description("Optimistic concurrency token; the session version last observed (optional)")),
		mcp.WithOutputSchema[SessionResponse](),
	)
	s.mcpServer.AddTool(submitTool, mcp.NewStructuredToolHandler(s.handleSubmitDecision))

	// TOOL: get_session
	getTool := mcp.NewTool("get_session",
		mcp.WithDescription("Fetch a decision session, including its history and any final recommendations."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session to fetch")),
		mcp.WithOutputSchema[SessionResponse](),
	)
	s.mcpServer.AddTool(getTool, mcp.NewStructuredToolHandler(s.handleGetSession))

	// TOOL: reset_session
	resetTool := mcp.NewTool("reset_session",
		mcp.WithDescription("Discard a session's history and recommendations and return it to the graph root."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session to reset")),
		mcp.WithOutputSchema[SessionResponse](),
	)
	s.mcpServer.AddTool(resetTool, mcp.NewStructuredToolHandler(s.handleResetSession))

	// TOOL: list_playbooks
	s.mcpServer.AddTool(mcp.NewTool("list_playbooks",
		mcp.WithDescription("List the ids of all available playbooks."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.provider.Playbooks(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(ids)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: render_graph
	s.mcpServer.AddTool(mcp.NewTool("render_graph",
		mcp.WithDescription("Render a playbook's decision graph for introspection."),
		mcp.WithString("playbook_id", mcp.Required(), mcp.Description("The playbook to render")),
		mcp.WithString("format", mcp.Description("Output format: 'mermaid' (default) or 'json'")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		playbookID, _ := args["playbook_id"].(string)
		format, _ := args["format"].(string)

		g, err := s.provider.Graph(ctx, playbookID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("graph failed: %v", err)), nil
		}

		if format == "json" {
			jsonBytes, err := json.Marshal(schema.FromGraph(g))
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
			}
			return mcp.NewToolResultText(string(jsonBytes)), nil
		}
		return mcp.NewToolResultText(graph.GenerateMermaid(g, nil)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionResponse, error) {
	caseID, _ := args["case_id"].(string)
	playbookID, _ := args["playbook_id"].(string)

	sess, err := s.engine.StartSession(ctx, caseID, playbookID)
	if err != nil {
		slog.Warn("MCP StartSession rejected", "case_id", caseID, "playbook_id", playbookID, "error", err)
		return SessionResponse{}, fmt.Errorf("start failed: %w", err)
	}
	return SessionResponse{Session: sess, Terminal: sess.Completed()}, nil
}

func (s *Server) handleSubmitDecision(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionResponse, error) {
	sessionID, _ := args["session_id"].(string)
	option, _ := args["selected_option"].(string)
	rationale, _ := args["rationale"].(string)
	confidence, _ := args["confidence"].(float64)

	var expectedVersion int64
	if raw, ok := args["expected_version"].(float64); ok {
		expectedVersion = int64(raw)
	}

	sess, err := s.engine.SubmitDecision(ctx, sessionID, ports.SubmitDecisionCommand{
		SelectedOption:  option,
		Rationale:       rationale,
		Confidence:      confidence,
		ExpectedVersion: expectedVersion,
	})
	if err != nil {
		slog.Warn("MCP SubmitDecision rejected", "session_id", sessionID, "error", err)
		return SessionResponse{}, fmt.Errorf("submit failed: %w", err)
	}
	return SessionResponse{Session: sess, Terminal: sess.Completed()}, nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionResponse, error) {
	sessionID, _ := args["session_id"].(string)

	sess, err := s.engine.GetSession(ctx, sessionID)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("get failed: %w", err)
	}
	return SessionResponse{Session: sess, Terminal: sess.Completed()}, nil
}

func (s *Server) handleResetSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionResponse, error) {
	sessionID, _ := args["session_id"].(string)

	sess, err := s.engine.ResetSession(ctx, sessionID)
	if err != nil {
		slog.Warn("MCP ResetSession rejected", "session_id", sessionID, "error", err)
		return SessionResponse{}, fmt.Errorf("reset failed: %w", err)
	}
	return SessionResponse{Session: sess, Terminal: sess.Completed()}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: playbook://playbooks
	s.mcpServer.AddResource(mcp.NewResource("playbook://playbooks", "Available Playbooks",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.provider.Playbooks(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list playbooks: %w", err)
		}
		jsonBytes, _ := json.Marshal(ids)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "playbook://playbooks",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

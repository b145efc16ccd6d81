package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/agentcore/internal/logging"
	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/aretw0/agentcore/pkg/guardrail"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// PolicyURI names the resource that exposes the active guardrail policy.
const PolicyURI = "agentcore://policy"

// Policy is the live guardrail a Server consults.
type Policy interface {
	Evaluate(req domain.ActionRequest) domain.Decision
	Load() *guardrail.Policy
}

// EvaluateArgs are the arguments of evaluate_action.
type EvaluateArgs struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params,omitempty"`
}

// Evaluation is the structured result of evaluate_action.
type Evaluation struct {
	Tool    string           `json:"tool" jsonschema_description:"The evaluated tool"`
	Known   bool             `json:"known" jsonschema_description:"Whether the tool is a registered capability"`
	Risk    domain.RiskClass `json:"risk" jsonschema_description:"Declared risk class, sensitive for unknown tools"`
	Verdict domain.Verdict   `json:"verdict" jsonschema_description:"ALLOW, DENY or CONFIRM"`
	Reason  string           `json:"reason,omitempty" jsonschema_description:"Why the request was not allowed"`
}

// Server exposes guardrail previews and the capability catalogue over MCP.
// Evaluation has no side effects: nothing is ever invoked.
type Server struct {
	policy    Policy
	specs     []domain.ToolSpec
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

type Option func(*Server)

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(policy Policy, specs []domain.ToolSpec, version string, opts ...Option) *Server {
	s := &Server{
		policy:    policy,
		specs:     specs,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("agentcore-mcp", strings.TrimSpace(version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	evaluateTool := mcp.NewTool("evaluate_action",
		mcp.WithDescription("Preview the guardrail verdict for a tool call without executing it."),
		mcp.WithString("tool", mcp.Required(), mcp.Description("Capability name, e.g. delete_file")),
		mcp.WithObject("params", mcp.Description("Parameters the call would carry")),
		mcp.WithOutputSchema[Evaluation](),
	)
	s.mcpServer.AddTool(evaluateTool, mcp.NewStructuredToolHandler(s.handleEvaluate))

	s.mcpServer.AddTool(mcp.NewTool("list_capabilities",
		mcp.WithDescription("List the registered capabilities with their parameters and risk class."),
	), s.handleListCapabilities)
}

func (s *Server) spec(name string) (domain.ToolSpec, bool) {
	for _, spec := range s.specs {
		if spec.Name == name {
			return spec, true
		}
	}
	return domain.ToolSpec{}, false
}

func (s *Server) handleEvaluate(ctx context.Context, request mcp.CallToolRequest, args EvaluateArgs) (Evaluation, error) {
	if strings.TrimSpace(args.Tool) == "" {
		return Evaluation{}, errors.New("tool is required")
	}
	spec, known := s.spec(args.Tool)
	risk := spec.Risk
	if !known {
		risk = domain.RiskSensitive
	}
	d := s.policy.Evaluate(domain.ActionRequest{ID: "preview", Tool: args.Tool, Params: args.Params, Risk: risk})
	s.logger.Debug("MCP evaluate_action", "tool", args.Tool, "decision", d.String())
	return Evaluation{Tool: args.Tool, Known: known, Risk: risk, Verdict: d.Verdict, Reason: d.Reason}, nil
}

func (s *Server) handleListCapabilities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(s.specs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode capabilities: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(PolicyURI, "Active Guardrail Policy",
		mcp.WithMIMEType("application/json"),
	), s.readPolicy)
}

func (s *Server) readPolicy(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	p := s.policy.Load()
	if p == nil {
		return nil, errors.New("no policy loaded")
	}
	data, err := json.Marshal(p.Config())
	if err != nil {
		return nil, fmt.Errorf("encode policy: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      PolicyURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aretw0/agentcore"
	"github.com/aretw0/agentcore/internal/config"
	"github.com/aretw0/agentcore/pkg/adapters/mcp"
)

// MCPOptions configure the MCP server.
type MCPOptions struct {
	// Transport is "stdio" or "sse".
	Transport string
	Addr      string
	Watch     bool
}

// ServeMCP exposes guardrail previews and the capability list over MCP.
func ServeMCP(ctx context.Context, env *Env, opts MCPOptions) error {
	agent, err := env.offlineAgent()
	if err != nil {
		return err
	}
	specs, err := agent.Specs()
	if err != nil {
		return err
	}
	srv := mcp.NewServer(agent.Policy(), specs, agentcore.Version, mcp.WithLogger(env.Logger))

	sc := NewSignalContext(ctx)
	defer sc.Release()

	if opts.Watch && env.ConfigPath != "" {
		go func() {
			if err := agent.Policy().Watch(sc, env.ConfigPath, config.LoadPolicy); err != nil {
				env.Logger.Error("Policy watch stopped", "error", err)
			}
		}()
	}

	switch strings.ToLower(opts.Transport) {
	case "", "stdio":
		// Stdout carries JSON-RPC.
		log.SetOutput(os.Stderr)
		env.Logger.Info("Starting MCP server (stdio)")
		return srv.ServeStdio()
	case "sse":
		addr := opts.Addr
		if addr == "" {
			addr = ":8080"
		}
		return srv.ServeSSE(sc, addr)
	}
	return fmt.Errorf("unknown transport %q (supported: stdio, sse)", opts.Transport)
}

package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/nfshanq/ptyctl/src/session"
)

// Server is the tool facade that exposes the session manager over the
// official MCP SDK, both as a Gin-mounted HTTP handler and as a bare
// *mcp.Server usable by a stdio transport.
type Server struct {
	mcpServer *mcp.Server
	manager   *session.Manager
	engine    *gin.Engine
}

// NewServer builds the MCP server and registers the four ptyctl tools.
// ginEngine may be nil when the caller only wants the *mcp.Server for a
// non-HTTP transport (e.g. stdio); HTTP endpoints are skipped in that case.
func NewServer(manager *session.Manager, ginEngine *gin.Engine) (*Server, error) {
	logrus.Info("Creating MCP server")

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "ptyctl",
			Version: "1.0.0",
		},
		nil,
	)

	server := &Server{
		mcpServer: mcpServer,
		manager:   manager,
		engine:    ginEngine,
	}

	logrus.Info("Registering tools")
	if err := server.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	logrus.Info("Tools registered")

	if ginEngine != nil {
		server.setupHTTPEndpoints()
	}

	return server, nil
}

// MCPServer exposes the underlying SDK server, for transports that don't
// go through Gin (stdio). The admin socket goes through Dispatch instead.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

func (s *Server) setupHTTPEndpoints() {
	handler := mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	s.engine.Any("/mcp/*path", gin.WrapH(http.StripPrefix("/mcp", handler)))
	s.engine.Any("/mcp", gin.WrapH(handler))

	logrus.Info("MCP HTTP endpoints configured at /mcp")
}

// registerTools registers all four ptyctl tool methods with the MCP server.
func (s *Server) registerTools() error {
	if err := s.registerSessionTool(); err != nil {
		return err
	}
	logrus.Info("ptyctl_session tool registered")

	if err := s.registerSessionIOTool(); err != nil {
		return err
	}
	logrus.Info("ptyctl_session_io tool registered")

	if err := s.registerSessionConfigTool(); err != nil {
		return err
	}
	logrus.Info("ptyctl_session_config tool registered")

	if err := s.registerSessionExecTool(); err != nil {
		return err
	}
	logrus.Info("ptyctl_session_exec tool registered")

	return nil
}

// LogToolCall wraps a tool handler function with logging middleware.
func LogToolCall[T any, R any](toolName string, handler func(ctx context.Context, req *mcp.CallToolRequest, args T) (*mcp.CallToolResult, R, error)) func(context.Context, *mcp.CallToolRequest, T) (*mcp.CallToolResult, R, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args T) (*mcp.CallToolResult, R, error) {
		start := time.Now()
		logrus.Infof("Tool call started: %s", toolName)

		result, output, err := handler(ctx, req, args)

		duration := time.Since(start)
		if err != nil {
			logrus.Errorf("Tool call failed: %s (duration: %v, error: %v)", toolName, duration, err)
			// Claude's API rejects tool results with is_error=true but empty content.
			if err.Error() == "" {
				err = fmt.Errorf("tool %s failed with unknown error", toolName)
			}
		} else {
			logrus.Infof("Tool call completed: %s (duration: %v)", toolName, duration)
		}

		return result, output, err
	}
}

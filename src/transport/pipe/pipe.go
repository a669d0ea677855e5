// Package pipe serves the MCP tool facade over stdio, the line-oriented
// transport the official SDK provides for a single local client talking to
// the process directly over its standard streams (no HTTP, no socket).
package pipe

import (
	"context"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

// Serve runs server on a StdioTransport until ctx is done or the peer
// closes the pipe.
func Serve(ctx context.Context, server *gomcp.Server) error {
	logrus.Info("serving MCP tool facade over stdio")
	return server.Run(ctx, &gomcp.StdioTransport{})
}

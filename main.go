package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/nfshanq/ptyctl/src/admin"
	"github.com/nfshanq/ptyctl/src/backend/sshssh"
	"github.com/nfshanq/ptyctl/src/config"
	"github.com/nfshanq/ptyctl/src/mcp"
	"github.com/nfshanq/ptyctl/src/session"
	"github.com/nfshanq/ptyctl/src/transport/httptransport"
	"github.com/nfshanq/ptyctl/src/transport/pipe"
)

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	manager := session.NewManager(cfg.MaxSessions, sshssh.PolicyFromName(cfg.HostKeyPolicy), cfg.RecordTxEvents)
	defer manager.Stop()

	if cfg.Stdio {
		mcpServer, err := mcp.NewServer(manager, nil)
		if err != nil {
			log.Fatalf("Failed to create MCP server: %v", err)
		}
		if err := pipe.Serve(ctx, mcpServer.MCPServer()); err != nil {
			log.Fatalf("stdio transport exited: %v", err)
		}
		return
	}

	router := httptransport.NewRouter(cfg.AuthToken)
	mcpServer, err := mcp.NewServer(manager, router)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	if cfg.ControlMode != config.ControlModeDisabled {
		adminServer := admin.NewServer(mcpServer, cfg.ControlMode, admin.SocketPath(cfg.AdminSocketPath))
		if err := adminServer.Listen(); err != nil {
			log.Fatalf("Failed to start admin socket: %v", err)
		}
		go func() {
			if err := adminServer.Serve(ctx); err != nil {
				log.Printf("admin socket exited: %v", err)
			}
		}()
		defer adminServer.Close()
	}

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Starting ptyctl on %s", serverAddr)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// Package config layers file + environment + flag configuration. The core
// packages never read a flag or an environment variable directly; they are
// only ever constructed from the Config struct this package produces.
package config

import (
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ControlMode gates what the admin socket accepts.
type ControlMode string

const (
	ControlModeReadWrite ControlMode = "readwrite"
	ControlModeReadOnly  ControlMode = "readonly"
	ControlModeDisabled  ControlMode = "disabled"
)

// Config is the fully-resolved process configuration.
type Config struct {
	Port int

	AuthToken string

	AdminSocketPath string
	ControlMode     ControlMode

	MaxSessions int

	// HostKeyPolicy is the default SSH host key policy (strict, acceptnew,
	// or disabled) for opens that don't name one per request.
	HostKeyPolicy string

	// RecordTxEvents enables the one-line log on sensitive session writes.
	RecordTxEvents bool

	Stdio bool
}

const (
	defaultPort          = 8088
	defaultMaxSessions   = 64
	defaultHostKeyPolicy = "strict"
)

// Load reads .env (if present), then layers environment variables, then
// command-line flags, highest priority last. Flag parsing uses the
// package-level flag.CommandLine and happens once at startup.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		// Absence of a .env file is normal outside local development.
	}

	cfg := Config{
		Port:            envInt("PTYCTL_PORT", defaultPort),
		AuthToken:       os.Getenv("PTYCTL_AUTH_TOKEN"),
		AdminSocketPath: os.Getenv("PTYCTL_ADMIN_SOCKET"),
		ControlMode:     ControlMode(envOr("PTYCTL_CONTROL_MODE", string(ControlModeReadWrite))),
		MaxSessions:     envInt("PTYCTL_MAX_SESSIONS", defaultMaxSessions),
		HostKeyPolicy:   envOr("PTYCTL_HOST_KEY_POLICY", defaultHostKeyPolicy),
		RecordTxEvents:  envBool("PTYCTL_RECORD_TX_EVENTS", false),
	}

	port := flag.Int("port", cfg.Port, "Port to listen on for the HTTP MCP transport")
	shortPort := flag.Int("p", cfg.Port, "Port to listen on (shorthand)")
	authToken := flag.String("auth-token", cfg.AuthToken, "Bearer token required on the HTTP transport (empty disables auth)")
	adminSocket := flag.String("admin-socket", cfg.AdminSocketPath, "Path to the admin unix socket (empty uses the XDG_RUNTIME_DIR fallback chain)")
	controlMode := flag.String("control-mode", string(cfg.ControlMode), "Admin socket control mode: readwrite, readonly, or disabled")
	maxSessions := flag.Int("max-sessions", cfg.MaxSessions, "Maximum concurrent sessions")
	hostKeyPolicy := flag.String("host-key-policy", cfg.HostKeyPolicy, "Default SSH host key policy: strict, acceptnew, or disabled")
	recordTxEvents := flag.Bool("record-tx-events", cfg.RecordTxEvents, "Log a structured line on sensitive session writes")
	stdio := flag.Bool("stdio", false, "Serve the MCP tool facade over stdio instead of HTTP")
	flag.Parse()

	envPort := cfg.Port
	cfg.Port = *port
	if *shortPort != envPort {
		cfg.Port = *shortPort
	}
	cfg.AuthToken = *authToken
	cfg.AdminSocketPath = *adminSocket
	cfg.ControlMode = ControlMode(*controlMode)
	cfg.MaxSessions = *maxSessions
	cfg.HostKeyPolicy = *hostKeyPolicy
	cfg.RecordTxEvents = *recordTxEvents
	cfg.Stdio = *stdio

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

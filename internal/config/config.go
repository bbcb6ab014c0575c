package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"devops-pulse/internal/chat"
	"devops-pulse/internal/registry"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Model   chat.ModelConfig
	Servers []registry.ServerConfig

	Project string
	Team    string

	HTTPAddr       string
	RequestTimeout time.Duration
	MaxRoundTrips  int

	DataPath string
	LogDir   string
	WebDir   string
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority when
	// launched from a service manager or shortcut)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := filepath.Join(dataPath, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory")
	}

	timeoutSecs, _ := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "60"))
	maxTrips, _ := strconv.Atoi(getEnv("CHAT_MAX_ROUNDTRIPS", "10"))

	cfg := &AppConfig{
		Model: chat.ModelConfig{
			Endpoint:   getEnv("AZURE_AI_ENDPOINT", ""),
			Deployment: getEnv("AZURE_AI_DEPLOYMENT", "gpt-4.1"),
			APIKey:     getEnv("AZURE_AI_API_KEY", ""),
			APIVersion: getEnv("AZURE_AI_API_VERSION", "2025-01-01-preview"),
		},
		Servers:        loadServers(),
		Project:        getEnv("DEVOPS_PROJECT", ""),
		Team:           getEnv("DEVOPS_TEAM", ""),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		RequestTimeout: time.Duration(timeoutSecs) * time.Second,
		MaxRoundTrips:  maxTrips,
		DataPath:       dataPath,
		LogDir:         logDir,
		WebDir:         getEnv("WEB_DIR", filepath.Join(dataPath, "web", "dist")),
	}

	return cfg, nil
}

// loadServers reads tool-server definitions from the environment. Servers are
// declared as a comma-separated id list in MCP_SERVERS; each id then carries
// its own MCP_<ID>_* variables. When MCP_SERVERS is unset a single stdio
// server running the Azure DevOps MCP package is assumed, matching the
// default deployment.
func loadServers() []registry.ServerConfig {
	ids := strings.Split(getEnv("MCP_SERVERS", ""), ",")

	var servers []registry.ServerConfig
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		prefix := "MCP_" + strings.ToUpper(strings.ReplaceAll(id, "-", "_")) + "_"
		sc := registry.ServerConfig{
			ID:        id,
			Transport: registry.Transport(getEnv(prefix+"TRANSPORT", "stdio")),
			Command:   getEnv(prefix+"COMMAND", ""),
			Args:      splitArgs(getEnv(prefix+"ARGS", "")),
			URL:       getEnv(prefix+"URL", ""),
		}
		servers = append(servers, sc)
	}

	if len(servers) == 0 {
		servers = append(servers, registry.ServerConfig{
			ID:        "azure-devops",
			Transport: registry.TransportStdio,
			Command:   getEnv("MCP_COMMAND", "npx"),
			Args:      splitArgs(getEnv("MCP_ARGS", "-y @azure-devops/mcp DevOpsAssistant")),
		})
	}

	return servers
}

func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AgentConfig describes one model backend. An empty APIURL or APIKey falls
// back to the shared OpenRouter endpoint and key.
type AgentConfig struct {
	Name        string
	APIURL      string
	APIKey      string
	Model       string
	Temperature float64
}

// Configuration constants
var (
	// OpenRouterAPIKey is the shared API key for agents without their own
	OpenRouterAPIKey string

	// OpenRouterAPIURL is the default chat-completions endpoint
	OpenRouterAPIURL = "https://openrouter.ai/api/v1/chat/completions"

	// AnalysisAgents are the three model backends queried at every stage
	AnalysisAgents = []AgentConfig{
		{Name: "claude", Model: "anthropic/claude-sonnet-4.5", Temperature: 0.7},
		{Name: "gpt", Model: "openai/gpt-5.1", Temperature: 0.7},
		{Name: "grok", Model: "x-ai/grok-4", Temperature: 0.7},
	}

	// JudgeAgent assesses every stage and produces the final synthesis.
	// Lower temperature for more consistent judging.
	JudgeAgent = AgentConfig{Name: "judge", Model: "anthropic/claude-sonnet-4.5", Temperature: 0.3}

	// DefaultPerspectives is the fixed perspective order unless overridden
	DefaultPerspectives = []string{"economic", "environmental", "technological"}

	// DataDir is the directory for the run log
	DataDir = "data"

	// RunLogFile holds one JSON record per completed run
	RunLogFile = "data/ensemble_memory.json"

	// Timeout constants
	ModelQueryTimeout = 120 * time.Second
	JudgeQueryTimeout = 120 * time.Second

	// MaxResponseTokens caps each model reply
	MaxResponseTokens = 2000

	// CORS allowed origins (configurable via environment)
	// In development (empty/default), allows any localhost port
	// In production, set CORS_ALLOWED_ORIGINS environment variable
	CORSAllowedOrigins = []string{}

	// MaxRequestBodySize is the maximum allowed request body size (1MB)
	MaxRequestBodySize int64 = 1 << 20

	// RunsCacheTTL is the time-to-live for the run-history cache
	RunsCacheTTL = 30 * time.Second

	// ServerAddr is the listen address for the backend
	ServerAddr = ":8001"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Load .env file - try multiple locations
	envLocations := []string{
		".env",    // Current directory
		"../.env", // Parent directory
	}

	envLoaded := false
	for _, envPath := range envLocations {
		absPath, err := filepath.Abs(envPath)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			if err := godotenv.Load(absPath); err == nil {
				log.Printf("Loaded .env from: %s", absPath)
				envLoaded = true
				break
			}
		}
	}

	if !envLoaded {
		log.Printf("Warning: .env file not found in any expected location")
	}

	OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	if OpenRouterAPIKey == "" {
		log.Fatal("OPENROUTER_API_KEY environment variable is required")
	}

	// Per-agent model overrides
	for i := range AnalysisAgents {
		applyAgentEnv(&AnalysisAgents[i])
	}
	applyAgentEnv(&JudgeAgent)

	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		CORSAllowedOrigins = parseAllowedOrigins(corsOrigins)
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		DataDir = dataDir
		RunLogFile = filepath.Join(dataDir, "ensemble_memory.json")
	}

	log.Println("Configuration loaded successfully")
}

// parseAllowedOrigins splits a comma-separated origin list. Origins carry a
// scheme and often a port, so ":" cannot be the separator.
func parseAllowedOrigins(raw string) []string {
	origins := []string{}
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// applyAgentEnv applies CLAUDE_MODEL / CLAUDE_API_URL / CLAUDE_API_KEY style
// environment overrides (uppercased agent name as the prefix).
func applyAgentEnv(cfg *AgentConfig) {
	prefix := envPrefix(cfg.Name)
	if model := os.Getenv(prefix + "_MODEL"); model != "" {
		cfg.Model = model
	}
	if url := os.Getenv(prefix + "_API_URL"); url != "" {
		cfg.APIURL = url
	}
	if key := os.Getenv(prefix + "_API_KEY"); key != "" {
		cfg.APIKey = key
	}
}

// envPrefix converts an agent name to its environment variable prefix.
func envPrefix(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

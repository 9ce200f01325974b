package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AgentClient is one model backend behind an OpenAI-style chat-completions
// endpoint. Analysis agents and the judge share the same shape.
type AgentClient struct {
	Name        string
	APIURL      string
	APIKey      string
	Model       string
	Temperature float64
}

// NewAgentClient builds a client from config, falling back to the shared
// OpenRouter endpoint and key when the agent has no dedicated ones.
func NewAgentClient(cfg AgentConfig) *AgentClient {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = OpenRouterAPIURL
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = OpenRouterAPIKey
	}
	return &AgentClient{
		Name:        cfg.Name,
		APIURL:      apiURL,
		APIKey:      apiKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
	}
}

// Invoke sends a single-prompt chat-completions request and returns the
// first choice's content.
func (a *AgentClient) Invoke(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	client := &http.Client{
		Timeout: timeout,
	}

	payload := ChatRequest{
		Model:       a.Model,
		Messages:    []ChatMessage{{Role: "user", Content: prompt}},
		Temperature: a.Temperature,
		MaxTokens:   MaxResponseTokens,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.APIURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+a.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResponse ChatAPIResponse
	if err := json.Unmarshal(bodyBytes, &apiResponse); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(apiResponse.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return apiResponse.Choices[0].Message.Content, nil
}

// agentResult is one agent's outcome from a parallel stage query.
type agentResult struct {
	Content string
	Err     error
}

// queryAgentsParallel invokes every agent concurrently with its own prompt.
// Graceful degradation: a failed agent is logged and recorded with its error
// in the results map, and never fails the stage for the other agents.
func queryAgentsParallel(ctx context.Context, agents []*AgentClient, prompts map[string]string) map[string]agentResult {
	g, ctx := errgroup.WithContext(ctx)

	results := make(map[string]agentResult)
	var mu sync.Mutex

	for _, agent := range agents {
		agent := agent
		g.Go(func() error {
			content, err := agent.Invoke(ctx, prompts[agent.Name], ModelQueryTimeout)
			if err != nil {
				log.Printf("Error querying agent %s: %v", agent.Name, err)
			}
			mu.Lock()
			results[agent.Name] = agentResult{Content: content, Err: err}
			mu.Unlock()
			return nil
		})
	}

	// Agent errors are recorded, not returned, so Wait never fails.
	g.Wait()

	return results
}

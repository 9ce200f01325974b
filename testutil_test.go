package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

// mockChatServer is a fake chat-completions endpoint. The responder picks
// the status and reply content from the requesting model and prompt, which
// lets a single server play all three agents plus the judge.
type mockChatServer struct {
	server *httptest.Server
	calls  int64
}

func newMockChatServer(t *testing.T, respond func(model, prompt string) (int, string)) *mockChatServer {
	s := &mockChatServer{}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&s.calls, 1)

		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") == "" {
			t.Errorf("Missing Authorization header")
		}

		var request ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("Failed to decode chat request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if len(request.Messages) != 1 {
			t.Errorf("Expected 1 message, got %d", len(request.Messages))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		status, content := respond(request.Model, request.Messages[0].Content)
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(content))
			return
		}

		response := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *mockChatServer) URL() string {
	return s.server.URL
}

func (s *mockChatServer) Calls() int64 {
	return atomic.LoadInt64(&s.calls)
}

// scriptedResponder answers every pipeline stage with well-formed content,
// recognizing each stage by a distinctive phrase in its prompt.
func scriptedResponder(model, prompt string) (int, string) {
	switch {
	case strings.Contains(prompt, "FINAL COMPREHENSIVE EVALUATION"):
		return http.StatusOK, `FINAL_EVALUATION: The staged process produced a clear improvement.
AGREEMENTS_DISAGREEMENTS: Models agreed on fundamentals, diverged on priorities.
BEST_INSIGHTS: Integration of trade-offs across perspectives.
FINAL_SYNTHESIS: The definitive synthesized answer combining all perspectives.
METHODOLOGY_ASSESSMENT: Multi-perspective staging outperformed the baselines.
CLAUDE_SCORE: 0.9
GPT_SCORE: 0.8
GROK_SCORE: 0.7`
	case strings.Contains(prompt, "Provide your initial assessment"):
		return http.StatusOK, "INITIAL_ASSESSMENT: A rich query for multi-perspective work.\nCONFIDENCE: 0.85"
	case strings.Contains(prompt, "evaluating Step 1"):
		return http.StatusOK, "STEP1_ANALYSIS: Solid single-perspective coverage.\nCONFIDENCE: 0.86"
	case strings.Contains(prompt, "evaluating Step 2"):
		return http.StatusOK, "STEP2_ANALYSIS: Good integration of both perspectives.\nCONFIDENCE: 0.87"
	case strings.Contains(prompt, "evaluating Step 3"):
		return http.StatusOK, "STEP3_ANALYSIS: Sophisticated final syntheses.\nCONFIDENCE: 0.88"
	case strings.Contains(prompt, "comprehensive answer to this query"):
		return http.StatusOK, "A plain baseline answer from " + model + "."
	case strings.Contains(prompt, "FINAL SYNTHESIS integrating"):
		return http.StatusOK, "COMPREHENSIVE_SYNTHESIS: A complete three-perspective synthesis.\nFINAL_CONFIDENCE: 0.9"
	case strings.Contains(prompt, "now integrating the"):
		return http.StatusOK, "An integrated two-perspective comparison from " + model + "."
	default:
		return http.StatusOK, "PERSPECTIVE_ANALYSIS: A focused single-perspective analysis.\nREASONING: Step by step through the domain.\nCONFIDENCE: 0.8"
	}
}

// newTestPipeline wires three agents plus a judge to the mock server with a
// run log in a fresh temp dir.
func newTestPipeline(t *testing.T, url string) (*Pipeline, *RunLog) {
	runLog := NewRunLog(filepath.Join(t.TempDir(), "ensemble_memory.json"))
	agents := []*AgentClient{
		{Name: "claude", APIURL: url, APIKey: "test-key", Model: "test/claude", Temperature: 0.7},
		{Name: "gpt", APIURL: url, APIKey: "test-key", Model: "test/gpt", Temperature: 0.7},
		{Name: "grok", APIURL: url, APIKey: "test-key", Model: "test/grok", Temperature: 0.7},
	}
	judge := &AgentClient{Name: "judge", APIURL: url, APIKey: "test-key", Model: "test/judge", Temperature: 0.3}
	return NewPipeline(agents, judge, runLog), runLog
}

// sampleRunRecord builds a logged run for storage tests.
func sampleRunRecord(query string, processingTime float64, scores map[string]float64) RunRecord {
	return RunRecord{
		Query:            query,
		FinalSynthesis:   "Synthesized answer for " + query,
		JudgeAnalysis:    "Judge analysis text",
		ConfidenceScores: scores,
		ModelResponses: map[string]ModelRunSummary{
			"claude": {Baseline: "baseline", Step1: "step1", Step2: "step2", Step3: "step3", FinalConfidence: 0.9},
		},
		ProcessingTime:  processingTime,
		TotalIterations: 6,
		Timestamp:       "2026-08-23T12:00:00Z",
	}
}

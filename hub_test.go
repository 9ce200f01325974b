package main

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newWSServer(t *testing.T, responder func(model, prompt string) (int, string)) (string, *RunLog) {
	chat := newMockChatServer(t, responder)
	pipeline, runLog := newTestPipeline(t, chat.URL())
	hub := NewHub(pipeline)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", hub.ServeWS)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws", runLog
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var event wsEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return event
}

func writeJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
}

func expectConfirmed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	event := readEvent(t, conn)
	if event["type"] != "connection_confirmed" {
		t.Fatalf("Expected connection_confirmed, got %v", event["type"])
	}
	if id, _ := event["client_id"].(string); id == "" {
		t.Fatal("Expected non-empty client_id")
	}
}

func TestWSConnectionConfirmed(t *testing.T) {
	url, _ := newWSServer(t, scriptedResponder)
	conn := dialWS(t, url)
	expectConfirmed(t, conn)
}

func TestWSPingPong(t *testing.T) {
	url, _ := newWSServer(t, scriptedResponder)
	conn := dialWS(t, url)
	expectConfirmed(t, conn)

	writeJSON(t, conn, map[string]string{"type": "ping"})
	event := readEvent(t, conn)
	if event["type"] != "pong" {
		t.Errorf("Expected pong, got %v", event["type"])
	}
}

func TestWSUnknownMessageType(t *testing.T) {
	url, _ := newWSServer(t, scriptedResponder)
	conn := dialWS(t, url)
	expectConfirmed(t, conn)

	writeJSON(t, conn, map[string]string{"type": "bogus"})
	event := readEvent(t, conn)
	if event["type"] != "error" {
		t.Fatalf("Expected error event, got %v", event["type"])
	}
	if msg, _ := event["message"].(string); msg != "Unknown message type: bogus" {
		t.Errorf("Unexpected error message: %q", msg)
	}

	// The connection stays open.
	writeJSON(t, conn, map[string]string{"type": "ping"})
	if event := readEvent(t, conn); event["type"] != "pong" {
		t.Errorf("Expected pong after error, got %v", event["type"])
	}
}

func TestWSInvalidJSON(t *testing.T) {
	url, _ := newWSServer(t, scriptedResponder)
	conn := dialWS(t, url)
	expectConfirmed(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("definitely not json")); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	event := readEvent(t, conn)
	if event["type"] != "error" {
		t.Fatalf("Expected error event, got %v", event["type"])
	}
	if msg, _ := event["message"].(string); msg != "Invalid JSON format" {
		t.Errorf("Unexpected error message: %q", msg)
	}

	writeJSON(t, conn, map[string]string{"type": "ping"})
	if event := readEvent(t, conn); event["type"] != "pong" {
		t.Errorf("Expected pong after error, got %v", event["type"])
	}
}

func TestWSStartAnalysisEmptyQuery(t *testing.T) {
	url, _ := newWSServer(t, scriptedResponder)
	conn := dialWS(t, url)
	expectConfirmed(t, conn)

	writeJSON(t, conn, map[string]string{"type": "start_analysis", "query": "   "})
	event := readEvent(t, conn)
	if event["type"] != "error" {
		t.Fatalf("Expected error event before any analysis_started, got %v", event["type"])
	}
	if msg, _ := event["message"].(string); msg != "Query is required" {
		t.Errorf("Unexpected error message: %q", msg)
	}

	writeJSON(t, conn, map[string]string{"type": "ping"})
	if event := readEvent(t, conn); event["type"] != "pong" {
		t.Errorf("Expected pong after rejected query, got %v", event["type"])
	}
}

func TestWSStartAnalysisEndToEnd(t *testing.T) {
	url, _ := newWSServer(t, scriptedResponder)
	conn := dialWS(t, url)
	expectConfirmed(t, conn)

	writeJSON(t, conn, map[string]string{"type": "start_analysis", "query": "How should cities adopt electric buses?"})

	event := readEvent(t, conn)
	if event["type"] != "analysis_started" {
		t.Fatalf("Expected analysis_started first, got %v", event["type"])
	}
	if event["query"] != "How should cities adopt electric buses?" {
		t.Errorf("Unexpected query in analysis_started: %v", event["query"])
	}

	counts := map[string]int{}
	sawStep6 := false
	deadline := time.Now().Add(30 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for analysis_complete")
		}
		event := readEvent(t, conn)
		eventType, _ := event["type"].(string)
		counts[eventType]++

		if eventType == "step_complete" {
			if step, ok := event["step"].(float64); ok && step == 6 {
				sawStep6 = true
			}
		}
		if eventType == "agent_update" {
			if synthetic, _ := event["synthetic"].(bool); !synthetic {
				t.Error("Expected agent_update events to be flagged synthetic")
			}
		}
		if eventType == "analysis_complete" {
			if _, ok := event["results"]; !ok {
				t.Error("Expected results payload in analysis_complete")
			}
			if _, ok := event["processing_time"]; !ok {
				t.Error("Expected processing_time in analysis_complete")
			}
			break
		}
	}

	if counts["analysis_complete"] != 1 {
		t.Errorf("Expected exactly one analysis_complete, got %d", counts["analysis_complete"])
	}
	if counts["baseline_response"] != 3 {
		t.Errorf("Expected 3 baseline_response events, got %d", counts["baseline_response"])
	}
	if counts["judge_assessment"] < 5 {
		t.Errorf("Expected at least 5 judge_assessment events, got %d", counts["judge_assessment"])
	}
	if counts["multi_perspective_update"] != 3 {
		t.Errorf("Expected 3 multi_perspective_update events, got %d", counts["multi_perspective_update"])
	}
	if !sawStep6 {
		t.Error("Expected a step_complete event for step 6")
	}

	// The completion broadcast follows the unicast result stream.
	if event := readEvent(t, conn); event["type"] != "run_logged" {
		t.Errorf("Expected run_logged broadcast, got %v", event["type"])
	}
}

func TestWSClientDisconnectMidRun(t *testing.T) {
	slowResponder := func(model, prompt string) (int, string) {
		time.Sleep(50 * time.Millisecond)
		return scriptedResponder(model, prompt)
	}
	url, runLog := newWSServer(t, slowResponder)

	conn := dialWS(t, url)
	expectConfirmed(t, conn)

	writeJSON(t, conn, map[string]string{"type": "start_analysis", "query": "orphaned run"})
	if event := readEvent(t, conn); event["type"] != "analysis_started" {
		t.Fatalf("Expected analysis_started, got %v", event["type"])
	}

	// Drop the initiator while the stages are still in flight.
	time.Sleep(100 * time.Millisecond)
	conn.Close()

	// The run keeps going without its client and is still logged.
	deadline := time.Now().Add(15 * time.Second)
	for {
		records, err := runLog.ListRuns()
		if err != nil {
			t.Fatalf("ListRuns() failed: %v", err)
		}
		if len(records) == 1 {
			if records[0].Query != "orphaned run" {
				t.Errorf("Logged query = %q, want orphaned run", records[0].Query)
			}
			break
		}
		if len(records) > 1 {
			t.Fatalf("Expected 1 logged run, got %d", len(records))
		}
		if time.Now().After(deadline) {
			t.Fatal("Run was not logged after the initiator disconnected")
		}
		time.Sleep(20 * time.Millisecond)
	}

	// The server keeps serving other clients.
	other := dialWS(t, url)
	expectConfirmed(t, other)
	writeJSON(t, other, map[string]string{"type": "ping"})
	for {
		event := readEvent(t, other)
		if event["type"] == "pong" {
			break
		}
		// The orphaned run's completion broadcast may arrive first.
		if event["type"] != "run_logged" {
			t.Fatalf("Expected pong or run_logged, got %v", event["type"])
		}
	}
}

func TestWSRunLoggedBroadcastReachesAllClients(t *testing.T) {
	url, _ := newWSServer(t, scriptedResponder)

	initiator := dialWS(t, url)
	expectConfirmed(t, initiator)
	observer := dialWS(t, url)
	expectConfirmed(t, observer)

	writeJSON(t, initiator, map[string]string{"type": "start_analysis", "query": "query"})

	// The observer sees nothing from the run itself, only the broadcast.
	event := readEvent(t, observer)
	if event["type"] != "run_logged" {
		t.Fatalf("Expected run_logged on observer, got %v", event["type"])
	}
	if event["query"] != "query" {
		t.Errorf("Unexpected query in run_logged: %v", event["query"])
	}
}

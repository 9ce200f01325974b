package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// wsEvent is one JSON message on the progress channel.
type wsEvent map[string]interface{}

func errorEvent(message string) wsEvent {
	return wsEvent{"type": "error", "message": message}
}

// Hub owns all websocket clients and dispatches their commands. A run
// started by a client keeps going if that client disconnects; its events
// are simply dropped.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*wsClient
	pipeline *Pipeline
	upgrader websocket.Upgrader
}

func NewHub(pipeline *Pipeline) *Hub {
	return &Hub{
		clients:  make(map[string]*wsClient),
		pipeline: pipeline,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || isOriginAllowed(origin)
			},
		},
	}
}

// wsClient is one connected browser. Writes go through the buffered send
// channel so a slow client never blocks a run; the write pump is the only
// goroutine touching the connection for writes.
type wsClient struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// sendEvent queues an event for the client. Events for a gone or saturated
// client are dropped, never blocking the caller.
func (c *wsClient) sendEvent(event wsEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal event for client %s: %v", c.id, err)
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		log.Printf("Dropping event for slow client %s", c.id)
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *wsClient) writePump() {
	for {
		select {
		case data := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// ServeWS upgrades the request and services the connection until the client
// goes away.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		id:   uuid.New().String(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()
	log.Printf("Client connected: %s (total: %d)", client.id, h.clientCount())

	go client.writePump()

	client.sendEvent(wsEvent{
		"type":      "connection_confirmed",
		"client_id": client.id,
		"message":   "Successfully connected to LLM Ensemble WebSocket server",
	})

	h.readPump(client)
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump decodes client commands until the connection drops. Malformed or
// unknown commands produce error events and leave the connection open.
func (h *Hub) readPump(client *wsClient) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, client.id)
		h.mu.Unlock()
		client.close()
		log.Printf("Client disconnected: %s (total: %d)", client.id, h.clientCount())
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd ClientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.Printf("Invalid JSON from client %s: %v", client.id, err)
			client.sendEvent(errorEvent("Invalid JSON format"))
			continue
		}

		switch cmd.Type {
		case "start_analysis":
			h.handleStartAnalysis(client, cmd)
		case "ping":
			client.sendEvent(wsEvent{"type": "pong"})
		default:
			log.Printf("Unknown message type from client %s: %s", client.id, cmd.Type)
			client.sendEvent(errorEvent("Unknown message type: " + cmd.Type))
		}
	}
}

// handleStartAnalysis validates the command and kicks off the run. The
// analysis_started event is only emitted for a query the pipeline will
// actually accept.
func (h *Hub) handleStartAnalysis(client *wsClient, cmd ClientCommand) {
	query := strings.TrimSpace(cmd.Query)
	if query == "" {
		client.sendEvent(errorEvent("Query is required"))
		return
	}

	log.Printf("Starting analysis for client %s: %.50s", client.id, query)
	client.sendEvent(wsEvent{
		"type":      "analysis_started",
		"query":     query,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})

	req := AnalysisRequest{
		Query:               query,
		UniversalGuidance:   cmd.UniversalCot,
		PerspectiveGuidance: cmd.PerspectiveCots,
	}
	go h.runAnalysis(client, req)
}

// runAnalysis races the narration script against the real pipeline run and
// streams the authoritative results when the run resolves. The run uses a
// background context so a disconnecting client cannot cancel it.
func (h *Hub) runAnalysis(client *wsClient, req AnalysisRequest) {
	done := make(chan struct{})
	var result *RunResult
	var runErr error
	go func() {
		result, runErr = h.pipeline.Run(context.Background(), req)
		close(done)
	}()

	narrateProgress(client, h.pipeline.agentNames(), req.Perspectives, done)
	<-done

	if runErr != nil {
		log.Printf("Analysis failed for client %s: %v", client.id, runErr)
		client.sendEvent(errorEvent("Analysis failed: " + runErr.Error()))
		return
	}

	h.streamResults(client, result)

	h.Broadcast(wsEvent{
		"type":            "run_logged",
		"query":           result.Query,
		"processing_time": result.ProcessingTime,
	})
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event wsEvent) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.sendEvent(event)
	}
}

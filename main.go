package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Global run-history cache instance
var runsCache *RunCache

// isOriginAllowed validates a browser origin for both CORS and the websocket
// upgrade. With no configured origins, any localhost origin is allowed for
// development.
func isOriginAllowed(origin string) bool {
	if len(CORSAllowedOrigins) > 0 && CORSAllowedOrigins[0] != "" {
		for _, allowed := range CORSAllowedOrigins {
			if origin == allowed {
				return true
			}
		}
		return false
	}
	return strings.HasPrefix(origin, "http://localhost") ||
		strings.HasPrefix(origin, "http://127.0.0.1")
}

func buildAgents() []*AgentClient {
	agents := make([]*AgentClient, len(AnalysisAgents))
	for i, cfg := range AnalysisAgents {
		agents[i] = NewAgentClient(cfg)
	}
	return agents
}

func main() {
	// Load configuration
	LoadConfig()

	runLog := NewRunLog(RunLogFile)
	runsCache = NewRunCache(RunsCacheTTL)
	runLog.SetOnAppend(runsCache.Invalidate)

	pipeline := NewPipeline(buildAgents(), NewAgentClient(JudgeAgent), runLog)
	hub := NewHub(pipeline)

	router := setupRouter(pipeline, hub, runLog)

	log.Printf("Starting LLM Ensemble backend on %s...", ServerAddr)
	if err := router.Run(ServerAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRouter(pipeline *Pipeline, hub *Hub, runLog *RunLog) *gin.Engine {
	router := gin.Default()

	// Request size limit middleware
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBodySize)
		c.Next()
	})

	router.Use(cors.New(cors.Config{
		AllowOriginFunc:  isOriginAllowed,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
	}))

	router.GET("/", healthCheck)
	router.GET("/ws", hub.ServeWS)
	router.POST("/api/analyze", analyzeHandler(pipeline))
	router.GET("/api/runs", listRunsHandler(runLog))
	router.GET("/api/runs/stats", runStatsHandler(runLog))
	router.GET("/api/runs/search", searchRunsHandler(runLog))

	return router
}

// healthCheck returns a simple health check response.
// GET / - Returns service status information.
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "LLM Ensemble API",
	})
}

// analyzeHandler runs the full pipeline synchronously and returns the
// comprehensive result. POST /api/analyze - the non-streaming counterpart of
// the websocket start_analysis command.
func analyzeHandler(pipeline *Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request AnalysisRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Invalid request: %v", err),
			})
			return
		}

		result, err := pipeline.Run(c.Request.Context(), request)
		if err != nil {
			if errors.Is(err, ErrEmptyQuery) || errors.Is(err, ErrPerspectiveCount) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": fmt.Sprintf("Analysis failed: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// listRunsHandler returns the run history.
// GET /api/runs - Returns all logged runs with caching.
// Query params: ?refresh=true (force cache refresh)
func listRunsHandler(runLog *RunLog) gin.HandlerFunc {
	return func(c *gin.Context) {
		forceRefresh := c.Query("refresh") == "true"

		if !forceRefresh {
			if cached, ok := runsCache.Get(); ok {
				c.JSON(http.StatusOK, gin.H{
					"runs":         cached,
					"count":        len(cached),
					"last_updated": runsCache.GetLastUpdated(),
				})
				return
			}
		}

		runs, err := runLog.ListRuns()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": fmt.Sprintf("Failed to list runs: %v", err),
			})
			return
		}

		runsCache.Set(runs)
		c.JSON(http.StatusOK, gin.H{
			"runs":         runs,
			"count":        len(runs),
			"last_updated": runsCache.GetLastUpdated(),
		})
	}
}

// runStatsHandler returns aggregate statistics over the run history.
// GET /api/runs/stats
func runStatsHandler(runLog *RunLog) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := runLog.Stats()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": fmt.Sprintf("Failed to compute stats: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}

// searchRunsHandler searches past runs by query keyword.
// GET /api/runs/search?q=keyword
func searchRunsHandler(runLog *RunLog) gin.HandlerFunc {
	return func(c *gin.Context) {
		keyword := strings.TrimSpace(c.Query("q"))
		if keyword == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Query parameter 'q' is required",
			})
			return
		}

		matches, err := runLog.SearchRuns(keyword)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": fmt.Sprintf("Failed to search runs: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"runs":  matches,
			"count": len(matches),
		})
	}
}

package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"pe-tracker/src/config"
	"pe-tracker/src/helpers"
	"pe-tracker/src/interfaces"
	"pe-tracker/src/logger"
	"pe-tracker/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Tracker interfaces.IStockTracker
	engine  *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MTrackerUpdate
	register   chan *Client
	unregister chan *Client

	// Local cache of the last batch result
	latestState *models.MTrackerUpdate
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, tracker interfaces.IStockTracker, log *logger.Logger) *APIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:  cfg,
		Logger:  log,
		Tracker: tracker,
		engine:  gin.Default(),
		clients: make(map[*Client]struct{}),
		// Buffered channel so batch completions never block on slow clients
		broadcast:  make(chan *models.MTrackerUpdate, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		latestState: &models.MTrackerUpdate{
			Type:      "INITIAL",
			Stocks:    make(map[string]models.MHistoricalRecord),
			Threshold: cfg.Tracker.PEThreshold,
		},
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/stocks", s.getLatestStocks)
	s.engine.GET("/api/stocks/browse", s.browseStocks)
	s.engine.GET("/api/stocks/favorites", s.getFavorites)
	s.engine.GET("/api/stock/:ticker", s.getStock)
	s.engine.GET("/api/stock/:ticker/history", s.getStockHistory)
	s.engine.POST("/api/stock/:ticker/favorite", s.toggleFavorite)
	s.engine.POST("/api/update", s.updateStocks)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.runHub()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop() error {
	// Clean shutdown
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	c.JSON(200, gin.H{
		"tracked_tickers": s.Config.Tracker.Tickers,
		"pe_threshold":    s.Config.Tracker.PEThreshold,
	})
}

// -----------------------------------------------------------------------------

// getLatestStocks returns the newest historical record per tracked ticker
// (the dashboard view).
func (s *APIServer) getLatestStocks(c *gin.Context) {
	latest, err := s.Tracker.LatestTracked()
	if err != nil {
		s.Logger.Error("Failed to load latest stocks: %v", err)
		c.JSON(500, gin.H{"error": "failed to load stocks"})
		return
	}
	c.JSON(200, latest)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getFavorites(c *gin.Context) {
	favorites, err := s.Tracker.Favorites()
	if err != nil {
		s.Logger.Error("Failed to load favorites: %v", err)
		c.JSON(500, gin.H{"error": "failed to load favorites"})
		return
	}
	c.JSON(200, favorites)
}

// -----------------------------------------------------------------------------

func (s *APIServer) browseStocks(c *gin.Context) {
	page := intQuery(c, "page", 1)
	perPage := intQuery(c, "per_page", 20)
	if page < 1 || perPage < 1 || perPage > 100 {
		c.JSON(400, gin.H{"error": "invalid pagination parameters"})
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	fetchFresh := c.DefaultQuery("fresh", "true") == "true"

	result, err := s.Tracker.Browse(query, page, perPage, fetchFresh)
	if err != nil {
		s.Logger.Error("Browse failed: %v", err)
		c.JSON(500, gin.H{"error": "failed to browse stocks"})
		return
	}
	c.JSON(200, result)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getStock(c *gin.Context) {
	ticker := c.Param("ticker")
	if !config.IsValidTicker(ticker) {
		c.JSON(400, gin.H{"error": "invalid ticker symbol"})
		return
	}

	entry, err := s.Tracker.RefreshIfStale(strings.ToUpper(ticker))
	if errors.Is(err, helpers.ErrNotAvailable) {
		c.JSON(404, gin.H{"error": "no data available yet"})
		return
	}
	if err != nil {
		s.Logger.Error("Lookup failed for %s: %v", ticker, err)
		c.JSON(500, gin.H{"error": "failed to load stock"})
		return
	}
	c.JSON(200, entry)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getStockHistory(c *gin.Context) {
	ticker := c.Param("ticker")
	if !config.IsValidTicker(ticker) {
		c.JSON(400, gin.H{"error": "invalid ticker symbol"})
		return
	}

	limit := intQuery(c, "limit", 100)
	if limit < 1 || limit > 1000 {
		c.JSON(400, gin.H{"error": "limit must be between 1 and 1000"})
		return
	}

	records, err := s.Tracker.History(strings.ToUpper(ticker), limit)
	if err != nil {
		s.Logger.Error("History query failed for %s: %v", ticker, err)
		c.JSON(500, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(200, records)
}

// -----------------------------------------------------------------------------

func (s *APIServer) toggleFavorite(c *gin.Context) {
	ticker := c.Param("ticker")
	if !config.IsValidTicker(ticker) {
		c.JSON(400, gin.H{"error": "invalid ticker symbol"})
		return
	}

	isFavorite, err := s.Tracker.ToggleFavorite(strings.ToUpper(ticker))
	if helpers.IsNotFound(err) {
		c.JSON(404, gin.H{"success": false, "error": "stock not found"})
		return
	}
	if err != nil {
		s.Logger.Error("Toggle favorite failed for %s: %v", ticker, err)
		c.JSON(500, gin.H{"success": false, "error": "failed to toggle favorite"})
		return
	}
	c.JSON(200, gin.H{"success": true, "is_favorite": isFavorite})
}

// -----------------------------------------------------------------------------

// updateStocks runs a manual batch update of the tracked tickers and pushes
// the result to WebSocket clients.
func (s *APIServer) updateStocks(c *gin.Context) {
	threshold := s.Config.Tracker.PEThreshold
	if raw := c.DefaultPostForm("threshold", c.Query("threshold")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 || parsed > 1000 {
			c.JSON(400, gin.H{"success": false, "message": "threshold must be between 0 and 1000"})
			return
		}
		threshold = parsed
	}

	s.Logger.Info("Updating stock data (threshold %v)", threshold)
	saved := s.Tracker.UpdateTracked(s.Config.Tracker.Tickers, threshold)

	update := &models.MTrackerUpdate{
		Type:      "UPDATE",
		Stocks:    make(map[string]models.MHistoricalRecord, len(saved)),
		Threshold: threshold,
		Updated:   len(saved),
		Timestamp: time.Now().UTC().Unix(),
	}
	for _, record := range saved {
		update.Stocks[record.Ticker] = record
	}
	s.Broadcast(update)

	c.JSON(200, gin.H{
		"success": true,
		"updated": len(saved),
		"message": fmt.Sprintf("Successfully updated %d stocks", len(saved)),
	})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}

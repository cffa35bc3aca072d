// Package server exposes the assistant over HTTP: a JSON chat endpoint, an
// SSE streaming variant, a websocket channel, the model catalog, and
// transcript export.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/catalog"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/logging"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/observability"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/orchestrator"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/session"
)

// Config configures the HTTP server.
type Config struct {
	Host         string
	Port         int
	EnableCORS   bool
	Debug        bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// DefaultModel seeds new sessions.
	DefaultModel string
	// WelcomeText is returned when a new session is created.
	WelcomeText string
	// HideSources and HideIntent drop the respective fields from responses;
	// the artifacts are still recorded on the session.
	HideSources bool
	HideIntent  bool
}

func DefaultConfig() Config {
	return Config{
		Host:        "localhost",
		Port:        8080,
		EnableCORS:  true,
		ReadTimeout: 30 * time.Second,
		// Streaming responses outlive a request-scoped write deadline.
		WriteTimeout: 0,
	}
}

// Server owns the gin engine and the in-memory session registry.
type Server struct {
	orchestrator *orchestrator.Orchestrator
	catalog      *catalog.Service
	config       Config
	logger       logging.Logger
	metrics      *observability.MetricsCollector

	engine     *gin.Engine
	httpServer *http.Server
	wsUpgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*session.SessionContext
}

func New(orch *orchestrator.Orchestrator, models *catalog.Service, config Config, logger logging.Logger, metrics *observability.MetricsCollector) *Server {
	logger = logging.OrNop(logger)

	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	if config.EnableCORS {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
		corsConfig.AllowWebSockets = true
		engine.Use(cors.New(corsConfig))
	}

	s := &Server{
		orchestrator: orch,
		catalog:      models,
		config:       config,
		logger:       logger,
		metrics:      metrics,
		engine:       engine,
		wsUpgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*session.SessionContext),
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      engine,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/ws", s.handleWebSocket)

	api := s.engine.Group("/api")
	{
		api.POST("/chat", s.handleChat)
		api.POST("/chat/stream", s.handleChatStream)
		api.GET("/models", s.handleModels)
		api.GET("/sessions/:id/export", s.handleExport)
	}
}

// Handler exposes the engine for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// resolveSession returns the named session, or a fresh one when sessionID is
// empty. Unknown ids are an error so clients notice expired state.
func (s *Server) resolveSession(sessionID string) (*session.SessionContext, bool, error) {
	if sessionID == "" {
		sess := session.New(s.config.DefaultModel)
		if s.config.WelcomeText != "" {
			sess.AppendWelcome(s.config.WelcomeText)
		}
		s.mu.Lock()
		s.sessions[sess.ID()] = sess
		s.mu.Unlock()
		return sess, true, nil
	}

	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, false, fmt.Errorf("unknown session %q", sessionID)
	}
	return sess, false, nil
}

func (s *Server) lookupSession(sessionID string) (*session.SessionContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		// Websocket upgrades log their own lifecycle.
		if strings.HasPrefix(c.Request.URL.Path, "/ws") {
			return
		}
		logger.Info("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(started).Round(time.Millisecond))
	}
}

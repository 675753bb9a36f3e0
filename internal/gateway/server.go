package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lhdbsbz/canvas/internal/agent"
	"github.com/lhdbsbz/canvas/internal/augment"
	"github.com/lhdbsbz/canvas/internal/bridge"
	"github.com/lhdbsbz/canvas/internal/config"
	"github.com/lhdbsbz/canvas/internal/pdf"
	"github.com/lhdbsbz/canvas/internal/state"
)

// Every origin may open a socket; the bridge checks the origin of each message.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Deps are the components the gateway exposes.
type Deps struct {
	Store      *state.Store
	Augmenter  *augment.Augmenter
	Prescriber *agent.Prescriber
	Exporter   *pdf.Exporter
}

// Server is the canvas gateway server.
type Server struct {
	Store      *state.Store
	Augmenter  *augment.Augmenter
	Prescriber *agent.Prescriber
	Exporter   *pdf.Exporter
	Views      *ViewManager

	cfg     atomic.Pointer[config.Config]
	httpSrv *http.Server
	startAt time.Time
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		Store:      deps.Store,
		Augmenter:  deps.Augmenter,
		Prescriber: deps.Prescriber,
		Exporter:   deps.Exporter,
		Views:      NewViewManager(),
		startAt:    time.Now(),
	}
	if s.Exporter == nil {
		s.Exporter = pdf.New(pdf.DefaultOptions())
	}
	s.cfg.Store(cfg)
	return s
}

// SetConfig swaps the configuration. Views mounted afterwards use the new origins;
// live views keep theirs until they reconnect.
func (s *Server) SetConfig(cfg *config.Config) { s.cfg.Store(cfg) }

func (s *Server) config() *config.Config { return s.cfg.Load() }

// Engine builds the HTTP handler.
func (s *Server) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.corsMiddleware())

	engine.GET("/health", s.ginHealth)
	engine.GET("/ws", s.ginWebSocket)
	s.registerAPIRoutes(engine)
	return engine
}

// Start begins listening for connections and returns once ctx is done and the
// server has shut down.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config()
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler: s.Engine(),
	}

	slog.Info("canvas gateway starting", "port", cfg.Gateway.Port, "mode", cfg.Mode)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpSrv.Shutdown(shutdownCtx)
	}()

	if err := s.httpSrv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) ginHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"mode":   s.config().Mode,
		"uptime": time.Since(s.startAt).String(),
		"views":  s.Views.Count(),
	})
}

// viewOptions derives the listeners' origin settings from the current config.
func (s *Server) viewOptions(logger *slog.Logger) bridge.ViewOptions {
	cfg := s.config()
	return bridge.ViewOptions{
		Bridge: bridge.Options{
			AllowedOrigins:    cfg.AllowedOrigins(),
			LogTargetOrigin:   cfg.LogTargetOrigin(),
			ReplyTargetOrigin: cfg.ReplyTargetOrigin,
			Logger:            logger,
		},
		ParentAppURL: cfg.ParentAppURL,
		Logger:       logger,
	}
}

func (s *Server) ginWebSocket(c *gin.Context) {
	if !s.authenticate(c.Query("token")) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	conn := &Conn{
		ID:          uuid.NewString(),
		Origin:      c.GetHeader("Origin"),
		WS:          ws,
		ConnectedAt: time.Now(),
	}
	logger := slog.Default().With("conn", conn.ID)
	conn.View = bridge.Mount(s.Store, conn, s.viewOptions(logger))
	s.Views.Add(conn)
	defer s.Views.Remove(conn.ID)

	logger.Info("view mounted", "origin", conn.Origin)

	// One message at a time: each listener finishes before the next event.
	ctx := c.Request.Context()
	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			logger.Debug("view unmounted", "error", err)
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		conn.View.Receive(ctx, conn.Origin, data)
	}
}

func (s *Server) authenticate(token string) bool {
	expected := s.config().Gateway.Auth.Token
	if expected == "" {
		return true // no auth configured
	}
	return token == expected
}

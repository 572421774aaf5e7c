// Package web serves the Ari status dashboard: a JSON API over the
// pipeline state and chat log, plus websocket feeds for live status,
// captions, and snapshot previews.
package web

import (
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/arilabs/go-ari/pkg/chatlog"
	"github.com/arilabs/go-ari/pkg/hub"
	"github.com/arilabs/go-ari/pkg/perception"
)

// Server is the dashboard HTTP and websocket server.
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	chats *chatlog.Log

	statusMu sync.RWMutex
	status   perception.Status

	statusHub  *hub.Hub
	captionHub *hub.Hub
	cameraHub  *hub.Hub
}

// NewServer creates the dashboard server over the given chat log.
func NewServer(port string, chats *chatlog.Log, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		port:       port,
		logger:     logger,
		chats:      chats,
		statusHub:  hub.New("status", logger),
		captionHub: hub.New("captions", logger),
		cameraHub:  hub.New("camera", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Ari Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/chats", s.handleListChats)
	api.Post("/chats", s.handleNewChat)
	api.Get("/chats/active", s.handleActiveChat)
	api.Post("/chats/:id/select", s.handleSelectChat)
	api.Delete("/chats/:id", s.handleDeleteChat)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/captions", websocket.New(s.handleCaptionWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Start runs the hubs and listens. Blocks.
func (s *Server) Start() error {
	s.logger.Info("dashboard listening", "addr", "http://localhost:"+s.port)

	go s.statusHub.Run()
	go s.captionHub.Run()
	go s.cameraHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync runs the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("dashboard server failed", "err", err)
		}
	}()
}

// UpdateStatus stores the latest pipeline snapshot and broadcasts it.
// Caption changes additionally go out on the caption feed.
func (s *Server) UpdateStatus(st perception.Status) {
	s.statusMu.Lock()
	prev := s.status
	s.status = st
	s.statusMu.Unlock()

	s.statusHub.BroadcastJSON(st)
	if st.Caption != prev.Caption {
		s.captionHub.BroadcastJSON(st.Caption)
	}
}

// SendSnapshot broadcasts a JPEG snapshot preview.
func (s *Server) SendSnapshot(jpeg []byte) {
	s.cameraHub.BroadcastBinary(jpeg)
}

// Shutdown stops the hubs and the listener.
func (s *Server) Shutdown() error {
	s.statusHub.Stop()
	s.captionHub.Stop()
	s.cameraHub.Stop()
	return s.app.Shutdown()
}

package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/arilabs/go-ari/pkg/chatlog"
	"github.com/arilabs/go-ari/pkg/hub"
)

// handleStatus returns the latest pipeline snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return c.JSON(s.status)
}

// handleListChats returns all chats, newest first.
func (s *Server) handleListChats(c *fiber.Ctx) error {
	return c.JSON(s.chats.Chats())
}

// handleActiveChat returns the active chat with its turns.
func (s *Server) handleActiveChat(c *fiber.Ctx) error {
	return c.JSON(s.chats.Active())
}

// handleNewChat creates and activates a fresh chat.
func (s *Server) handleNewChat(c *fiber.Ctx) error {
	return c.Status(fiber.StatusCreated).JSON(s.chats.NewChat())
}

// handleSelectChat activates the chat with the given ID.
func (s *Server) handleSelectChat(c *fiber.Ctx) error {
	if err := s.chats.Select(c.Params("id")); err != nil {
		return chatError(c, err)
	}
	return c.JSON(s.chats.Active())
}

// handleDeleteChat removes a chat.
func (s *Server) handleDeleteChat(c *fiber.Ctx) error {
	if err := s.chats.Delete(c.Params("id")); err != nil {
		return chatError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func chatError(c *fiber.Ctx, err error) error {
	if errors.Is(err, chatlog.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// handleStatusWS streams status snapshots.
func (s *Server) handleStatusWS(conn *websocket.Conn) {
	hub.NewClient(s.statusHub, conn).Run()
}

// handleCaptionWS streams live caption updates.
func (s *Server) handleCaptionWS(conn *websocket.Conn) {
	hub.NewClient(s.captionHub, conn).Run()
}

// handleCameraWS streams JPEG snapshot previews.
func (s *Server) handleCameraWS(conn *websocket.Conn) {
	hub.NewClient(s.cameraHub, conn).Run()
}

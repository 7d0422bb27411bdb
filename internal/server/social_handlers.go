package server

import (
	"onebatch/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Follow handles POST /api/follow/:username with {"makeFollow": bool}
func (s *Server) Follow(c *fiber.Ctx) error {
	var req struct {
		MakeFollow bool `json:"makeFollow"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	actor := currentUser(c)
	handle := c.Params("username")
	var err error
	if req.MakeFollow {
		err = s.followService.Follow(c.UserContext(), actor, handle)
	} else {
		err = s.followService.Unfollow(c.UserContext(), actor, handle)
	}
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"following": req.MakeFollow})
}

// Block handles POST /api/block/:username with an optional {"imageId": n}
func (s *Server) Block(c *fiber.Ctx) error {
	var req struct {
		ImageID *uint `json:"imageId"`
	}
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}
	if req.ImageID != nil && *req.ImageID == 0 {
		return s.respondError(c, models.NewValidationError("Invalid image ID"))
	}

	if err := s.followService.Block(c.UserContext(), currentUser(c), c.Params("username"), req.ImageID); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"blocked": true})
}

// Unblock handles DELETE /api/block/:username
func (s *Server) Unblock(c *fiber.Ctx) error {
	if err := s.followService.Unblock(c.UserContext(), currentUser(c), c.Params("username")); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"blocked": false})
}

// Comment handles POST /api/comment with {"id": n, "text": "..."}
func (s *Server) Comment(c *fiber.Ctx) error {
	var req struct {
		ID   uint   `json:"id"`
		Text string `json:"text"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.ID == 0 {
		return s.respondError(c, models.NewValidationError("Invalid image ID"))
	}

	comment, err := s.commentService.Comment(c.UserContext(), currentUser(c), req.ID, req.Text)
	if err != nil {
		return s.respondError(c, err)
	}
	p := s.presenter()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"comment": commentPayload{
			ID:     comment.ID,
			Author: comment.Author,
			Text:   comment.Text,
			Ago:    p.ago(comment.CreatedAt),
		},
	})
}

package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetOwnProfile handles GET /api/profile
func (s *Server) GetOwnProfile(c *fiber.Ctx) error {
	view, err := s.profileService.OwnProfile(c.UserContext(), currentUser(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(s.presenter().profile(view))
}

// GetProfile handles GET /api/profile/:username
func (s *Server) GetProfile(c *fiber.Ctx) error {
	view, err := s.profileService.Profile(c.UserContext(), s.optionalUser(c), c.Params("username"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(s.presenter().profile(view))
}

// GetPhoto handles GET /api/:username/photo/:photoId
func (s *Server) GetPhoto(c *fiber.Ctx) error {
	id, err := parseID(c, "photoId")
	if err != nil {
		return nil
	}
	view, err := s.profileService.Image(c.UserContext(), s.optionalUser(c), c.Params("username"), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(s.presenter().photo(view))
}

// GetFeed handles GET /api/feed
func (s *Server) GetFeed(c *fiber.Ctx) error {
	feed, err := s.profileService.Feed(c.UserContext(), currentUser(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(s.presenter().feed(feed))
}

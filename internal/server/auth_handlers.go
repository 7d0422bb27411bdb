package server

import (
	"log/slog"

	"onebatch/internal/middleware"
	"onebatch/internal/models"
	"onebatch/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	token, err := s.authService.Token(user)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  s.presenter().user(user),
	})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, token, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"token": token,
		"user":  s.presenter().user(user),
	})
}

// Logout handles POST /api/auth/logout by revoking the presented token until it expires.
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := c.Locals("claims").(*middleware.TokenClaims)
	if claims == nil || claims.JTI == "" {
		return c.JSON(fiber.Map{"message": "Logged out"})
	}
	if s.redis == nil {
		middleware.Logger.WarnContext(c.UserContext(), "token revocation unavailable without redis")
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(errRevocationUnavailable))
	}

	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return c.JSON(fiber.Map{"message": "Logged out"})
	}
	if err := s.redis.Set(c.UserContext(), revokedKey(claims.JTI), "1", ttl).Err(); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "failed to revoke token", slog.String("error", err.Error()))
		return s.respondError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// ClaimHandle handles PUT /api/me/handle
func (s *Server) ClaimHandle(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.authService.ClaimHandle(c.UserContext(), currentUser(c), req.Username)
	if err != nil {
		return s.respondError(c, err)
	}
	token, err := s.authService.Token(user)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"token": token,
		"user":  s.presenter().user(user),
	})
}

// GetMyFeatureFlags handles GET /api/me/flags
func (s *Server) GetMyFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"flags": s.featureFlags.Snapshot(currentUser(c).ID)})
}

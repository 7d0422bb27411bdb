package server

import (
	"io"

	"onebatch/internal/featureflags"
	"onebatch/internal/models"
	"onebatch/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Upload handles POST /api/upload (multipart field "upload", optional "caption")
func (s *Server) Upload(c *fiber.Ctx) error {
	actor := currentUser(c)
	if !s.featureFlags.Enabled(featureflags.Uploads, actor.ID) {
		return s.respondError(c, models.NewForbiddenError("uploads are disabled"))
	}
	if s.storage == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(service.ErrStorageUnavailable))
	}

	fileHeader, err := c.FormFile("upload")
	if err != nil {
		return s.respondError(c, models.NewValidationError("No file uploaded"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return s.respondError(c, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = file.Close() }()

	limit := int64(s.uploadLimitMB()) * 1024 * 1024
	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return s.respondError(c, models.NewValidationError("Unable to read uploaded file"))
	}

	img, err := s.imageService.Upload(c.UserContext(), actor, service.UploadImageInput{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Caption:     c.FormValue("caption"),
		Content:     content,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"image": s.presenter().image(img, false)})
}

// Pick handles POST /api/pick with {"id": n, "makePick": bool}
func (s *Server) Pick(c *fiber.Ctx) error {
	var req struct {
		ID       uint `json:"id"`
		MakePick bool `json:"makePick"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.ID == 0 {
		return s.respondError(c, models.NewValidationError("Invalid image ID"))
	}

	img, err := s.publishService.Pick(c.UserContext(), currentUser(c), req.ID, req.MakePick)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"image": s.presenter().image(img, false)})
}

// Hide handles POST /api/hide with {"id": n, "makeHide": bool}
func (s *Server) Hide(c *fiber.Ctx) error {
	var req struct {
		ID       uint `json:"id"`
		MakeHide bool `json:"makeHide"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.ID == 0 {
		return s.respondError(c, models.NewValidationError("Invalid image ID"))
	}

	img, err := s.imageService.SetHidden(c.UserContext(), currentUser(c), req.ID, req.MakeHide)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"image": s.presenter().image(img, false)})
}

// DeleteImage handles POST /api/delete with {"id": n}
func (s *Server) DeleteImage(c *fiber.Ctx) error {
	var req struct {
		ID uint `json:"id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.ID == 0 {
		return s.respondError(c, models.NewValidationError("Invalid image ID"))
	}

	if err := s.imageService.Delete(c.UserContext(), currentUser(c), req.ID); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": req.ID})
}

// Publish handles POST /api/publish with {"makePublish": bool}
func (s *Server) Publish(c *fiber.Ctx) error {
	var req struct {
		MakePublish bool `json:"makePublish"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	actor := currentUser(c)
	if !req.MakePublish {
		if err := s.publishService.Unpublish(c.UserContext(), actor); err != nil {
			return s.respondError(c, err)
		}
		return c.JSON(fiber.Map{"published": 0, "user": s.presenter().user(actor)})
	}

	n, err := s.publishService.Publish(c.UserContext(), actor)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"published": n, "user": s.presenter().user(actor)})
}

package service

import (
	"context"
	"errors"
	"log/slog"

	"onebatch/internal/cache"
	"onebatch/internal/config"
	"onebatch/internal/media"
	"onebatch/internal/middleware"
	"onebatch/internal/models"
	"onebatch/internal/observability"
	"onebatch/internal/repository"

	"github.com/google/uuid"
)

const DefaultImageMaxUploadSizeMB = 10

// ErrStorageUnavailable is returned by Upload when no object store is configured.
var ErrStorageUnavailable = errors.New("object storage unavailable")

// ObjectStore keeps encoded renditions. storage.Client satisfies it.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

type UploadImageInput struct {
	Filename    string
	ContentType string
	Caption     string
	Content     []byte
}

type ImageService struct {
	images             repository.ImageRepository
	store              ObjectStore
	cache              *cache.Cache
	maxUploadSizeBytes int64
}

func NewImageService(repos repository.Repos, store ObjectStore, c *cache.Cache, cfg *config.Config) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
	}
	return &ImageService{
		images:             repos.Images,
		store:              store,
		cache:              c,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// Upload normalizes the photo, stores its renditions and records a new unpicked image.
func (s *ImageService) Upload(ctx context.Context, actor *models.User, in UploadImageInput) (*models.Image, error) {
	if err := requireHandle(actor); err != nil {
		return nil, err
	}
	const maxCaptionLen = 2000
	if len(in.Caption) > maxCaptionLen {
		return nil, models.NewValidationError("Caption too long (max 2000 characters)")
	}

	if s.store == nil {
		return nil, models.NewInternalError(ErrStorageUnavailable)
	}

	processed, err := media.Normalize(in.Content, in.ContentType, s.maxUploadSizeBytes)
	if err != nil {
		observability.ImageUploads.WithLabelValues(observability.OutcomeRejected).Inc()
		return nil, models.NewValidationError(uploadErrorMessage(err))
	}

	src := uuid.NewString()
	stored, err := s.putRenditions(ctx, src, processed)
	if err != nil {
		s.removeObjects(ctx, stored)
		observability.ImageUploads.WithLabelValues(observability.OutcomeError).Inc()
		return nil, models.NewInternalError(err)
	}

	img := &models.Image{
		UserID:  actor.Name,
		Src:     src,
		Caption: in.Caption,
	}
	if err := s.images.Create(ctx, img); err != nil {
		s.removeObjects(ctx, stored)
		observability.ImageUploads.WithLabelValues(observability.OutcomeError).Inc()
		return nil, err
	}

	observability.ImageUploads.WithLabelValues(observability.OutcomeOK).Inc()
	middleware.Logger.InfoContext(ctx, "image uploaded",
		slog.String("user", actor.Name),
		slog.Uint64("image_id", uint64(img.ID)),
		slog.String("filename", in.Filename),
		slog.Int("width", processed.Width),
		slog.Int("height", processed.Height),
	)
	return img, nil
}

// SetHidden toggles whether the image is withheld from every public view.
func (s *ImageService) SetHidden(ctx context.Context, actor *models.User, imageID uint, hidden bool) (*models.Image, error) {
	img, err := s.owned(ctx, actor, imageID)
	if err != nil {
		return nil, err
	}
	if err := s.images.SetHidden(ctx, imageID, hidden); err != nil {
		return nil, err
	}
	img.Hidden = hidden
	s.cache.InvalidateGallery(ctx, actor.Name)
	return img, nil
}

// Delete removes the image and its comments. Stored objects are removed best-effort.
func (s *ImageService) Delete(ctx context.Context, actor *models.User, imageID uint) error {
	img, err := s.owned(ctx, actor, imageID)
	if err != nil {
		return err
	}
	if err := s.images.Delete(ctx, imageID); err != nil {
		return err
	}
	s.cache.InvalidateGallery(ctx, actor.Name)
	s.removeObjects(ctx, renditionKeys(img.Src))
	return nil
}

func (s *ImageService) owned(ctx context.Context, actor *models.User, imageID uint) (*models.Image, error) {
	if err := requireHandle(actor); err != nil {
		return nil, err
	}
	img, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if img.UserID != actor.Name {
		return nil, models.NewForbiddenError("that isn't your image")
	}
	return img, nil
}

// putRenditions uploads every rendition and returns the keys written so far.
func (s *ImageService) putRenditions(ctx context.Context, src string, p *media.Processed) ([]string, error) {
	type object struct {
		name, contentType string
		data              []byte
	}
	objects := []object{
		{media.MasterJPEG, "image/jpeg", p.MasterJPEG},
		{media.MasterWebP, "image/webp", p.MasterWebP},
	}
	for _, size := range media.SquareSizes {
		objects = append(objects, object{media.SquareName(size), "image/jpeg", p.Squares[size]})
	}

	stored := make([]string, 0, len(objects))
	for _, o := range objects {
		key := media.ObjectKey(src, o.name)
		if err := s.store.Put(ctx, key, o.data, o.contentType); err != nil {
			return stored, err
		}
		stored = append(stored, key)
	}
	return stored, nil
}

func (s *ImageService) removeObjects(ctx context.Context, keys []string) {
	if s.store == nil {
		return
	}
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to remove stored object",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

func renditionKeys(src string) []string {
	keys := []string{media.ObjectKey(src, media.MasterJPEG), media.ObjectKey(src, media.MasterWebP)}
	for _, size := range media.SquareSizes {
		keys = append(keys, media.ObjectKey(src, media.SquareName(size)))
	}
	return keys
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, media.ErrEmpty):
		return "No file uploaded"
	case errors.Is(err, media.ErrTooLarge):
		return "File too large"
	case errors.Is(err, media.ErrInvalidType):
		return "Invalid image type"
	case errors.Is(err, media.ErrContentMismatch):
		return "Image content type mismatch"
	case errors.Is(err, media.ErrUnsupportedImage):
		return "Unsupported image format"
	default:
		return "Invalid image file"
	}
}

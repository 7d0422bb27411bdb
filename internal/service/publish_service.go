package service

import (
	"context"
	"log/slog"

	"onebatch/internal/cache"
	"onebatch/internal/middleware"
	"onebatch/internal/models"
	"onebatch/internal/observability"
	"onebatch/internal/repository"
	"onebatch/internal/workflow"

	"go.opentelemetry.io/otel/attribute"
)

// PublishService drives the pick, publish and unpublish cycle.
type PublishService struct {
	tx     repository.TxRunner
	users  repository.UserRepository
	images repository.ImageRepository
	cache  *cache.Cache
	now    workflow.Clock
}

func NewPublishService(tx repository.TxRunner, repos repository.Repos, c *cache.Cache, clock workflow.Clock) *PublishService {
	if clock == nil {
		clock = workflow.SystemClock
	}
	return &PublishService{
		tx:     tx,
		users:  repos.Users,
		images: repos.Images,
		cache:  c,
		now:    clock,
	}
}

// Pick toggles the picked flag on one of the actor's images.
func (s *PublishService) Pick(ctx context.Context, actor *models.User, imageID uint, on bool) (img *models.Image, err error) {
	span, ctx := observability.NewSpan(ctx, "publish.Pick")
	defer func() {
		observability.RecordTransition("pick", err, isRejection(err))
		span.SetError(err)
		span.End()
	}()
	span.AddAttributes(attribute.Int("image.id", int(imageID)), attribute.Bool("pick", on))

	if err = requireHandle(actor); err != nil {
		return nil, err
	}
	if !workflow.PickingOpen(actor) {
		return nil, models.NewInvalidStateError(workflow.MsgAlreadyPosted)
	}
	img, err = s.images.GetByID(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if err = workflow.CheckPick(actor, img); err != nil {
		return nil, err
	}
	if err = s.images.SetPicked(ctx, imageID, on); err != nil {
		return nil, err
	}
	img.Picked = on
	return img, nil
}

// Publish marks every picked, visible image of the actor as published and
// stamps the batch time. It reports how many images were published.
func (s *PublishService) Publish(ctx context.Context, actor *models.User) (count int64, err error) {
	span, ctx := observability.NewSpan(ctx, "publish.Publish")
	defer func() {
		observability.RecordTransition("publish", err, isRejection(err))
		span.SetError(err)
		span.End()
	}()

	if err = requireHandle(actor); err != nil {
		return 0, err
	}

	now := s.now()
	err = s.tx.Transaction(ctx, func(r repository.Repos) error {
		u, err := r.Users.GetByID(ctx, actor.ID)
		if err != nil {
			return err
		}
		pickable, err := r.Images.CountPickable(ctx, u.Name)
		if err != nil {
			return err
		}
		if err := workflow.CheckPublish(u, pickable); err != nil {
			return err
		}
		if err := r.Users.SetPosted(ctx, u.ID, &now); err != nil {
			return err
		}
		count, err = r.Images.PublishPicked(ctx, u.Name)
		return err
	})
	if err != nil {
		return 0, err
	}

	actor.Posted = &now
	actor.Republish = false
	s.cache.InvalidateGallery(ctx, actor.Name)
	span.AddAttributes(attribute.Int64("images.published", count))
	middleware.Logger.InfoContext(ctx, "batch published",
		slog.String("user", actor.Name),
		slog.Int64("images", count),
	)
	return count, nil
}

// Unpublish withdraws the actor's batch while the unpublish window is open.
// Pick flags are kept so the same batch can be republished.
func (s *PublishService) Unpublish(ctx context.Context, actor *models.User) (err error) {
	span, ctx := observability.NewSpan(ctx, "publish.Unpublish")
	defer func() {
		observability.RecordTransition("unpublish", err, isRejection(err))
		span.SetError(err)
		span.End()
	}()

	if err = requireHandle(actor); err != nil {
		return err
	}

	now := s.now()
	err = s.tx.Transaction(ctx, func(r repository.Repos) error {
		u, err := r.Users.GetByID(ctx, actor.ID)
		if err != nil {
			return err
		}
		if err := workflow.CheckUnpublish(u, now); err != nil {
			return err
		}
		if err := r.Users.SetPosted(ctx, u.ID, nil); err != nil {
			return err
		}
		_, err = r.Images.UnpublishAll(ctx, u.Name)
		return err
	})
	if err != nil {
		return err
	}

	actor.Posted = nil
	actor.Republish = false
	s.cache.InvalidateGallery(ctx, actor.Name)
	middleware.Logger.InfoContext(ctx, "batch unpublished", slog.String("user", actor.Name))
	return nil
}

// AutoRepublishCheck reopens picking for a user whose batch is old enough.
// The batch itself stays published. It reports whether the flag was set.
func (s *PublishService) AutoRepublishCheck(ctx context.Context, u *models.User) (bool, error) {
	if u == nil || !workflow.NeedsRepublish(u, s.now()) {
		return false, nil
	}
	if err := s.users.SetRepublish(ctx, u.ID, true); err != nil {
		observability.RecordTransition("republish", err, false)
		return false, err
	}
	u.Republish = true
	observability.RecordTransition("republish", nil, false)
	return true, nil
}

package service

import (
	"context"
	"log/slog"

	"onebatch/internal/middleware"
	"onebatch/internal/models"
	"onebatch/internal/policy"
	"onebatch/internal/repository"
)

// FollowService manages follow and block edges.
type FollowService struct {
	tx      repository.TxRunner
	users   repository.UserRepository
	images  repository.ImageRepository
	follows repository.FollowRepository
}

func NewFollowService(tx repository.TxRunner, repos repository.Repos) *FollowService {
	return &FollowService{
		tx:      tx,
		users:   repos.Users,
		images:  repos.Images,
		follows: repos.Follows,
	}
}

// Relation looks up both directions of plain and blocking edges between viewer and owner.
func (s *FollowService) Relation(ctx context.Context, viewer, owner *models.User) (policy.Relation, error) {
	var rel policy.Relation
	if viewer == nil || owner == nil || sameUser(viewer, owner) {
		return rel, nil
	}

	var err error
	if rel.ViewerFollowsOwner, err = s.follows.Exists(ctx, viewer.Name, owner.Name, false); err != nil {
		return rel, err
	}
	if rel.OwnerFollowsViewer, err = s.follows.Exists(ctx, owner.Name, viewer.Name, false); err != nil {
		return rel, err
	}
	// A block edge points from the blocked user to the blocker.
	if rel.ViewerBlockedByOwner, err = s.follows.Exists(ctx, viewer.Name, owner.Name, true); err != nil {
		return rel, err
	}
	if rel.OwnerBlockedByViewer, err = s.follows.Exists(ctx, owner.Name, viewer.Name, true); err != nil {
		return rel, err
	}
	return rel, nil
}

// Follow adds a plain edge from actor to handle.
func (s *FollowService) Follow(ctx context.Context, actor *models.User, handle string) error {
	target, err := s.counterpart(ctx, actor, handle, "you can't follow yourself")
	if err != nil {
		return err
	}
	rel, err := s.Relation(ctx, actor, target)
	if err != nil {
		return err
	}
	if rel.Blocked() {
		return models.NewForbiddenError("you can't follow this user")
	}
	if rel.ViewerFollowsOwner {
		return models.NewConflictError("you already follow")
	}
	return s.follows.Create(ctx, &models.Follow{StartUserID: actor.Name, EndUserID: target.Name})
}

// Unfollow removes the plain edge from actor to handle.
func (s *FollowService) Unfollow(ctx context.Context, actor *models.User, handle string) error {
	target, err := s.counterpart(ctx, actor, handle, "you can't unfollow yourself")
	if err != nil {
		return err
	}
	n, err := s.follows.Delete(ctx, actor.Name, target.Name, false)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.NewInvalidStateError("you already don't follow")
	}
	return nil
}

// Block cuts every plain edge between actor and handle and records the block.
// When imageID is set, the blocked user's comments on that image are removed.
func (s *FollowService) Block(ctx context.Context, actor *models.User, handle string, imageID *uint) error {
	target, err := s.counterpart(ctx, actor, handle, "you can't block yourself")
	if err != nil {
		return err
	}
	if imageID != nil {
		img, err := s.images.GetByID(ctx, *imageID)
		if err != nil {
			return err
		}
		if img.UserID != actor.Name {
			return models.NewForbiddenError("that isn't your image")
		}
	}
	exists, err := s.follows.Exists(ctx, target.Name, actor.Name, true)
	if err != nil {
		return err
	}
	if exists {
		return models.NewConflictError("already blocked")
	}

	var removed int64
	err = s.tx.Transaction(ctx, func(r repository.Repos) error {
		if _, err := r.Follows.Delete(ctx, actor.Name, target.Name, false); err != nil {
			return err
		}
		if _, err := r.Follows.Delete(ctx, target.Name, actor.Name, false); err != nil {
			return err
		}
		if err := r.Follows.Create(ctx, &models.Follow{StartUserID: target.Name, EndUserID: actor.Name, Blocked: true}); err != nil {
			return err
		}
		if imageID == nil {
			return nil
		}
		var err error
		removed, err = r.Comments.DeleteByAuthor(ctx, *imageID, target.Name)
		return err
	})
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "user blocked",
		slog.String("blocker", actor.Name),
		slog.String("blocked", target.Name),
		slog.Int64("comments_removed", removed),
	)
	return nil
}

// Unblock removes actor's block on handle.
func (s *FollowService) Unblock(ctx context.Context, actor *models.User, handle string) error {
	target, err := s.counterpart(ctx, actor, handle, "you can't unblock yourself")
	if err != nil {
		return err
	}
	n, err := s.follows.Delete(ctx, target.Name, actor.Name, true)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.NewInvalidStateError("you haven't blocked this user")
	}
	return nil
}

// Following lists the handles actor follows.
func (s *FollowService) Following(ctx context.Context, actor *models.User) ([]string, error) {
	if err := requireHandle(actor); err != nil {
		return nil, err
	}
	return s.follows.ListFollowing(ctx, actor.Name)
}

// counterpart validates the actor and resolves the other side of an edge.
func (s *FollowService) counterpart(ctx context.Context, actor *models.User, handle, selfMsg string) (*models.User, error) {
	if err := requireHandle(actor); err != nil {
		return nil, err
	}
	target, err := lookupOwner(ctx, s.users, handle)
	if err != nil {
		return nil, err
	}
	if sameUser(actor, target) {
		return nil, models.NewValidationError(selfMsg)
	}
	return target, nil
}

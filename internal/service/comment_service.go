package service

import (
	"context"

	"onebatch/internal/models"
	"onebatch/internal/policy"
	"onebatch/internal/repository"
	"onebatch/internal/validation"
)

type CommentService struct {
	users     repository.UserRepository
	images    repository.ImageRepository
	comments  repository.CommentRepository
	relations RelationResolver
}

func NewCommentService(repos repository.Repos, relations RelationResolver) *CommentService {
	return &CommentService{
		users:     repos.Users,
		images:    repos.Images,
		comments:  repos.Comments,
		relations: relations,
	}
}

// Comment appends text to a published image's comment list.
func (s *CommentService) Comment(ctx context.Context, actor *models.User, imageID uint, text string) (*models.Comment, error) {
	if err := requireHandle(actor); err != nil {
		return nil, err
	}
	img, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		return nil, err
	}
	owner, err := s.users.GetByName(ctx, img.UserID)
	if err != nil {
		return nil, err
	}
	// Only published images take comments, whoever is asking.
	if !policy.CanSeeImage(actor, owner, img, policy.Relation{}, policy.ViewGallery) {
		return nil, models.NewNotFoundError("Image", imageID)
	}

	rel, err := s.relations.Relation(ctx, actor, owner)
	if err != nil {
		return nil, err
	}
	if !policy.CanComment(actor, owner, rel) {
		return nil, models.NewForbiddenError("you can't comment")
	}

	text, err = validation.NormalizeComment(text)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	comment := &models.Comment{
		ImageID: img.ID,
		Author:  actor.Name,
		Text:    text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

package service

import (
	"context"
	"time"

	"onebatch/internal/cache"
	"onebatch/internal/models"
	"onebatch/internal/observability"
	"onebatch/internal/policy"
	"onebatch/internal/repository"
	"onebatch/internal/workflow"
)

// FeedPublishers bounds the recent-publishers section of the feed.
const FeedPublishers = 6

// ProfileView is what a viewer gets when opening a profile. Saved is only
// populated for the owner.
type ProfileView struct {
	Owner     *models.User
	Own       bool
	State     workflow.State
	Final     bool
	Images    []models.Image
	Saved     []models.Image
	Following bool
}

// ImageView is a single image with its comments as seen by one viewer.
type ImageView struct {
	Owner      *models.User
	Image      *models.Image
	Own        bool
	CanComment bool
}

// Feed lists who the viewer follows and who published recently.
type Feed struct {
	Following  []string
	Publishers []models.User
}

type ProfileService struct {
	users     repository.UserRepository
	images    repository.ImageRepository
	follows   repository.FollowRepository
	relations RelationResolver
	publish   *PublishService
	cache     *cache.Cache
	now       workflow.Clock
}

func NewProfileService(
	repos repository.Repos,
	relations RelationResolver,
	publish *PublishService,
	c *cache.Cache,
	clock workflow.Clock,
) *ProfileService {
	if clock == nil {
		clock = workflow.SystemClock
	}
	return &ProfileService{
		users:     repos.Users,
		images:    repos.Images,
		follows:   repos.Follows,
		relations: relations,
		publish:   publish,
		cache:     c,
		now:       clock,
	}
}

// OwnProfile is the owner's management view: the published batch plus the
// saved images still open for picking.
func (s *ProfileService) OwnProfile(ctx context.Context, viewer *models.User) (*ProfileView, error) {
	if err := requireHandle(viewer); err != nil {
		return nil, err
	}
	if _, err := s.publish.AutoRepublishCheck(ctx, viewer); err != nil {
		return nil, err
	}

	images, err := s.images.ListByOwner(ctx, viewer.Name)
	if err != nil {
		return nil, err
	}
	published, saved := workflow.SplitOwn(viewer, images)
	return &ProfileView{
		Owner:  viewer,
		Own:    true,
		State:  workflow.StateOf(viewer),
		Final:  workflow.IsFinal(viewer.Posted, s.now()),
		Images: published,
		Saved:  saved,
	}, nil
}

// Profile shows handle's published gallery to viewer, who may be nil.
func (s *ProfileService) Profile(ctx context.Context, viewer *models.User, handle string) (*ProfileView, error) {
	owner, err := lookupOwner(ctx, s.users, handle)
	if err != nil {
		return nil, err
	}
	if sameUser(viewer, owner) {
		return s.OwnProfile(ctx, viewer)
	}

	rel, err := s.relations.Relation(ctx, viewer, owner)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewProfile(viewer, owner, rel).Visible {
		return nil, models.NewNotFoundError("User", owner.Name)
	}

	gallery, err := s.gallery(ctx, owner.Name)
	if err != nil {
		return nil, err
	}
	return &ProfileView{
		Owner:     owner,
		State:     workflow.StateOf(owner),
		Final:     workflow.IsFinal(owner.Posted, s.now()),
		Images:    policy.FilterGallery(viewer, owner, gallery, rel),
		Following: rel.ViewerFollowsOwner,
	}, nil
}

// Image shows one image of handle. Hidden and unpublished images are only
// reachable by their owner.
func (s *ProfileService) Image(ctx context.Context, viewer *models.User, handle string, imageID uint) (*ImageView, error) {
	owner, err := lookupOwner(ctx, s.users, handle)
	if err != nil {
		return nil, err
	}
	img, err := s.images.GetWithComments(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if img.UserID != owner.Name {
		return nil, models.NewNotFoundError("Image", imageID)
	}

	rel, err := s.relations.Relation(ctx, viewer, owner)
	if err != nil {
		return nil, err
	}
	own := sameUser(viewer, owner)
	view := policy.ViewGallery
	if own {
		view = policy.ViewManage
	}
	if !policy.CanSeeImage(viewer, owner, img, rel, view) {
		return nil, models.NewNotFoundError("Image", imageID)
	}

	return &ImageView{
		Owner: owner,
		Image: img,
		Own:   own,
		CanComment: policy.CanComment(viewer, owner, rel) &&
			policy.CanSeeImage(viewer, owner, img, rel, policy.ViewGallery),
	}, nil
}

// Feed returns the viewer's follows and the latest batches that can no longer be withdrawn.
func (s *ProfileService) Feed(ctx context.Context, viewer *models.User) (*Feed, error) {
	if err := requireHandle(viewer); err != nil {
		return nil, err
	}
	following, err := s.follows.ListFollowing(ctx, viewer.Name)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-workflow.UnpublishWindow)
	blocked, err := s.follows.ListBlockPartners(ctx, viewer.Name)
	if err != nil {
		return nil, err
	}
	exclude := append(blocked, viewer.Name)
	publishers, err := s.users.ListPublishedBefore(ctx, cutoff, exclude, FeedPublishers)
	if err != nil {
		return nil, err
	}
	return &Feed{Following: following, Publishers: publishers}, nil
}

// gallery reads the owner's published, unhidden images through the cache.
func (s *ProfileService) gallery(ctx context.Context, owner string) ([]models.Image, error) {
	var images []models.Image
	hit, err := s.cache.Aside(ctx, cache.GalleryKey(owner), &images, cache.GalleryTTL, func() error {
		var err error
		images, err = s.images.ListGallery(ctx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	observability.GalleryCacheLookups.WithLabelValues(result).Inc()
	return images, nil
}

// Now is the service clock, used to render relative times consistently.
func (s *ProfileService) Now() time.Time {
	return s.now()
}

package service

import (
	"context"
	"time"

	"onebatch/internal/models"
	"onebatch/internal/repository"
)

// userRepoStub is a stub for repository.UserRepository. Unset functions return zero values.
type userRepoStub struct {
	getByIDFn             func(context.Context, uint) (*models.User, error)
	getByNameFn           func(context.Context, string) (*models.User, error)
	getByEmailFn          func(context.Context, string) (*models.User, error)
	createFn              func(context.Context, *models.User) error
	setPostedFn           func(context.Context, uint, *time.Time) error
	setRepublishFn        func(context.Context, uint, bool) error
	renameFn              func(context.Context, uint, string) error
	listPublishedBeforeFn func(context.Context, time.Time, []string, int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if s.getByIDFn == nil {
		return nil, models.NewNotFoundError("User", id)
	}
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByName(ctx context.Context, name string) (*models.User, error) {
	if s.getByNameFn == nil {
		return nil, models.NewNotFoundError("User", name)
	}
	return s.getByNameFn(ctx, name)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.getByEmailFn == nil {
		return nil, nil
	}
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, user)
}
func (s *userRepoStub) SetPosted(ctx context.Context, id uint, posted *time.Time) error {
	if s.setPostedFn == nil {
		return nil
	}
	return s.setPostedFn(ctx, id, posted)
}
func (s *userRepoStub) SetRepublish(ctx context.Context, id uint, republish bool) error {
	if s.setRepublishFn == nil {
		return nil
	}
	return s.setRepublishFn(ctx, id, republish)
}
func (s *userRepoStub) Rename(ctx context.Context, id uint, name string) error {
	if s.renameFn == nil {
		return nil
	}
	return s.renameFn(ctx, id, name)
}
func (s *userRepoStub) ListPublishedBefore(ctx context.Context, cutoff time.Time, exclude []string, limit int) ([]models.User, error) {
	if s.listPublishedBeforeFn == nil {
		return nil, nil
	}
	return s.listPublishedBeforeFn(ctx, cutoff, exclude, limit)
}

// imageRepoStub is a stub for repository.ImageRepository.
type imageRepoStub struct {
	createFn          func(context.Context, *models.Image) error
	getByIDFn         func(context.Context, uint) (*models.Image, error)
	getWithCommentsFn func(context.Context, uint) (*models.Image, error)
	listByOwnerFn     func(context.Context, string) ([]models.Image, error)
	listGalleryFn     func(context.Context, string) ([]models.Image, error)
	countPickableFn   func(context.Context, string) (int64, error)
	setPickedFn       func(context.Context, uint, bool) error
	setHiddenFn       func(context.Context, uint, bool) error
	deleteFn          func(context.Context, uint) error
	publishPickedFn   func(context.Context, string) (int64, error)
	unpublishAllFn    func(context.Context, string) (int64, error)
}

func (s *imageRepoStub) Create(ctx context.Context, img *models.Image) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, img)
}
func (s *imageRepoStub) GetByID(ctx context.Context, id uint) (*models.Image, error) {
	if s.getByIDFn == nil {
		return nil, models.NewNotFoundError("Image", id)
	}
	return s.getByIDFn(ctx, id)
}
func (s *imageRepoStub) GetWithComments(ctx context.Context, id uint) (*models.Image, error) {
	if s.getWithCommentsFn == nil {
		return s.GetByID(ctx, id)
	}
	return s.getWithCommentsFn(ctx, id)
}
func (s *imageRepoStub) ListByOwner(ctx context.Context, owner string) ([]models.Image, error) {
	if s.listByOwnerFn == nil {
		return nil, nil
	}
	return s.listByOwnerFn(ctx, owner)
}
func (s *imageRepoStub) ListGallery(ctx context.Context, owner string) ([]models.Image, error) {
	if s.listGalleryFn == nil {
		return nil, nil
	}
	return s.listGalleryFn(ctx, owner)
}
func (s *imageRepoStub) CountPickable(ctx context.Context, owner string) (int64, error) {
	if s.countPickableFn == nil {
		return 0, nil
	}
	return s.countPickableFn(ctx, owner)
}
func (s *imageRepoStub) SetPicked(ctx context.Context, id uint, picked bool) error {
	if s.setPickedFn == nil {
		return nil
	}
	return s.setPickedFn(ctx, id, picked)
}
func (s *imageRepoStub) SetHidden(ctx context.Context, id uint, hidden bool) error {
	if s.setHiddenFn == nil {
		return nil
	}
	return s.setHiddenFn(ctx, id, hidden)
}
func (s *imageRepoStub) Delete(ctx context.Context, id uint) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}
func (s *imageRepoStub) PublishPicked(ctx context.Context, owner string) (int64, error) {
	if s.publishPickedFn == nil {
		return 0, nil
	}
	return s.publishPickedFn(ctx, owner)
}
func (s *imageRepoStub) UnpublishAll(ctx context.Context, owner string) (int64, error) {
	if s.unpublishAllFn == nil {
		return 0, nil
	}
	return s.unpublishAllFn(ctx, owner)
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn         func(context.Context, *models.Comment) error
	listByImageFn    func(context.Context, uint) ([]models.Comment, error)
	deleteByAuthorFn func(context.Context, uint, string) (int64, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) ListByImage(ctx context.Context, imageID uint) ([]models.Comment, error) {
	if s.listByImageFn == nil {
		return nil, nil
	}
	return s.listByImageFn(ctx, imageID)
}
func (s *commentRepoStub) DeleteByAuthor(ctx context.Context, imageID uint, author string) (int64, error) {
	if s.deleteByAuthorFn == nil {
		return 0, nil
	}
	return s.deleteByAuthorFn(ctx, imageID, author)
}

// edge identifies a follow-ledger row in followLedger.
type edge struct {
	start, end string
	blocked    bool
}

// followLedger is an in-memory repository.FollowRepository.
type followLedger struct {
	edges     []edge
	createErr error
}

func (l *followLedger) has(e edge) bool {
	for _, x := range l.edges {
		if x == e {
			return true
		}
	}
	return false
}

func (l *followLedger) Exists(_ context.Context, start, end string, blocked bool) (bool, error) {
	return l.has(edge{start, end, blocked}), nil
}
func (l *followLedger) Create(_ context.Context, f *models.Follow) error {
	if l.createErr != nil {
		return l.createErr
	}
	e := edge{f.StartUserID, f.EndUserID, f.Blocked}
	if l.has(e) {
		return models.NewConflictError("you already follow")
	}
	l.edges = append(l.edges, e)
	return nil
}
func (l *followLedger) Delete(_ context.Context, start, end string, blocked bool) (int64, error) {
	target := edge{start, end, blocked}
	kept := l.edges[:0]
	var n int64
	for _, x := range l.edges {
		if x == target {
			n++
			continue
		}
		kept = append(kept, x)
	}
	l.edges = kept
	return n, nil
}
func (l *followLedger) ListFollowing(_ context.Context, start string) ([]string, error) {
	var out []string
	for _, x := range l.edges {
		if x.start == start && !x.blocked {
			out = append(out, x.end)
		}
	}
	return out, nil
}
func (l *followLedger) ListBlockPartners(_ context.Context, handle string) ([]string, error) {
	var out []string
	for _, x := range l.edges {
		switch {
		case !x.blocked:
		case x.start == handle:
			out = append(out, x.end)
		case x.end == handle:
			out = append(out, x.start)
		}
	}
	return out, nil
}

// txStub runs transactions directly against the same repositories.
type txStub struct {
	repos repository.Repos
	err   error
	calls int
}

func (t *txStub) Transaction(_ context.Context, fn func(r repository.Repos) error) error {
	t.calls++
	if t.err != nil {
		return t.err
	}
	return fn(t.repos)
}

type fixture struct {
	users    *userRepoStub
	images   *imageRepoStub
	comments *commentRepoStub
	follows  *followLedger
	tx       *txStub
}

func newFixture() *fixture {
	f := &fixture{
		users:    &userRepoStub{},
		images:   &imageRepoStub{},
		comments: &commentRepoStub{},
		follows:  &followLedger{},
	}
	f.tx = &txStub{repos: f.repos()}
	return f
}

func (f *fixture) repos() repository.Repos {
	return repository.Repos{Users: f.users, Images: f.images, Comments: f.comments, Follows: f.follows}
}

// withUsers makes GetByID and GetByName resolve the given users.
func (f *fixture) withUsers(users ...*models.User) {
	f.users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		for _, u := range users {
			if u.ID == id {
				cp := *u
				return &cp, nil
			}
		}
		return nil, models.NewNotFoundError("User", id)
	}
	f.users.getByNameFn = func(_ context.Context, name string) (*models.User, error) {
		for _, u := range users {
			if u.Name == name {
				cp := *u
				return &cp, nil
			}
		}
		return nil, models.NewNotFoundError("User", name)
	}
}

// withImages makes GetByID resolve the given images.
func (f *fixture) withImages(images ...*models.Image) {
	f.images.getByIDFn = func(_ context.Context, id uint) (*models.Image, error) {
		for _, img := range images {
			if img.ID == id {
				cp := *img
				return &cp, nil
			}
		}
		return nil, models.NewNotFoundError("Image", id)
	}
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// Package seed populates a database with demo users, photos, follows and
// published batches. It is intended for development and testing only.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"time"

	"onebatch/internal/cache"
	"onebatch/internal/middleware"
	"onebatch/internal/models"
	"onebatch/internal/repository"
	"onebatch/internal/service"
	"onebatch/internal/validation"
	"onebatch/internal/workflow"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Password is shared by every seeded account.
const Password = "Onebatch!Seed2026"

// Options configures a seeding run.
type Options struct {
	Users          int
	ImagesPerUser  int
	FollowsPerUser int
	Clean          bool

	// Seed makes the generated data reproducible. Zero picks a time-based seed.
	Seed int64

	// Now anchors publish times. Zero means the wall clock.
	Now time.Time

	// Cache, when set, has seeded galleries invalidated as batches are published.
	Cache *cache.Cache
}

// Result summarizes what a run created.
type Result struct {
	Users      int
	Images     int
	Follows    int
	Publishers int
	Comments   int
}

// Seeder writes demo data through the repositories. When Images is set,
// photos are rendered and stored like real uploads.
type Seeder struct {
	db      *gorm.DB
	store   *repository.Store
	images  *service.ImageService
	publish *service.PublishService
	faker   *gofakeit.Faker
	opts    Options

	// postedAt is the clock the publish service sees for the batch in progress.
	postedAt time.Time
}

// NewSeeder creates a Seeder bound to db. images may be nil, in which case
// image records are written without stored renditions.
func NewSeeder(db *gorm.DB, images *service.ImageService, opts Options) *Seeder {
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Now.IsZero() {
		opts.Now = workflow.SystemClock()
	}
	if opts.ImagesPerUser <= 0 {
		opts.ImagesPerUser = 6
	}
	if opts.FollowsPerUser < 0 {
		opts.FollowsPerUser = 0
	}
	s := &Seeder{
		db:       db,
		store:    repository.NewStore(db),
		images:   images,
		faker:    gofakeit.New(opts.Seed),
		opts:     opts,
		postedAt: opts.Now,
	}
	s.publish = service.NewPublishService(s.store, s.store.Repos, opts.Cache, func() time.Time { return s.postedAt })
	return s
}

// ClearAll removes every row the application owns.
func (s *Seeder) ClearAll() error {
	for _, model := range []interface{}{&models.Comment{}, &models.Follow{}, &models.Image{}, &models.User{}} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run seeds users, their photos, a follow mesh, published batches and comments.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	if s.opts.Clean {
		if err := s.ClearAll(); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	users, err := s.createUsers(ctx, s.opts.Users)
	if err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	res.Users = len(users)

	gallery := make(map[string][]models.Image, len(users))
	for i := range users {
		imgs, err := s.createImages(ctx, &users[i])
		if err != nil {
			return nil, fmt.Errorf("create images for %s: %w", users[i].Name, err)
		}
		gallery[users[i].Name] = imgs
		res.Images += len(imgs)
	}

	if res.Follows, err = s.createFollows(ctx, users); err != nil {
		return nil, fmt.Errorf("create follows: %w", err)
	}

	for i := range users {
		if !s.faker.Bool() {
			continue
		}
		published, err := s.publishBatch(ctx, &users[i], gallery[users[i].Name])
		if err != nil {
			return nil, fmt.Errorf("publish for %s: %w", users[i].Name, err)
		}
		if published > 0 {
			res.Publishers++
		}
	}

	if res.Comments, err = s.createComments(ctx, users); err != nil {
		return nil, fmt.Errorf("create comments: %w", err)
	}

	middleware.Logger.Info("seed complete",
		slog.Int("users", res.Users),
		slog.Int("images", res.Images),
		slog.Int("follows", res.Follows),
		slog.Int("publishers", res.Publishers),
		slog.Int("comments", res.Comments),
	)
	return res, nil
}

func (s *Seeder) createUsers(ctx context.Context, n int) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, n)
	seen := make(map[string]struct{}, n)
	for len(users) < n {
		name := s.handle(len(users))
		if _, dup := seen[name]; dup {
			name = fmt.Sprintf("%s%d", name, len(users))
		}
		seen[name] = struct{}{}

		u := models.User{
			Name:     name,
			Email:    fmt.Sprintf("%s@seed.onebatch.local", name),
			Password: string(hashed),
		}
		if err := s.store.Users.Create(ctx, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// handle derives a valid handle from a fake username, falling back to a numbered one.
func (s *Seeder) handle(i int) string {
	name := validation.NormalizeHandle(s.faker.Username())
	if len(name) > 24 {
		name = name[:24]
	}
	if validation.ValidateHandle(name) != nil {
		return fmt.Sprintf("user%d", i+1)
	}
	return name
}

func (s *Seeder) createImages(ctx context.Context, owner *models.User) ([]models.Image, error) {
	out := make([]models.Image, 0, s.opts.ImagesPerUser)
	for i := 0; i < s.opts.ImagesPerUser; i++ {
		caption := s.faker.Sentence(s.faker.Number(3, 9))
		if s.images != nil {
			content, err := s.placeholder()
			if err != nil {
				return nil, err
			}
			img, err := s.images.Upload(ctx, owner, service.UploadImageInput{
				Filename:    fmt.Sprintf("seed-%d.png", i),
				ContentType: "image/png",
				Caption:     caption,
				Content:     content,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, *img)
			continue
		}

		img := models.Image{UserID: owner.Name, Src: uuid.NewString(), Caption: caption}
		if err := s.store.Images.Create(ctx, &img); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

// placeholder renders a two-tone gradient in one of the allowed aspect ratios.
func (s *Seeder) placeholder() ([]byte, error) {
	shapes := [][2]int{{640, 640}, {764, 400}, {512, 640}}
	shape := shapes[s.faker.Number(0, len(shapes)-1)]
	from := color.RGBA{R: s.faker.Uint8(), G: s.faker.Uint8(), B: s.faker.Uint8(), A: 255}
	to := color.RGBA{R: s.faker.Uint8(), G: s.faker.Uint8(), B: s.faker.Uint8(), A: 255}

	img := image.NewRGBA(image.Rect(0, 0, shape[0], shape[1]))
	for y := 0; y < shape[1]; y++ {
		t := float64(y) / float64(shape[1])
		c := color.RGBA{
			R: mix(from.R, to.R, t),
			G: mix(from.G, to.G, t),
			B: mix(from.B, to.B, t),
			A: 255,
		}
		for x := 0; x < shape[0]; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func mix(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}

func (s *Seeder) createFollows(ctx context.Context, users []models.User) (int, error) {
	if len(users) < 2 || s.opts.FollowsPerUser == 0 {
		return 0, nil
	}
	created := 0
	for i := range users {
		want := s.faker.Number(1, s.opts.FollowsPerUser)
		for j := 0; j < want; j++ {
			target := users[s.faker.Number(0, len(users)-1)]
			if target.Name == users[i].Name {
				continue
			}
			exists, err := s.store.Follows.Exists(ctx, users[i].Name, target.Name, false)
			if err != nil {
				return created, err
			}
			if exists {
				continue
			}
			edge := models.Follow{StartUserID: users[i].Name, EndUserID: target.Name}
			if err := s.store.Follows.Create(ctx, &edge); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

// publishBatch picks up to MaxPicked images and publishes them at a random time in the past.
// Roughly one in four batches is still inside the unpublish window.
func (s *Seeder) publishBatch(ctx context.Context, owner *models.User, images []models.Image) (int64, error) {
	if len(images) == 0 {
		return 0, nil
	}
	picks := s.faker.Number(1, min(len(images), workflow.MaxPicked))

	s.postedAt = s.opts.Now.Add(-time.Duration(s.faker.Number(2, 30*24)) * time.Hour)
	if s.faker.Number(1, 4) == 1 {
		s.postedAt = s.opts.Now.Add(-time.Duration(s.faker.Number(1, 50)) * time.Minute)
	}

	for i := 0; i < picks; i++ {
		if _, err := s.publish.Pick(ctx, owner, images[i].ID, true); err != nil {
			return 0, err
		}
	}
	return s.publish.Publish(ctx, owner)
}

// createComments leaves comments on published images from users allowed to comment on them.
func (s *Seeder) createComments(ctx context.Context, users []models.User) (int, error) {
	created := 0
	for i := range users {
		following, err := s.store.Follows.ListFollowing(ctx, users[i].Name)
		if err != nil {
			return created, err
		}
		for _, owner := range following {
			gallery, err := s.store.Images.ListGallery(ctx, owner)
			if err != nil {
				return created, err
			}
			for _, img := range gallery {
				if s.faker.Number(1, 3) != 1 {
					continue
				}
				comment := models.Comment{
					ImageID: img.ID,
					Author:  users[i].Name,
					Text:    s.faker.Sentence(s.faker.Number(2, 12)),
				}
				if err := s.store.Comments.Create(ctx, &comment); err != nil {
					return created, err
				}
				created++
			}
		}
	}
	return created, nil
}

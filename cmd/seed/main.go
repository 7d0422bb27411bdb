// Command seed fills the database with demo accounts and photos.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"onebatch/internal/cache"
	"onebatch/internal/config"
	"onebatch/internal/database"
	"onebatch/internal/repository"
	"onebatch/internal/seed"
	"onebatch/internal/service"
	"onebatch/internal/storage"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	perUser := flag.Int("images", 8, "Images per user")
	follows := flag.Int("follows", 5, "Maximum follows per user")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	withStorage := flag.Bool("storage", false, "Render and store photos in object storage")
	flag.Parse()

	log.Printf("Seeding %d users with %d images each, clean=%v\n", *numUsers, *perUser, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	var images *service.ImageService
	if *withStorage {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := storage.Connect(connectCtx, storage.Options{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			Bucket:    cfg.StorageBucket,
			UseSSL:    cfg.StorageUseSSL,
		})
		cancel()
		if err != nil {
			log.Fatalf("Failed to connect to object storage: %v", err)
		}
		images = service.NewImageService(repository.NewStore(db).Repos, client, nil, cfg)
	}

	var galleryCache *cache.Cache
	if cfg.RedisURL != "" {
		galleryCache = cache.New(cache.InitRedis(cfg.RedisURL))
	}

	s := seed.NewSeeder(db, images, seed.Options{
		Users:          *numUsers,
		ImagesPerUser:  *perUser,
		FollowsPerUser: *follows,
		Clean:          *shouldClean,
		Cache:          galleryCache,
	})
	res, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d images, %d follows, %d published batches, %d comments",
		res.Users, res.Images, res.Follows, res.Publishers, res.Comments)
	log.Printf("All seeded users have the password: %s", seed.Password)
}

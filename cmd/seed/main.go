package main

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"picboard/internal/config"
	"picboard/internal/db"
	"picboard/internal/model"
	"picboard/internal/repository"
)

// seedImage is a community image with no owner.
type seedImage struct {
	URL         string
	Description string
}

var seedImages = []seedImage{
	{URL: "https://picsum.photos/id/1015/600/400", Description: "River between mountains"},
	{URL: "https://picsum.photos/id/1016/600/400", Description: "Canyon at noon"},
	{URL: "https://picsum.photos/id/1018/600/400", Description: "Foggy peak"},
	{URL: "https://picsum.photos/id/1025/600/400", Description: "Resting pug"},
	{URL: "https://picsum.photos/id/1035/600/400", Description: "Waterfall in the woods"},
	{URL: "https://picsum.photos/id/1039/600/400", Description: "Valley lookout"},
	{URL: "https://picsum.photos/id/1043/600/400", Description: "City lights at dusk"},
	{URL: "https://picsum.photos/id/1047/600/400", Description: "Rooftops in the rain"},
	{URL: "https://picsum.photos/id/1050/600/400", Description: "Lantern alley"},
	{URL: "https://picsum.photos/id/1057/600/400", Description: "Shoreline rocks"},
	{URL: "https://picsum.photos/id/1062/600/400", Description: "Harbor morning"},
	{URL: "https://picsum.photos/id/1074/600/400", Description: "Prowling cat"},
}

func main() {
	log.Println("Starting seed script...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.ExternalLogin{}, &model.Image{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	imageRepo := repository.NewImageRepository(gormDB)
	ctx := context.Background()

	created := 0
	skipped := 0
	for _, seed := range seedImages {
		var existing model.Image
		err := gormDB.WithContext(ctx).Where("url = ?", seed.URL).First(&existing).Error
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatalf("Failed to check existing image: %v", err)
		}

		image := &model.Image{
			URL:         seed.URL,
			Description: seed.Description,
		}
		if err := imageRepo.Create(ctx, image); err != nil {
			log.Fatalf("Failed to create seed image: %v", err)
		}
		created++
	}

	log.Printf("Seed complete: %d community images created, %d already present", created, skipped)
}

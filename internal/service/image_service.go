package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"

	"picboard/internal/model"
	"picboard/internal/repository"
)

// DefaultPageSize is the community feed page size when none is requested.
const DefaultPageSize = 21

const maxDescriptionLen = 128

// ModerationClient checks an image for a user; a rejection is returned as an error.
type ModerationClient interface {
	Check(ctx context.Context, userID string, image io.Reader) error
}

// BlobStore persists accepted image bytes and returns their public URL.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// Upload is one file from an upload batch.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PagedImages is one page of the community feed.
type PagedImages struct {
	Items      []model.Image `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalCount int64         `json:"total_count"`
	TotalPages int           `json:"total_pages"`
}

// HomeFeed partitions the gallery for the current user.
type HomeFeed struct {
	UserImages      []model.Image `json:"user_images"`
	CommunityImages PagedImages   `json:"community_images"`
}

// ImageService handles gallery listing and moderated uploads.
type ImageService interface {
	Home(ctx context.Context, currentUserID string, page, pageSize int) (*HomeFeed, error)
	Upload(ctx context.Context, userID string, uploads []Upload) error
}

type imageService struct {
	imageRepo  repository.ImageRepository
	moderation ModerationClient
	blobs      BlobStore
}

// NewImageService creates a new image service.
func NewImageService(imageRepo repository.ImageRepository, moderation ModerationClient, blobs BlobStore) ImageService {
	return &imageService{
		imageRepo:  imageRepo,
		moderation: moderation,
		blobs:      blobs,
	}
}

// Home returns the current user's images and a page of community images.
// Anonymous visitors (empty currentUserID) see everything as community.
func (s *imageService) Home(ctx context.Context, currentUserID string, page, pageSize int) (*HomeFeed, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	userImages := []model.Image{}
	if currentUserID != "" {
		var err error
		userImages, err = s.imageRepo.ListByOwner(ctx, currentUserID)
		if err != nil {
			return nil, fmt.Errorf("list user images: %w", err)
		}
	}

	communityImages, total, err := s.imageRepo.ListCommunity(ctx, currentUserID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list community images: %w", err)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &HomeFeed{
		UserImages: userImages,
		CommunityImages: PagedImages{
			Items:      communityImages,
			Page:       page,
			PageSize:   pageSize,
			TotalCount: total,
			TotalPages: totalPages,
		},
	}, nil
}

// Upload sends each file to the moderation service in order. The first
// rejection aborts the batch: remaining files are never sent and the error
// (a *moderation.CheckError for rejections) propagates. Files accepted before
// the rejection stay persisted.
func (s *imageService) Upload(ctx context.Context, userID string, uploads []Upload) error {
	for _, upload := range uploads {
		if err := s.moderation.Check(ctx, userID, bytes.NewReader(upload.Data)); err != nil {
			return err
		}

		key := fmt.Sprintf("%s/%s%s", userID, uuid.New().String(), filepath.Ext(upload.Filename))
		url, err := s.blobs.Put(ctx, key, bytes.NewReader(upload.Data), int64(len(upload.Data)), upload.ContentType)
		if err != nil {
			return fmt.Errorf("store image: %w", err)
		}

		ownerID := userID
		image := &model.Image{
			URL:         url,
			Description: describeUpload(upload.Filename),
			UserID:      &ownerID,
		}
		if err := s.imageRepo.Create(ctx, image); err != nil {
			return fmt.Errorf("create image: %w", err)
		}
	}
	return nil
}

func describeUpload(filename string) string {
	if filename == "" {
		return "Uploaded image"
	}
	if len(filename) > maxDescriptionLen {
		return filename[:maxDescriptionLen]
	}
	return filename
}

package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ImageStorage defines contract for the avatar storage provider (Cloudinary implementation).
type ImageStorage interface {
	// UploadAvatar uploads an avatar image from reader and returns the delivery URL.
	// key identifies the owner; re-uploading with the same key replaces the image.
	UploadAvatar(ctx context.Context, r io.Reader, key string) (string, error)
}

type cloudinaryStorage struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStorage creates a Cloudinary-backed implementation of ImageStorage.
// It expects CLOUDINARY_URL or individual CLOUDINARY_CLOUD_NAME / CLOUDINARY_API_KEY /
// CLOUDINARY_API_SECRET to be configured in environment variables.
func NewCloudinaryStorage() (ImageStorage, error) {
	// cloudinary.New() automatically reads CLOUDINARY_URL from environment if present.
	cld, err := cloudinary.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}

	// Ensure HTTPS URLs by default.
	cld.Config.URL.Secure = true

	if cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME"); cloudName != "" {
		cld.Config.Cloud.CloudName = cloudName
	}

	folder := os.Getenv("CLOUDINARY_UPLOAD_FOLDER")
	if folder == "" {
		folder = "contactkeeper/avatars"
	}

	return &cloudinaryStorage{cld: cld, folder: folder}, nil
}

// UploadAvatar uploads an avatar to Cloudinary and returns the secure URL.
// One image per key: subsequent uploads overwrite the previous avatar so
// stale images don't pile up in storage.
func (s *cloudinaryStorage) UploadAvatar(ctx context.Context, r io.Reader, key string) (string, error) {
	if s == nil || s.cld == nil {
		return "", fmt.Errorf("cloudinary storage is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	params := uploader.UploadParams{
		Folder:         s.folder,
		PublicID:       key,
		Overwrite:      api.Bool(true),
		Invalidate:     api.Bool(true),
		Format:         "webp",
		Transformation: "c_fill,w_250,h_250,q_auto",
	}

	resp, err := s.cld.Upload.Upload(ctx, r, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar to cloudinary: %w", err)
	}

	if resp.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload succeeded but secure URL is empty")
	}

	return resp.SecureURL, nil
}

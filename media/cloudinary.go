// Package media stores entry photographs in Cloudinary and hands back
// stable URLs.
package media

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryFromEnv returns a store, or nil when CLOUDINARY_URL is
// not set.
func NewCloudinaryFromEnv() (*CloudinaryStore, error) {
	url := os.Getenv("CLOUDINARY_URL")
	if url == "" {
		log.Printf("[media] CLOUDINARY_URL is not set; image uploads disabled")
		return nil, nil
	}
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, err
	}
	folder := os.Getenv("CLOUDINARY_FOLDER")
	if folder == "" {
		folder = "insects"
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

// Upload stores a data-URL image under publicID and returns its URL.
func (s *CloudinaryStore) Upload(ctx context.Context, publicID, imageDataURL string) (string, error) {
	if imageDataURL == "" {
		return "", errors.New("empty image data")
	}
	resp, err := s.cld.Upload.Upload(ctx, imageDataURL, uploader.UploadParams{
		PublicID: publicID,
		Folder:   s.folder,
	})
	if err != nil {
		log.Printf("[media][error] upload failed id=%s err=%v", publicID, err)
		return "", err
	}
	return resp.SecureURL, nil
}

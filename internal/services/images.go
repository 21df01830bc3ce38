package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	imageKeyPrefix = "listing-images"
	maxImageSize   = 10 * 1024 * 1024 // 10MB
)

// allowedImageTypes maps acceptable MIME types to file extensions.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ArchivedImage describes one image re-hosted in our bucket.
type ArchivedImage struct {
	SourceURL   string `json:"source_url"`
	Key         string `json:"key"`
	PublicURL   string `json:"public_url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// ImageArchiver downloads a listing's external photos and re-hosts them in
// S3 so listings never depend on third-party image hosting.
type ImageArchiver struct {
	s3Client   *s3.Client
	httpClient *http.Client
	bucketName string
	region     string
}

// NewImageArchiver creates an archiver with AWS configuration from the
// environment.
func NewImageArchiver() (*ImageArchiver, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	bucketName := os.Getenv("LISTING_IMAGES_BUCKET")
	if bucketName == "" {
		bucketName = "wedding-directory-listing-images-apse2"
	}

	return &ImageArchiver{
		s3Client:   s3.NewFromConfig(cfg),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		bucketName: bucketName,
		region:     cfg.Region,
	}, nil
}

// ArchiveListingImages fetches and stores each image URL for a listing.
// Individual image failures are logged and skipped; the listing keeps
// whatever archived successfully.
func (a *ImageArchiver) ArchiveListingImages(ctx context.Context, listingID string, imageURLs []string) []ArchivedImage {
	var archived []ArchivedImage
	for i, imageURL := range imageURLs {
		image, err := a.archiveImage(ctx, listingID, i, imageURL)
		if err != nil {
			log.Printf("Failed to archive image %s for listing %s: %v", imageURL, listingID, err)
			continue
		}
		archived = append(archived, *image)
	}
	return archived
}

// archiveImage downloads one image, validates it, and uploads it under the
// listing's key prefix.
func (a *ImageArchiver) archiveImage(ctx context.Context, listingID string, index int, imageURL string) (*ArchivedImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0]))
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}

	// Read one byte past the cap to detect oversized images.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("image exceeds %d byte limit", maxImageSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image body is empty")
	}

	key := path.Join(imageKeyPrefix, listingID, fmt.Sprintf("%03d%s", index, ext))
	_, err = a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &ArchivedImage{
		SourceURL:   imageURL,
		Key:         key,
		PublicURL:   a.publicURL(key),
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

// publicURL builds the public object URL for a key.
func (a *ImageArchiver) publicURL(key string) string {
	region := a.region
	if region == "" {
		region = "ap-southeast-2"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", a.bucketName, region, key)
}

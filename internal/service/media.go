package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"inkcircle/internal/config"
	"inkcircle/internal/model"
)

const coverExt = ".jpg"

// CoverUploader moves inline cover images to object storage.
type CoverUploader interface {
	UploadCoverDataURI(ctx context.Context, dataURI string) (*model.UploadResult, error)
	// DeleteCover removes a cover previously uploaded by this service.
	// URLs hosted elsewhere are ignored.
	DeleteCover(ctx context.Context, url string) error
}

// objectStore is the part of the S3 client the service uses.
type objectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// MediaService handles cover uploads to Cloudflare R2.
type MediaService struct {
	client    objectStore
	bucket    string
	publicURL string
}

// NewMediaService constructs an S3-compatible client for Cloudflare R2.
func NewMediaService(ctx context.Context, cfg *config.Config) (*MediaService, error) {
	if !cfg.ObjectStorageEnabled() {
		return nil, fmt.Errorf("missing Cloudflare R2 configuration")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return newMediaService(client, cfg.R2BucketName, cfg.R2PublicURL), nil
}

func newMediaService(client objectStore, bucket, publicURL string) *MediaService {
	return &MediaService{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// UploadCoverDataURI decodes a base64 data URI, crops it to the cover
// ratio and uploads it as JPEG.
func (s *MediaService) UploadCoverDataURI(ctx context.Context, dataURI string) (*model.UploadResult, error) {
	data, err := decodeDataURI(dataURI, model.MaxCoverImageBytes)
	if err != nil {
		return nil, err
	}

	jpegBytes, err := resizeToJPEG(data, model.CoverWidth, model.CoverHeight, 85)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s%s", model.CoverFolder, uuid.NewString(), coverExt)
	if err := s.putObject(ctx, key, jpegBytes, model.ContentTypeJPEG, model.CoverCacheControl); err != nil {
		return nil, err
	}

	log.Infof("[Media] UploadCover OK: key=%s bytes=%d", key, len(jpegBytes))
	return &model.UploadResult{URL: s.publicURL + "/" + key, Key: key}, nil
}

func (s *MediaService) DeleteCover(ctx context.Context, url string) error {
	prefix := s.publicURL + "/" + model.CoverFolder + "/"
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	return s.deleteObject(ctx, strings.TrimPrefix(url, s.publicURL+"/"))
}

// decodeDataURI returns the image bytes of a "data:<type>;base64,<payload>" URI
// with size and type checks.
func decodeDataURI(uri string, maxSize int) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasPrefix(uri, "data:") {
		return nil, model.ErrInvalidCoverImage
	}
	params := strings.Split(meta, ";")
	if len(params) < 2 || params[len(params)-1] != "base64" {
		return nil, model.ErrInvalidCoverImage
	}
	if !model.IsAllowedImageType(strings.ToLower(strings.TrimSpace(params[0]))) {
		return nil, model.ErrInvalidImageType
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > maxSize+3 {
		return nil, model.ErrFileTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, model.ErrInvalidCoverImage
	}
	if len(data) > maxSize {
		return nil, model.ErrFileTooLarge
	}

	// The declared type is not trusted; sniff the bytes as well.
	sniffed := http.DetectContentType(data[:min(len(data), 512)])
	if idx := strings.Index(sniffed, ";"); idx != -1 {
		sniffed = strings.TrimSpace(sniffed[:idx])
	}
	if !model.IsAllowedImageType(sniffed) {
		return nil, model.ErrInvalidImageType
	}
	return data, nil
}

// resizeToJPEG centers/crops to target size and encodes as JPEG.
func resizeToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *MediaService) putObject(ctx context.Context, key string, body []byte, contentType, cacheControl string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		log.Errorf("[Media] PutObject FAILED: key=%s err=%v", key, err)
		return fmt.Errorf("failed to upload to r2: %w", err)
	}
	return nil
}

func (s *MediaService) deleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from r2: %w", err)
	}
	return nil
}

package service

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/storage"
	"alcyxob/gym-app/internal/telemetry/tracing"
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid" // For generating unique identifiers for S3 keys
	log "github.com/sirupsen/logrus"
)

var (
	ErrUploadsDisabled = errors.New("image uploads are not configured")
	ErrUploadURLError  = errors.New("failed to generate upload URL")
)

// ImageKind selects the key prefix of an uploaded image.
type ImageKind string

const (
	ImageProgram ImageKind = "programs"
	ImageProfile ImageKind = "profiles"
)

// imageExtensions maps the accepted content types to file extensions.
var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// UploadURLResponse structure for returning the presigned URL, the object key
// and the URL the image will be served from once uploaded.
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
	PublicURL string `json:"publicUrl"`
}

type ImageService interface {
	RequestUploadURL(ctx context.Context, actor domain.Identity, kind ImageKind, contentType string) (*UploadURLResponse, error)
}

type imageService struct {
	fileStorage storage.FileStorage // nil when uploads are disabled
}

func NewImageService(fileStorage storage.FileStorage) ImageService {
	return &imageService{fileStorage: fileStorage}
}

func (s *imageService) RequestUploadURL(ctx context.Context, actor domain.Identity, kind ImageKind, contentType string) (_ *UploadURLResponse, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.image.requestUploadURL")
	defer tracing.EndSpanWithErrCheck(span, &err)

	if s.fileStorage == nil {
		return nil, ErrUploadsDisabled
	}
	switch kind {
	case ImageProgram:
		if actor.Role != domain.RoleCoach {
			return nil, ErrAccessDenied
		}
	case ImageProfile:
	default:
		return nil, invalid("kind", "must be one of program profile")
	}
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return nil, invalid("contentType", "must be one of image/jpeg image/png image/webp image/gif")
	}

	objectKey := path.Join("images", string(kind), actor.UserID.Hex(), uuid.NewString()+"."+ext)
	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		log.WithField("key", objectKey).WithError(err).Error("presign image upload")
		return nil, ErrUploadURLError
	}

	return &UploadURLResponse{
		UploadURL: uploadURL,
		ObjectKey: objectKey,
		PublicURL: s.fileStorage.ObjectURL(objectKey),
	}, nil
}

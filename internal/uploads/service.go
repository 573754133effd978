package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-training/backend/internal/models"
	"github.com/aura-training/backend/pkg/storage"
)

// ObjectStore is the S3 surface used for cover images. Implemented by storage.S3.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	GeneratePresignedUploadURL(ctx context.Context, key, contentType string) (string, error)
	PublicObjectURL(key string) string
	PresignExpire() time.Duration
	KeyForURL(url string) (string, bool)
	DeleteObject(ctx context.Context, key string) error
}

// Formations reads formations and records their cover URL.
type Formations interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Formation, error)
	SetImageURL(ctx context.Context, id uuid.UUID, url string) error
}

// PresignedUpload is returned for direct browser uploads.
type PresignedUpload struct {
	UploadURL   string `json:"uploadUrl"`
	Key         string `json:"key"`
	ImageURL    string `json:"imageUrl"`
	ContentType string `json:"contentType"`
	ExpiresIn   int    `json:"expiresIn"`
}

// Service uploads cover images and links them to formations.
type Service struct {
	store      ObjectStore
	formations Formations
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates an uploads service.
func NewService(store ObjectStore, formations Formations, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, formations: formations, logger: logger, now: time.Now}
}

// imageName gives each upload its own key so CDN caches never serve a replaced cover.
func (s *Service) imageName() string {
	return fmt.Sprintf("cover-%d", s.now().Unix())
}

// UploadCover resizes the image, stores it and saves its URL on the formation.
func (s *Service) UploadCover(ctx context.Context, identity *models.Identity, formationID uuid.UUID, contentType string, size int64, body io.Reader) (*models.Formation, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	ext, err := checkImage(contentType, size)
	if err != nil {
		return nil, err
	}
	current, err := s.formations.GetByID(ctx, formationID)
	if err != nil {
		return nil, err
	}
	data, err := PrepareCover(io.LimitReader(body, storage.MaxImageFileSize+1), ext)
	if err != nil {
		return nil, err
	}
	key := storage.FormationImageKey(formationID.String(), s.imageName(), ext)
	url, err := s.store.Upload(ctx, key, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	if err := s.formations.SetImageURL(ctx, formationID, url); err != nil {
		return nil, err
	}
	s.removeReplaced(ctx, current.ImageURL, key)
	s.logger.Info("formation cover uploaded", zap.String("formation_id", formationID.String()), zap.String("key", key), zap.Int("bytes", len(data)))
	return s.formations.GetByID(ctx, formationID)
}

// PresignCover returns a PUT URL for a direct upload and saves the resulting public URL on the
// formation. Images uploaded this way are stored as sent, without resizing.
func (s *Service) PresignCover(ctx context.Context, identity *models.Identity, formationID uuid.UUID, contentType string, size int64) (*PresignedUpload, error) {
	if err := requireAdmin(identity); err != nil {
		return nil, err
	}
	ext, err := checkImage(contentType, size)
	if err != nil {
		return nil, err
	}
	if _, err := s.formations.GetByID(ctx, formationID); err != nil {
		return nil, err
	}
	key := storage.FormationImageKey(formationID.String(), s.imageName(), ext)
	uploadURL, err := s.store.GeneratePresignedUploadURL(ctx, key, contentType)
	if err != nil {
		return nil, err
	}
	imageURL := s.store.PublicObjectURL(key)
	if err := s.formations.SetImageURL(ctx, formationID, imageURL); err != nil {
		return nil, err
	}
	return &PresignedUpload{
		UploadURL:   uploadURL,
		Key:         key,
		ImageURL:    imageURL,
		ContentType: contentType,
		ExpiresIn:   int(s.store.PresignExpire().Seconds()),
	}, nil
}

// removeReplaced deletes the previous cover when it lives in the uploads bucket.
// Failures leave an orphan object and are only logged.
func (s *Service) removeReplaced(ctx context.Context, previous *string, newKey string) {
	if previous == nil {
		return
	}
	old, ok := s.store.KeyForURL(*previous)
	if !ok || old == newKey {
		return
	}
	if err := s.store.DeleteObject(ctx, old); err != nil {
		s.logger.Warn("previous cover not deleted", zap.String("key", old), zap.Error(err))
	}
}

func requireAdmin(identity *models.Identity) error {
	if identity == nil {
		return models.ErrUnauthorized
	}
	if !identity.IsAdmin() {
		return models.ErrForbidden
	}
	return nil
}

func checkImage(contentType string, size int64) (string, error) {
	if size > storage.MaxImageFileSize {
		return "", fmt.Errorf("%w: file size exceeds 5MB limit", models.ErrValidation)
	}
	ext, ok := storage.ImageExtension(contentType)
	if !ok {
		return "", fmt.Errorf("%w: only jpeg and png images are accepted", models.ErrValidation)
	}
	return ext, nil
}

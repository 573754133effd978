package uploads

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-training/backend/internal/middleware"
	"github.com/aura-training/backend/internal/models"
)

type memBucket struct {
	objects map[string][]byte
}

func (b *memBucket) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	b.objects[key] = data
	return b.PublicObjectURL(key), nil
}

func (b *memBucket) GeneratePresignedUploadURL(_ context.Context, key, _ string) (string, error) {
	return "https://bucket.example/" + key + "?X-Amz-Signature=abc", nil
}

func (b *memBucket) PublicObjectURL(key string) string { return "https://bucket.example/" + key }

func (b *memBucket) PresignExpire() time.Duration { return 15 * time.Minute }

func (b *memBucket) KeyForURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, "https://bucket.example/")
	return key, ok && key != ""
}

func (b *memBucket) DeleteObject(_ context.Context, key string) error {
	delete(b.objects, key)
	return nil
}

type memFormations map[uuid.UUID]*models.Formation

func (m memFormations) GetByID(_ context.Context, id uuid.UUID) (*models.Formation, error) {
	f, ok := m[id]
	if !ok {
		return nil, models.ErrFormationNotFound
	}
	cp := *f
	return &cp, nil
}

func (m memFormations) SetImageURL(_ context.Context, id uuid.UUID, url string) error {
	f, ok := m[id]
	if !ok {
		return models.ErrFormationNotFound
	}
	f.ImageURL = &url
	return nil
}

var admin = &models.Identity{UserID: uuid.New(), Role: models.RoleAdmin}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fixture() (*Service, *memBucket, memFormations, uuid.UUID) {
	bucket := &memBucket{objects: map[string][]byte{}}
	id := uuid.New()
	formations := memFormations{id: {ID: id, Title: "Excel avancé"}}
	svc := NewService(bucket, formations, nil)
	svc.now = func() time.Time { return time.Unix(1780000000, 0) }
	return svc, bucket, formations, id
}

func TestPrepareCover_ShrinksLargeImages(t *testing.T) {
	out, err := PrepareCover(bytes.NewReader(pngOf(t, 2400, 1350)), ".png")
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, CoverWidth, cfg.Width)
	assert.Equal(t, CoverHeight, cfg.Height)
}

func TestPrepareCover_KeepsSmallImages(t *testing.T) {
	out, err := PrepareCover(bytes.NewReader(pngOf(t, 640, 480)), ".png")
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 480, cfg.Height)
}

func TestPrepareCover_RejectsGarbage(t *testing.T) {
	_, err := PrepareCover(strings.NewReader("not an image"), ".png")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUploadCover(t *testing.T) {
	svc, bucket, formations, id := fixture()
	data := pngOf(t, 1600, 900)

	f, err := svc.UploadCover(context.Background(), admin, id, "image/png", int64(len(data)), bytes.NewReader(data))
	require.NoError(t, err)
	key := "formations/" + id.String() + "/cover-1780000000.png"
	require.Contains(t, bucket.objects, key)
	require.NotNil(t, f.ImageURL)
	assert.Equal(t, "https://bucket.example/"+key, *f.ImageURL)
	assert.Equal(t, *f.ImageURL, *formations[id].ImageURL)
}

func TestUploadCover_ReplacesPreviousObject(t *testing.T) {
	svc, bucket, formations, id := fixture()
	oldKey := "formations/" + id.String() + "/cover-1.png"
	bucket.objects[oldKey] = []byte("old")
	oldURL := "https://bucket.example/" + oldKey
	formations[id].ImageURL = &oldURL

	data := pngOf(t, 20, 20)
	_, err := svc.UploadCover(context.Background(), admin, id, "image/png", int64(len(data)), bytes.NewReader(data))
	require.NoError(t, err)
	assert.NotContains(t, bucket.objects, oldKey)
	assert.Len(t, bucket.objects, 1)
}

func TestUploadCover_KeepsForeignImages(t *testing.T) {
	svc, bucket, formations, id := fixture()
	external := "https://cdn.other.example/cover.png"
	formations[id].ImageURL = &external

	data := pngOf(t, 20, 20)
	_, err := svc.UploadCover(context.Background(), admin, id, "image/png", int64(len(data)), bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, bucket.objects, 1)
}

func TestUploadCover_Rejections(t *testing.T) {
	svc, bucket, _, id := fixture()
	data := pngOf(t, 10, 10)
	ctx := context.Background()

	_, err := svc.UploadCover(ctx, nil, id, "image/png", 10, bytes.NewReader(data))
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, err = svc.UploadCover(ctx, &models.Identity{Role: models.RoleUser}, id, "image/png", 10, bytes.NewReader(data))
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = svc.UploadCover(ctx, admin, id, "image/gif", 10, bytes.NewReader(data))
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = svc.UploadCover(ctx, admin, id, "image/png", 6<<20, bytes.NewReader(data))
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = svc.UploadCover(ctx, admin, uuid.New(), "image/png", 10, bytes.NewReader(data))
	assert.ErrorIs(t, err, models.ErrFormationNotFound)
	assert.Empty(t, bucket.objects)
}

func TestPresignCover(t *testing.T) {
	svc, _, formations, id := fixture()
	out, err := svc.PresignCover(context.Background(), admin, id, "image/jpeg", 1024)
	require.NoError(t, err)
	assert.Equal(t, "formations/"+id.String()+"/cover-1780000000.jpg", out.Key)
	assert.Contains(t, out.UploadURL, "X-Amz-Signature")
	assert.Equal(t, 900, out.ExpiresIn)
	assert.Equal(t, out.ImageURL, *formations[id].ImageURL)
}

func TestHandler_UploadImage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, bucket, _, id := fixture()
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextIdentity, admin) })
	r.POST("/formations/:id/image", NewHandler(svc, nil).UploadImage)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="cover.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(pngOf(t, 300, 200))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/formations/"+id.String()+"/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, bucket.objects, 1)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/formations/"+id.String()+"/image", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_NotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/formations/:id/image/upload-url", NewHandler(nil, nil).UploadURL)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/formations/"+uuid.NewString()+"/image/upload-url", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

package storage

import (
	"bytes"
	"context"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
	"github.com/oksasatya/user-management-api/pkg/helpers"
)

// ImageMirror copies stored profile images to a GCS bucket.
// The database row stays the source of truth.
type ImageMirror struct {
	Client *storage.Client
	Bucket string
}

func NewImageMirror(client *storage.Client, bucket string) *ImageMirror {
	return &ImageMirror{Client: client, Bucket: bucket}
}

func (m *ImageMirror) enabled() bool { return m != nil && m.Client != nil && m.Bucket != "" }

// ObjectPath is the bucket key of a user's profile image.
func ObjectPath(userID uuid.UUID, img entity.ProfileImage) string {
	ext := strings.ToLower(path.Ext(img.Name))
	if ext == "" {
		ext = "." + strings.TrimPrefix(img.ContentType, "image/")
	}
	return "profile-images/" + userID.String() + "/" + img.ID.String() + ext
}

func userPrefix(userID uuid.UUID) string {
	return "profile-images/" + userID.String() + "/"
}

// Mirror uploads img and returns its public URL, or "" when mirroring is off.
func (m *ImageMirror) Mirror(ctx context.Context, userID uuid.UUID, img entity.ProfileImage) (string, error) {
	if !m.enabled() {
		return "", nil
	}
	return helpers.UploadObject(ctx, m.Client, m.Bucket, ObjectPath(userID, img), img.ContentType, bytes.NewReader(img.ImageBytes))
}

// Purge deletes every mirrored image of the user.
func (m *ImageMirror) Purge(ctx context.Context, userID uuid.UUID) error {
	if !m.enabled() {
		return nil
	}
	it := m.Client.Bucket(m.Bucket).Objects(ctx, &storage.Query{Prefix: userPrefix(userID)})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return err
		}
		if err := helpers.DeleteObject(ctx, m.Client, m.Bucket, attrs.Name); err != nil {
			return err
		}
	}
}

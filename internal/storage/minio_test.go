package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeyStripsDirectories(t *testing.T) {
	key, err := ObjectKey("p1", "../../etc/site photo.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "projects/p1/"))
	assert.True(t, strings.HasSuffix(key, "-site photo.jpg"))
}

func TestObjectKeyRejectsEmptyNames(t *testing.T) {
	for _, name := range []string{"", "  ", "..", "/"} {
		_, err := ObjectKey("p1", name)
		assert.ErrorIs(t, err, ErrInvalidFileName, name)
	}
	_, err := ObjectKey("", "a.jpg")
	assert.ErrorIs(t, err, ErrInvalidFileName)
}

func TestPresignUploadIsSignedLocally(t *testing.T) {
	client, err := NewClient("localhost:9000", "access", "secret", "us-east-1", false)
	require.NoError(t, err)
	store := NewPhotoStore(client, "photos", time.Minute)

	upload, err := store.PresignUpload(context.Background(), "p1", "crack.jpg")
	require.NoError(t, err)
	assert.Contains(t, upload.UploadURL, "/photos/projects/p1/")
	assert.Contains(t, upload.UploadURL, "X-Amz-Signature=")
	assert.True(t, strings.HasPrefix(upload.PublicURL, "http://localhost:9000/photos/projects/p1/"))
	assert.True(t, strings.HasSuffix(upload.ObjectKey, "-crack.jpg"))
}

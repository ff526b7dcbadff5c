package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryClient_ImageRoundTrip(t *testing.T) {
	c := NewMemoryClient(zap.NewNop())
	ctx := context.Background()

	url, err := c.UploadImage(ctx, "scan-1.jpg", []byte("image-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "scans/scan-1.jpg", url)

	data, contentType, err := c.DownloadImage(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)
	assert.Equal(t, "image/jpeg", contentType)
}

func TestMemoryClient_MissingBlob(t *testing.T) {
	c := NewMemoryClient(zap.NewNop())

	_, _, err := c.DownloadImage(context.Background(), "scans/nope.jpg")
	assert.Error(t, err)
}

func TestMemoryClient_UploadPDF(t *testing.T) {
	c := NewMemoryClient(zap.NewNop())

	url, err := c.UploadPDF(context.Background(), "report-1.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "exports/report-1.pdf", url)

	data, contentType, err := c.DownloadImage(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.NotEmpty(t, data)
}

func TestMemoryClient_Delete(t *testing.T) {
	c := NewMemoryClient(zap.NewNop())
	ctx := context.Background()

	url, err := c.UploadImage(ctx, "scan-1.jpg", []byte("x"), "image/png")
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, url))
	assert.Equal(t, 0, c.Len())

	// Deleting a missing blob is a no-op
	require.NoError(t, c.Delete(ctx, url))
}

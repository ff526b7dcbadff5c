package blob

import "context"

// ObjectStorage defines the interface for stored scan images and exports.
// The in-memory implementation backs development and tests; the Azure
// implementation backs production.
type ObjectStorage interface {
	UploadImage(ctx context.Context, name string, data []byte, contentType string) (string, error)
	DownloadImage(ctx context.Context, blobName string) ([]byte, string, error)
	UploadPDF(ctx context.Context, name string, data []byte) (string, error)
	Delete(ctx context.Context, blobName string) error
}

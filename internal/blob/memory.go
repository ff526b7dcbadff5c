package blob

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryClient is an in-memory ObjectStorage used when no blob storage
// credentials are configured, and in tests.
type MemoryClient struct {
	objects map[string]memoryObject
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewMemoryClient creates a new in-memory object storage client
func NewMemoryClient(logger *zap.Logger) *MemoryClient {
	return &MemoryClient{
		objects: make(map[string]memoryObject),
		logger:  logger,
	}
}

// UploadImage stores a scanned image in memory.
func (c *MemoryClient) UploadImage(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blobName := fmt.Sprintf("scans/%s", name)
	c.objects[blobName] = memoryObject{data: data, contentType: contentType}

	if c.logger != nil {
		c.logger.Info("memory: image stored",
			zap.String("blob_name", blobName),
			zap.Int("size_bytes", len(data)),
		)
	}

	return blobName, nil
}

// DownloadImage retrieves a stored image.
func (c *MemoryClient) DownloadImage(ctx context.Context, blobName string) ([]byte, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	obj, exists := c.objects[blobName]
	if !exists {
		return nil, "", fmt.Errorf("blob not found: %s", blobName)
	}

	return obj.data, obj.contentType, nil
}

// UploadPDF stores a PDF export in memory.
func (c *MemoryClient) UploadPDF(ctx context.Context, name string, data []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blobName := fmt.Sprintf("exports/%s", name)
	c.objects[blobName] = memoryObject{data: data, contentType: "application/pdf"}

	if c.logger != nil {
		c.logger.Info("memory: PDF stored",
			zap.String("blob_name", blobName),
			zap.Int("size_bytes", len(data)),
		)
	}

	return blobName, nil
}

// Delete removes a stored object. Deleting a missing blob is not an error.
func (c *MemoryClient) Delete(ctx context.Context, blobName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.objects, blobName)
	return nil
}

// Len reports the number of stored objects. Test helper.
func (c *MemoryClient) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}

var _ ObjectStorage = (*MemoryClient)(nil)

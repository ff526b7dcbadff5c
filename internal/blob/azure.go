package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"go.uber.org/zap"
)

// AzureClient stores scan images and PDF exports in Azure Blob Storage.
type AzureClient struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
}

// NewAzureClient creates a new Azure Blob Storage client
func NewAzureClient(accountName, accountKey, containerName string, logger *zap.Logger) (*AzureClient, error) {
	if accountName == "" || accountKey == "" || containerName == "" {
		return nil, fmt.Errorf("accountName, accountKey, and containerName are required")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &AzureClient{
		client:        client,
		containerName: containerName,
		logger:        logger,
	}, nil
}

// UploadImage uploads a scanned image and returns its blob name.
func (c *AzureClient) UploadImage(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	blobName := fmt.Sprintf("scans/%s", name)

	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	_, err := blobClient.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{
			"contenttype": toPtr(contentType),
		},
	})
	if err != nil {
		c.logger.Error("failed to upload image",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	c.logger.Info("image uploaded",
		zap.String("blob_name", blobName),
		zap.Int("size_bytes", len(data)),
	)

	return blobName, nil
}

// DownloadImage downloads a scanned image. The stored content type is
// returned alongside the data.
func (c *AzureClient) DownloadImage(ctx context.Context, blobName string) ([]byte, string, error) {
	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	downloadResponse, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		c.logger.Error("failed to download image",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer downloadResponse.Body.Close()

	data, err := io.ReadAll(downloadResponse.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	contentType := "application/octet-stream"
	if ct, ok := downloadResponse.Metadata["contenttype"]; ok && ct != nil {
		contentType = *ct
	}

	c.logger.Info("image downloaded",
		zap.String("blob_name", blobName),
		zap.Int("size_bytes", len(data)),
	)

	return data, contentType, nil
}

// UploadPDF uploads a PDF export and returns its blob name.
func (c *AzureClient) UploadPDF(ctx context.Context, name string, data []byte) (string, error) {
	blobName := fmt.Sprintf("exports/%s", name)

	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	_, err := blobClient.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{
			"contenttype": toPtr("application/pdf"),
		},
	})
	if err != nil {
		c.logger.Error("failed to upload PDF",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload PDF: %w", err)
	}

	c.logger.Info("PDF uploaded", zap.String("blob_name", blobName))

	return blobName, nil
}

// Delete removes a blob. Used when a record owning an image is deleted.
func (c *AzureClient) Delete(ctx context.Context, blobName string) error {
	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	if _, err := blobClient.Delete(ctx, nil); err != nil {
		c.logger.Error("failed to delete blob",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	c.logger.Info("blob deleted", zap.String("blob_name", blobName))

	return nil
}

// toPtr is a helper function to convert a value to a pointer
func toPtr(s string) *string {
	return &s
}

var _ ObjectStorage = (*AzureClient)(nil)

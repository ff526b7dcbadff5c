package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"

	"github.com/healthlens/healthlens/internal/ai"
	"github.com/healthlens/healthlens/internal/blob"
)

func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Get credentials from environment
	aiBaseURL := os.Getenv("AI_BASE_URL")
	aiKey := os.Getenv("AI_API_KEY")
	aiModel := os.Getenv("AI_MODEL")

	storageAccountName := os.Getenv("AZURE_STORAGE_ACCOUNT_NAME")
	storageAccountKey := os.Getenv("AZURE_STORAGE_ACCOUNT_KEY")
	imageContainer := os.Getenv("AZURE_STORAGE_IMAGE_CONTAINER")

	if aiKey == "" || aiModel == "" {
		logger.Fatal("Missing AI credentials. Set AI_API_KEY and AI_MODEL")
	}

	ctx := context.Background()

	// Test 1: Model client
	logger.Info("=== Testing model client ===")
	if err := testAIClient(ctx, aiBaseURL, aiKey, aiModel, logger); err != nil {
		logger.Error("model client test failed", zap.Error(err))
	} else {
		logger.Info("model client test passed")
	}

	// Test 2: Blob storage client
	logger.Info("=== Testing blob storage client ===")
	if storageAccountName == "" || storageAccountKey == "" {
		logger.Warn("Azure storage credentials not set, skipping blob storage test")
	} else if err := testBlobClient(ctx, storageAccountName, storageAccountKey, imageContainer, logger); err != nil {
		logger.Error("blob storage client test failed", zap.Error(err))
	} else {
		logger.Info("blob storage client test passed")
	}

	logger.Info("=== All tests completed ===")
}

func testAIClient(ctx context.Context, baseURL, apiKey, model string, logger *zap.Logger) error {
	client, err := ai.NewClient(baseURL, apiKey, model, logger)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a helpful assistant."),
		openai.UserMessage("Reply with the single word: pong"),
	}

	response, err := client.Complete(ctx, messages)
	if err != nil {
		return fmt.Errorf("chat completion failed: %w", err)
	}

	logger.Info("model response received",
		zap.String("response", response),
		zap.Int("response_length", len(response)),
	)

	return nil
}

func testBlobClient(ctx context.Context, accountName, accountKey, container string, logger *zap.Logger) error {
	if container == "" {
		container = "scan-images"
	}

	client, err := blob.NewAzureClient(accountName, accountKey, container, logger)
	if err != nil {
		return fmt.Errorf("failed to create blob client: %w", err)
	}

	name := fmt.Sprintf("smoke-test-%d.txt", time.Now().Unix())
	payload := []byte("healthlens blob storage smoke test")

	url, err := client.UploadImage(ctx, name, payload, "text/plain")
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	data, contentType, err := client.DownloadImage(ctx, url)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	if string(data) != string(payload) {
		return fmt.Errorf("round trip mismatch: got %d bytes, content type %s", len(data), contentType)
	}

	if err := client.Delete(ctx, url); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	logger.Info("blob round trip completed", zap.String("blob_name", url))

	return nil
}
